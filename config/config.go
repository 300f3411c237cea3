// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package config assembles the dynflate settings from the command line,
// DYNFLATE_* environment variables, an optional .env file, and an optional
// TOML file. Command line flags and environment variables take precedence
// over the TOML file.
package config

import (
	"os"
	"runtime"

	"github.com/alecthomas/kong"
	strconv "github.com/dsnet/golib/unitconv"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

const (
	EnvVarPrefix = "DYNFLATE"
	EnvFile      = ".env"

	MinWorkers = 1
	MaxWorkers = 64
)

// VERSION gets set during build
var VERSION = "0.0.0"

// Config is the merged and validated configuration.
type Config struct {
	Files         []string
	Workers       int
	OutputDir     string
	Force         bool
	DryRun        bool
	UseHeaderName bool
	MaxSize       int64 // Zero means unbounded
	Trace         bool
	Debug         bool
	Quiet         bool
}

type CLI struct {
	Files        []string `kong:"arg,name='file',help='GZIP files to decompress'"`
	ConfigFile   string   `kong:"name='config',help='Path to an optional TOML config file',type='path',short='c'"`
	Workers      int      `kong:"help='Number of files decoded in parallel (default: number of CPUs)',short='w'"`
	OutputDir    string   `kong:"help='Directory for output files (default: next to each input)',type='path',short='o'"`
	Force        bool     `kong:"help='Overwrite existing output files',short='f'"`
	DryRun       bool     `kong:"help='Decode but do not write output files',short='n'"`
	NoHeaderName bool     `kong:"help='Ignore the file name stored in the GZIP header'"`
	MaxSize      string   `kong:"help='Maximum decompressed size per file (e.g. 512Mi, 1e9)'"`
	Trace        bool     `kong:"help='Log the header of every DEFLATE block',short='t'"`

	Debug   bool             `kong:"help='Enable debug output',short='d'"`
	Quiet   bool             `kong:"help='Only log failures',short='q'"`
	Version kong.VersionFlag `help:"Show version and exit" short:"v" env:"-"`
}

type TOML struct {
	Config *TOMLConfig `toml:"config"`
}

type TOMLConfig struct {
	Workers       int    `toml:"workers"`
	OutputDir     string `toml:"output_dir"`
	Force         bool   `toml:"force"`
	DryRun        bool   `toml:"dry_run"`
	UseHeaderName *bool  `toml:"use_header_name"`
	MaxSize       string `toml:"max_size"`
	Trace         bool   `toml:"trace"`
	Debug         bool   `toml:"debug"`
	Quiet         bool   `toml:"quiet"`
}

// New loads the .env file in the working directory, if any, and parses args.
func New(args []string) (*Config, error) {
	if err := LoadEnv(EnvFile); err != nil {
		return nil, errors.Wrap(err, "error loading env file")
	}
	return Parse(args)
}

// LoadEnv loads environment variables from file without overriding variables
// that are already set. A missing file is not an error.
func LoadEnv(file string) error {
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(file)
}

// Parse parses args (without the program name) along with the environment
// and the TOML file named by --config.
func Parse(args []string) (*Config, error) {
	cli, err := readCLIArgs(args)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing CLI args")
	}

	t := &TOML{}
	if cli.ConfigFile != "" {
		if t, err = readTOML(cli.ConfigFile); err != nil {
			return nil, errors.Wrap(err, "error reading config file")
		}
	}
	setTOMLDefaults(t)

	c, err := merge(cli, t)
	if err != nil {
		return nil, err
	}
	if err := Validate(c); err != nil {
		return nil, errors.Wrap(err, "error validating config")
	}
	return c, nil
}

func readCLIArgs(args []string) (*CLI, error) {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("dynflate"),
		kong.Description("Decompress GZIP files made of dynamic Huffman DEFLATE blocks"),
		kong.UsageOnError(),
		kong.DefaultEnvars(EnvVarPrefix),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"version": VERSION,
		})
	if err != nil {
		return nil, err
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}
	return cli, nil
}

func readTOML(file string) (*TOML, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "error reading file")
	}

	t := &TOML{}
	if err := toml.Unmarshal(data, t); err != nil {
		return nil, errors.Wrap(err, "error parsing TOML config")
	}
	return t, nil
}

func setTOMLDefaults(t *TOML) {
	if t.Config == nil {
		t.Config = &TOMLConfig{}
	}
	if t.Config.Workers == 0 {
		t.Config.Workers = runtime.NumCPU()
		if t.Config.Workers > MaxWorkers {
			t.Config.Workers = MaxWorkers
		}
	}
	if t.Config.UseHeaderName == nil {
		useName := true
		t.Config.UseHeaderName = &useName
	}
}

func merge(cli *CLI, t *TOML) (*Config, error) {
	tc := t.Config
	c := &Config{
		Files:         cli.Files,
		Workers:       tc.Workers,
		OutputDir:     tc.OutputDir,
		Force:         cli.Force || tc.Force,
		DryRun:        cli.DryRun || tc.DryRun,
		UseHeaderName: *tc.UseHeaderName && !cli.NoHeaderName,
		Trace:         cli.Trace || tc.Trace,
		Debug:         cli.Debug || tc.Debug,
		Quiet:         cli.Quiet || tc.Quiet,
	}
	if cli.Workers != 0 {
		c.Workers = cli.Workers
	}
	if cli.OutputDir != "" {
		c.OutputDir = cli.OutputDir
	}

	maxSize := tc.MaxSize
	if cli.MaxSize != "" {
		maxSize = cli.MaxSize
	}
	n, err := ParseSize(maxSize)
	if err != nil {
		return nil, errors.Wrap(err, "invalid max_size")
	}
	c.MaxSize = n
	return c, nil
}

// ParseSize parses a byte count with an optional SI or IEC prefix,
// such as "64Ki", "1.5G", or "5e8". The empty string is zero.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParsePrefix(s, strconv.AutoParse)
	if err != nil {
		return 0, errors.Wrapf(err, "error parsing size %q", s)
	}
	if f < 0 || f >= 1<<63 || f != float64(int64(f)) {
		return 0, errors.Errorf("size %q is not a whole number of bytes", s)
	}
	return int64(f), nil
}

func Validate(c *Config) error {
	if c == nil {
		return errors.New("config cannot be nil")
	}

	if len(c.Files) == 0 {
		return errors.New("at least one file is required")
	}

	if c.Workers < MinWorkers || c.Workers > MaxWorkers {
		return errors.Errorf("workers must be between %d and %d", MinWorkers, MaxWorkers)
	}

	if c.MaxSize < 0 {
		return errors.New("max_size cannot be negative")
	}

	if c.Debug && c.Quiet {
		return errors.New("debug and quiet are mutually exclusive")
	}

	if c.OutputDir != "" {
		info, err := os.Stat(c.OutputDir)
		if err == nil && !info.IsDir() {
			return errors.Errorf("output_dir %s is not a directory", c.OutputDir)
		}
	}

	return nil
}
