// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package batch decompresses many GZIP files concurrently and writes each
// result next to its input or into an output directory.
//
// Every file is decoded by its own member decoder; nothing is shared between
// files, so a corrupt file only ever affects its own Result.
package batch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/dynflate/dynflate/flate"
	"github.com/dynflate/dynflate/gzip"
)

const defaultSuffix = ".out"

// ErrExists reports that an output file already exists, or that another input
// of the same Run already claimed its name.
var ErrExists = errors.New("batch: output file already exists")

// Options configures a Decompressor. The zero value decodes with one worker
// and names outputs after their inputs.
type Options struct {
	// Workers is the number of files decoded at once. Values below one are
	// treated as one.
	Workers int

	// OutputDir, if set, receives every output file. Otherwise outputs are
	// written to the directory of their input.
	OutputDir string

	Force         bool // Overwrite existing outputs
	DryRun        bool // Decode but do not write
	UseHeaderName bool // Prefer the FNAME header field for the output name

	// MaxSize bounds the decompressed size of each file; zero means no bound.
	MaxSize int64

	// OnBlock, if set, is called with the header of every DEFLATE block.
	// It may be called concurrently for different inputs.
	OnBlock func(input string, hdr *flate.BlockHeader)
}

// Result is the outcome of decompressing a single input file.
type Result struct {
	Input       string
	Output      string // Empty if nothing was written
	Name        string // FNAME field of the GZIP header, if any
	Size        int64  // Decompressed size
	Blocks      int
	SizeMatches bool // Whether the decompressed size agrees with ISIZE
	Err         error
}

// Decompressor decompresses GZIP files found on an afero.Fs.
// It is safe to call Run concurrently.
type Decompressor struct {
	fs   afero.Fs
	opts Options
	log  *logrus.Entry
}

// New returns a Decompressor operating on fs. A nil log uses the standard
// logrus logger.
func New(fs afero.Fs, opts Options, log *logrus.Entry) *Decompressor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if log == nil {
		log = logrus.WithField("pkg", "batch")
	}
	return &Decompressor{fs: fs, opts: opts, log: log}
}

// Run decompresses every path and returns one Result per path in the same
// order. Once ctx is done no further files are started; files still pending
// get ctx.Err() as their error.
//
// Each output path is written at most once per Run. If several inputs resolve
// to the same path, all but the first to finish decoding fail with ErrExists,
// even when Force is set.
func (d *Decompressor) Run(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))
	claims := &claimSet{names: make(map[string]string)}

	var g errgroup.Group
	g.SetLimit(d.opts.Workers)
	for i, p := range paths {
		results[i].Input = p
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i] = d.decompressFile(p, claims)
			return nil
		})
	}
	g.Wait()
	return results
}

// claimSet holds the output paths taken by inputs of a single Run, so that
// two inputs naming the same output cannot both write it.
type claimSet struct {
	mu    sync.Mutex
	names map[string]string // Output path to claiming input
}

func (cs *claimSet) claim(output, input string) error {
	output = filepath.Clean(output)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if owner, ok := cs.names[output]; ok {
		return errors.Wrapf(ErrExists, "already written for %s", owner)
	}
	cs.names[output] = input
	return nil
}

func (cs *claimSet) release(output string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.names, filepath.Clean(output))
}

func (d *Decompressor) decompressFile(input string, claims *claimSet) Result {
	llog := d.log.WithFields(logrus.Fields{
		"method": "decompressFile",
		"input":  input,
	})
	res := Result{Input: input}

	m, err := d.decode(input)
	if err != nil {
		llog.Debugf("decode failed: %v", err)
		res.Err = errors.Wrapf(err, "error decompressing %s", input)
		return res
	}
	res.Name = m.Header.Name
	res.Size = int64(len(m.Data))
	res.Blocks = m.Blocks
	res.SizeMatches = m.SizeMatches()
	if !res.SizeMatches {
		llog.Warnf("decompressed %d bytes but ISIZE is %d", len(m.Data), m.Size)
	}
	if d.opts.DryRun {
		return res
	}

	output := d.outputPath(input, m.Header.Name)
	if err := claims.claim(output, input); err != nil {
		res.Err = errors.Wrapf(err, "error writing %s", output)
		return res
	}
	if err := d.writeFile(output, m.Data); err != nil {
		claims.release(output)
		res.Err = errors.Wrapf(err, "error writing %s", output)
		return res
	}
	llog.Debugf("wrote %d bytes to %s", len(m.Data), output)
	res.Output = output
	return res
}

func (d *Decompressor) decode(input string) (*gzip.Member, error) {
	f, err := d.fs.Open(input)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, errors.Errorf("%s is a directory", input)
	}

	conf := &gzip.Config{MaxSize: d.opts.MaxSize}
	if d.opts.OnBlock != nil {
		conf.OnBlock = func(hdr *flate.BlockHeader) { d.opts.OnBlock(input, hdr) }
	}
	return gzip.Decompress(f, fi.Size(), conf)
}

// outputPath picks the output file for input. The FNAME field is used only by
// its base name so that a crafted header cannot escape the output directory.
func (d *Decompressor) outputPath(input, name string) string {
	dir := filepath.Dir(input)
	if d.opts.OutputDir != "" {
		dir = d.opts.OutputDir
	}
	if d.opts.UseHeaderName {
		if base := safeBase(name); base != "" {
			return filepath.Join(dir, base)
		}
	}
	return filepath.Join(dir, DefaultName(filepath.Base(input)))
}

// DefaultName derives an output name from an input name by removing a
// ".gz" or ".gzip" suffix, or by appending ".out" when neither is present.
func DefaultName(input string) string {
	lower := strings.ToLower(input)
	for _, ext := range []string{".gz", ".gzip"} {
		if strings.HasSuffix(lower, ext) && len(input) > len(ext) {
			return input[:len(input)-len(ext)]
		}
	}
	return input + defaultSuffix
}

func safeBase(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	switch name {
	case ".", "..":
		return ""
	}
	return name
}

// writeFile writes data to a temporary file in the same directory and renames
// it over name, so that name never holds a partial output.
func (d *Decompressor) writeFile(name string, data []byte) error {
	if !d.opts.Force {
		ok, err := afero.Exists(d.fs, name)
		if err != nil {
			return err
		}
		if ok {
			return ErrExists
		}
	}

	dir := filepath.Dir(name)
	if err := d.fs.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := afero.TempFile(d.fs, dir, "."+filepath.Base(name)+".tmp*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		d.fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		d.fs.Remove(tmp)
		return err
	}
	if err := d.fs.Chmod(tmp, 0644); err != nil {
		d.fs.Remove(tmp)
		return err
	}
	if err := d.fs.Rename(tmp, name); err != nil {
		d.fs.Remove(tmp)
		return err
	}
	return nil
}

// Summary counts the successful and failed results.
func Summary(results []Result) (ok, failed int) {
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}
	return ok, failed
}
