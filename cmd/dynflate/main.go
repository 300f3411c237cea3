// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Command dynflate decompresses GZIP files whose DEFLATE streams consist of
// dynamic Huffman blocks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/dynflate/dynflate/batch"
	"github.com/dynflate/dynflate/config"
	"github.com/dynflate/dynflate/flate"
)

func main() {
	cfg, err := config.New(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}

	switch {
	case cfg.Debug || cfg.Trace:
		logrus.SetLevel(logrus.DebugLevel)
	case cfg.Quiet:
		logrus.SetLevel(logrus.ErrorLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logrus.Debugf("dynflate %s: %d files, %d workers", config.VERSION, len(cfg.Files), cfg.Workers)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	opts := batch.Options{
		Workers:       cfg.Workers,
		OutputDir:     cfg.OutputDir,
		Force:         cfg.Force,
		DryRun:        cfg.DryRun,
		UseHeaderName: cfg.UseHeaderName,
		MaxSize:       cfg.MaxSize,
	}
	if cfg.Trace {
		opts.OnBlock = traceBlock
	}

	results := batch.New(afero.NewOsFs(), opts, logrus.WithField("pkg", "batch")).Run(ctx, cfg.Files)
	for _, r := range results {
		llog := logrus.WithField("file", r.Input)
		if r.Err != nil {
			llog.Errorf("%v", r.Err)
			continue
		}
		llog = llog.WithFields(logrus.Fields{
			"size":   r.Size,
			"blocks": r.Blocks,
			"isize":  isizeStatus(r.SizeMatches),
		})
		if r.Name != "" {
			llog = llog.WithField("name", r.Name)
		}
		if r.Output != "" {
			llog = llog.WithField("output", r.Output)
		}
		llog.Info("decompressed")
	}

	ok, failed := batch.Summary(results)
	logrus.Debugf("%d succeeded, %d failed", ok, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func traceBlock(input string, hdr *flate.BlockHeader) {
	logrus.WithFields(logrus.Fields{
		"file":  input,
		"block": hdr.Index,
		"final": hdr.Final,
		"hlit":  hdr.HLit,
		"hdist": hdr.HDist,
		"hclen": hdr.HCLen,
	}).Debugf("clen=%v lit=%v dist=%v", hdr.CLenLens, hdr.LitLens, hdr.DistLens)
}

func isizeStatus(ok bool) string {
	if ok {
		return "ok"
	}
	return "mismatch"
}
