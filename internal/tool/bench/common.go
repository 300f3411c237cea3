// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package bench compares the decode speed of GZIP implementations on members
// made only of dynamic prefix blocks.
package bench

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"runtime"
	"strings"
	"testing"

	strconv "github.com/dsnet/golib/unitconv"

	"github.com/dynflate/dynflate/internal/testutil"
)

type Decoder func(io.Reader) (io.ReadCloser, error)

var (
	Decoders map[string]Decoder

	// List of search paths for test files.
	Paths []string
)

func RegisterDecoder(name string, dec Decoder) {
	if Decoders == nil {
		Decoders = make(map[string]Decoder)
	}
	Decoders[name] = dec
}

// Encode compresses input as a GZIP member whose DEFLATE blocks each cover
// about blockSize input bytes. Every decoder is measured on the output of
// this one encoder.
func Encode(input []byte, blockSize int) []byte {
	return testutil.GzipMember{}.Encode(input, blockSize)
}

// BenchmarkDecoder benchmarks a single decoder on the given pre-compressed
// input data and reports the result.
func BenchmarkDecoder(input []byte, dec Decoder) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		b.StopTimer()
		if dec == nil {
			b.Fatalf("unexpected error: nil Decoder")
		}
		runtime.GC()
		b.StartTimer()
		for i := 0; i < b.N; i++ {
			rd, err := dec(bufio.NewReader(bytes.NewReader(input)))
			if err != nil {
				b.Fatalf("unexpected error: %v", err)
			}
			cnt, err := io.Copy(io.Discard, rd)
			if err := rd.Close(); err != nil {
				b.Fatalf("unexpected error: %v", err)
			}
			if err != nil {
				b.Fatalf("unexpected error: %v", err)
			}
			b.SetBytes(cnt)
		}
	})
}

type Result struct {
	R float64 // Rate (MB/s)
	D float64 // Delta ratio relative to primary benchmark
}

// BenchmarkDecoderSuite runs multiple benchmarks across all decoder
// implementations, files, block sizes, and input sizes.
//
// The values returned have the following structure:
//	results: [len(files)*len(blocks)*len(sizes)][len(decs)]Result
//	names:   [len(files)*len(blocks)*len(sizes)]string
func BenchmarkDecoderSuite(decs, files []string, blocks, sizes []int, tick func()) (results [][]Result, names []string) {
	// Allocate buffers for the result.
	d0 := len(files) * len(blocks) * len(sizes)
	results = make([][]Result, d0)
	for i := range results {
		results[i] = make([]Result, len(decs))
	}
	names = make([]string, d0)

	// Run the benchmark for every decoder, file, block size, and size.
	var i int
	for _, f := range files {
		for _, bs := range blocks {
			for _, n := range sizes {
				input, err := loadFile(getPath(f), n)
				names[i] = getName(f, bs, len(input))
				var output []byte
				if err == nil {
					output = Encode(input, bs)
				}
				for j, d := range decs {
					if tick != nil {
						tick()
					}
					if output != nil {
						results[i][j] = rate(BenchmarkDecoder(output, Decoders[d]))
					}
					results[i][j].D = results[i][j].R / results[i][0].R
				}
				i++
			}
		}
	}
	return results, names
}

func rate(result testing.BenchmarkResult) Result {
	if result.N == 0 {
		return Result{}
	}
	us := (float64(result.T.Nanoseconds()) / 1e3) / float64(result.N)
	return Result{R: float64(result.Bytes) / us}
}

// loadFile loads the first n bytes of a file, repeating its contents to reach
// n bytes if needed. A negative n loads the file as is.
func loadFile(file string, n int) ([]byte, error) {
	b, err := os.ReadFile(file)
	if err != nil || n < 0 {
		return b, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("bench: empty file %s", file)
	}
	for len(b) < n {
		b = append(b, b...)
	}
	return b[:n], nil
}

func getPath(file string) string {
	if path.IsAbs(file) {
		return file
	}
	for _, p := range Paths {
		p = path.Join(p, file)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return file
}

func getName(f string, bs, n int) string {
	return fmt.Sprintf("%s:%s:%s", path.Base(f), formatSize(bs), formatSize(n))
}

func formatSize(n int) string {
	switch n {
	case 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9:
		s := fmt.Sprintf("%e", float64(n))
		re := regexp.MustCompile("\\.0*e\\+0*")
		return re.ReplaceAllString(s, "e")
	default:
		s := strconv.FormatPrefix(float64(n), strconv.Base1024, 2)
		return strings.Replace(s, ".00", "", -1)
	}
}
