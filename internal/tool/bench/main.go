// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

//go:build ignore

// Benchmark tool to compare decompression speed between multiple GZIP
// implementations. Individual implementations are referred to as codecs.
//
// All codecs decode the same pre-compressed members, produced by a reference
// encoder that emits only dynamic prefix blocks. The block size controls how
// many blocks (and therefore how many prefix tables) each member carries.
//
// Example usage:
//	$ go build -o benchmark main.go
//	$ ./benchmark \
//		-codecs std,kp,ds  \
//		-files  lorem.txt  \
//		-blocks 0,4Ki      \
//		-sizes  1e4,1e5,1e6
//
//	BENCHMARK: gz:decRate
//		benchmark             std MB/s  delta      kp MB/s  delta      ds MB/s  delta
//		lorem.txt:0:1e4         ...
//
//	RUNTIME: 41.2s
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	strconv "github.com/dsnet/golib/unitconv"

	"github.com/dynflate/dynflate/internal/tool/bench"
)

const (
	defaultPaths  = "testdata"
	defaultBlocks = "0,16Ki"
	defaultSizes  = "1e4,1e5,1e6"
)

func defaultFiles() string {
	p := strings.Split(defaultPaths, ",")[0]
	des, err := os.ReadDir(p)
	if err != nil {
		return ""
	}
	var s []string
	for _, de := range des {
		name := de.Name()
		if de.IsDir() || strings.HasSuffix(name, ".go") || strings.HasSuffix(name, ".gz") {
			continue
		}
		s = append(s, name)
	}
	return strings.Join(s, ",")
}

func defaultCodecs() string {
	m := make(map[string]bool)
	for k := range bench.Decoders {
		m[k] = true
	}
	hasStd := m["std"]
	delete(m, "std")
	var s []string
	for k := range m {
		s = append(s, k)
	}
	sort.Strings(s)
	if hasStd {
		s = append([]string{"std"}, s...) // Ensure "std" always appears first
	}
	return strings.Join(s, ",")
}

func main() {
	// Setup flag arguments.
	f0 := flag.String("codecs", defaultCodecs(), "List of codecs to benchmark")
	f1 := flag.String("paths", defaultPaths, "List of paths to search for test files")
	f2 := flag.String("files", defaultFiles(), "List of input files to benchmark")
	f3 := flag.String("blocks", defaultBlocks, "List of input bytes per DEFLATE block (0 for one block)")
	f4 := flag.String("sizes", defaultSizes, "List of input sizes to benchmark")
	flag.Parse()

	// Parse the flag arguments.
	var sep = regexp.MustCompile("[,:]")
	var codecs, paths, files []string
	var blocks, sizes []int
	for _, c := range sep.Split(*f0, -1) {
		if _, ok := bench.Decoders[c]; !ok {
			fmt.Fprintf(os.Stderr, "unknown codec: %q\n", c)
			os.Exit(1)
		}
		codecs = append(codecs, c)
	}
	paths = sep.Split(*f1, -1)
	files = sep.Split(*f2, -1)
	for _, s := range sep.Split(*f3, -1) {
		bs, err := strconv.ParsePrefix(s, strconv.AutoParse)
		if err != nil || bs < 0 {
			fmt.Fprintf(os.Stderr, "invalid block size: %q\n", s)
			os.Exit(1)
		}
		blocks = append(blocks, int(bs))
	}
	for _, s := range sep.Split(*f4, -1) {
		var size int
		if nf, err := strconv.ParsePrefix(s, strconv.AutoParse); err == nil {
			size = int(nf)
		}
		sizes = append(sizes, size)
	}

	ts := time.Now()
	bench.Paths = paths
	runBenchmarks(files, codecs, blocks, sizes)
	te := time.Now()
	fmt.Printf("RUNTIME: %v\n", te.Sub(ts))
}

func runBenchmarks(files, codecs []string, blocks, sizes []int) {
	fmt.Println("BENCHMARK: gz:decRate")
	if len(codecs) == 0 {
		fmt.Print("\tSKIP: There are no decoders available.\n\n")
		return
	}

	// Progress ticker.
	var cnt int
	tick := func() {
		total := len(codecs) * len(files) * len(blocks) * len(sizes)
		pct := 100.0 * float64(cnt) / float64(total)
		fmt.Printf("\t[%6.2f%%] %d of %d\r", pct, cnt, total)
		cnt++
	}

	// Perform the bench. This may take some time.
	results, names := bench.BenchmarkDecoderSuite(codecs, files, blocks, sizes, tick)
	printResults(results, names, codecs, "MB/s", "")
	fmt.Println()
}

func printResults(results [][]bench.Result, names, codecs []string, title, suffix string) {
	// Allocate result table.
	cells := make([][]string, 1+len(names))
	for i := range cells {
		cells[i] = make([]string, 1+2*len(codecs))
	}

	// Label the first row.
	cells[0][0] = "benchmark"
	for i, c := range codecs {
		cells[0][1+2*i] = c + " " + title
		cells[0][2+2*i] = "delta"
	}

	// Insert all rows.
	for j, row := range results {
		cells[1+j][0] = names[j]
		for i, r := range row {
			if r.R != 0 && !math.IsNaN(r.R) && !math.IsInf(r.R, 0) {
				cells[1+j][1+2*i] = fmt.Sprintf("%.2f", r.R) + suffix
			}
			if r.D != 0 && !math.IsNaN(r.D) && !math.IsInf(r.D, 0) {
				cells[1+j][2+2*i] = fmt.Sprintf("%.2f", r.D) + "x"
			}
		}
	}

	// Compute the maximum lengths.
	maxLens := make([]int, 1+2*len(codecs))
	for _, row := range cells {
		for i, s := range row {
			if maxLens[i] < len(s) {
				maxLens[i] = len(s)
			}
		}
	}

	// Print padded versions of all cells.
	for _, row := range cells {
		fmt.Print("\t")
		for i, s := range row {
			switch {
			case i == 0: // Column 0
				row[i] = s + strings.Repeat(" ", maxLens[i]-len(s))
			case i%2 == 1: // Column 1, 3, 5, 7, ...
				row[i] = strings.Repeat(" ", 6+maxLens[i]-len(s)) + s
			case i%2 == 0: // Column 2, 4, 6, 8, ...
				row[i] = strings.Repeat(" ", 2+maxLens[i]-len(s)) + s
			}
			fmt.Print(row[i])
		}
		fmt.Println()
	}
}
