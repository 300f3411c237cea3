// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package testutil

import (
	"encoding/binary"
	"hash/crc32"
)

// This is a small DEFLATE encoder that only emits dynamic blocks, which is
// the only kind the decoder accepts. Common encoders end a stream with an
// empty stored block, so their output cannot be used for round-trip tests.
// It aims for simplicity over compression ratio.

const (
	minMatch   = 3
	maxMatch   = 258
	windowSize = 1 << 15
	hashBits   = 15
	maxChain   = 64
)

var (
	lenBase   [29]int
	lenExtra  [29]uint
	distBase  [30]int
	distExtra [30]uint
	clenOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}
)

func init() {
	for i, base := 0, 3; i < 28; i++ {
		if i >= 8 {
			lenExtra[i] = uint(i/4 - 1)
		}
		lenBase[i] = base
		base += 1 << lenExtra[i]
	}
	lenBase[28], lenExtra[28] = 258, 0
	for i, base := 0, 1; i < 30; i++ {
		if i >= 4 {
			distExtra[i] = uint(i/2 - 1)
		}
		distBase[i] = base
		base += 1 << distExtra[i]
	}
}

type token struct {
	lit  byte
	len  int // Zero for a literal
	dist int
}

// Deflate compresses data into a DEFLATE stream of dynamic blocks, each
// covering roughly blockSize input bytes. A blockSize of zero puts everything
// into one block.
func Deflate(data []byte, blockSize int) []byte {
	toks := matchTokens(data)
	var bw BitWriter
	for {
		n, covered := len(toks), 0
		if blockSize > 0 {
			for n = 0; n < len(toks) && covered < blockSize; n++ {
				covered += toks[n].size()
			}
		}
		last := n == len(toks)
		writeBlock(&bw, toks[:n], last)
		toks = toks[n:]
		if last {
			return bw.Bytes()
		}
	}
}

func (t token) size() int {
	if t.len == 0 {
		return 1
	}
	return t.len
}

// matchTokens performs greedy LZ77 parsing with hash chains.
func matchTokens(data []byte) (toks []token) {
	hash := func(i int) int {
		v := uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16
		return int((v * 2654435761) >> (32 - hashBits))
	}
	head := make([]int, 1<<hashBits)
	for i := range head {
		head[i] = -1
	}
	prev := make([]int, len(data))
	insert := func(i int) {
		if i+minMatch <= len(data) {
			h := hash(i)
			prev[i], head[h] = head[h], i
		}
	}

	for i := 0; i < len(data); {
		bestLen, bestDist := 0, 0
		if i+minMatch <= len(data) {
			for j, chain := head[hash(i)], 0; j >= 0 && i-j <= windowSize && chain < maxChain; j, chain = prev[j], chain+1 {
				n := 0
				for n < maxMatch && i+n < len(data) && data[j+n] == data[i+n] {
					n++
				}
				if n > bestLen {
					bestLen, bestDist = n, i-j
				}
			}
		}
		if bestLen < minMatch {
			toks = append(toks, token{lit: data[i]})
			insert(i)
			i++
			continue
		}
		toks = append(toks, token{len: bestLen, dist: bestDist})
		for end := i + bestLen; i < end; i++ {
			insert(i)
		}
	}
	return toks
}

func lenSym(n int) int {
	for i := len(lenBase) - 1; ; i-- {
		if lenBase[i] <= n {
			return i
		}
	}
}

func distSym(d int) int {
	for i := len(distBase) - 1; ; i-- {
		if distBase[i] <= d {
			return i
		}
	}
}

func writeBlock(bw *BitWriter, toks []token, last bool) {
	litFreqs := make([]int, 286)
	distFreqs := make([]int, 30)
	for _, t := range toks {
		if t.len == 0 {
			litFreqs[t.lit]++
		} else {
			litFreqs[257+lenSym(t.len)]++
			distFreqs[distSym(t.dist)]++
		}
	}
	litFreqs[256] = 1
	ensureTwo(litFreqs)
	ensureTwo(distFreqs)
	litLens := huffmanLengths(litFreqs, 15)
	distLens := huffmanLengths(distFreqs, 15)

	numLits := 257
	for i := range litLens {
		if litLens[i] > 0 && i+1 > numLits {
			numLits = i + 1
		}
	}
	numDists := 1
	for i := range distLens {
		if distLens[i] > 0 && i+1 > numDists {
			numDists = i + 1
		}
	}

	// Run-length encode both length arrays as one sequence.
	type rle struct {
		sym   int
		extra uint64
		nb    uint
	}
	seq := append(append([]uint8{}, litLens[:numLits]...), distLens[:numDists]...)
	var runs []rle
	for i := 0; i < len(seq); {
		v, run := seq[i], 1
		for i+run < len(seq) && seq[i+run] == v {
			run++
		}
		i += run
		if v == 0 {
			for run >= 11 {
				r := min(run, 138)
				runs = append(runs, rle{18, uint64(r - 11), 7})
				run -= r
			}
			if run >= 3 {
				runs = append(runs, rle{17, uint64(run - 3), 3})
				run = 0
			}
		} else {
			runs = append(runs, rle{int(v), 0, 0})
			run--
			for run >= 3 {
				r := min(run, 6)
				runs = append(runs, rle{16, uint64(r - 3), 2})
				run -= r
			}
		}
		for ; run > 0; run-- {
			runs = append(runs, rle{int(v), 0, 0})
		}
	}

	clenFreqs := make([]int, 19)
	for _, r := range runs {
		clenFreqs[r.sym]++
	}
	ensureTwo(clenFreqs)
	clenLens := huffmanLengths(clenFreqs, 7)
	numCLens := 4
	for i, sym := range clenOrder {
		if clenLens[sym] > 0 && i+1 > numCLens {
			numCLens = i + 1
		}
	}

	if last {
		bw.WriteBits(1, 1)
	} else {
		bw.WriteBits(0, 1)
	}
	bw.WriteBits(2, 2)
	bw.WriteBits(uint64(numLits-257), 5)
	bw.WriteBits(uint64(numDists-1), 5)
	bw.WriteBits(uint64(numCLens-4), 4)
	for _, sym := range clenOrder[:numCLens] {
		bw.WriteBits(uint64(clenLens[sym]), 3)
	}

	clenCodes := canonicalCodes(clenLens)
	for _, r := range runs {
		bw.WriteCode(clenCodes[r.sym], uint(clenLens[r.sym]))
		bw.WriteBits(r.extra, r.nb)
	}

	litCodes := canonicalCodes(litLens)
	distCodes := canonicalCodes(distLens)
	for _, t := range toks {
		if t.len == 0 {
			bw.WriteCode(litCodes[t.lit], uint(litLens[t.lit]))
			continue
		}
		ls := lenSym(t.len)
		bw.WriteCode(litCodes[257+ls], uint(litLens[257+ls]))
		bw.WriteBits(uint64(t.len-lenBase[ls]), lenExtra[ls])
		ds := distSym(t.dist)
		bw.WriteCode(distCodes[ds], uint(distLens[ds]))
		bw.WriteBits(uint64(t.dist-distBase[ds]), distExtra[ds])
	}
	bw.WriteCode(litCodes[256], uint(litLens[256]))
}

// ensureTwo makes sure at least two symbols are used so that the resulting
// prefix code is complete.
func ensureTwo(freqs []int) {
	var used int
	for _, f := range freqs {
		if f > 0 {
			used++
		}
	}
	for i := 0; used < 2; i++ {
		if freqs[i] == 0 {
			freqs[i] = 1
			used++
		}
	}
}

// huffmanLengths computes prefix code lengths of at most maxBits for the
// symbols with non-zero frequency. Frequencies are halved until the
// lengths fit.
func huffmanLengths(freqs []int, maxBits uint8) []uint8 {
	freqs = append([]int{}, freqs...)
	for {
		type node struct {
			freq int
			syms []int
		}
		var nodes []node
		for sym, f := range freqs {
			if f > 0 {
				nodes = append(nodes, node{f, []int{sym}})
			}
		}
		lens := make([]uint8, len(freqs))
		fits := true
		for len(nodes) > 1 {
			// Pop the two least frequent nodes.
			var pair [2]node
			for k := range pair {
				lo := 0
				for i := range nodes {
					if nodes[i].freq < nodes[lo].freq {
						lo = i
					}
				}
				pair[k] = nodes[lo]
				nodes = append(nodes[:lo], nodes[lo+1:]...)
			}
			merged := node{freq: pair[0].freq + pair[1].freq}
			for _, n := range pair {
				for _, sym := range n.syms {
					if lens[sym]++; lens[sym] > maxBits {
						fits = false
					}
				}
				merged.syms = append(merged.syms, n.syms...)
			}
			nodes = append(nodes, merged)
		}
		if fits {
			return lens
		}
		for i, f := range freqs {
			if f > 0 {
				freqs[i] = (f + 1) / 2
			}
		}
	}
}

// canonicalCodes assigns canonical prefix codes per RFC 1951, section 3.2.2.
func canonicalCodes(lens []uint8) []uint32 {
	var counts, next [16]uint32
	for _, n := range lens {
		if n > 0 {
			counts[n]++
		}
	}
	var code uint32
	for n := 1; n < 16; n++ {
		code = (code + counts[n-1]) << 1
		next[n] = code
	}
	codes := make([]uint32, len(lens))
	for sym, n := range lens {
		if n > 0 {
			codes[sym] = next[n]
			next[n]++
		}
	}
	return codes
}

// GzipMember describes the header of a GZIP member made by Encode.
type GzipMember struct {
	Name    string
	Comment string
	Extra   []byte
	ModTime uint32
	HCRC    bool // Include a header CRC16
}

// Encode compresses data as a single GZIP member using Deflate.
func (gm GzipMember) Encode(data []byte, blockSize int) []byte {
	var flags byte
	if gm.HCRC {
		flags |= 0x02
	}
	if gm.Extra != nil {
		flags |= 0x04
	}
	if gm.Name != "" {
		flags |= 0x08
	}
	if gm.Comment != "" {
		flags |= 0x10
	}
	b := []byte{0x1f, 0x8b, 0x08, flags, 0, 0, 0, 0, 0x00, 0xff}
	binary.LittleEndian.PutUint32(b[4:8], gm.ModTime)
	if gm.Extra != nil {
		b = append(b, byte(len(gm.Extra)), byte(len(gm.Extra)>>8))
		b = append(b, gm.Extra...)
	}
	if gm.Name != "" {
		b = append(append(b, gm.Name...), 0)
	}
	if gm.Comment != "" {
		b = append(append(b, gm.Comment...), 0)
	}
	if gm.HCRC {
		crc := crc32.ChecksumIEEE(b)
		b = append(b, byte(crc), byte(crc>>8))
	}
	b = append(b, Deflate(data, blockSize)...)
	b = binary.LittleEndian.AppendUint32(b, crc32.ChecksumIEEE(data))
	b = binary.LittleEndian.AppendUint32(b, uint32(len(data)))
	return b
}
