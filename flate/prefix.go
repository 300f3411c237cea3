// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

const maxPrefixBits = 15

const (
	maxNumCLenSyms = 19
	maxNumLitSyms  = 286
	maxNumDistSyms = 30

	// The 5-bit HLIT and HDIST fields can describe a few more symbols than
	// the alphabets define. Their lengths are accepted, but using one of them
	// is an error.
	maxHLitSyms  = 257 + 31
	maxHDistSyms = 1 + 31
)

var (
	lenRanges  [maxNumLitSyms - 257]rangeCode // RFC section 3.2.5
	distRanges [maxNumDistSyms]rangeCode      // RFC section 3.2.5
)

type rangeCode struct {
	base uint32 // Starting base offset of the range
	bits uint32 // Bit-width of a subsequent integer to add to base offset
}

type prefixCode struct {
	sym uint32 // The symbol being mapped
	val uint32 // Value of the prefix code, most-significant bit first
	len uint32 // Bit length of the prefix code
}

// RFC section 3.2.7.
// Order in which the code lengths of the code-lengths alphabet are stored.
var clenOrder = [maxNumCLenSyms]uint{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

func init() {
	// These come from the RFC section 3.2.5.
	for i, base := 0, 3; i < len(lenRanges)-1; i++ {
		nb := uint(i/4 - 1)
		if i < 4 {
			nb = 0
		}
		lenRanges[i] = rangeCode{base: uint32(base), bits: uint32(nb)}
		base += 1 << nb
	}
	lenRanges[len(lenRanges)-1] = rangeCode{base: 258, bits: 0}

	// These come from the RFC section 3.2.5.
	for i, base := 0, 1; i < len(distRanges); i++ {
		nb := uint(i/2 - 1)
		if i < 2 {
			nb = 0
		}
		distRanges[i] = rangeCode{base: uint32(base), bits: uint32(nb)}
		base += 1 << nb
	}
}

// buildCodes assigns the canonical prefix code of RFC section 3.2.2 to every
// symbol with a non-zero length in lens. The codes are stored into codes in
// ascending symbol order.
//
// Codes of the same length are handed out in increasing symbol order, and the
// first code of each length is (first(L-1) + count(L-1)) << 1. A set of lengths
// that needs more codes than exist at some length is rejected. An incomplete
// set is accepted; its unused codes are caught when decoding.
func buildCodes(codes []prefixCode, lens []uint8) []prefixCode {
	var bitCnts [maxPrefixBits + 1]uint32
	for sym, n := range lens {
		if n > maxPrefixBits {
			panicf(ErrInvalidCode, "symbol %d has code length %d", sym, n)
		}
		bitCnts[n]++
	}
	bitCnts[0] = 0

	var nextCodes [maxPrefixBits + 1]uint32
	var code uint32
	for n := 1; n <= maxPrefixBits; n++ {
		code = (code + bitCnts[n-1]) << 1
		nextCodes[n] = code
		if code+bitCnts[n] > 1<<uint(n) {
			panicf(ErrInvalidCode, "over-subscribed at code length %d", n)
		}
	}

	codes = codes[:0]
	for sym, n := range lens {
		if n == 0 {
			continue
		}
		codes = append(codes, prefixCode{sym: uint32(sym), val: nextCodes[n], len: uint32(n)})
		nextCodes[n]++
	}
	return codes
}
