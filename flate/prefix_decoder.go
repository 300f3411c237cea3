// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

// The prefixDecoder resolves canonical prefix codes one bit at a time.
//
// Within a canonical code, the codes of a given bit-length form a contiguous
// range of values starting at firsts[n]. The decoder therefore only needs,
// for every bit-length, the first code value, the number of codes, and where
// those codes start in a list of symbols sorted by (bit-length, code). A
// partially read code is an integer accumulator and a bit count:
//
//	code = code<<1 | bit
//	n++
//	if code-firsts[n] < counts[n] {
//		symbol = syms[offsets[n] + code-firsts[n]]
//	}
//
// If n grows past the longest code in the table without resolving, then the
// bits read so far match no code.

type prefixDecoder struct {
	counts  [maxPrefixBits + 1]uint32 // Number of codes of each bit-length
	firsts  [maxPrefixBits + 1]uint32 // First code value of each bit-length
	offsets [maxPrefixBits + 1]uint32 // Index in syms of the first code of each bit-length
	syms    []uint16                  // Symbols ordered by bit-length, then code
	maxBits uint32                    // Bit-length of the longest code
}

// Init initializes prefixDecoder according to the codes provided, which must
// be a canonical assignment in ascending symbol order as made by buildCodes.
// An empty set of codes yields a decoder that rejects every input.
func (pd *prefixDecoder) Init(codes []prefixCode) {
	*pd = prefixDecoder{syms: pd.syms}

	seen := [maxPrefixBits + 1]bool{}
	for _, c := range codes {
		if !seen[c.len] {
			pd.firsts[c.len] = c.val
			seen[c.len] = true
		}
		pd.counts[c.len]++
		if pd.maxBits < c.len {
			pd.maxBits = c.len
		}
	}
	var offset uint32
	for n := 1; n <= maxPrefixBits; n++ {
		pd.offsets[n] = offset
		offset += pd.counts[n]
	}

	pd.syms = allocUint16s(pd.syms, len(codes))
	for _, c := range codes {
		idx := c.val - pd.firsts[c.len]
		if idx >= pd.counts[c.len] {
			panicf(ErrInvalidCode, "non-canonical code for symbol %d", c.sym)
		}
		pd.syms[pd.offsets[c.len]+idx] = uint16(c.sym)
	}
}

type prefixState uint8

const (
	prefixPending  prefixState = iota // More bits are needed
	prefixResolved                    // A symbol was found
	prefixInvalid                     // No code can match the bits read
)

// prefixCursor is the traversal state of a single symbol decode.
// The zero value with pd set is ready to use.
type prefixCursor struct {
	pd   *prefixDecoder
	code uint32 // Bits read so far, first bit as most-significant
	nb   uint32 // Number of bits read so far
}

// Reset discards any partially read code.
func (pc *prefixCursor) Reset() {
	pc.code, pc.nb = 0, 0
}

// Next feeds the next bit of the stream to the cursor. Once a symbol is
// resolved, the cursor is reset for the next symbol. Once invalid, the cursor
// stays invalid until Reset is called.
func (pc *prefixCursor) Next(bit uint) (uint, prefixState) {
	if pc.nb >= pc.pd.maxBits {
		return 0, prefixInvalid
	}
	pc.code = pc.code<<1 | uint32(bit&1)
	pc.nb++
	first, count := pc.pd.firsts[pc.nb], pc.pd.counts[pc.nb]
	if idx := pc.code - first; pc.code >= first && idx < count {
		sym := uint(pc.pd.syms[pc.pd.offsets[pc.nb]+idx])
		pc.Reset()
		return sym, prefixResolved
	}
	if pc.nb == pc.pd.maxBits {
		return 0, prefixInvalid
	}
	return 0, prefixPending
}
