// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

// BlockHeader is the decoded header of a single DEFLATE block.
type BlockHeader struct {
	Index int  // Zero-based position of the block in the stream
	Final bool // BFINAL bit
	Type  uint // BTYPE field; always 2 for a header that was fully decoded

	// Raw values of the HLIT, HDIST, and HCLEN fields. The alphabets hold
	// HLit+257 literal/length symbols and HDist+1 distance symbols, and
	// HCLen+4 code-length code lengths were transmitted.
	HLit, HDist, HCLen uint

	// CLenLens holds the code lengths of the code-lengths alphabet, indexed
	// by symbol rather than in transmission order.
	CLenLens [maxNumCLenSyms]uint8

	// LitLens and DistLens are the code lengths of the literal/length and
	// distance alphabets. They alias scratch memory of the Reader and are
	// only valid for the duration of a ReaderConfig.OnBlock call.
	LitLens  []uint8
	DistLens []uint8
}

// NumLitSyms reports the size of the literal/length alphabet.
func (h *BlockHeader) NumLitSyms() int { return int(h.HLit) + 257 }

// NumDistSyms reports the size of the distance alphabet.
func (h *BlockHeader) NumDistSyms() int { return int(h.HDist) + 1 }

// ReadPrefixCodes reads the literal and distance prefix codes according to
// RFC section 3.2.7, recording what was read into hdr.
func (br *bitReader) ReadPrefixCodes(hdr *BlockHeader, hl, hd *prefixDecoder) {
	hdr.HLit = br.ReadBits(5)
	hdr.HDist = br.ReadBits(5)
	hdr.HCLen = br.ReadBits(4)
	numLitSyms := hdr.HLit + 257
	numDistSyms := hdr.HDist + 1
	numCLenSyms := hdr.HCLen + 4

	// Read the code-lengths prefix table.
	hdr.CLenLens = [maxNumCLenSyms]uint8{}
	for _, sym := range clenOrder[:numCLenSyms] {
		hdr.CLenLens[sym] = uint8(br.ReadBits(3))
	}
	br.codes = buildCodes(br.codes, hdr.CLenLens[:])
	br.prefix.Init(br.codes)

	// Both alphabets are decoded as a single sequence, so that a repeat may
	// span from the literal/length lengths into the distance lengths.
	maxSyms := numLitSyms + numDistSyms
	br.lens = allocUint8s(br.lens, int(maxSyms))
	var clenLast uint8
	for sym := uint(0); sym < maxSyms; {
		clen := br.ReadSymbol(&br.prefix)
		if clen < 16 {
			br.lens[sym] = uint8(clen)
			clenLast = uint8(clen)
			sym++
			continue
		}

		// Repeater symbol used.
		var val uint8
		var repCnt uint
		switch clen {
		case 16:
			if sym == 0 {
				panicf(ErrInvalidSymbol, "repeat of previous length at position 0")
			}
			val = clenLast
			repCnt = 3 + br.ReadBits(2)
		case 17:
			repCnt = 3 + br.ReadBits(3)
		case 18:
			repCnt = 11 + br.ReadBits(7)
		}
		if sym+repCnt > maxSyms {
			panicf(ErrInvalidSymbol, "run of %d lengths at position %d overflows %d lengths", repCnt, sym, maxSyms)
		}
		for symEnd := sym + repCnt; sym < symEnd; sym++ {
			br.lens[sym] = val
		}
		clenLast = val
	}
	hdr.LitLens = br.lens[:numLitSyms]
	hdr.DistLens = br.lens[numLitSyms:]

	if hdr.LitLens[endBlockSym] == 0 {
		panicf(ErrInvalidCode, "missing end-of-block code")
	}
	br.codes = buildCodes(br.codes, hdr.LitLens)
	hl.Init(br.codes)
	br.codes = buildCodes(br.codes, hdr.DistLens)
	hd.Init(br.codes)
}
