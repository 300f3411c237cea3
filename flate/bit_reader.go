// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

import (
	"io"

	"github.com/dsnet/golib/errs"
	"github.com/dsnet/golib/ioutil"

	"github.com/dynflate/dynflate"
)

// The bitReader never reads more bytes than necessary. Bytes are pulled one at
// a time through ReadByte and their bits are placed above the bits already
// buffered, so that the buffer is always consumed from the least-significant
// end. After any read, fewer than 8 bits remain buffered unless PeekBits asked
// for more.
//
// Prefix codes are resolved one bit at a time, which is slower than a table
// lookup but keeps the decoding of every code on the same path regardless of
// its length.

type bitReader struct {
	rd      dynflate.ByteReader
	bufBits uint64 // Buffer to hold some bits
	numBits uint   // Number of valid bits in bufBits
	offset  int64  // Number of bytes read from the underlying io.Reader

	// Used only if the input is not already an io.ByteReader.
	brd ioutil.ByteReader

	// Local copies of scratch state to reduce memory allocations.
	prefix prefixDecoder // Code-lengths decoder
	codes  []prefixCode
	lens   []uint8
}

func (br *bitReader) Init(r io.Reader) {
	*br = bitReader{prefix: br.prefix, codes: br.codes, lens: br.lens}
	if rr, ok := r.(dynflate.ByteReader); ok {
		br.rd = rr
	} else {
		br.brd.Reader = r
		br.rd = &br.brd
	}
}

// FeedBits ensures that at least nb bits exist in the bit buffer.
func (br *bitReader) FeedBits(nb uint) {
	for br.numBits < nb {
		c, err := br.rd.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			errs.Panic(err)
		}
		br.bufBits |= uint64(c) << br.numBits
		br.numBits += 8
		br.offset++
	}
}

// ReadBits reads nb bits in LSB order from the underlying reader.
// The first bit in the stream is the least-significant bit of the result.
func (br *bitReader) ReadBits(nb uint) uint {
	br.FeedBits(nb)
	val := uint(br.bufBits & uint64(1<<nb-1))
	br.bufBits >>= nb
	br.numBits -= nb
	return val
}

// ReadBit reads a single bit.
func (br *bitReader) ReadBit() uint {
	return br.ReadBits(1)
}

// PeekBits is like ReadBits, but leaves the bits in the buffer.
func (br *bitReader) PeekBits(nb uint) uint {
	br.FeedBits(nb)
	return uint(br.bufBits & uint64(1<<nb-1))
}

// ReadPads reads 0-7 bits from the bit buffer to achieve byte-alignment.
func (br *bitReader) ReadPads() uint {
	nb := br.numBits % 8
	val := uint(br.bufBits & uint64(1<<nb-1))
	br.bufBits >>= nb
	br.numBits -= nb
	return val
}

// ReadSymbol reads the next prefix symbol using the provided prefixDecoder.
// Bits are fed into the decoder one at a time until a code resolves.
func (br *bitReader) ReadSymbol(pd *prefixDecoder) uint {
	pc := prefixCursor{pd: pd}
	for {
		sym, state := pc.Next(br.ReadBit())
		switch state {
		case prefixResolved:
			return sym
		case prefixInvalid:
			panicf(ErrInvalidCode, "no code matches %0*b", int(pc.nb), pc.code)
		}
	}
}

// ReadOffset reads an offset value using the provided rangeCodes indexed by
// the given symbol.
func (br *bitReader) ReadOffset(sym uint, rcs []rangeCode) uint {
	rc := rcs[sym]
	return uint(rc.base) + br.ReadBits(uint(rc.bits))
}
