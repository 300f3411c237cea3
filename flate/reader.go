// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

import (
	"io"

	"github.com/dsnet/golib/errs"
)

// ReaderConfig configures a Reader. The zero value is a valid configuration.
type ReaderConfig struct {
	// MaxSize bounds the number of decompressed bytes. A stream that would
	// produce more fails with ErrTooLarge. Zero means no bound.
	MaxSize int64

	// SizeHint is the expected decompressed size. It only pre-sizes the
	// output buffer.
	SizeHint int64

	// OnBlock, if set, is called with the header of every block once its
	// prefix codes are decoded and before its symbols are.
	OnBlock func(*BlockHeader)

	_ struct{} // Blank field to prevent unkeyed struct literals
}

type Reader struct {
	InputOffset  int64 // Total number of bytes read from underlying io.Reader
	OutputOffset int64 // Total number of bytes emitted from Read

	rd     bitReader    // Input source
	conf   ReaderConfig // Configuration provided to NewReader
	toRead []byte       // Uncompressed data ready to be emitted from Read
	last   bool         // Last block bit detected
	blocks int          // Number of blocks fully decoded
	err    error        // Persistent error

	step func(*Reader) // Single step of decompression work (can panic)

	out      outBuffer     // Entire output of the stream
	hdr      BlockHeader   // Header of the current block
	litTree  prefixDecoder // Literal and length symbol prefix decoder
	distTree prefixDecoder // Backward distance symbol prefix decoder
}

// NewReader returns a Reader that decompresses the DEFLATE stream in r.
// If r does not implement io.ByteReader, the Reader reads it one byte at a
// time and never past the end of the stream.
func NewReader(r io.Reader, conf *ReaderConfig) (*Reader, error) {
	zr := new(Reader)
	if conf != nil {
		zr.conf = *conf
	}
	if zr.conf.MaxSize < 0 || zr.conf.SizeHint < 0 {
		return nil, Error("invalid reader configuration")
	}
	zr.Reset(r)
	return zr, nil
}

func (zr *Reader) Read(buf []byte) (int, error) {
	for {
		if len(zr.toRead) > 0 {
			cnt := copy(buf, zr.toRead)
			zr.toRead = zr.toRead[cnt:]
			zr.OutputOffset += int64(cnt)
			return cnt, nil
		}
		if zr.err != nil {
			return 0, zr.err
		}
		zr.next()
		if zr.err != nil && zr.err != io.EOF {
			zr.toRead = zr.out.ReadFlush() // Flush what's left in case of error
		}
	}
}

// next performs the next step in the decompression process.
func (zr *Reader) next() {
	func() {
		defer errs.Recover(&zr.err)
		zr.step(zr)
	}()
	zr.InputOffset = zr.rd.offset
}

// DecodeAll decompresses the remainder of the stream. It returns the entire
// output of the stream, including anything already returned by Read, or an
// error and no data.
func (zr *Reader) DecodeAll() ([]byte, error) {
	for zr.err == nil {
		zr.next()
	}
	if zr.err != io.EOF {
		return nil, zr.err
	}
	zr.OutputOffset = int64(zr.out.Len())
	zr.toRead = nil
	return zr.out.Detach(), nil
}

// BlockCount reports the number of blocks fully decoded so far.
func (zr *Reader) BlockCount() int { return zr.blocks }

func (zr *Reader) Close() error {
	if zr.err == io.EOF || zr.err == io.ErrClosedPipe {
		zr.toRead = nil // Make sure future reads fail
		zr.err = io.ErrClosedPipe
		return nil
	}
	return zr.err // Return the persistent error
}

// Reset discards the Reader's state and makes it equivalent to the result of
// NewReader with r and the original configuration. Scratch memory is kept.
func (zr *Reader) Reset(r io.Reader) error {
	*zr = Reader{
		rd:       zr.rd,
		conf:     zr.conf,
		step:     (*Reader).readBlockHeader,
		out:      zr.out,
		litTree:  zr.litTree,
		distTree: zr.distTree,
	}
	zr.rd.Init(r)
	hint := zr.conf.SizeHint
	if zr.conf.MaxSize > 0 && hint > zr.conf.MaxSize {
		hint = zr.conf.MaxSize
	}
	zr.out.Init(int(hint))
	return nil
}

// readBlockHeader reads the block header according to RFC section 3.2.3.
func (zr *Reader) readBlockHeader() {
	zr.hdr = BlockHeader{Index: zr.blocks}
	zr.last = zr.rd.ReadBit() == 1
	zr.hdr.Final = zr.last
	zr.hdr.Type = zr.rd.ReadBits(2)
	if zr.hdr.Type != 2 {
		panicf(ErrUnsupportedBlock, "block %d has type %d", zr.blocks, zr.hdr.Type)
	}

	// Dynamic prefix block (RFC section 3.2.7).
	zr.rd.ReadPrefixCodes(&zr.hdr, &zr.litTree, &zr.distTree)
	if zr.conf.OnBlock != nil {
		zr.conf.OnBlock(&zr.hdr)
	}
	zr.hdr.LitLens, zr.hdr.DistLens = nil, nil
	zr.step = (*Reader).readBlock
}

// readBlock reads block commands according to RFC section 3.2.3 until the
// end-of-block symbol.
func (zr *Reader) readBlock() {
	for {
		litSym := zr.rd.ReadSymbol(&zr.litTree)
		switch {
		case litSym < endBlockSym:
			zr.reserve(1)
			zr.out.WriteLiteral(byte(litSym))
		case litSym == endBlockSym:
			zr.finishBlock()
			return
		case litSym < maxNumLitSyms:
			// Decode the copy length.
			cpyLen := int(zr.rd.ReadOffset(litSym-257, lenRanges[:]))

			// Decode the copy distance.
			distSym := zr.rd.ReadSymbol(&zr.distTree)
			if distSym >= maxNumDistSyms {
				panicf(ErrInvalidSymbol, "distance symbol %d", distSym)
			}
			dist := int(zr.rd.ReadOffset(distSym, distRanges[:]))
			if dist > zr.out.Len() {
				panicf(ErrInvalidSymbol, "distance %d exceeds %d bytes of output", dist, zr.out.Len())
			}

			zr.reserve(cpyLen)
			zr.out.WriteCopy(dist, cpyLen)
		default:
			panicf(ErrInvalidSymbol, "literal/length symbol %d", litSym)
		}
	}
}

// reserve checks that n more bytes fit within the configured maximum size.
func (zr *Reader) reserve(n int) {
	if zr.conf.MaxSize > 0 && int64(zr.out.Len()+n) > zr.conf.MaxSize {
		panicf(ErrTooLarge, "more than %d bytes", zr.conf.MaxSize)
	}
}

func (zr *Reader) finishBlock() {
	zr.blocks++
	zr.toRead = zr.out.ReadFlush()
	zr.step = (*Reader).readBlockHeader
	if zr.last {
		zr.rd.ReadPads()
		errs.Panic(io.EOF)
	}
}

// Decompress decodes the entire DEFLATE stream read from r. It returns either
// all of the decompressed data or an error.
func Decompress(r io.Reader, conf *ReaderConfig) ([]byte, error) {
	zr, err := NewReader(r, conf)
	if err != nil {
		return nil, err
	}
	return zr.DecodeAll()
}
