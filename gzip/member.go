// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package gzip

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/dynflate/dynflate/flate"
)

// Config configures member decompression. The zero value is valid.
type Config struct {
	// MaxSize bounds the decompressed size; zero means no bound.
	MaxSize int64

	// OnBlock, if set, receives the header of every DEFLATE block.
	OnBlock func(*flate.BlockHeader)
}

// Member is a fully decompressed GZIP member.
type Member struct {
	Header    Header
	Data      []byte
	Size      uint32 // ISIZE field of the trailer
	Blocks    int    // Number of DEFLATE blocks
	InputSize int64  // Size of the DEFLATE stream in bytes
}

// SizeMatches reports whether the length of Data agrees with ISIZE.
func (m *Member) SizeMatches() bool {
	return uint32(len(m.Data)) == m.Size
}

// Decompress decodes the single GZIP member held in the first size bytes of r.
// Either the entire member is returned or an error; partial output is never
// returned.
func Decompress(r io.ReaderAt, size int64, conf *Config) (*Member, error) {
	if conf == nil {
		conf = new(Config)
	}

	hdr, err := ReadHeader(bufio.NewReader(io.NewSectionReader(r, 0, size)))
	if err != nil {
		return nil, err
	}
	isize, err := ReadSize(r, size)
	if err != nil {
		return nil, err
	}
	bodySize := size - trailerSize - hdr.Offset
	if bodySize < 0 {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "header of %d bytes overlaps trailer", hdr.Offset)
	}

	hint := int64(isize)
	if hint > maxSizeHint {
		hint = maxSizeHint
	}
	zr, err := flate.NewReader(bufio.NewReader(io.NewSectionReader(r, hdr.Offset, bodySize)), &flate.ReaderConfig{
		MaxSize:  conf.MaxSize,
		SizeHint: hint,
		OnBlock:  conf.OnBlock,
	})
	if err != nil {
		return nil, err
	}
	data, err := zr.DecodeAll()
	if err != nil {
		return nil, errors.Wrapf(err, "block %d at offset %d", zr.BlockCount(), hdr.Offset+zr.InputOffset)
	}
	return &Member{
		Header:    hdr,
		Data:      data,
		Size:      isize,
		Blocks:    zr.BlockCount(),
		InputSize: zr.InputOffset,
	}, nil
}

// DecompressBytes is Decompress over an in-memory member.
func DecompressBytes(b []byte, conf *Config) (*Member, error) {
	return Decompress(bytes.NewReader(b), int64(len(b)), conf)
}
