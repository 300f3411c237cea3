// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package gzip

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/dsnet/golib/ioutil"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/dynflate/dynflate"
)

// Header is the metadata at the start of a GZIP member.
type Header struct {
	Flags     byte      // FLG field, including reserved bits
	ModTime   time.Time // Zero if the MTIME field is zero
	XFL       byte      // Extra flags
	OS        byte      // Operating system of the compressor
	Extra     []byte    // Only with FlagExtra
	Name      string    // Only with FlagName; decoded from ISO 8859-1
	Comment   string    // Only with FlagComment; decoded from ISO 8859-1
	HeaderCRC uint16    // Only with FlagHCRC; not verified

	// Offset is the size of the header, which is also the offset of the
	// first DEFLATE block within the member.
	Offset int64
}

// headerReader counts consumed bytes and turns io.EOF into
// io.ErrUnexpectedEOF.
type headerReader struct {
	rd  dynflate.ByteReader
	cnt int64
	brd ioutil.ByteReader
}

func (hr *headerReader) readFull(buf []byte) error {
	n, err := io.ReadFull(hr.rd, buf)
	hr.cnt += int64(n)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func (hr *headerReader) readString() (string, error) {
	var b []byte
	for {
		c, err := hr.rd.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
		hr.cnt++
		if c == 0 {
			return charmap.ISO8859_1.NewDecoder().String(string(b))
		}
		b = append(b, c)
	}
}

// ReadHeader reads a GZIP member header from r. Inputs that are not an
// io.ByteReader are read one byte at a time, so r is left positioned at the
// first DEFLATE block either way.
func ReadHeader(r io.Reader) (Header, error) {
	hr := headerReader{}
	if rr, ok := r.(dynflate.ByteReader); ok {
		hr.rd = rr
	} else {
		hr.brd.Reader = r
		hr.rd = &hr.brd
	}

	var h Header
	var buf [10]byte
	if err := hr.readFull(buf[:]); err != nil {
		return Header{}, err
	}
	if buf[0] != hdrMagic0 || buf[1] != hdrMagic1 {
		return Header{}, errors.Wrapf(ErrInvalidHeader, "magic %02x%02x", buf[0], buf[1])
	}
	if buf[2] != cmDeflate {
		return Header{}, errors.Wrapf(ErrInvalidHeader, "compression method %d", buf[2])
	}
	h.Flags = buf[3]
	if mtime := binary.LittleEndian.Uint32(buf[4:8]); mtime > 0 {
		h.ModTime = time.Unix(int64(mtime), 0)
	}
	h.XFL, h.OS = buf[8], buf[9]

	if h.Flags&FlagExtra != 0 {
		if err := hr.readFull(buf[:2]); err != nil {
			return Header{}, err
		}
		h.Extra = make([]byte, int(buf[0])|int(buf[1])<<8)
		if err := hr.readFull(h.Extra); err != nil {
			return Header{}, err
		}
	}
	var err error
	if h.Flags&FlagName != 0 {
		if h.Name, err = hr.readString(); err != nil {
			return Header{}, err
		}
	}
	if h.Flags&FlagComment != 0 {
		if h.Comment, err = hr.readString(); err != nil {
			return Header{}, err
		}
	}
	if h.Flags&FlagHCRC != 0 {
		if err := hr.readFull(buf[:2]); err != nil {
			return Header{}, err
		}
		h.HeaderCRC = binary.LittleEndian.Uint16(buf[:2])
	}
	h.Offset = hr.cnt
	return h, nil
}
