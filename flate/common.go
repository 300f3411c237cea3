// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package flate implements a decoder for the DEFLATE compressed data format,
// described in RFC 1951, restricted to blocks that use dynamic prefix codes.
//
// Stored and fixed prefix blocks are rejected with ErrUnsupportedBlock.
package flate

import (
	"io"

	"github.com/dsnet/golib/errs"
	"github.com/pkg/errors"
)

const (
	maxHistSize = 1 << 15
	endBlockSym = 256
)

// Error is the wrapper type for errors specific to this library.
type Error string

func (e Error) Error() string { return "flate: " + string(e) }

var (
	// ErrUnsupportedBlock reports a block whose BTYPE is not 2.
	ErrUnsupportedBlock error = Error("unsupported block type")

	// ErrInvalidCode reports a bit sequence that matches no prefix code, or a
	// set of code lengths that cannot form a prefix code.
	ErrInvalidCode error = Error("invalid prefix code")

	// ErrInvalidSymbol reports a decoded symbol that is out of range for its
	// position in the stream.
	ErrInvalidSymbol error = Error("invalid symbol")

	// ErrTooLarge reports output exceeding ReaderConfig.MaxSize.
	ErrTooLarge error = Error("output exceeds size limit")

	// ErrInputExhausted reports a stream that ended before its final block.
	ErrInputExhausted = io.ErrUnexpectedEOF
)

// panicf raises err annotated with a formatted message. The annotation keeps
// err reachable through errors.Is.
func panicf(err error, f string, args ...interface{}) {
	errs.Panic(errors.Wrapf(err, f, args...))
}

func allocUint8s(s []uint8, n int) []uint8 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]uint8, n, n*3/2)
}

func allocUint16s(s []uint16, n int) []uint16 {
	if cap(s) >= n {
		return s[:n]
	}
	return make([]uint16, n, n*3/2)
}
