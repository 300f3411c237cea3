// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package gzip implements reading of GZIP members, described in RFC 1952,
// whose DEFLATE payload is made of dynamic prefix blocks.
//
// The CRC-32 in the trailer is not verified. The ISIZE field is read and
// reported alongside the decompressed data.
package gzip

const (
	hdrMagic0 = 0x1f
	hdrMagic1 = 0x8b
	cmDeflate = 8

	minMemberSize = 18 // 10-byte header, 8-byte trailer, empty payload
	trailerSize   = 8
	maxSizeHint   = 64 << 20
)

// Header flags (RFC section 2.3.1).
const (
	FlagText    = 1 << 0 // FTEXT
	FlagHCRC    = 1 << 1 // FHCRC
	FlagExtra   = 1 << 2 // FEXTRA
	FlagName    = 1 << 3 // FNAME
	FlagComment = 1 << 4 // FCOMMENT
)

// Error is the wrapper type for errors specific to this library.
type Error string

func (e Error) Error() string { return "gzip: " + string(e) }

// ErrInvalidHeader reports a member with wrong magic bytes or a compression
// method other than DEFLATE.
var ErrInvalidHeader error = Error("invalid header")
