// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package gzip

import (
	"encoding/binary"
	"io"
)

// ReadSize reads the ISIZE field, the uncompressed size modulo 2^32, from the
// last four bytes of a member of the given size.
func ReadSize(r io.ReaderAt, size int64) (uint32, error) {
	if size < minMemberSize {
		return 0, io.ErrUnexpectedEOF
	}
	var buf [4]byte
	if n, err := r.ReadAt(buf[:], size-4); n < len(buf) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
