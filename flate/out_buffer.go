// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

// The outBuffer holds every byte decoded so far from a stream. Since the whole
// output is retained, it serves as the history for back-references without
// any sliding window.
type outBuffer struct {
	buf   []byte
	rdPos int // Start of bytes not yet returned by ReadFlush
}

const minOutSize = 4 << 10

// Init resets the buffer, reserving room for sizeHint bytes.
// Memory from a previous use is kept when large enough.
func (ob *outBuffer) Init(sizeHint int) {
	if sizeHint < minOutSize {
		sizeHint = minOutSize
	}
	if cap(ob.buf) < sizeHint {
		ob.buf = make([]byte, 0, sizeHint)
	}
	*ob = outBuffer{buf: ob.buf[:0]}
}

// Len reports the total number of bytes written.
func (ob *outBuffer) Len() int { return len(ob.buf) }

// Bytes returns every byte written so far.
func (ob *outBuffer) Bytes() []byte { return ob.buf }

// WriteLiteral appends a single byte.
func (ob *outBuffer) WriteLiteral(c byte) {
	ob.buf = append(ob.buf, c)
}

// WriteCopy appends length bytes starting dist bytes behind the end of the
// buffer. The caller must ensure that 0 < dist <= Len.
//
// Bytes are copied one at a time in order, so that when dist < length the
// copy reads bytes it has itself written and the last dist bytes repeat.
func (ob *outBuffer) WriteCopy(dist, length int) {
	if n := len(ob.buf) + length; n > cap(ob.buf) {
		ob.grow(n)
	}
	src := len(ob.buf) - dist
	for i := 0; i < length; i++ {
		ob.buf = append(ob.buf, ob.buf[src+i])
	}
}

// Detach returns every byte written and releases the buffer, so that a later
// Init does not overwrite memory the caller now owns.
func (ob *outBuffer) Detach() []byte {
	buf := ob.buf
	*ob = outBuffer{}
	return buf
}

// ReadFlush returns the bytes written since the last call to ReadFlush.
func (ob *outBuffer) ReadFlush() []byte {
	toRead := ob.buf[ob.rdPos:]
	ob.rdPos = len(ob.buf)
	return toRead
}

// grow doubles the capacity until at least n bytes fit.
func (ob *outBuffer) grow(n int) {
	c := 2 * cap(ob.buf)
	if c < minOutSize {
		c = minOutSize
	}
	for c < n {
		c *= 2
	}
	buf := make([]byte, len(ob.buf), c)
	copy(buf, ob.buf)
	ob.buf = buf
}
