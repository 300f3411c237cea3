// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package internal holds helpers shared by the decoder tests and the test
// encoder. Nothing here checks its arguments.
package internal

// ReverseLUT maps a byte to the same byte with its bits in reverse order.
var ReverseLUT [256]byte

func init() {
	for i := range ReverseLUT {
		b := uint8(i)
		b = (b&0xaa)>>1 | (b&0x55)<<1
		b = (b&0xcc)>>2 | (b&0x33)<<2
		b = (b&0xf0)>>4 | (b&0x0f)<<4
		ReverseLUT[i] = b
	}
}

// ReverseUint32 reverses all bits of v.
func ReverseUint32(v uint32) (x uint32) {
	x |= uint32(ReverseLUT[byte(v>>0)]) << 24
	x |= uint32(ReverseLUT[byte(v>>8)]) << 16
	x |= uint32(ReverseLUT[byte(v>>16)]) << 8
	x |= uint32(ReverseLUT[byte(v>>24)]) << 0
	return x
}

// ReverseUint32N reverses the lower n bits of v. The value n must be in 1..32.
func ReverseUint32N(v uint32, n uint) uint32 {
	return ReverseUint32(v << (32 - n))
}

// ReverseUint64 reverses all bits of v.
func ReverseUint64(v uint64) uint64 {
	return uint64(ReverseUint32(uint32(v)))<<32 | uint64(ReverseUint32(uint32(v>>32)))
}

// ReverseUint64N reverses the lower n bits of v. A zero n yields zero.
func ReverseUint64N(v uint64, n uint) uint64 {
	if n == 0 {
		return 0
	}
	return ReverseUint64(v << (64 - n))
}
