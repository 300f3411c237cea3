// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package testutil

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
)

// Rand implements a deterministic pseudo-random number generator.
// This differs from the math.Rand in that the exact output will be consistent
// across different versions of Go.
type Rand struct {
	cipher.Block
	blk [aes.BlockSize]byte
}

func NewRand(seed int) *Rand {
	var key [aes.BlockSize]byte
	binary.LittleEndian.PutUint64(key[:], uint64(seed))
	r, _ := aes.NewCipher(key[:])
	return &Rand{Block: r}
}

func (r *Rand) Int() int {
	r.Encrypt(r.blk[:], r.blk[:])
	return int(binary.LittleEndian.Uint64(r.blk[:]) >> 2)
}

func (r *Rand) Intn(n int) int {
	return r.Int() % n
}

func (r *Rand) Bytes(n int) []byte {
	b := make([]byte, n)
	bb := b
	for len(bb) > 0 {
		r.Encrypt(r.blk[:], r.blk[:])
		cnt := copy(bb, r.blk[:])
		bb = bb[cnt:]
	}
	return b
}

func (r *Rand) Perm(n int) []int {
	m := make([]int, n)
	for i := 0; i < n; i++ {
		j := r.Intn(i + 1)
		m[i] = m[j]
		m[j] = i
	}
	return m
}

var words = []string{
	"gzip", "member", "block", "huffman", "code", "length", "distance",
	"literal", "symbol", "stream", "header", "trailer", "window", "copy",
	"the", "a", "of", "and", "to", "in", "is", "that", "for", "with",
}

// Text returns n bytes of word-like text, which compresses with many
// back-references of varied lengths and distances.
func (r *Rand) Text(n int) []byte {
	b := make([]byte, 0, n+16)
	for len(b) < n {
		b = append(b, words[r.Intn(len(words))]...)
		switch r.Intn(16) {
		case 0:
			b = append(b, ".\n"...)
		case 1:
			b = append(b, ", "...)
		default:
			b = append(b, ' ')
		}
	}
	return b[:n]
}

// Runs returns n bytes made of runs of a few repeated byte values, which
// exercises overlapping copies.
func (r *Rand) Runs(n int) []byte {
	b := make([]byte, 0, n+300)
	for len(b) < n {
		c := byte(r.Intn(4)) + 'a'
		for cnt := 1 + r.Intn(300); cnt > 0; cnt-- {
			b = append(b, c)
		}
	}
	return b[:n]
}
