// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package dynflate is a collection of decoders for GZIP members whose DEFLATE
// payload is made entirely of dynamic Huffman blocks.
//
// The flate package holds the DEFLATE engine, the gzip package handles the
// container, and the batch package decodes many files at once.
package dynflate

import "io"

// ByteReader is the interface the flate decoder reads from. Inputs that do not
// satisfy it are wrapped so that no byte past the end of a stream is consumed.
type ByteReader interface {
	io.Reader
	io.ByteReader
}
