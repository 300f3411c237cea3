// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bench

import (
	stdgzip "compress/gzip"
	"io"

	kpgzip "github.com/klauspost/compress/gzip"

	"github.com/dynflate/dynflate/flate"
	"github.com/dynflate/dynflate/gzip"
)

func init() {
	RegisterDecoder("std",
		func(r io.Reader) (io.ReadCloser, error) {
			return stdgzip.NewReader(r)
		})
	RegisterDecoder("kp",
		func(r io.Reader) (io.ReadCloser, error) {
			return kpgzip.NewReader(r)
		})
	RegisterDecoder("ds",
		func(r io.Reader) (io.ReadCloser, error) {
			if _, err := gzip.ReadHeader(r); err != nil {
				return nil, err
			}
			return flate.NewReader(r, nil)
		})
}
