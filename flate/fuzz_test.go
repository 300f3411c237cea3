// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package flate

import (
	"bytes"
	"compress/flate"
	"io"
	"testing"

	"github.com/dynflate/dynflate/internal/testutil"
)

// FuzzDecompress checks that arbitrary input never panics, that a failed
// decode returns no data, and that whenever both this package and the
// standard library accept a stream they agree on its contents.
//
// The standard library rejects some streams accepted here, such as
// incomplete codes or HLIT values above 286, so a one-sided failure is fine.
func FuzzDecompress(f *testing.F) {
	rand := testutil.NewRand(0)
	f.Add(testutil.Deflate(nil, 0))
	f.Add(testutil.Deflate([]byte("hello, hello, hello"), 0))
	f.Add(testutil.Deflate(rand.Text(2000), 500))
	f.Add(testutil.Deflate(rand.Runs(3000), 0))
	f.Add(testutil.MustDecodeHex("1dc1010900000080a06df57f5410e202"))

	f.Fuzz(func(t *testing.T, data []byte) {
		got, err := Decompress(bytes.NewReader(data), &ReaderConfig{MaxSize: 1 << 20})
		if err != nil {
			if got != nil {
				t.Fatalf("got %d bytes alongside error: %v", len(got), err)
			}
			return
		}

		want, err := io.ReadAll(flate.NewReader(bytes.NewReader(data)))
		if err != nil {
			return
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("output mismatch: got %d bytes, want %d bytes", len(got), len(want))
		}
	})
}
