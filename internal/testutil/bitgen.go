// Copyright 2016, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package testutil

import (
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/dynflate/dynflate/internal"
)

var (
	reBin = regexp.MustCompile("^[01]{1,64}$")
	reNum = regexp.MustCompile("^([DH])([0-9]+):([0-9a-fA-F]+)$")
	reRaw = regexp.MustCompile("^X:([0-9a-fA-F]+)$")
	reQnt = regexp.MustCompile("^(.+)[*]([0-9]+)$")
)

// DecodeBitGen decodes a BitGen formatted string into a DEFLATE bit-stream.
//
// The format is a series of white-space separated tokens, each describing some
// bits to append to the stream. Bits are packed into bytes starting with the
// least-significant bit, as DEFLATE does. A '#' starts a comment that runs to
// the end of the line. The first token must be "<<<".
//
// The tokens "<" and ">" switch the parsing mode of the following tokens to
// little-endian or big-endian. In little-endian mode, the least-significant
// (right-most) bit of a value is written first, which is how DEFLATE stores
// header fields and extra bits. In big-endian mode, the left-most bit is
// written first, which is how DEFLATE stores prefix codes. Either character
// may also prefix a single token to change the mode for that token only.
//
// Tokens:
//
//	[01]{1,64}       a bit-string, such as 11010
//	D<n>:<decimal>   an n-bit unsigned integer, such as D5:29
//	H<n>:<hex>       an n-bit unsigned integer, such as H16:fffb
//	X:<hex>          raw bytes; the stream must be byte-aligned
//
// Any token may end with "*<count>" to repeat it count times.
// The stream is padded with zero bits to a byte boundary.
//
// Example, a final dynamic block whose only literal/length codes are the
// end-of-block and 257 symbols, and whose distance alphabet is empty:
//
//	<<<
//	< 1 10                     # Last, dynamic block
//	< D5:1 D5:0 D4:15          # HLit: 258, HDist: 1, HCLen: 19
//	< 000*3 001 000*13 001 000 # HCLens: {0:1, 1:1}
//	> 0*256 1*2                # HLits: {256:1, 257:1}
//	> 0                        # HDists: {}
//	> 0                        # End-of-block
func DecodeBitGen(str string) ([]byte, error) {
	toks := tokenize(str)
	if len(toks) == 0 || toks[0] != "<<<" {
		return nil, errors.New("testutil: stream must start with <<<")
	}

	var bw BitWriter
	var bigEndian bool
	for _, t := range toks[1:] {
		be := bigEndian
		if t[0] == '<' || t[0] == '>' {
			be = t[0] == '>'
			if t = t[1:]; t == "" {
				bigEndian = be
				continue
			}
		}

		rep := 1
		if m := reQnt.FindStringSubmatch(t); m != nil {
			n, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, errors.Errorf("testutil: invalid quantifier in token %q", t)
			}
			t, rep = m[1], n
		}

		v, n, raw, err := parseToken(t)
		if err != nil {
			return nil, err
		}
		for i := 0; i < rep; i++ {
			if raw != nil {
				if !bw.Aligned() {
					return nil, errors.Errorf("testutil: unaligned raw bytes %q", t)
				}
				bw.buf = append(bw.buf, raw...)
				continue
			}
			if be {
				bw.WriteBits(internal.ReverseUint64N(v, n), n)
			} else {
				bw.WriteBits(v, n)
			}
		}
	}
	return bw.Bytes(), nil
}

func tokenize(str string) (toks []string) {
	for _, line := range strings.Split(str, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		toks = append(toks, strings.Fields(line)...)
	}
	return toks
}

// parseToken returns either an n-bit value v or raw bytes.
func parseToken(t string) (v uint64, n uint, raw []byte, err error) {
	switch {
	case reBin.MatchString(t):
		for _, b := range t {
			v = v<<1 | uint64(b-'0')
		}
		return v, uint(len(t)), nil, nil
	case reNum.MatchString(t):
		m := reNum.FindStringSubmatch(t)
		base := 10
		if m[1] == "H" {
			base = 16
		}
		nb, err1 := strconv.Atoi(m[2])
		val, err2 := strconv.ParseUint(m[3], base, 64)
		if err1 != nil || err2 != nil || nb > 64 {
			return 0, 0, nil, errors.Errorf("testutil: invalid numeric token %q", t)
		}
		if nb < 64 && val>>uint(nb) != 0 {
			return 0, 0, nil, errors.Errorf("testutil: value overflows token %q", t)
		}
		return val, uint(nb), nil, nil
	case reRaw.MatchString(t):
		b, err := hex.DecodeString(reRaw.FindStringSubmatch(t)[1])
		if err != nil {
			return 0, 0, nil, errors.Wrapf(err, "testutil: invalid raw token %q", t)
		}
		return 0, 0, b, nil
	default:
		return 0, 0, nil, errors.Errorf("testutil: invalid token %q", t)
	}
}

// BitWriter packs bits into bytes, least-significant bit first.
type BitWriter struct {
	buf []byte
	m   byte // Mask of the next bit in the last byte; zero when aligned
}

// WriteBits writes the lower n bits of v, least-significant bit first.
func (bw *BitWriter) WriteBits(v uint64, n uint) {
	for i := uint(0); i < n; i++ {
		if bw.m == 0 {
			bw.m = 0x01
			bw.buf = append(bw.buf, 0x00)
		}
		if v&(1<<i) != 0 {
			bw.buf[len(bw.buf)-1] |= bw.m
		}
		bw.m <<= 1
	}
}

// WriteCode writes an n-bit prefix code, most-significant bit first.
func (bw *BitWriter) WriteCode(code uint32, n uint) {
	bw.WriteBits(uint64(internal.ReverseUint32N(code, n)), n)
}

// Aligned reports whether the stream ends on a byte boundary.
func (bw *BitWriter) Aligned() bool { return bw.m == 0 }

// Bytes returns the stream, padded with zero bits to a byte boundary.
func (bw *BitWriter) Bytes() []byte { return bw.buf }
