// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package gzip

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	kgzip "github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/dynflate/dynflate/flate"
	"github.com/dynflate/dynflate/internal/testutil"
)

const testdata = "../testdata/"

func TestReadHeader(t *testing.T) {
	extra := testutil.NewRand(0).Bytes(258)
	full := testutil.GzipMember{
		Name:    "caf\xe9.txt",
		Comment: "r\xe9sum\xe9",
		Extra:   extra,
		ModTime: 1500000000,
		HCRC:    true,
	}.Encode([]byte("hello"), 0)
	fullHdrSize := int64(10 + 2 + 258 + 9 + 7 + 2)

	var vectors = []struct {
		desc   string
		input  []byte
		header Header
		err    error
	}{{
		desc:  "empty input",
		input: nil,
		err:   io.ErrUnexpectedEOF,
	}, {
		desc:  "truncated fixed fields",
		input: []byte{0x1f, 0x8b, 0x08, 0x00, 0x00},
		err:   io.ErrUnexpectedEOF,
	}, {
		desc:  "missing magic",
		input: []byte("hello, world, this is not gzip"),
		err:   ErrInvalidHeader,
	}, {
		desc:  "wrong second magic byte",
		input: []byte{0x1f, 0x8c, 0x08, 0, 0, 0, 0, 0, 0, 0xff},
		err:   ErrInvalidHeader,
	}, {
		desc:  "compression method other than DEFLATE",
		input: []byte{0x1f, 0x8b, 0x07, 0, 0, 0, 0, 0, 0, 0xff},
		err:   ErrInvalidHeader,
	}, {
		desc:   "minimal header",
		input:  []byte{0x1f, 0x8b, 0x08, 0, 0, 0, 0, 0, 0, 0xff, 0xaa},
		header: Header{OS: 0xff, Offset: 10},
	}, {
		desc:   "reserved flag bits are ignored",
		input:  []byte{0x1f, 0x8b, 0x08, 0xe1, 0, 0, 0, 0, 0x04, 0x03},
		header: Header{Flags: 0xe1, XFL: 4, OS: 3, Offset: 10},
	}, {
		desc:  "GNU gzip with name",
		input: testutil.MustLoadFile(testdata + "lorem.txt.gz"),
		header: Header{
			Flags:   FlagName,
			ModTime: time.Unix(1792387831, 0),
			XFL:     2,
			OS:      3,
			Name:    "lorem.txt",
			Offset:  20,
		},
	}, {
		desc:  "every optional field",
		input: full,
		header: Header{
			Flags:     FlagHCRC | FlagExtra | FlagName | FlagComment,
			ModTime:   time.Unix(1500000000, 0),
			OS:        0xff,
			Extra:     extra,
			Name:      "café.txt",
			Comment:   "résumé",
			HeaderCRC: binary.LittleEndian.Uint16(full[fullHdrSize-2:]),
			Offset:    fullHdrSize,
		},
	}, {
		desc:  "truncated extra field",
		input: []byte{0x1f, 0x8b, 0x08, FlagExtra, 0, 0, 0, 0, 0, 0xff, 0x00, 0x01, 0xaa},
		err:   io.ErrUnexpectedEOF,
	}, {
		desc:  "unterminated name",
		input: []byte{0x1f, 0x8b, 0x08, FlagName, 0, 0, 0, 0, 0, 0xff, 'a', 'b'},
		err:   io.ErrUnexpectedEOF,
	}, {
		desc:  "truncated header CRC",
		input: []byte{0x1f, 0x8b, 0x08, FlagHCRC, 0, 0, 0, 0, 0, 0xff, 0x12},
		err:   io.ErrUnexpectedEOF,
	}}

	for i, v := range vectors {
		for _, wrap := range []bool{false, true} {
			var r io.Reader = bytes.NewReader(v.input)
			if wrap {
				r = &testutil.OneByteReader{R: r}
			}
			got, err := ReadHeader(r)
			if !errors.Is(err, v.err) {
				t.Errorf("test %d, %s: error mismatch: got %v, want %v", i, v.desc, err, v.err)
				continue
			}
			if diff := cmp.Diff(v.header, got); diff != "" {
				t.Errorf("test %d, %s: header mismatch (-want +got):\n%s", i, v.desc, diff)
			}
		}
	}
}

// TestReadHeaderZeroModTime checks that an MTIME of zero, meaning no
// timestamp is available, is not reported as the Unix epoch.
func TestReadHeaderZeroModTime(t *testing.T) {
	for _, mtime := range []uint32{0, 1} {
		hdr, err := ReadHeader(bytes.NewReader(testutil.GzipMember{ModTime: mtime}.Encode(nil, 0)))
		if err != nil {
			t.Fatalf("MTIME %d: unexpected error: %v", mtime, err)
		}
		if got, want := hdr.ModTime.IsZero(), mtime == 0; got != want {
			t.Errorf("MTIME %d: ModTime.IsZero() = %v, want %v", mtime, got, want)
		}
	}
}

// TestReadHeaderLeavesPayload checks that the header reader consumes exactly
// the header from an unbuffered input.
func TestReadHeaderLeavesPayload(t *testing.T) {
	input := testutil.MustLoadFile(testdata + "lorem.txt.gz")
	r := bytes.NewReader(input)
	hdr, err := ReadHeader(&testutil.OneByteReader{R: r})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rest := int64(r.Len()); rest != int64(len(input))-hdr.Offset {
		t.Errorf("unread bytes: got %d, want %d", rest, int64(len(input))-hdr.Offset)
	}
}

func TestReadSize(t *testing.T) {
	input := testutil.MustLoadFile(testdata + "lorem.txt.gz")
	size, err := ReadSize(bytes.NewReader(input), int64(len(input)))
	if err != nil || size != 24362 {
		t.Errorf("ReadSize = (%d, %v), want (24362, nil)", size, err)
	}

	if _, err := ReadSize(bytes.NewReader(input[:17]), 17); err != io.ErrUnexpectedEOF {
		t.Errorf("short member: got %v, want %v", err, io.ErrUnexpectedEOF)
	}
	if _, err := ReadSize(bytes.NewReader(input[:20]), 40); err != io.ErrUnexpectedEOF {
		t.Errorf("size beyond input: got %v, want %v", err, io.ErrUnexpectedEOF)
	}
}

func TestDecompressFixtures(t *testing.T) {
	var vectors = []struct {
		file   string
		want   string // Expected output file, if any
		name   string
		blocks int
		err    error
	}{
		{file: "lorem.txt.gz", want: "lorem.txt", name: "lorem.txt", blocks: 1},
		{file: "lorem-noname.gz", want: "lorem.txt", blocks: 1},
		{file: "repeats.bin.gz", want: "repeats.bin", name: "repeats.bin", blocks: 1},
		{file: "multi.bin.gz", want: "multi.bin", blocks: 3},
		{file: "mixed.gz", err: flate.ErrUnsupportedBlock},
		{file: "random.bin.gz", err: flate.ErrUnsupportedBlock},
		{file: "tiny.txt.gz", err: flate.ErrUnsupportedBlock},
	}

	for _, v := range vectors {
		input := testutil.MustLoadFile(testdata + v.file)
		m, err := DecompressBytes(input, nil)
		if !errors.Is(err, v.err) {
			t.Errorf("%s: error mismatch: got %v, want %v", v.file, err, v.err)
			continue
		}
		if v.err != nil {
			if m != nil {
				t.Errorf("%s: got a member along with error %v", v.file, err)
			}
			continue
		}

		want := testutil.MustLoadFile(testdata + v.want)
		if !bytes.Equal(m.Data, want) {
			t.Errorf("%s: output data mismatch", v.file)
		}
		if m.Header.Name != v.name {
			t.Errorf("%s: name mismatch: got %q, want %q", v.file, m.Header.Name, v.name)
		}
		if m.Blocks != v.blocks {
			t.Errorf("%s: block count mismatch: got %d, want %d", v.file, m.Blocks, v.blocks)
		}
		if !m.SizeMatches() || m.Size != uint32(len(want)) {
			t.Errorf("%s: ISIZE mismatch: got %d, want %d", v.file, m.Size, len(want))
		}
		if got := m.Header.Offset + m.InputSize + 8; got != int64(len(input)) {
			t.Errorf("%s: member size mismatch: got %d, want %d", v.file, got, len(input))
		}

		// The klauspost/compress decoder must agree on data and metadata.
		zr, err := kgzip.NewReader(bytes.NewReader(input))
		if err != nil {
			t.Fatalf("%s: kgzip.NewReader error: %v", v.file, err)
		}
		ref, err := io.ReadAll(zr)
		if err != nil {
			t.Fatalf("%s: kgzip read error: %v", v.file, err)
		}
		if !bytes.Equal(m.Data, ref) {
			t.Errorf("%s: output differs from klauspost/compress", v.file)
		}
		// An MTIME of zero means no timestamp. It is reported as the zero
		// time.Time, while klauspost/compress reports the Unix epoch.
		mtime := binary.LittleEndian.Uint32(input[4:8])
		if mtime == 0 && !m.Header.ModTime.IsZero() {
			t.Errorf("%s: ModTime = %v, want zero time for MTIME of zero", v.file, m.Header.ModTime)
		}
		if mtime != 0 && !zr.ModTime.Equal(m.Header.ModTime) {
			t.Errorf("%s: ModTime differs from klauspost/compress: got %v, want %v", v.file, m.Header.ModTime, zr.ModTime)
		}
		if zr.Name != m.Header.Name || zr.OS != m.Header.OS {
			t.Errorf("%s: header differs from klauspost/compress: got (%q, %d), want (%q, %d)",
				v.file, m.Header.Name, m.Header.OS, zr.Name, zr.OS)
		}
	}
}

func TestDecompressRoundTrip(t *testing.T) {
	r := testutil.NewRand(1)
	inputs := [][]byte{nil, []byte("x"), r.Text(200000), r.Runs(100000), r.Bytes(5000)}
	for i, data := range inputs {
		gm := testutil.GzipMember{Name: "data.bin", Comment: "round trip", ModTime: 1 << 30}
		input := gm.Encode(data, 1<<14)

		var blocks int
		m, err := DecompressBytes(input, &Config{OnBlock: func(*flate.BlockHeader) { blocks++ }})
		if err != nil {
			t.Errorf("test %d, unexpected error: %v", i, err)
			continue
		}
		if !bytes.Equal(m.Data, data) {
			t.Errorf("test %d, output data mismatch", i)
		}
		if blocks != m.Blocks || blocks == 0 {
			t.Errorf("test %d, block callbacks: got %d, want %d", i, blocks, m.Blocks)
		}
		if !m.SizeMatches() {
			t.Errorf("test %d, ISIZE mismatch: got %d, want %d", i, m.Size, len(data))
		}

		// Cross-check the encoder with an independent decoder.
		zr, err := kgzip.NewReader(bytes.NewReader(input))
		if err != nil {
			t.Fatalf("test %d, kgzip.NewReader error: %v", i, err)
		}
		if ref, err := io.ReadAll(zr); err != nil || !bytes.Equal(ref, data) {
			t.Errorf("test %d, klauspost/compress disagrees: %v", i, err)
		}
	}
}

func TestDecompressErrors(t *testing.T) {
	data := testutil.NewRand(2).Text(10000)
	member := testutil.GzipMember{Name: "x"}.Encode(data, 0)

	// An ISIZE that disagrees is reported but not an error.
	bad := append([]byte(nil), member...)
	binary.LittleEndian.PutUint32(bad[len(bad)-4:], 12345)
	m, err := DecompressBytes(bad, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.SizeMatches() || m.Size != 12345 {
		t.Errorf("SizeMatches() = true with ISIZE %d and %d bytes", m.Size, len(m.Data))
	}

	// A bound on the output size.
	if m, err := DecompressBytes(member, &Config{MaxSize: 9999}); !errors.Is(err, flate.ErrTooLarge) || m != nil {
		t.Errorf("MaxSize: got (%v, %v), want (nil, %v)", m, err, flate.ErrTooLarge)
	}

	// Truncation anywhere fails without output.
	for _, n := range []int{0, 5, 11, 12, 30, len(member) / 2, len(member) - 9} {
		m, err := DecompressBytes(member[:n], nil)
		if err == nil || m != nil {
			t.Errorf("truncated to %d bytes: got (%v, %v), want an error", n, m, err)
		}
	}
	if _, err := DecompressBytes(member[:12], nil); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated after header: got %v, want %v", err, io.ErrUnexpectedEOF)
	}
}
