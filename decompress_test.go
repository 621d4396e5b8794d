// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pcapmerge

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestWrapDecompressorIdentity(t *testing.T) {
	r, closer, err := wrapDecompressor("input.pcap", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("wrapDecompressor: %v", err)
	}
	defer closer()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestWrapDecompressorGzip(t *testing.T) {
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	gz.Write([]byte("gzipped pcap bytes"))
	gz.Close()

	r, closer, err := wrapDecompressor("input.pcap.gz", buf)
	if err != nil {
		t.Fatalf("wrapDecompressor: %v", err)
	}
	defer closer()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "gzipped pcap bytes" {
		t.Fatalf("got %q", got)
	}
}

func TestWrapDecompressorZstd(t *testing.T) {
	buf := &bytes.Buffer{}
	enc, err := zstd.NewWriter(buf)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	enc.Write([]byte("zstd pcap bytes"))
	enc.Close()

	r, closer, err := wrapDecompressor("input.pcap.zst", buf)
	if err != nil {
		t.Fatalf("wrapDecompressor: %v", err)
	}
	defer closer()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "zstd pcap bytes" {
		t.Fatalf("got %q", got)
	}
}
