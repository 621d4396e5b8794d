// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pcapmerge

import (
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// wrapDecompressor returns a transparent byte-in/byte-out reader over r,
// selected by name's suffix: ".zst" decodes a zstd frame, ".gz" decodes a
// gzip member, anything else passes bytes through unchanged. It hides
// frame boundaries from the pcap parser layered on top of it.
func wrapDecompressor(name string, r io.Reader) (io.Reader, func() error, error) {
	switch {
	case strings.HasSuffix(name, ".zst"):
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("pcapmerge: zstd: %w", err)
		}
		rc := dec.IOReadCloser()
		return rc, rc.Close, nil
	case strings.HasSuffix(name, ".gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("pcapmerge: gzip: %w", err)
		}
		return gz, gz.Close, nil
	default:
		return r, func() error { return nil }, nil
	}
}
