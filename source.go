// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pcapmerge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pcapmerge/pcapmerge/internal/s3stream"
)

const localReadAheadSize = 128 * 1024

// openByteSource produces the ordered, unseekable byte sequence for path,
// dispatching on URI scheme: an "s3://" path is routed to the chunked S3
// reader (§4.3/§4.4); anything else is treated as a local file. The
// returned closer must be called once the source is no longer needed.
func openByteSource(ctx context.Context, path string, opts mergeOpts) (io.Reader, func() error, error) {
	if strings.HasPrefix(path, "s3://") {
		return openS3Source(ctx, path, opts)
	}
	return openLocalSource(path)
}

// openLocalSource opens a local file read-only behind a bounded read-ahead
// buffer. The actual open and every read happen on the calling goroutine;
// per spec §4.2 that goroutine is the input's own dedicated pipeline
// goroutine (see pipeline.go), so a slow filesystem only ever stalls that
// one input, never the merger or its siblings.
func openLocalSource(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("pcapmerge: opening %s: %w", path, err)
	}
	return bufio.NewReaderSize(f, localReadAheadSize), f.Close, nil
}

// s3ReaderAdapter exposes a s3stream.Buffer of chunk byte-slices as a
// single io.Reader, the same capability a local file offers, so that the
// rest of the pipeline (decompressor, parser) need not know whether its
// bytes came from disk or from S3.
type s3ReaderAdapter struct {
	ctx context.Context
	buf *s3stream.Buffer
	cur []byte
}

func (s *s3ReaderAdapter) Read(p []byte) (int, error) {
	for len(s.cur) == 0 {
		data, ok, err := s.buf.Next(s.ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, io.EOF
		}
		s.cur = data
	}
	n := copy(p, s.cur)
	s.cur = s.cur[n:]
	return n, nil
}

func openS3Source(ctx context.Context, path string, opts mergeOpts) (io.Reader, func() error, error) {
	bucket, key, err := s3stream.ParseURI(path)
	if err != nil {
		return nil, nil, err
	}
	client, err := newS3Client(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("pcapmerge: s3 client: %w", err)
	}
	cs := s3stream.NewChunkStream(client, bucket, key, opts.s3ChunkSize)
	buf := s3stream.NewBuffer(cs, opts.s3SerialPrefix, opts.s3MaxConcurrent)
	return &s3ReaderAdapter{ctx: ctx, buf: buf}, func() error { return nil }, nil
}
