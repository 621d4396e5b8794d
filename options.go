// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pcapmerge

import (
	"runtime"

	"go.uber.org/zap"
)

// mergeOpts collects every tunable of a merge, built from the functional
// options below, mirroring the decompressorOpts/scannerOpts pattern this
// package's teacher uses for its own Decompressor and Scanner.
type mergeOpts struct {
	workers         int
	parserBufSize   int
	batchSize       int
	s3ChunkSize     int64
	s3SerialPrefix  int
	s3MaxConcurrent int
	progressCh      chan<- Progress
	logger          *zap.Logger
}

func defaultMergeOpts() mergeOpts {
	return mergeOpts{
		workers:         runtime.GOMAXPROCS(-1),
		parserBufSize:   64 * 1024,
		batchSize:       2048,
		s3ChunkSize:     128 * 1024,
		s3SerialPrefix:  1,
		s3MaxConcurrent: 4,
		logger:          zap.NewNop(),
	}
}

// MergeOption configures a merge. See WithWorkers, WithS3ChunkSize,
// WithS3Prefetch, WithProgress and WithLogger.
type MergeOption func(*mergeOpts)

// WithWorkers sets the size of the worker pool that bounds how many
// per-input pipeline goroutines may be reading and decompressing at once
// (every input still gets its own goroutine); it corresponds to the
// spec's "opaque worker-count knob". The default is GOMAXPROCS.
func WithWorkers(n int) MergeOption {
	return func(o *mergeOpts) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithParserBufferSize overrides the capacity of the pcap parser's internal
// read buffer (recommended default 64 KiB per spec §4.6).
func WithParserBufferSize(n int) MergeOption {
	return func(o *mergeOpts) {
		if n > 0 {
			o.parserBufSize = n
		}
	}
}

// WithBatchSize overrides the maximum number of packets coalesced into one
// handoff-channel batch (spec §4.7 default 2048).
func WithBatchSize(n int) MergeOption {
	return func(o *mergeOpts) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithS3ChunkSize overrides the byte-range size requested per S3 GET
// (spec §4.3 recommended default 128 KiB).
func WithS3ChunkSize(n int64) MergeOption {
	return func(o *mergeOpts) {
		if n > 0 {
			o.s3ChunkSize = n
		}
	}
}

// WithS3Prefetch overrides the Delayed-Prefetch Buffer's serialPrefix and
// maxConcurrent parameters (spec §4.4).
func WithS3Prefetch(serialPrefix, maxConcurrent int) MergeOption {
	return func(o *mergeOpts) {
		o.s3SerialPrefix = serialPrefix
		if maxConcurrent > 0 {
			o.s3MaxConcurrent = maxConcurrent
		}
	}
}

// Progress reports merge activity for a single input, driving the
// supplementary progress bar described in SPEC_FULL.md.
type Progress struct {
	InputIndex     int
	InputPath      string
	PacketsWritten uint64
	BytesWritten   uint64
	Done           bool
}

// WithProgress sets the channel progress updates are sent on. The caller
// owns the channel and should drain it for the lifetime of the merge; like
// the teacher's BZSendUpdates, it is nil by default (no reporting).
func WithProgress(ch chan<- Progress) MergeOption {
	return func(o *mergeOpts) {
		o.progressCh = ch
	}
}

// WithLogger sets the structured logger used for diagnostic tracing. The
// default is a no-op logger.
func WithLogger(l *zap.Logger) MergeOption {
	return func(o *mergeOpts) {
		if l != nil {
			o.logger = l
		}
	}
}
