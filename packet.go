// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package pcapmerge implements a streaming K-way merge of time-ordered pcap
// files, sourced from a local filesystem or an S3-compatible object store,
// into a single nanosecond-precision pcap stream.
package pcapmerge

// sentinelTimestamp is the MAX_U64 value used to mark an exhausted or
// not-yet-populated leaf in the tournament tree.
const sentinelTimestamp = ^uint64(0)

// Packet is a single merged unit: a normalised nanosecond timestamp and the
// verbatim on-disk pcap record (16-byte header + payload) it came from.
// Ownership moves from the parser to the tree to the writer; nothing else
// holds a reference to Frame once it has been handed off.
type Packet struct {
	TimestampNS uint64
	Frame       []byte
}

// inputStream is the capability every tournament-tree leaf needs: a peek at
// the current head timestamp (sentinelTimestamp once exhausted) and a way
// to consume it. Implementations: pipelineStream in production, a plain
// slice-backed stream in tests.
type inputStream interface {
	// peekTimestamp returns the timestamp of the next packet without
	// consuming it, or sentinelTimestamp if the stream is exhausted.
	peekTimestamp() uint64
	// advance consumes and returns the current head packet. It must only
	// be called when peekTimestamp() != sentinelTimestamp.
	advance() (Packet, error)
}
