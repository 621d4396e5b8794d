// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package testdata builds synthetic classic-pcap byte streams for tests,
// in place of the fixed recorded captures a production repo would ship:
// every field is written out explicitly, one value at a time, rather than
// reinterpreting a struct's memory layout, matching this repo's own parser
// and writer.
package testdata

import (
	"bytes"
	"encoding/binary"
	"math/rand"
)

// fixedRandSeed mirrors the teacher's convention of a constant seed shared
// between a generator and its tests, so failures are reproducible.
const fixedRandSeed = 0x1234

// PredictableRandomPayload returns size pseudorandom bytes derived from a
// fixed seed plus salt, reproducible across runs and distinguishable across
// calls with different salt values.
func PredictableRandomPayload(size int, salt int64) []byte {
	gen := rand.New(rand.NewSource(fixedRandSeed + salt))
	out := make([]byte, size)
	gen.Read(out)
	return out
}

// Record is one synthetic packet: a file-relative timestamp (seconds plus
// the fractional field in whatever unit the target precision expects) and
// a payload.
type Record struct {
	Sec     uint32
	Frac    uint32
	Payload []byte
}

// Magic byte patterns, duplicated from internal/pcap rather than imported,
// so that testdata stays a leaf package usable from internal/pcap's own
// tests without an import cycle.
var (
	MagicLittleEndianMicro = [4]byte{0xA1, 0xB2, 0xC3, 0xD4}
	MagicBigEndianMicro    = [4]byte{0xD4, 0xC3, 0xB2, 0xA1}
	MagicLittleEndianNano  = [4]byte{0xA1, 0xB2, 0x3C, 0x4D}
	MagicBigEndianNano     = [4]byte{0x4D, 0xC3, 0xB2, 0xA1}
)

// BuildFile encodes a complete classic-pcap byte stream: a 24-byte file
// header using magic and order, followed by records.
func BuildFile(order binary.ByteOrder, magic [4]byte, records []Record) []byte {
	buf := &bytes.Buffer{}
	var u16 [2]byte
	var u32 [4]byte

	putU16 := func(v uint16) {
		order.PutUint16(u16[:], v)
		buf.Write(u16[:])
	}
	putU32 := func(v uint32) {
		order.PutUint32(u32[:], v)
		buf.Write(u32[:])
	}

	buf.Write(magic[:])
	putU16(2) // version major
	putU16(4) // version minor
	putU32(0) // thiszone
	putU32(0) // sigfigs
	putU32(262144)
	putU32(1)

	for _, r := range records {
		putU32(r.Sec)
		putU32(r.Frac)
		putU32(uint32(len(r.Payload)))
		putU32(uint32(len(r.Payload)))
		buf.Write(r.Payload)
	}
	return buf.Bytes()
}

// NanoRecords builds a slice of Records for a nanosecond-precision file
// from a list of nanosecond timestamps, each split into whole seconds and a
// nanosecond fraction, one payload byte long each, tagged with byteVal so frames from different synthetic
// streams are easy to tell apart when reading a merged test output back.
func NanoRecords(timestampsNS []uint64, byteVal byte) []Record {
	recs := make([]Record, len(timestampsNS))
	for i, ts := range timestampsNS {
		recs[i] = Record{
			Sec:     uint32(ts / 1_000_000_000),
			Frac:    uint32(ts % 1_000_000_000),
			Payload: []byte{byteVal},
		}
	}
	return recs
}
