// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package pcap implements a minimal reader and writer for the
// classic pcap file format: a 24-byte file header followed by a sequence of
// 16-byte-header + payload records. It accepts both little- and big-endian
// files and both microsecond- and nanosecond-precision timestamps,
// normalising every observed timestamp to nanoseconds for comparison while
// leaving the on-disk record bytes untouched.
package pcap

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the size, in bytes, of the classic pcap file header.
const HeaderSize = 24

// RecordHeaderSize is the size, in bytes, of a classic pcap per-packet
// record header.
const RecordHeaderSize = 16

// Precision identifies whether a file's per-packet fractional timestamp
// field is microseconds or nanoseconds.
type Precision int

const (
	Microsecond Precision = iota
	Nanosecond
)

// fracMultiplier returns the factor by which the record header's
// fractional timestamp field must be multiplied to normalise it to
// nanoseconds.
func (p Precision) fracMultiplier() uint64 {
	if p == Nanosecond {
		return 1
	}
	return 1000
}

// the four magic byte sequences that identify endianness and precision,
// in the exact order they appear on disk.
var (
	magicLittleEndianMicro = [4]byte{0xA1, 0xB2, 0xC3, 0xD4}
	magicBigEndianMicro    = [4]byte{0xD4, 0xC3, 0xB2, 0xA1}
	magicLittleEndianNano  = [4]byte{0xA1, 0xB2, 0x3C, 0x4D}
	magicBigEndianNano     = [4]byte{0x4D, 0xC3, 0xB2, 0xA1}
)

// OutputMagic is the magic number this package writes for its own,
// little-endian nanosecond-precision output header.
var OutputMagic = magicLittleEndianNano

// Header is a parsed classic pcap file header. Per §4.8, the merge engine
// always emits a fresh fixed output header (see WriteHeader) rather than
// copying any input's; only Order and Precision feed back into subsequent
// record parsing, so that is all Header carries.
type Header struct {
	Order     binary.ByteOrder
	Precision Precision
}

// ParseHeader validates and decodes a 24-byte classic pcap file header.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("pcap: short file header: %d bytes", len(buf))
	}
	var magic [4]byte
	copy(magic[:], buf[0:4])

	switch magic {
	case magicLittleEndianMicro:
		return Header{Order: binary.LittleEndian, Precision: Microsecond}, nil
	case magicBigEndianMicro:
		return Header{Order: binary.BigEndian, Precision: Microsecond}, nil
	case magicLittleEndianNano:
		return Header{Order: binary.LittleEndian, Precision: Nanosecond}, nil
	case magicBigEndianNano:
		return Header{Order: binary.BigEndian, Precision: Nanosecond}, nil
	default:
		return Header{}, fmt.Errorf("pcap: unrecognised file magic: % x", magic)
	}
}

// OutputHeaderMajor, OutputHeaderMinor, OutputSnapLen and OutputLinkType are
// the fixed values written into the output stream's header, per the merge
// engine's contract: a fresh nanosecond-precision little-endian header
// rather than a copy of any one input's header.
const (
	OutputHeaderMajor = 2
	OutputHeaderMinor = 4
	OutputSnapLen     = 262144
	OutputLinkType    = 1
)

// WriteHeader encodes the fixed output file header described above into buf,
// which must be at least HeaderSize bytes long, and returns the number of
// bytes written.
func WriteHeader(buf []byte) int {
	_ = buf[HeaderSize-1]
	copy(buf[0:4], OutputMagic[:])
	binary.LittleEndian.PutUint16(buf[4:6], OutputHeaderMajor)
	binary.LittleEndian.PutUint16(buf[6:8], OutputHeaderMinor)
	binary.LittleEndian.PutUint32(buf[8:12], 0)
	binary.LittleEndian.PutUint32(buf[12:16], 0)
	binary.LittleEndian.PutUint32(buf[16:20], OutputSnapLen)
	binary.LittleEndian.PutUint32(buf[20:24], OutputLinkType)
	return HeaderSize
}

// RecordHeader is a parsed classic pcap per-packet record header.
type RecordHeader struct {
	TsSec  uint32
	TsFrac uint32 // microseconds or nanoseconds, per the file's Precision
	CapLen uint32
	Len    uint32
}

// NormalizedTimestamp returns h's timestamp normalised to nanoseconds, per
// the file's precision.
func (h RecordHeader) NormalizedTimestamp(prec Precision) uint64 {
	return uint64(h.TsSec)*1_000_000_000 + uint64(h.TsFrac)*prec.fracMultiplier()
}

// ParseRecordHeader decodes a RecordHeaderSize-byte record header using
// order.
func ParseRecordHeader(buf []byte, order binary.ByteOrder) RecordHeader {
	return RecordHeader{
		TsSec:  order.Uint32(buf[0:4]),
		TsFrac: order.Uint32(buf[4:8]),
		CapLen: order.Uint32(buf[8:12]),
		Len:    order.Uint32(buf[12:16]),
	}
}
