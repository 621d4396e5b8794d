// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pcap

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// Record is a single parsed packet: its normalised nanosecond timestamp and
// the verbatim on-disk record bytes (16-byte header + caplen payload).
type Record struct {
	TimestampNS uint64
	Frame       []byte
}

const defaultBufferSize = 64 * 1024

// Parser validates a classic pcap file header and then yields the records
// that follow it one at a time. Each Record's Frame is a freshly allocated
// slice sized exactly to the record, copied out of the accumulated read
// buffer; it is not a view into that buffer.
//
// Parser mirrors the accumulate-then-parse-then-discard shape of a
// streaming scanner: Scan is called repeatedly, each call either producing
// a Record (retrieved via Record) or ending the sequence (checked via Err).
type Parser struct {
	rd  *bufio.Reader
	hdr Header

	buf    []byte // accumulated, not-yet-parsed bytes
	record Record
	err    error
	done   bool
}

// NewParser validates r's 24-byte pcap file header and returns a Parser
// ready to scan the records that follow. bufSize, if positive, overrides
// the default internal read buffer capacity.
func NewParser(r io.Reader, bufSize int) (*Parser, Header, error) {
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	brd := bufio.NewReaderSize(r, bufSize)
	raw := make([]byte, HeaderSize)
	if _, err := io.ReadFull(brd, raw); err != nil {
		return nil, Header{}, fmt.Errorf("pcap: reading file header: %w", err)
	}
	hdr, err := ParseHeader(raw)
	if err != nil {
		return nil, Header{}, err
	}
	return &Parser{rd: brd, hdr: hdr}, hdr, nil
}

// Header returns the parsed file header.
func (p *Parser) Header() Header {
	return p.hdr
}

// fill reads into p.buf until it holds at least n bytes in total (counting
// what is already buffered), stopping early only on error or EOF.
func (p *Parser) fill(n int) error {
	need := n - len(p.buf)
	if need <= 0 {
		return nil
	}
	grown := make([]byte, len(p.buf), len(p.buf)+need)
	copy(grown, p.buf)
	p.buf = grown
	start := len(p.buf)
	p.buf = p.buf[:start+need]
	read, err := io.ReadFull(p.rd, p.buf[start:])
	p.buf = p.buf[:start+read]
	return err
}

// Scan attempts to parse the next record. It returns true if Record will
// return a valid value; false means the sequence is over (check Err to
// distinguish clean EOF from a parse or I/O failure).
func (p *Parser) Scan(ctx context.Context) bool {
	if p.err != nil || p.done {
		return false
	}
	select {
	case <-ctx.Done():
		p.err = ctx.Err()
		return false
	default:
	}

	if err := p.fill(RecordHeaderSize); err != nil {
		return p.handleFillError(err, "record header")
	}
	rhdr := ParseRecordHeader(p.buf[:RecordHeaderSize], p.hdr.Order)
	total := RecordHeaderSize + int(rhdr.CapLen)

	if err := p.fill(total); err != nil {
		return p.handleFillError(err, "record payload")
	}

	frame := make([]byte, total)
	copy(frame, p.buf[:total])
	p.buf = append(p.buf[:0], p.buf[total:]...)

	p.record = Record{
		TimestampNS: rhdr.NormalizedTimestamp(p.hdr.Precision),
		Frame:       frame,
	}
	return true
}

// handleFillError interprets an error from fill: a clean EOF with nothing
// buffered ends the sequence successfully; anything else, including EOF
// with a partially filled buffer, is a parse error.
func (p *Parser) handleFillError(err error, what string) bool {
	if err == io.EOF && len(p.buf) == 0 {
		p.done = true
		return false
	}
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		p.err = fmt.Errorf("pcap: truncated %s: %d trailing bytes", what, len(p.buf))
		return false
	}
	p.err = fmt.Errorf("pcap: reading %s: %w", what, err)
	return false
}

// Record returns the most recently scanned record.
func (p *Parser) Record() Record {
	return p.record
}

// Err returns any error encountered by the parser. A nil return after Scan
// returns false indicates a clean end of stream.
func (p *Parser) Err() error {
	return p.err
}
