// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pcapmerge

import (
	"bufio"
	"io"

	"github.com/pcapmerge/pcapmerge/internal/pcap"
)

// writerBufSize is the output sink's buffer capacity; spec §4.8 asks for at
// least 1 MiB so that a slow downstream consumer (a pipe to another
// process, or S3) does not serialise with every individual record write.
const writerBufSize = 1 << 20

// outputWriter implements §4.8: a fresh nanosecond-precision little-endian
// file header, then each popped packet's record written verbatim. Per
// §6/§7's "output format", only the file header is synthesised; per-packet
// record headers are copied through untouched, since normalisation only
// ever affected timestamp comparison, never the bytes on the wire.
type outputWriter struct {
	w   *bufio.Writer
	hdr [pcap.HeaderSize]byte
}

func newOutputWriter(w io.Writer) *outputWriter {
	return &outputWriter{w: bufio.NewWriterSize(w, writerBufSize)}
}

// writeHeader must be called exactly once, before any writeRecord.
func (o *outputWriter) writeHeader() error {
	pcap.WriteHeader(o.hdr[:])
	_, err := o.w.Write(o.hdr[:])
	return err
}

// writeRecord streams pkt's verbatim frame (16-byte record header + caplen
// payload) to the output sink.
func (o *outputWriter) writeRecord(pkt Packet) error {
	_, err := o.w.Write(pkt.Frame)
	return err
}

func (o *outputWriter) Flush() error {
	return o.w.Flush()
}
