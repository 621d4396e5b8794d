// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pcapmerge

import (
	"context"
	"fmt"
	"io"

	"cloudeng.io/errors"
	"go.uber.org/zap"

	"github.com/pcapmerge/pcapmerge/internal/pcap"
)

// batchMsg is what one per-input pipeline goroutine hands to the merger
// over its 1-slot channel: either a batch of parsed records, or a terminal
// error (never both, and never more after one error).
type batchMsg struct {
	records []pcap.Record
	err     error
}

// pipelineStream is the merger-side half of spec §4.7's per-input
// pipeline + handoff: it satisfies inputStream by pulling batches off a
// capacity-1 channel and flattening them back into a packet-at-a-time
// sequence.
type pipelineStream struct {
	index int
	path  string
	ch    <-chan batchMsg

	cur       []pcap.Record
	pos       int
	exhausted bool
	fatalErr  error
}

// newPipelineStream starts path's dedicated pipeline goroutine and returns
// the merger-side handle to it. pool gates how many such goroutines may be
// actively reading and decompressing at once; peekTimestamp on a stream
// whose goroutine is still waiting for a slot blocks until that goroutine
// has acquired one and handed off its first batch (or an error).
func newPipelineStream(ctx context.Context, index int, path string, opts mergeOpts, pool *workerPool) *pipelineStream {
	ch := make(chan batchMsg, 1)
	go runPipeline(ctx, index, path, opts, pool, ch)
	return &pipelineStream{index: index, path: path, ch: ch}
}

// ensureHead blocks, if necessary, until the stream has a head packet
// buffered or has been exhausted.
func (s *pipelineStream) ensureHead() {
	for !s.exhausted && s.pos >= len(s.cur) {
		msg, ok := <-s.ch
		if !ok {
			s.exhausted = true
			return
		}
		if msg.err != nil {
			s.fatalErr = msg.err
			s.exhausted = true
			return
		}
		s.cur, s.pos = msg.records, 0
	}
}

func (s *pipelineStream) peekTimestamp() uint64 {
	s.ensureHead()
	if s.exhausted {
		return sentinelTimestamp
	}
	return s.cur[s.pos].TimestampNS
}

func (s *pipelineStream) advance() (Packet, error) {
	s.ensureHead()
	if s.exhausted {
		if s.fatalErr != nil {
			return Packet{}, s.fatalErr
		}
		return Packet{}, io.EOF
	}
	rec := s.cur[s.pos]
	s.pos++
	return Packet{TimestampNS: rec.TimestampNS, Frame: rec.Frame}, nil
}

// runPipeline is the body of one input's dedicated goroutine: ByteSource
// -> Decompressor -> Parser -> batch -> channel. It owns ch and always
// closes it, whether it finishes cleanly or hands off a fatal error first.
//
// pool gates only the actively-reading-or-decompressing portion of this
// goroutine's life, never the time spent blocked handing a batch off to
// the merger: holding the slot across that handoff would let a pipeline
// stuck waiting on a slow consumer starve every other input of a slot
// forever, including the one the tournament tree's initial build is
// peeking (newTournamentTree peeks every input's head up front, so every
// input must be able to produce at least its first batch without waiting
// on another input to finish).
func runPipeline(ctx context.Context, index int, path string, opts mergeOpts, pool *workerPool, ch chan<- batchMsg) {
	defer close(ch)
	log := opts.logger.With(zap.Int("input", index), zap.String("path", path))

	if err := pool.acquire(ctx); err != nil {
		sendBatch(ctx, ch, batchMsg{err: err})
		return
	}
	held := true
	release := func() {
		if held {
			pool.release()
			held = false
		}
	}
	reacquire := func() error {
		if err := pool.acquire(ctx); err != nil {
			return err
		}
		held = true
		return nil
	}
	defer release()

	var closeErrs errors.M
	defer func() {
		if err := closeErrs.Err(); err != nil {
			log.Warn("error closing input", zap.Error(err))
		}
	}()

	src, closeSrc, err := openByteSource(ctx, path, opts)
	if err != nil {
		sendBatch(ctx, ch, batchMsg{err: err})
		return
	}
	defer func() { closeErrs.Append(closeSrc()) }()

	dec, closeDec, err := wrapDecompressor(path, src)
	if err != nil {
		sendBatch(ctx, ch, batchMsg{err: err})
		return
	}
	defer func() { closeErrs.Append(closeDec()) }()

	parser, hdr, err := pcap.NewParser(dec, opts.parserBufSize)
	if err != nil {
		sendBatch(ctx, ch, batchMsg{err: fmt.Errorf("%s: %w", path, err)})
		return
	}
	log.Debug("parsed file header", zap.Int("precision", int(hdr.Precision)))

	var pending []pcap.Record
	var packets, bytesRead uint64
	flush := func() bool {
		if len(pending) == 0 {
			return true
		}
		log.Debug("sending batch", zap.Int("records", len(pending)))
		// Give up the slot before the (possibly long) wait for the merger
		// to drain the handoff channel, so a slow consumer never pins a
		// worker slot that another input needs just to expose its head.
		release()
		if !sendBatch(ctx, ch, batchMsg{records: pending}) {
			return false
		}
		pending = nil
		sendProgress(ctx, opts, Progress{InputIndex: index, InputPath: path, PacketsWritten: packets, BytesWritten: bytesRead})
		if err := reacquire(); err != nil {
			sendBatch(ctx, ch, batchMsg{err: err})
			return false
		}
		return true
	}
	for parser.Scan(ctx) {
		rec := parser.Record()
		pending = append(pending, rec)
		packets++
		bytesRead += uint64(len(rec.Frame))
		if len(pending) >= opts.batchSize {
			if !flush() {
				return
			}
		}
	}
	if !flush() {
		return
	}
	if err := parser.Err(); err != nil {
		sendBatch(ctx, ch, batchMsg{err: fmt.Errorf("%s: %w", path, err)})
		return
	}
	// The terminal Done update must reach the consumer, not be silently
	// dropped by a full channel: it is what lets a progress-bar reader
	// know every input has finished.
	sendProgress(ctx, opts, Progress{InputIndex: index, InputPath: path, PacketsWritten: packets, BytesWritten: bytesRead, Done: true})
}

// sendProgress delivers a progress update. A non-terminal update is
// best-effort and non-blocking, so a full or absent progress channel never
// slows down the pipeline; the terminal Done update blocks (up to ctx
// cancellation) so a reader waiting to see every input finish can't miss it.
func sendProgress(ctx context.Context, opts mergeOpts, p Progress) {
	if opts.progressCh == nil {
		return
	}
	if p.Done {
		select {
		case opts.progressCh <- p:
		case <-ctx.Done():
		}
		return
	}
	select {
	case opts.progressCh <- p:
	default:
	}
}

// sendBatch delivers msg on ch, respecting ctx cancellation. It returns
// false if the context was cancelled first, signalling the caller to stop
// producing.
func sendBatch(ctx context.Context, ch chan<- batchMsg, msg batchMsg) bool {
	select {
	case ch <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
