// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package s3stream

import "context"

// FutureSource is anything that yields an ordered sequence of Futures,
// such as a *ChunkStream.
type FutureSource interface {
	Next(ctx context.Context) (future Future, ok bool, err error)
}

// inflight is one outstanding fetch: a dedicated, single-use result
// channel fed by the goroutine that called its Future. Because each
// in-flight fetch gets its own channel, Buffer can always deliver results
// in strict submission order just by receiving from the head of its queue,
// regardless of which goroutine happens to finish first; no explicit
// reordering structure (see parallel.go's blockHeap in the teacher this
// package is descended from) is needed here, since nothing shares a single
// completion channel.
type inflight struct {
	resultCh chan fetchResult
}

type fetchResult struct {
	data []byte
	err  error
}

// Buffer wraps a FutureSource and runs the first serialPrefix outputs one
// at a time, then up to maxConcurrent concurrently, delivering results in
// submission order. It implements spec §4.4's Delayed-Prefetch Buffer.
type Buffer struct {
	source        FutureSource
	serialPrefix  int
	maxConcurrent int

	queue         []*inflight
	sourceDrained bool
	sourceErr     error
}

// NewBuffer returns a Buffer over source. maxConcurrent must be >= 1;
// serialPrefix may be 0 (no forced-serial warm-up phase).
func NewBuffer(source FutureSource, serialPrefix, maxConcurrent int) *Buffer {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Buffer{source: source, serialPrefix: serialPrefix, maxConcurrent: maxConcurrent}
}

// effectiveTarget returns the in-progress queue depth the buffer currently
// tries to maintain: 1 while the serial prefix has not been exhausted,
// else maxConcurrent.
func (b *Buffer) effectiveTarget() int {
	if b.serialPrefix > 0 {
		return 1
	}
	return b.maxConcurrent
}

// fill pulls from the source stream until the in-progress queue reaches
// its effective target, or the source is exhausted or errors.
func (b *Buffer) fill(ctx context.Context) {
	for !b.sourceDrained && b.sourceErr == nil && len(b.queue) < b.effectiveTarget() {
		future, ok, err := b.source.Next(ctx)
		if err != nil {
			b.sourceErr = err
			return
		}
		if !ok {
			b.sourceDrained = true
			return
		}
		slot := &inflight{resultCh: make(chan fetchResult, 1)}
		go func(f Future) {
			data, err := f(ctx)
			slot.resultCh <- fetchResult{data: data, err: err}
		}(future)
		b.queue = append(b.queue, slot)
		if b.serialPrefix > 0 {
			b.serialPrefix--
		}
	}
}

// Next blocks until the next chunk in order is ready, or returns ok=false
// once the source is exhausted and every in-flight fetch has been
// delivered. A non-nil error is fatal and terminates the sequence.
func (b *Buffer) Next(ctx context.Context) (data []byte, ok bool, err error) {
	b.fill(ctx)
	if len(b.queue) == 0 {
		if b.sourceErr != nil {
			err, b.sourceErr = b.sourceErr, nil
			return nil, false, err
		}
		return nil, false, nil
	}
	head := b.queue[0]
	b.queue = b.queue[1:]
	select {
	case res := <-head.resultCh:
		if res.err != nil {
			return nil, false, res.err
		}
		return res.data, true, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// queueLen reports the current in-progress queue depth; exported within
// the package for the property test in §8 item 6.
func (b *Buffer) queueLen() int {
	return len(b.queue)
}
