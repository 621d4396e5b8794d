// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pcapmerge

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// workerPool bounds how many per-input pipelines may be actively pulling
// and decompressing bytes at once: the opaque worker-count knob of spec
// §6, sized once per merge. This plays the same role the teacher's
// Decompressor concurrency pool played for bzip2 blocks (a fixed number of
// workers draining a larger set of cooperative tasks), minus its
// companion blockHeap: that reassembly structure has no counterpart here
// because ordering among inputs is the tournament tree's job, not the
// pool's.
type workerPool struct {
	sem *semaphore.Weighted
}

// newWorkerPool returns a pool admitting at most size concurrent workers.
// size is clamped to at least 1.
func newWorkerPool(size int) *workerPool {
	if size < 1 {
		size = 1
	}
	return &workerPool{sem: semaphore.NewWeighted(int64(size))}
}

// acquire blocks until a worker slot is free or ctx is cancelled.
func (p *workerPool) acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// release returns a slot acquired via acquire. It must only be called
// after a successful acquire.
func (p *workerPool) release() {
	p.sem.Release(1)
}
