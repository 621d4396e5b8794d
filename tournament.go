// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pcapmerge

// tournamentTree selects, with O(log K) work per pop, the input holding the
// smallest current head timestamp among K inputs. It is represented as two
// parallel arrays indexed by implicit binary-tree position rather than a
// pointer-linked tree, so a pop never allocates.
//
// values[0:k] holds the current head timestamp of each leaf (or
// sentinelTimestamp if exhausted or unpopulated). nodes[0:2k] holds, for
// every position i in [1,2k), the values-index of the winner of the
// subtree rooted at i: nodes[k:2k] is the identity mapping nodes[i] = i-k
// (a leaf is its own one-element subtree's winner), and nodes[1:k] are
// computed bottom-up from their two children. nodes[1] is always the
// global winner. This is the classic loser/tournament-tree layout; only
// the winner index is cached here since that is all pop needs.
type tournamentTree struct {
	k       int // leaf slot count: 0, or the next power of two >= n
	n       int // number of real (non-sentinel) inputs, n <= k
	values  []uint64
	nodes   []int
	streams []inputStream

	winningValueIndex int
	needsUpdate       bool
	comparisons       uint64
}

// nextPow2 returns the smallest power of two that is >= n, for n >= 1.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// newTournamentTree builds a tree over streams, peeking each input's head
// timestamp into its leaf slot.
func newTournamentTree(streams []inputStream) *tournamentTree {
	n := len(streams)
	if n == 0 {
		return &tournamentTree{}
	}
	k := nextPow2(n)
	t := &tournamentTree{
		k:       k,
		n:       n,
		values:  make([]uint64, k),
		nodes:   make([]int, 2*k),
		streams: make([]inputStream, k),
	}
	copy(t.streams, streams)
	for i := 0; i < k; i++ {
		if i < n {
			t.values[i] = streams[i].peekTimestamp()
		} else {
			t.values[i] = sentinelTimestamp
		}
	}
	for i := k; i < 2*k; i++ {
		t.nodes[i] = i - k
	}
	for i := k - 1; i >= 1; i-- {
		t.nodes[i] = t.better(t.nodes[2*i], t.nodes[2*i+1])
	}
	t.winningValueIndex = t.nodes[1]
	return t
}

// better returns whichever of values-index a or b holds the smaller
// timestamp, breaking ties toward a (the left child, hence the lower
// original leaf index). Every call counts as one comparison.
func (t *tournamentTree) better(a, b int) int {
	t.comparisons++
	if t.values[a] <= t.values[b] {
		return a
	}
	return b
}

// Comparisons returns the cumulative number of value comparisons performed,
// for the logarithmic-work property test (§8 property 5).
func (t *tournamentTree) Comparisons() uint64 {
	return t.comparisons
}

// pop returns the next packet in global timestamp order, or ok=false when
// every input is exhausted. A non-nil error means the winning input failed
// on advance(); the tree marks that input exhausted and the error should
// be treated as fatal to the whole merge by the caller.
func (t *tournamentTree) pop() (pkt Packet, ok bool, err error) {
	if t.k == 0 {
		return Packet{}, false, nil
	}
	if t.needsUpdate {
		t.refresh()
	}
	if t.values[t.winningValueIndex] == sentinelTimestamp {
		return Packet{}, false, nil
	}
	idx := t.winningValueIndex
	pkt, err = t.streams[idx].advance()
	t.needsUpdate = true
	if err != nil {
		// Permanently exclude this leaf: clearing the stream (not just the
		// value) stops refresh from re-peeking a stream that has already
		// failed once, which would otherwise resurrect it into contention.
		t.values[idx] = sentinelTimestamp
		t.streams[idx] = nil
		return Packet{}, false, err
	}
	return pkt, true, nil
}

// refresh re-peeks the previous winner's leaf and propagates the change
// from that leaf's parent up to the root, performing exactly one
// comparison per tree level (⌈log2 k⌉ total).
func (t *tournamentTree) refresh() {
	idx := t.winningValueIndex
	if s := t.streams[idx]; s != nil {
		t.values[idx] = s.peekTimestamp()
	} else {
		t.values[idx] = sentinelTimestamp
	}
	for node := (idx + t.k) / 2; node >= 1; node /= 2 {
		t.nodes[node] = t.better(t.nodes[2*node], t.nodes[2*node+1])
	}
	t.winningValueIndex = t.nodes[1]
	t.needsUpdate = false
}
