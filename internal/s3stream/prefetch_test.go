// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package s3stream

import (
	"context"
	"fmt"
	"testing"
)

// intSource yields one Future per int in vals, each immediately resolving
// to that int encoded as a single byte.
type intSource struct {
	vals []int
	pos  int
}

func (s *intSource) Next(ctx context.Context) (Future, bool, error) {
	if s.pos >= len(s.vals) {
		return nil, false, nil
	}
	v := s.vals[s.pos]
	s.pos++
	return func(ctx context.Context) ([]byte, error) {
		return []byte{byte(v)}, nil
	}, true, nil
}

func TestBufferDelaysPrefetchAndPreservesOrder(t *testing.T) {
	src := &intSource{vals: []int{1, 2, 3, 4, 5, 6, 7, 8}}
	buf := NewBuffer(src, 3, 4)
	ctx := context.Background()

	var got []int
	for i := 0; i < 3; i++ {
		data, ok, err := buf.Next(ctx)
		if err != nil || !ok {
			t.Fatalf("Next: ok=%v err=%v", ok, err)
		}
		got = append(got, int(data[0]))
		// The third Next uses up the serial prefix, so its fill already
		// tops the queue up toward maxConcurrent before dequeuing.
		wantQ := 0
		if i == 2 {
			wantQ = 3
		}
		if qlen := buf.queueLen(); qlen != wantQ {
			t.Fatalf("serial phase: queue depth after Next %d = %d, want %d", i+1, qlen, wantQ)
		}
	}

	for {
		data, ok, err := buf.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, int(data[0]))
		if qlen := buf.queueLen(); qlen > 3 {
			t.Fatalf("concurrent phase: queue depth after Next = %d, want <= 3", qlen)
		}
	}

	want := []int{1, 2, 3, 4, 5, 6, 7, 8}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBufferSingleFutureNoSerialPrefix(t *testing.T) {
	src := &intSource{vals: []int{42}}
	buf := NewBuffer(src, 0, 8)
	data, ok, err := buf.Next(context.Background())
	if err != nil || !ok || data[0] != 42 {
		t.Fatalf("got data=%v ok=%v err=%v", data, ok, err)
	}
	_, ok, err = buf.Next(context.Background())
	if ok || err != nil {
		t.Fatalf("expected clean exhaustion, got ok=%v err=%v", ok, err)
	}
}

func TestBufferPropagatesFutureError(t *testing.T) {
	src := &errSource{}
	buf := NewBuffer(src, 0, 2)
	_, ok, err := buf.Next(context.Background())
	if ok || err == nil {
		t.Fatalf("expected an error, got ok=%v err=%v", ok, err)
	}
}

type errSource struct{ done bool }

func (s *errSource) Next(ctx context.Context) (Future, bool, error) {
	if s.done {
		return nil, false, nil
	}
	s.done = true
	return func(ctx context.Context) ([]byte, error) {
		return nil, fmt.Errorf("simulated transport failure")
	}, true, nil
}
