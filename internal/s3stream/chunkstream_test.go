// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package s3stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeObjectAPI struct {
	data []byte
}

func (f *fakeObjectAPI) HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	n := int64(len(f.data))
	return &s3.HeadObjectOutput{ContentLength: &n}, nil
}

func (f *fakeObjectAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	var start, end int64
	if _, err := fmt.Sscanf(aws.ToString(in.Range), "bytes=%d-%d", &start, &end); err != nil {
		return nil, err
	}
	if end >= int64(len(f.data)) {
		end = int64(len(f.data)) - 1
	}
	if start > end {
		return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(nil))}, nil
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.data[start : end+1]))}, nil
}

func TestChunkStreamCoversWholeObjectWithShortFinalChunk(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 10)
	cs := NewChunkStream(&fakeObjectAPI{data: data}, "bucket", "key", 4)

	var got []byte
	for {
		future, ok, err := cs.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		chunk, err := future(context.Background())
		if err != nil {
			t.Fatalf("future: %v", err)
		}
		got = append(got, chunk...)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got %x, want %x", got, data)
	}
}

func TestChunkStreamParseURI(t *testing.T) {
	cases := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://bucket/key", "bucket", "key", false},
		{"s3://bucket/path/to/key", "bucket", "path/to/key", false},
		{"not-s3://bucket/key", "", "", true},
		{"s3://bucket", "", "", true},
		{"s3://bucket/", "", "", true},
	}
	for _, c := range cases {
		b, k, err := ParseURI(c.uri)
		if (err != nil) != c.wantErr {
			t.Fatalf("%q: err=%v, wantErr=%v", c.uri, err, c.wantErr)
		}
		if !c.wantErr && (b != c.bucket || k != c.key) {
			t.Fatalf("%q: got (%q,%q), want (%q,%q)", c.uri, b, k, c.bucket, c.key)
		}
	}
}
