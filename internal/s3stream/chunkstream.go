// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package s3stream implements a chunked, ranged reader over an S3 object
// and a delayed-prefetch scheduler that controls how many of those ranged
// GETs are ever in flight at once.
package s3stream

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectAPI is the subset of *s3.Client that ChunkStream needs; it exists
// so tests can supply a fake.
type ObjectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Future resolves, when called, to the bytes of one chunk. It is safe to
// call at most once; ChunkStream and Buffer never call a given Future
// twice.
type Future func(ctx context.Context) ([]byte, error)

// ParseURI splits an "s3://bucket/key" URI into its bucket and key. It is
// a construction-time error for the URI to be missing the bucket/key
// separator or the key itself.
func ParseURI(uri string) (bucket, key string, err error) {
	const prefix = "s3://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", fmt.Errorf("s3stream: not an s3:// uri: %q", uri)
	}
	rest := uri[len(prefix):]
	idx := strings.IndexByte(rest, '/')
	if idx < 0 || idx == len(rest)-1 {
		return "", "", fmt.Errorf("s3stream: uri missing bucket/key separator: %q", uri)
	}
	bucket, key = rest[:idx], rest[idx+1:]
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3stream: uri missing bucket or key: %q", uri)
	}
	return bucket, key, nil
}

// ChunkStream yields a lazy, ordered sequence of Futures, each resolving to
// the bytes of one chunkSize-aligned byte range of an S3 object. The first
// call to Next issues a HEAD request to learn the object's length, which
// decides when the sequence ends. Ranges are not clamped to that length:
// the last range may reach past the end of the object, S3 returns only the
// bytes that exist, and so the final chunk may be shorter than chunkSize
// (spec §9: "consumers must accept a short final chunk").
type ChunkStream struct {
	client    ObjectAPI
	bucket    string
	key       string
	chunkSize int64

	headDone      bool
	contentLength int64
	offset        int64
}

// NewChunkStream returns a ChunkStream for bucket/key, requesting chunkSize
// bytes per range.
func NewChunkStream(client ObjectAPI, bucket, key string, chunkSize int64) *ChunkStream {
	return &ChunkStream{client: client, bucket: bucket, key: key, chunkSize: chunkSize}
}

// Next returns the Future for the next chunk, or ok=false once the whole
// object has been covered. A non-nil error is fatal: the HEAD request
// failed, or (in principle) the range could not be constructed.
func (c *ChunkStream) Next(ctx context.Context) (future Future, ok bool, err error) {
	if !c.headDone {
		out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(c.key),
		})
		if err != nil {
			return nil, false, fmt.Errorf("s3stream: HEAD s3://%s/%s: %w", c.bucket, c.key, err)
		}
		c.headDone = true
		if out.ContentLength != nil {
			c.contentLength = *out.ContentLength
		}
	}
	if c.offset >= c.contentLength {
		return nil, false, nil
	}
	start := c.offset
	end := start + c.chunkSize - 1 // may over-read past content length; S3 truncates.
	c.offset += c.chunkSize

	fut := func(ctx context.Context) ([]byte, error) {
		rng := fmt.Sprintf("bytes=%d-%d", start, end)
		out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(c.key),
			Range:  aws.String(rng),
		})
		if err != nil {
			return nil, fmt.Errorf("s3stream: GET s3://%s/%s %s: %w", c.bucket, c.key, rng, err)
		}
		defer out.Body.Close()
		data, err := io.ReadAll(out.Body)
		if err != nil {
			return nil, fmt.Errorf("s3stream: reading s3://%s/%s %s: %w", c.bucket, c.key, rng, err)
		}
		return data, nil
	}
	return fut, true, nil
}
