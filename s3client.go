// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pcapmerge

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// newS3Client lazily builds a single *s3.Client using the standard AWS
// credential discovery chain (environment variables, shared credential
// file, container/instance role) per spec §6. All S3 inputs in one merge
// share the client; the SDK's HTTP transport already pools connections.
var (
	s3ClientOnce sync.Once
	s3Client     *s3.Client
	s3ClientErr  error
)

func newS3Client(ctx context.Context) (*s3.Client, error) {
	s3ClientOnce.Do(func() {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			s3ClientErr = err
			return
		}
		s3Client = s3.NewFromConfig(cfg)
	})
	return s3Client, s3ClientErr
}
