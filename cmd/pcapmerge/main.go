// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"cloudeng.io/cmdutil"
	"cloudeng.io/cmdutil/subcmd"
	"github.com/schollz/progressbar/v2"

	"github.com/pcapmerge/pcapmerge"
	"github.com/pcapmerge/pcapmerge/internal/logging"
)

type mergeFlags struct {
	Workers     int  `subcmd:"workers,0,'override the worker-count knob (default: $PCAPMERGE_WORKERS, or GOMAXPROCS)'"`
	ProgressBar bool `subcmd:"progress,false,'display a progress bar on stderr'"`
	S3ChunkSize int  `subcmd:"s3-chunk-size,131072,'bytes requested per S3 ranged GET'"`
}

var cmdSet *subcmd.CommandSet

func init() {
	mergeCmd := subcmd.NewCommand("merge",
		subcmd.MustRegisterFlagStruct(&mergeFlags{}, nil, nil),
		merge, subcmd.AtLeastNArguments(1))
	mergeCmd.Document(`merge time-ordered pcap files into a single nanosecond-precision pcap stream on stdout. Inputs may be local paths or s3://bucket/key URIs, optionally suffixed .gz or .zst.`)

	cmdSet = subcmd.NewCommandSet(mergeCmd)
	cmdSet.Document(`pcapmerge streams a K-way merge of time-ordered pcap captures to stdout.`)
}

func main() {
	cmdSet.MustDispatch(context.Background())
}

// workersFromEnv reads the opaque worker-count knob described in spec §6.
func workersFromEnv() int {
	v := os.Getenv("PCAPMERGE_WORKERS")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

func merge(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmdutil.HandleSignals(cancel, os.Interrupt)

	cl := values.(*mergeFlags)

	logger, err := logging.New()
	if err != nil {
		return fmt.Errorf("pcapmerge: building logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	opts := []pcapmerge.MergeOption{pcapmerge.WithLogger(logger)}

	workers := cl.Workers
	if workers <= 0 {
		workers = workersFromEnv()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(-1)
	}
	opts = append(opts, pcapmerge.WithWorkers(workers))

	if cl.S3ChunkSize > 0 {
		opts = append(opts, pcapmerge.WithS3ChunkSize(int64(cl.S3ChunkSize)))
	}

	var barDone chan struct{}
	if cl.ProgressBar {
		ch := make(chan pcapmerge.Progress, 64)
		opts = append(opts, pcapmerge.WithProgress(ch))
		barDone = make(chan struct{})
		go func() {
			defer close(barDone)
			runProgressBar(ctx, ch, len(args))
		}()
	}

	err = pcapmerge.Merge(ctx, args, os.Stdout, opts...)
	// Cancel before waiting on the bar: on error, the failing input's
	// pipeline never reaches its terminal Done update, so runProgressBar
	// would otherwise block forever on a channel with no remaining
	// senders. The deferred cancel above fires too late for this (only
	// after merge, including this wait, returns), so it's called
	// explicitly here as well; cancelling twice is harmless.
	cancel()
	if barDone != nil {
		<-barDone
	}
	return err
}

// runProgressBar drives a simple packet-count progress bar on stderr until
// every input reports completion or ctx is cancelled. stdout is reserved
// for the merged pcap stream, so the bar is always written to stderr.
func runProgressBar(ctx context.Context, ch <-chan pcapmerge.Progress, numInputs int) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(false))

	last := make(map[int]uint64, numInputs)
	done := make(map[int]bool, numInputs)
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				return
			}
			if delta := p.PacketsWritten - last[p.InputIndex]; delta > 0 {
				bar.Add(int(delta))
			}
			last[p.InputIndex] = p.PacketsWritten
			if p.Done {
				done[p.InputIndex] = true
				if len(done) == numInputs {
					fmt.Fprintln(os.Stderr)
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
