// Copyright 2024 The pcapmerge Authors. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package logging builds this repo's single structured logger, replacing
// the teacher's ad hoc -v/-vv verbosity flags with the standard
// tracing-filter environment variable called for by this tool's external
// interface: a level name read once at startup.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvVar is the tracing-filter environment variable consulted by New. Its
// value is a zap level name (debug, info, warn, error); anything else, or
// an unset variable, falls back to info.
const EnvVar = "PCAPMERGE_LOG"

// New builds a zap.Logger writing to stderr (stdout is reserved for the
// merged pcap stream) at the level named by EnvVar.
func New() (*zap.Logger, error) {
	level := levelFromEnv(os.Getenv(EnvVar))
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func levelFromEnv(v string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "", "info":
		return zapcore.InfoLevel
	default:
		return zapcore.InfoLevel
	}
}
