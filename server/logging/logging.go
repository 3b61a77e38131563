/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logging provides the zap loggers of the canvas server.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper of zap.SugaredLogger.
type Logger = *zap.SugaredLogger

// Field is a wrapper of zap.Field.
type Field = zap.Field

var (
	level         = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	format        = "console"
	defaultLogger Logger
	loggerOnce    sync.Once
)

// SetLogLevel sets the level of every logger created by this package, one of
// "debug", "info", "warn", "error", "panic" or "fatal".
func SetLogLevel(l string) error {
	var lvl zapcore.Level
	switch strings.ToLower(l) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "info":
		lvl = zapcore.InfoLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	case "panic":
		lvl = zapcore.PanicLevel
	case "fatal":
		lvl = zapcore.FatalLevel
	default:
		return fmt.Errorf("invalid log level: %s", l)
	}
	level.SetLevel(lvl)
	return nil
}

// SetFormat selects the encoder, "console" or "json". It must be called
// before any logger is created.
func SetFormat(f string) error {
	switch f {
	case "console", "json":
		format = f
		return nil
	default:
		return fmt.Errorf("invalid log format: %s", f)
	}
}

// New creates a named logger with the given fields attached.
func New(name string, fields ...Field) Logger {
	logger := newLogger(name)
	if len(fields) == 0 {
		return logger
	}

	args := make([]interface{}, len(fields))
	for i, field := range fields {
		args[i] = field
	}
	return logger.With(args...)
}

// NewField creates a string field.
func NewField(key string, value string) Field {
	return zap.String(key, value)
}

// DefaultLogger returns the process-wide logger.
func DefaultLogger() Logger {
	loggerOnce.Do(func() {
		defaultLogger = newLogger("default")
	})
	return defaultLogger
}

// Enabled returns true if the given level is enabled.
func Enabled(l zapcore.Level) bool {
	return level.Enabled(l)
}

func newLogger(name string) Logger {
	encoder := zapcore.NewConsoleEncoder(humanEncoderConfig())
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig())
	}

	return zap.New(
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
		zap.AddStacktrace(zap.ErrorLevel),
	).Named(name).Sugar()
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		CallerKey:      "C",
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.EpochTimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func humanEncoderConfig() zapcore.EncoderConfig {
	cfg := encoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}
