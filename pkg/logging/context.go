/*
Copyright 2026 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/gravitational/trace"
)

type loggerKeyType string

const loggerKey loggerKeyType = "logger"

var DiscardLogger = slog.New(slog.DiscardHandler)

// New builds a text logger writing to w at the named level.
// Accepted levels are debug, info, warn and error.
func New(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, trace.BadParameter("unknown log level %q", level)
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func ToCtx(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func FromCtx(ctx context.Context) *slog.Logger {
	logger := ctx.Value(loggerKey)

	if slogger, ok := logger.(*slog.Logger); ok && slogger != nil {
		return slogger
	}

	return DiscardLogger
}
