// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/chunkfs/lib/service"
)

// NewCommandLogger creates the logger for commands run without a
// config file. Text output goes to a terminal, JSON to pipes and log
// collectors. level is as for service.ParseLevel.
func NewCommandLogger(level string) (*slog.Logger, error) {
	format := "json"
	if term.IsTerminal(int(os.Stderr.Fd())) {
		format = "text"
	}
	return service.NewLogger(level, format)
}
