// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chunkfs/cmd/chunkfs/cli"
	"github.com/bureau-foundation/chunkfs/lib/chunkserver"
	"github.com/bureau-foundation/chunkfs/lib/secret"
	"github.com/bureau-foundation/chunkfs/lib/service"
)

func serveCommand() *cli.Command {
	var (
		root      string
		listen    string
		tokenFile string
		logLevel  string
	)

	return &cli.Command{
		Name:    "serve",
		Summary: "Serve a chunk directory over HTTP with range support",
		Description: `Serve the chunk files in --root at /chunks/<id>, honoring Range
requests. Every chunk request must carry the bearer token from
--token-file. /healthz is unauthenticated.

This is the store "chunkfs pack" output is meant to be published
from, and the http backend of "chunkfs mount" reads from it.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			flagSet.StringVar(&root, "root", "", "directory of chunk files")
			flagSet.StringVar(&listen, "listen", "127.0.0.1:8080", "listen address")
			flagSet.StringVar(&tokenFile, "token-file", "", "file holding the bearer token, or - for stdin")
			flagSet.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if tokenFile == "" {
				return fmt.Errorf("--token-file is required")
			}

			logger, err := cli.NewCommandLogger(logLevel)
			if err != nil {
				return err
			}

			token, err := secret.ReadFromPath(tokenFile)
			if err != nil {
				return fmt.Errorf("reading token: %w", err)
			}
			defer token.Close()

			handler, err := chunkserver.New(chunkserver.Config{
				Root:   root,
				Token:  token,
				Logger: logger,
			})
			if err != nil {
				return err
			}

			server := service.NewHTTPServer(service.HTTPServerConfig{
				Address: listen,
				Handler: handler,
				Logger:  logger,
			})
			return server.Serve(ctx)
		},
	}
}
