// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the chunkfs command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/chunkfs/cmd/chunkfs/cli"
	"github.com/bureau-foundation/chunkfs/lib/version"
)

// Root returns the chunkfs command tree writing results to stdout.
func Root() *cli.Command {
	return root(os.Stdout)
}

func root(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name: "chunkfs",
		Description: `chunkfs: a virtual file assembled from remote chunks.

Mount a directory with one extra read-only file whose bytes live in a
chunk store. Reads below the decryption threshold fetch and decrypt
whole chunks; reads above it fetch exactly the bytes asked for.`,
		Subcommands: []*cli.Command{
			mountCommand(),
			readCommand(stdout),
			packCommand(stdout),
			serveCommand(),
			sealCommand(stdout),
			keygenCommand(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string) error {
					fmt.Fprintf(stdout, "chunkfs %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Mount using a config file",
				Command:     "chunkfs mount --config /etc/chunkfs/config.yaml",
			},
			{
				Description: "Split a file into chunks, sealing the first 64 MiB",
				Command:     "chunkfs pack --input model.bin --output-dir store/ --table table.yaml --threshold 64MiB --key-file chunk.key",
			},
			{
				Description: "Serve a chunk directory over HTTP",
				Command:     "chunkfs serve --root store/ --token-file token",
			},
		},
	}
}
