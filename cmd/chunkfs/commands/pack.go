// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chunkfs/cmd/chunkfs/cli"
	"github.com/bureau-foundation/chunkfs/lib/chunkcipher"
	"github.com/bureau-foundation/chunkfs/lib/chunkpack"
	"github.com/bureau-foundation/chunkfs/lib/config"
	"github.com/bureau-foundation/chunkfs/lib/secret"
)

type packParams struct {
	input     string
	outputDir string
	table     string
	chunkSize string
	threshold string
	scheme    string
	keyFile   string
	logLevel  string
}

func packCommand(stdout io.Writer) *cli.Command {
	var params packParams

	return &cli.Command{
		Name:    "pack",
		Summary: "Split a file into a chunk store and write its chunk table",
		Description: `Split --input into fixed-size chunks named by content and store them in
--output-dir. Chunks that start below --threshold are sealed with the
key in --key-file. A chunk boundary is always placed at the threshold.

Chunks already present in the output directory are not rewritten, so
packing related files into one directory shares their common chunks.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("pack", pflag.ContinueOnError)
			flagSet.StringVar(&params.input, "input", "", "file to pack, or - for stdin")
			flagSet.StringVar(&params.outputDir, "output-dir", "", "directory receiving chunk files")
			flagSet.StringVar(&params.table, "table", "", "chunk table to write (.yaml, .json, .cbor, optionally .zst or .lz4)")
			flagSet.StringVar(&params.chunkSize, "chunk-size", "4MiB", "plaintext chunk size")
			flagSet.StringVar(&params.threshold, "threshold", "0", "seal chunks below this offset")
			flagSet.StringVar(&params.scheme, "scheme", string(chunkcipher.SchemeAEAD), "encryption scheme (xchacha20poly1305, fernet)")
			flagSet.StringVar(&params.keyFile, "key-file", "", "chunk key file (see chunkfs keygen key)")
			flagSet.StringVar(&params.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runPack(ctx, params, stdout)
		},
	}
}

func runPack(ctx context.Context, params packParams, stdout io.Writer) error {
	if params.input == "" {
		return fmt.Errorf("--input is required")
	}
	if params.outputDir == "" {
		return fmt.Errorf("--output-dir is required")
	}
	chunkSize, err := config.ParseByteSize(params.chunkSize)
	if err != nil {
		return fmt.Errorf("--chunk-size: %w", err)
	}
	threshold, err := config.ParseByteSize(params.threshold)
	if err != nil {
		return fmt.Errorf("--threshold: %w", err)
	}

	logger, err := cli.NewCommandLogger(params.logLevel)
	if err != nil {
		return err
	}

	options := chunkpack.Options{
		OutputDir: params.outputDir,
		TablePath: params.table,
		ChunkSize: int64(chunkSize),
		Threshold: uint64(threshold),
		Logger:    logger,
	}

	if threshold > 0 {
		if params.keyFile == "" {
			return fmt.Errorf("--threshold %s requires --key-file", threshold)
		}
		cipher, err := loadCipher(chunkcipher.Scheme(params.scheme), params.keyFile)
		if err != nil {
			return err
		}
		options.Encryptor = cipher
	}

	var source io.Reader = os.Stdin
	if params.input != "-" {
		file, err := os.Open(params.input)
		if err != nil {
			return err
		}
		defer file.Close()
		source = file
	}

	result, err := chunkpack.Pack(ctx, source, options)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "packed %d bytes into %d chunks (%d sealed, %d new)\n",
		result.Size, len(result.Descriptors), result.Sealed, result.Written)
	if params.table == "" {
		for _, descriptor := range result.Descriptors {
			fmt.Fprintf(stdout, "%s\t%d\n", descriptor.ID, descriptor.End)
		}
	}
	return nil
}

// loadCipher reads a textual chunk key and returns the cipher it
// keys. The key material is released before returning.
func loadCipher(scheme chunkcipher.Scheme, path string) (chunkcipher.Cipher, error) {
	encoded, err := secret.ReadFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("reading chunk key: %w", err)
	}
	defer encoded.Close()

	key, err := chunkcipher.DecodeKey(scheme, encoded)
	if err != nil {
		return nil, err
	}
	defer key.Close()
	return chunkcipher.New(scheme, key)
}
