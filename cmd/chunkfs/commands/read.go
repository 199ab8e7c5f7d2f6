// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chunkfs/cmd/chunkfs/cli"
	"github.com/bureau-foundation/chunkfs/lib/service"
)

func readCommand(stdout io.Writer) *cli.Command {
	var (
		configPath string
		offset     uint64
		length     uint32
		outputPath string
	)

	return &cli.Command{
		Name:    "read",
		Summary: "Read a byte range of the virtual file without mounting",
		Description: `Read length bytes at offset through the same fetch and decrypt path
the mount uses, and write them to stdout or --output. Only the chunk
and remote sections of the config are needed.

A read that starts at or past the end of the file is an error. A read
that runs past the end returns the bytes up to the end.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("read", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "config file (default $CHUNKFS_CONFIG)")
			flagSet.Uint64Var(&offset, "offset", 0, "byte offset in the virtual file")
			flagSet.Uint32Var(&length, "length", 4096, "number of bytes to read")
			flagSet.StringVarP(&outputPath, "output", "o", "", "write to this file instead of stdout")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Dump the first kilobyte as hex",
				Command:     "chunkfs read --config config.yaml --length 1024 | xxd",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if outputPath == "" {
				return runRead(ctx, configPath, offset, length, stdout)
			}
			file, err := os.Create(outputPath)
			if err != nil {
				return err
			}
			if err := runRead(ctx, configPath, offset, length, file); err != nil {
				file.Close()
				return err
			}
			// A failed close can mean the written bytes never reached
			// the disk.
			if err := file.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", outputPath, err)
			}
			return nil
		},
	}
}

func runRead(ctx context.Context, configPath string, offset uint64, length uint32, output io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if errs := cfg.ValidateSource(); len(errs) > 0 {
		return errors.Join(errs...)
	}

	logger, err := service.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	assembled, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer assembled.Close()

	data, err := assembled.reader.Read(ctx, offset, length)
	if err != nil {
		return err
	}
	if _, err := output.Write(data); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
