// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chunkfs/cmd/chunkfs/cli"
	"github.com/bureau-foundation/chunkfs/lib/chunkfs"
	"github.com/bureau-foundation/chunkfs/lib/service"
)

func mountCommand() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "mount",
		Summary: "Mount the backing directory with the virtual file overlaid",
		Description: `Mount the configured backing directory at the mountpoint and add the
virtual file to its root. Runs in the foreground until interrupted, then
unmounts.

The config file is --config, or $CHUNKFS_CONFIG when the flag is unset.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("mount", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "config file (default $CHUNKFS_CONFIG)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runMount(ctx, configPath)
		},
	}
}

func runMount(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
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

	server, err := chunkfs.Mount(chunkfs.Options{
		Mountpoint:         cfg.Mount.Mountpoint,
		BackingDir:         cfg.Mount.BackingDir,
		VirtualName:        cfg.Mount.VirtualName,
		Source:             assembled.reader,
		MaxConcurrentReads: cfg.Mount.MaxConcurrentReads,
		AllowOther:         cfg.Mount.AllowOther,
		Debug:              cfg.Mount.Debug,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	logger.Info("mounted",
		"mountpoint", cfg.Mount.Mountpoint,
		"backing_dir", cfg.Mount.BackingDir,
		"virtual_file", cfg.Mount.VirtualName,
		"size", assembled.reader.Size(),
		"environment", cfg.Environment,
	)

	unmounted := make(chan struct{})
	go func() {
		server.Wait()
		close(unmounted)
	}()

	select {
	case <-unmounted:
		logger.Info("filesystem unmounted externally")
		return nil
	case <-ctx.Done():
	}

	logger.Info("unmounting", "mountpoint", cfg.Mount.Mountpoint)
	if err := server.Unmount(); err != nil {
		return fmt.Errorf("unmounting %s: %w", cfg.Mount.Mountpoint, err)
	}
	<-unmounted
	return nil
}
