// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/chunkfs/cmd/chunkfs/cli"
	"github.com/bureau-foundation/chunkfs/lib/chunkcipher"
	"github.com/bureau-foundation/chunkfs/lib/sealed"
)

func keygenCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate chunk keys and age identities",
		Subcommands: []*cli.Command{
			keygenKeyCommand(stdout),
			keygenIdentityCommand(stdout),
		},
	}
}

func keygenKeyCommand(stdout io.Writer) *cli.Command {
	var (
		scheme     string
		outputPath string
	)

	return &cli.Command{
		Name:    "key",
		Summary: "Generate a chunk encryption key",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("key", pflag.ContinueOnError)
			flagSet.StringVar(&scheme, "scheme", string(chunkcipher.SchemeAEAD), "encryption scheme (xchacha20poly1305, fernet)")
			flagSet.StringVarP(&outputPath, "output", "o", "", "write the key here (mode 0600) instead of stdout")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			key, err := chunkcipher.GenerateKey(chunkcipher.Scheme(scheme))
			if err != nil {
				return err
			}
			defer key.Close()
			return writeOutput(stdout, outputPath, append([]byte(key.String()), '\n'))
		},
	}
}

func keygenIdentityCommand(stdout io.Writer) *cli.Command {
	var outputPath string

	return &cli.Command{
		Name:    "identity",
		Summary: "Generate an age identity for opening sealed bundles",
		Description: `Generate an x25519 age identity. The identity is written to --output
with a comment naming its public key; the public key alone goes to
stdout for use with "chunkfs seal --recipient".`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("identity", pflag.ContinueOnError)
			flagSet.StringVarP(&outputPath, "output", "o", "", "identity file to create (mode 0600)")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if outputPath == "" {
				return fmt.Errorf("--output is required")
			}
			keypair, err := sealed.GenerateKeypair()
			if err != nil {
				return err
			}
			defer keypair.Close()

			contents := fmt.Sprintf("# public key: %s\n%s\n", keypair.PublicKey, keypair.PrivateKey.String())
			if err := writeOutput(stdout, outputPath, []byte(contents)); err != nil {
				return err
			}
			fmt.Fprintln(stdout, keypair.PublicKey)
			return nil
		},
	}
}
