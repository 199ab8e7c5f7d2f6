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
	"github.com/bureau-foundation/chunkfs/lib/credential"
	"github.com/bureau-foundation/chunkfs/lib/sealed"
	"github.com/bureau-foundation/chunkfs/lib/secret"
)

func sealCommand(stdout io.Writer) *cli.Command {
	var (
		tokenFile  string
		keyFile    string
		recipients []string
		outputPath string
	)

	return &cli.Command{
		Name:    "seal",
		Summary: "Encrypt a token and chunk key into a credential bundle",
		Description: `Combine the bearer token and (optionally) the chunk key into one bundle
encrypted to each --recipient age public key. Point
credentials.sealed_bundle at the result and credentials.identity_file at
a matching identity.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("seal", pflag.ContinueOnError)
			flagSet.StringVar(&tokenFile, "token-file", "", "file holding the bearer token, or - for stdin")
			flagSet.StringVar(&keyFile, "key-file", "", "file holding the chunk key, or - for stdin")
			flagSet.StringArrayVar(&recipients, "recipient", nil, "age public key to encrypt to (repeatable)")
			flagSet.StringVarP(&outputPath, "output", "o", "", "write the bundle here instead of stdout")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Seal for the identity generated by keygen",
				Command:     "chunkfs seal --token-file token --key-file chunk.key --recipient age1... -o credentials.age",
			},
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if tokenFile == "" {
				return fmt.Errorf("--token-file is required")
			}
			if len(recipients) == 0 {
				return fmt.Errorf("at least one --recipient is required")
			}
			if tokenFile == "-" && keyFile == "-" {
				return fmt.Errorf("--token-file and --key-file cannot both read stdin")
			}
			for _, recipient := range recipients {
				if err := sealed.ParsePublicKey(recipient); err != nil {
					return err
				}
			}

			token, err := secret.ReadFromPath(tokenFile)
			if err != nil {
				return fmt.Errorf("reading token: %w", err)
			}
			defer token.Close()

			var key []byte
			if keyFile != "" {
				keyBuffer, err := secret.ReadFromPath(keyFile)
				if err != nil {
					return fmt.Errorf("reading chunk key: %w", err)
				}
				defer keyBuffer.Close()
				key = keyBuffer.Bytes()
			}

			bundle, err := credential.Seal(token.Bytes(), key, recipients)
			if err != nil {
				return err
			}
			return writeOutput(stdout, outputPath, []byte(bundle+"\n"))
		},
	}
}

// writeOutput writes data to path with owner-only permissions, or to
// stdout when path is empty.
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
