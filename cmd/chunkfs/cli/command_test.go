// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatchesToSubcommand(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name:   "chunkfs",
		Output: io.Discard,
		Subcommands: []*Command{
			{
				Name: "mount",
				Run: func(ctx context.Context, args []string) error {
					called = "mount"
					return nil
				},
			},
			{
				Name: "read",
				Run: func(ctx context.Context, args []string) error {
					called = "read"
					receivedArgs = args
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"read", "100", "10"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "read" {
		t.Errorf("dispatched to %q, want read", called)
	}
	if len(receivedArgs) != 2 || receivedArgs[0] != "100" {
		t.Errorf("args = %v, want [100 10]", receivedArgs)
	}
}

func TestExecutePassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")

	var got any
	command := &Command{
		Name: "mount",
		Run: func(ctx context.Context, args []string) error {
			got = ctx.Value(key{})
			return nil
		},
	}
	if err := command.Execute(ctx, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != "marker" {
		t.Errorf("context value = %v, want marker", got)
	}
}

func TestExecuteFlagParsing(t *testing.T) {
	var configPath string
	var positional []string

	command := &Command{
		Name: "mount",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("mount", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "config file")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			positional = args
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"--config", "/etc/chunkfs.yaml", "extra"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if configPath != "/etc/chunkfs.yaml" {
		t.Errorf("configPath = %q", configPath)
	}
	if len(positional) != 1 || positional[0] != "extra" {
		t.Errorf("args = %v, want [extra]", positional)
	}
}

func TestExecuteUnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "mount",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("mount", pflag.ContinueOnError)
			flagSet.Bool("allow-other", false, "allow other users")
			flagSet.String("config", "", "config file")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--confg", "x"})
	if err == nil {
		t.Fatal("Execute succeeded, want unknown flag error")
	}
	for _, want := range []string{"confg", "did you mean --config", "--help"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error = %q, want it to contain %q", err.Error(), want)
		}
	}

	err = command.Execute(context.Background(), []string{"--zzzzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %v, want no suggestion for a distant flag", err)
	}
}

func TestExecuteUnknownSubcommand(t *testing.T) {
	root := &Command{
		Name: "chunkfs",
		Subcommands: []*Command{
			{Name: "mount"},
			{Name: "read"},
			{Name: "seal"},
		},
	}

	err := root.Execute(context.Background(), []string{"mnt"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "mount"`) {
		t.Errorf("error = %v, want suggestion for mount", err)
	}

	err = root.Execute(context.Background(), []string{"zzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %v, want no suggestion", err)
	}
}

func TestExecuteHelpAndMissingSubcommand(t *testing.T) {
	var output bytes.Buffer
	root := &Command{
		Name:        "chunkfs",
		Output:      &output,
		Subcommands: []*Command{{Name: "mount", Summary: "Mount the filesystem"}},
	}

	for _, helpArg := range []string{"-h", "--help", "help"} {
		if err := root.Execute(context.Background(), []string{helpArg}); err != nil {
			t.Errorf("Execute(%q): %v", helpArg, err)
		}
	}
	if !strings.Contains(output.String(), "Mount the filesystem") {
		t.Errorf("help output = %q", output.String())
	}

	err := root.Execute(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %v, want subcommand required", err)
	}
}

func TestSubcommandHelpUsesParentOutput(t *testing.T) {
	var output bytes.Buffer
	root := &Command{
		Name:   "chunkfs",
		Output: &output,
		Subcommands: []*Command{{
			Name:    "read",
			Summary: "Read a byte range",
			Run:     func(ctx context.Context, args []string) error { return nil },
		}},
	}
	if err := root.Execute(context.Background(), []string{"read", "--help"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(output.String(), "chunkfs read [flags]") {
		t.Errorf("help output = %q", output.String())
	}
}

func TestPrintHelp(t *testing.T) {
	command := &Command{
		Name:        "chunkfs",
		Description: "Remote chunked files behind a FUSE mount.",
		Subcommands: []*Command{
			{Name: "mount", Summary: "Mount the filesystem"},
			{Name: "read", Summary: "Read a byte range to stdout"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("chunkfs", pflag.ContinueOnError)
			flagSet.Bool("version", false, "print version information and exit")
			return flagSet
		},
		Examples: []Example{{
			Description: "Mount using a config file",
			Command:     "chunkfs mount --config /etc/chunkfs.yaml",
		}},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"Remote chunked files behind a FUSE mount.",
		"Usage:",
		"chunkfs <command> [flags]",
		"Commands:",
		"Read a byte range to stdout",
		"Flags:",
		"--version",
		"Examples:",
		"# Mount using a config file",
		"chunkfs mount --config /etc/chunkfs.yaml",
		"Run 'chunkfs <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestFullName(t *testing.T) {
	root := &Command{Name: "chunkfs"}
	mount := &Command{Name: "mount", parent: root}
	if got := mount.fullName(); got != "chunkfs mount" {
		t.Errorf("fullName() = %q, want %q", got, "chunkfs mount")
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"mount", "mount", 0},
		{"mnt", "mount", 2},
		{"kitten", "sitting", 3},
		{"seal", "read", 2},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}
