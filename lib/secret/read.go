// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// MaxFileSize bounds a secret read by ReadFromPath. Tokens and chunk
// keys are well under a kilobyte; anything larger is almost certainly
// the wrong file (a chunk, a table) and is rejected before it is
// copied into locked memory.
const MaxFileSize = 64 << 10

// ReadFromPath reads a secret from a file, or the first line of stdin
// when path is "-". Surrounding whitespace (a trailing newline from
// `echo token > file`) is trimmed. An empty secret is an error.
func ReadFromPath(path string) (*Buffer, error) {
	if path == "-" {
		return readFirstLine(os.Stdin, "stdin")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readAll(file, path)
}

func readAll(reader io.Reader, name string) (*Buffer, error) {
	data, err := io.ReadAll(io.LimitReader(reader, MaxFileSize+1))
	if err != nil {
		Zero(data)
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(data) > MaxFileSize {
		Zero(data)
		return nil, fmt.Errorf("%s is larger than %d bytes", name, MaxFileSize)
	}
	return fromText(data, name)
}

func readFirstLine(reader io.Reader, name string) (*Buffer, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 4096), MaxFileSize)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		return nil, fmt.Errorf("%s is empty", name)
	}
	return fromText(scanner.Bytes(), name)
}

// fromText trims data into a new Buffer and zeroes data.
func fromText(data []byte, name string) (*Buffer, error) {
	defer Zero(data)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secret in %s is empty", name)
	}
	return NewFromBytes(trimmed)
}
