// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ByteSize is a byte count that unmarshals from an integer or a
// string with a binary unit suffix.
type ByteSize uint64

var byteUnits = []struct {
	suffix     string
	multiplier uint64
}{
	{"kib", 1 << 10}, {"mib", 1 << 20}, {"gib", 1 << 30}, {"tib", 1 << 40},
	{"kb", 1 << 10}, {"mb", 1 << 20}, {"gb", 1 << 30}, {"tb", 1 << 40},
	{"k", 1 << 10}, {"m", 1 << 20}, {"g", 1 << 30}, {"t", 1 << 40},
	{"b", 1},
}

// ParseByteSize parses "65536", "64KiB", "64k", or "1 GiB". All units
// are powers of 1024.
func ParseByteSize(text string) (ByteSize, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return 0, fmt.Errorf("empty size")
	}

	multiplier := uint64(1)
	for _, unit := range byteUnits {
		if trimmed, found := strings.CutSuffix(normalized, unit.suffix); found {
			normalized = strings.TrimSpace(trimmed)
			multiplier = unit.multiplier
			break
		}
	}

	value, err := strconv.ParseUint(normalized, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", text)
	}
	if value > ^uint64(0)/multiplier {
		return 0, fmt.Errorf("size %q overflows", text)
	}
	return ByteSize(value * multiplier), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (size *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: size must be a scalar", node.Line)
	}
	parsed, err := ParseByteSize(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*size = parsed
	return nil
}

func (size ByteSize) String() string {
	value := uint64(size)
	switch {
	case value != 0 && value%(1<<30) == 0:
		return fmt.Sprintf("%dGiB", value>>30)
	case value != 0 && value%(1<<20) == 0:
		return fmt.Sprintf("%dMiB", value>>20)
	case value != 0 && value%(1<<10) == 0:
		return fmt.Sprintf("%dKiB", value>>10)
	default:
		return fmt.Sprintf("%dB", value)
	}
}
