// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkindex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/chunkfs/lib/codec"
)

// Format is the serialization of a table file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// tableFile is the on-disk document. Rows are in file order.
//
//	chunks:
//	  - {end: 65535, id: 1xV10xI0QJciPZ0w06S2QoYUYDbom-m6N}
//	  - {end: 3136277525, id: 1Ywt29KwAoTw6XKf5edN_rr6Sc97OVakc}
type tableFile struct {
	Chunks []Descriptor `yaml:"chunks" json:"chunks" cbor:"chunks"`
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// DetectFormat derives the format and compression from a file name:
// "table.yaml", "table.jsonc", "table.cbor.zst", "table.json.lz4".
func DetectFormat(path string) (Format, Compression, error) {
	name := strings.ToLower(filepath.Base(path))

	compression := CompressionNone
	switch {
	case strings.HasSuffix(name, ".zst"):
		compression = CompressionZstd
		name = strings.TrimSuffix(name, ".zst")
	case strings.HasSuffix(name, ".lz4"):
		compression = CompressionLZ4
		name = strings.TrimSuffix(name, ".lz4")
	}

	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return FormatYAML, compression, nil
	case ".json", ".jsonc":
		return FormatJSON, compression, nil
	case ".cbor":
		return FormatCBOR, compression, nil
	default:
		return "", compression, fmt.Errorf("cannot determine chunk table format of %q (want .yaml, .json, .jsonc, or .cbor, optionally with .zst or .lz4)", path)
	}
}

// ParseTable decodes table rows in the given format. The rows are not
// validated; pass them to New.
func ParseTable(data []byte, format Format) ([]Descriptor, error) {
	var table tableFile
	var err error

	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &table)
	case FormatJSON:
		err = jsonAPI.Unmarshal(jsonc.ToJSON(data), &table)
	case FormatCBOR:
		err = codec.Unmarshal(data, &table)
	default:
		return nil, fmt.Errorf("unknown chunk table format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s chunk table: %w", format, err)
	}
	return table.Chunks, nil
}

// MarshalTable encodes rows in the given format.
func MarshalTable(descriptors []Descriptor, format Format) ([]byte, error) {
	table := tableFile{Chunks: descriptors}

	switch format {
	case FormatYAML:
		return yaml.Marshal(&table)
	case FormatJSON:
		return jsonAPI.MarshalIndent(&table, "", "  ")
	case FormatCBOR:
		return codec.Marshal(&table)
	default:
		return nil, fmt.Errorf("unknown chunk table format %q", format)
	}
}

// LoadTable reads a table file and builds an Index from it.
func LoadTable(path string) (*Index, error) {
	format, compression, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chunk table: %w", err)
	}

	data, err = decompress(data, compression)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	descriptors, err := ParseTable(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	index, err := New(descriptors)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return index, nil
}

// WriteTable writes rows to path in the format and compression implied
// by its name. The file is written to a temporary sibling and renamed
// into place.
func WriteTable(path string, descriptors []Descriptor) error {
	format, compression, err := DetectFormat(path)
	if err != nil {
		return err
	}

	data, err := MarshalTable(descriptors, format)
	if err != nil {
		return fmt.Errorf("encoding chunk table: %w", err)
	}

	data, err = compress(data, compression)
	if err != nil {
		return err
	}

	temporary := path + ".tmp"
	if err := os.WriteFile(temporary, data, 0o644); err != nil {
		return fmt.Errorf("writing chunk table: %w", err)
	}
	if err := os.Rename(temporary, path); err != nil {
		os.Remove(temporary)
		return fmt.Errorf("installing chunk table: %w", err)
	}
	return nil
}
