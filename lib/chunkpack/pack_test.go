// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkpack

import (
	"bytes"
	"context"
	"crypto/rand"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/chunkfs/lib/chunkcipher"
	"github.com/bureau-foundation/chunkfs/lib/chunkindex"
	"github.com/bureau-foundation/chunkfs/lib/chunkserver"
	"github.com/bureau-foundation/chunkfs/lib/fetch"
	"github.com/bureau-foundation/chunkfs/lib/secret"
	"github.com/bureau-foundation/chunkfs/lib/virtualfile"
)

func testCipher(t *testing.T) chunkcipher.Cipher {
	t.Helper()
	raw := make([]byte, chunkcipher.KeySize)
	if _, err := rand.Read(raw); err != nil {
		t.Fatal(err)
	}
	key, err := secret.NewFromBytes(raw)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	cipher, err := chunkcipher.NewAEAD(key)
	if err != nil {
		t.Fatalf("NewAEAD: %v", err)
	}
	return cipher
}

func sourceContent(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i ^ (i >> 8))
	}
	return data
}

func TestChunkIDIsStableAndKeyed(t *testing.T) {
	first := ChunkID([]byte("hello"))
	if first != ChunkID([]byte("hello")) {
		t.Error("ChunkID is not deterministic")
	}
	if len(first) != 64 {
		t.Errorf("ChunkID length = %d, want 64 hex characters", len(first))
	}
	if first == ChunkID([]byte("hellp")) {
		t.Error("different content produced the same ID")
	}
	// Unkeyed BLAKE3-256 of "hello".
	if first == "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f" {
		t.Error("ChunkID matches the unkeyed digest")
	}
}

func TestNextChunkSize(t *testing.T) {
	tests := []struct {
		offset, chunkSize, threshold, want uint64
	}{
		{0, 100, 0, 100},
		{0, 100, 250, 100},
		{200, 100, 250, 50},
		{250, 100, 250, 100},
		{300, 100, 250, 100},
		{0, 100, 100, 100},
	}
	for _, test := range tests {
		got := nextChunkSize(test.offset, test.chunkSize, test.threshold)
		if got != test.want {
			t.Errorf("nextChunkSize(%d, %d, %d) = %d, want %d",
				test.offset, test.chunkSize, test.threshold, got, test.want)
		}
	}
}

func TestPackLayout(t *testing.T) {
	output := t.TempDir()
	tablePath := filepath.Join(t.TempDir(), "table.yaml")
	source := sourceContent(1000)
	cipher := testCipher(t)

	result, err := Pack(context.Background(), bytes.NewReader(source), Options{
		OutputDir: output,
		TablePath: tablePath,
		ChunkSize: 300,
		Threshold: 450,
		Encryptor: cipher,
	})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	// 0-299 sealed, 300-449 sealed (cut at threshold), 450-749, 750-999.
	wantEnds := []uint64{299, 449, 749, 999}
	if len(result.Descriptors) != len(wantEnds) {
		t.Fatalf("got %d chunks, want %d", len(result.Descriptors), len(wantEnds))
	}
	for i, descriptor := range result.Descriptors {
		if descriptor.End != wantEnds[i] {
			t.Errorf("chunk %d end = %d, want %d", i, descriptor.End, wantEnds[i])
		}
	}
	if result.Size != 1000 {
		t.Errorf("Size = %d, want 1000", result.Size)
	}
	if result.Sealed != 2 {
		t.Errorf("Sealed = %d, want 2", result.Sealed)
	}
	if result.Written != 4 {
		t.Errorf("Written = %d, want 4", result.Written)
	}

	starts := []uint64{0, 300, 450, 750}
	for i, descriptor := range result.Descriptors {
		stored, err := os.ReadFile(filepath.Join(output, descriptor.ID))
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if ChunkID(stored) != descriptor.ID {
			t.Errorf("chunk %d: stored bytes do not hash to the ID", i)
		}
		plaintext := source[starts[i] : descriptor.End+1]
		if i < 2 {
			opened, err := cipher.Decrypt(stored)
			if err != nil {
				t.Fatalf("chunk %d: Decrypt: %v", i, err)
			}
			if !bytes.Equal(opened, plaintext) {
				t.Errorf("chunk %d: decrypted content mismatch", i)
			}
		} else if !bytes.Equal(stored, plaintext) {
			t.Errorf("chunk %d: raw content mismatch", i)
		}
	}

	index, err := chunkindex.LoadTable(tablePath)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if index.Size() != 1000 || index.Len() != 4 {
		t.Errorf("table: size %d, %d chunks", index.Size(), index.Len())
	}

	entries, err := os.ReadDir(output)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("output holds %d entries, want 4 (no leftover temporaries)", len(entries))
	}
}

func TestPackDeduplicatesPlaintextChunks(t *testing.T) {
	output := t.TempDir()
	source := bytes.Repeat([]byte("abcdefghij"), 30)

	result, err := Pack(context.Background(), bytes.NewReader(source), Options{
		OutputDir: output,
		ChunkSize: 100,
	})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(result.Descriptors) != 3 {
		t.Fatalf("got %d chunks, want 3", len(result.Descriptors))
	}
	if result.Written != 1 {
		t.Errorf("Written = %d, want 1", result.Written)
	}
	if result.Descriptors[0].ID != result.Descriptors[2].ID {
		t.Error("identical chunks got different IDs")
	}
}

func TestPackExactMultiple(t *testing.T) {
	result, err := Pack(context.Background(), bytes.NewReader(sourceContent(200)), Options{
		OutputDir: t.TempDir(),
		ChunkSize: 100,
	})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(result.Descriptors) != 2 || result.Descriptors[1].End != 199 {
		t.Errorf("descriptors = %+v", result.Descriptors)
	}
}

func TestPackErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  []byte
		options Options
	}{
		{"missing output", []byte("x"), Options{}},
		{"negative chunk size", []byte("x"), Options{OutputDir: t.TempDir(), ChunkSize: -1}},
		{"threshold without encryptor", []byte("x"), Options{OutputDir: t.TempDir(), Threshold: 10}},
		{"empty source", nil, Options{OutputDir: t.TempDir()}},
		{"bad table name", []byte("x"), Options{OutputDir: t.TempDir(), TablePath: filepath.Join(t.TempDir(), "table.txt")}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Pack(context.Background(), bytes.NewReader(test.source), test.options); err == nil {
				t.Error("Pack succeeded, want error")
			}
		})
	}
}

func TestPackCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Pack(ctx, bytes.NewReader(sourceContent(10)), Options{OutputDir: t.TempDir()})
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

// TestPackedFileReadsBack packs a file, serves the chunks over HTTP,
// and reads every range back through the full read pipeline.
func TestPackedFileReadsBack(t *testing.T) {
	output := t.TempDir()
	source := sourceContent(5000)
	cipher := testCipher(t)
	const threshold = 1024

	result, err := Pack(context.Background(), bytes.NewReader(source), Options{
		OutputDir: output,
		ChunkSize: 700,
		Threshold: threshold,
		Encryptor: cipher,
	})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}

	token, err := secret.NewFromBytes([]byte("pack-token"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { token.Close() })

	server, err := chunkserver.New(chunkserver.Config{Root: output, Token: token})
	if err != nil {
		t.Fatalf("chunkserver.New: %v", err)
	}
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	fetcher, err := fetch.NewHTTP(fetch.HTTPConfig{
		BaseURL:    httpServer.URL + chunkserver.ChunkPath,
		Token:      token,
		HTTPClient: httpServer.Client(),
	})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	index, err := chunkindex.New(result.Descriptors)
	if err != nil {
		t.Fatalf("chunkindex.New: %v", err)
	}
	reader, err := virtualfile.New(virtualfile.Config{
		Index:     index,
		Fetcher:   fetcher,
		Decryptor: cipher,
		Threshold: threshold,
	})
	if err != nil {
		t.Fatalf("virtualfile.New: %v", err)
	}

	ranges := []struct{ offset, length uint64 }{
		{0, 10},
		{650, 100},
		{1000, 48},
		{1024, 1},
		{1400, 700},
		{0, 5000},
		{4990, 100},
	}
	for _, r := range ranges {
		got, err := reader.Read(context.Background(), r.offset, uint32(r.length))
		if err != nil {
			t.Fatalf("Read(%d, %d): %v", r.offset, r.length, err)
		}
		end := min(r.offset+r.length, uint64(len(source)))
		if !bytes.Equal(got, source[r.offset:end]) {
			t.Errorf("Read(%d, %d): content mismatch (%d bytes)", r.offset, r.length, len(got))
		}
	}
}
