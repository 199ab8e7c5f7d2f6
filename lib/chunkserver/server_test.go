// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkserver

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/chunkfs/lib/fetch"
	"github.com/bureau-foundation/chunkfs/lib/secret"
)

const testToken = "serve-token"

func testContent(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + 3)
	}
	return data
}

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "chunk-a"), testContent(1000), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ".partial"), []byte("hidden"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, "subdir"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	token, err := secret.NewFromBytes([]byte(testToken))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { token.Close() })

	server, err := New(Config{Root: root, Token: token})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	httpServer := httptest.NewServer(server)
	t.Cleanup(httpServer.Close)
	return httpServer, root
}

func get(t *testing.T, url string, header http.Header) (*http.Response, []byte) {
	t.Helper()
	request, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	for key, values := range header {
		request.Header[key] = values
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return response, body
}

func authorized(extra ...string) http.Header {
	header := http.Header{"Authorization": {"Bearer " + testToken}}
	for i := 0; i+1 < len(extra); i += 2 {
		header.Set(extra[i], extra[i+1])
	}
	return header
}

func TestNewValidation(t *testing.T) {
	token, err := secret.NewFromBytes([]byte(testToken))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer token.Close()

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tests := []struct {
		name   string
		config Config
	}{
		{"missing root", Config{Token: token}},
		{"nonexistent root", Config{Root: filepath.Join(t.TempDir(), "absent"), Token: token}},
		{"root is a file", Config{Root: file, Token: token}},
		{"missing token", Config{Root: t.TempDir()}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := New(test.config); err == nil {
				t.Error("New succeeded, want error")
			}
		})
	}
}

func TestServeWholeChunk(t *testing.T) {
	server, _ := newTestServer(t)

	response, body := get(t, server.URL+"/chunks/chunk-a", authorized())
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}
	if !bytes.Equal(body, testContent(1000)) {
		t.Errorf("body mismatch: got %d bytes", len(body))
	}
	if got := response.Header.Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q, want bytes", got)
	}
}

func TestServeRange(t *testing.T) {
	server, _ := newTestServer(t)

	response, body := get(t, server.URL+"/chunks/chunk-a", authorized("Range", "bytes=50-59"))
	if response.StatusCode != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", response.StatusCode)
	}
	if !bytes.Equal(body, testContent(1000)[50:60]) {
		t.Errorf("body = %v, want bytes 50..59", body)
	}
	if got := response.Header.Get("Content-Range"); got != "bytes 50-59/1000" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestUnsatisfiableRange(t *testing.T) {
	server, _ := newTestServer(t)

	response, _ := get(t, server.URL+"/chunks/chunk-a", authorized("Range", "bytes=5000-5009"))
	if response.StatusCode != http.StatusRequestedRangeNotSatisfiable {
		t.Errorf("status = %d, want 416", response.StatusCode)
	}
}

func TestAuthentication(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name   string
		header http.Header
	}{
		{"no header", http.Header{}},
		{"wrong token", http.Header{"Authorization": {"Bearer nope"}}},
		{"wrong scheme", http.Header{"Authorization": {"Basic " + testToken}}},
		{"token prefix", http.Header{"Authorization": {"Bearer " + testToken[:4]}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response, _ := get(t, server.URL+"/chunks/chunk-a", test.header)
			if response.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", response.StatusCode)
			}
			if response.Header.Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	server, root := newTestServer(t)

	// A file outside the root that traversal would reach.
	if err := os.WriteFile(filepath.Join(filepath.Dir(root), "outside"), []byte("secret"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	for _, path := range []string{
		"/chunks/missing",
		"/chunks/.partial",
		"/chunks/subdir",
		"/chunks/..%2Foutside",
		"/chunks/sub%5Cdir",
	} {
		t.Run(path, func(t *testing.T) {
			response, body := get(t, server.URL+path, authorized())
			if response.StatusCode != http.StatusNotFound {
				t.Errorf("status = %d, want 404 (body %q)", response.StatusCode, body)
			}
		})
	}
}

func TestHead(t *testing.T) {
	server, _ := newTestServer(t)

	request, err := http.NewRequest(http.MethodHead, server.URL+"/chunks/chunk-a", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	request.Header = authorized()
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("HEAD: %v", err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}
	if response.ContentLength != 1000 {
		t.Errorf("ContentLength = %d, want 1000", response.ContentLength)
	}
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	response, body := get(t, server.URL+"/healthz", nil)
	if response.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", response.StatusCode)
	}
	if string(body) != "ok\n" {
		t.Errorf("body = %q", body)
	}
}

// TestHTTPFetcherAgainstServer checks that the fetcher and server agree
// on the wire protocol for whole and ranged reads.
func TestHTTPFetcherAgainstServer(t *testing.T) {
	server, _ := newTestServer(t)

	token, err := secret.NewFromBytes([]byte(testToken))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer token.Close()

	fetcher, err := fetch.NewHTTP(fetch.HTTPConfig{
		BaseURL:    server.URL + ChunkPath,
		Token:      token,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	ctx := context.Background()
	whole, err := fetcher.Fetch(ctx, "chunk-a", nil)
	if err != nil {
		t.Fatalf("Fetch whole: %v", err)
	}
	if !bytes.Equal(whole, testContent(1000)) {
		t.Errorf("whole fetch mismatch: %d bytes", len(whole))
	}

	part, err := fetcher.Fetch(ctx, "chunk-a", &fetch.Range{Start: 990, End: 999})
	if err != nil {
		t.Fatalf("Fetch range: %v", err)
	}
	if !bytes.Equal(part, testContent(1000)[990:]) {
		t.Errorf("range fetch = %v", part)
	}

	_, err = fetcher.Fetch(ctx, "missing", nil)
	if !fetch.IsNotFound(err) {
		t.Errorf("missing chunk error = %v, want not found", err)
	}
}
