// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkserver

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/bureau-foundation/chunkfs/lib/clock"
	"github.com/bureau-foundation/chunkfs/lib/secret"
)

// ChunkPath is the route under which chunks are served; the final
// path element is the chunk ID.
const ChunkPath = "/chunks"

// Config configures a Server.
type Config struct {
	// Root is the directory holding one file per chunk, named by
	// chunk ID.
	Root string

	// Token is the bearer token clients must present. The buffer is
	// borrowed and must stay open for the server's lifetime.
	Token *secret.Buffer

	// Clock times requests for logging. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server is an http.Handler serving chunks.
type Server struct {
	root   string
	token  *secret.Buffer
	clock  clock.Clock
	logger *slog.Logger
	router *mux.Router
}

// New validates config and builds the router.
func New(config Config) (*Server, error) {
	if config.Root == "" {
		return nil, fmt.Errorf("chunkserver: root directory is required")
	}
	info, err := os.Stat(config.Root)
	if err != nil {
		return nil, fmt.Errorf("chunkserver: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("chunkserver: %s is not a directory", config.Root)
	}
	if config.Token == nil {
		return nil, fmt.Errorf("chunkserver: bearer token is required")
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := &Server{
		root:   config.Root,
		token:  config.Token,
		clock:  clk,
		logger: logger,
	}

	router := mux.NewRouter().StrictSlash(true)
	router.Use(server.logRequests)
	router.HandleFunc("/healthz", server.handleHealth).Methods(http.MethodGet)
	chunks := router.PathPrefix(ChunkPath).Subrouter()
	chunks.Use(server.requireToken)
	chunks.HandleFunc("/{id}", server.handleChunk).Methods(http.MethodGet, http.MethodHead)
	server.router = router

	return server, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// handleChunk serves one chunk file. http.ServeContent answers Range
// requests with 206 and unsatisfiable ranges with 416.
func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !validChunkID(id) {
		http.NotFound(w, r)
		return
	}

	file, err := os.Open(filepath.Join(s.root, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("opening chunk", "chunk", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, id, info.ModTime(), file)
}

// validChunkID rejects IDs that could escape the root directory or
// name hidden files such as in-progress writes.
func validChunkID(id string) bool {
	return id != "" && !strings.HasPrefix(id, ".") && !strings.ContainsAny(id, "/\\\x00")
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(presented), s.token.Bytes()) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="chunkfs"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (recorder *statusRecorder) WriteHeader(status int) {
	recorder.status = status
	recorder.ResponseWriter.WriteHeader(status)
}

func (recorder *statusRecorder) Write(data []byte) (int, error) {
	if recorder.status == 0 {
		recorder.status = http.StatusOK
	}
	written, err := recorder.ResponseWriter.Write(data)
	recorder.bytes += int64(written)
	return written, err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := s.clock.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)
		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"range", r.Header.Get("Range"),
			"status", recorder.status,
			"bytes", recorder.bytes,
			"request_id", r.Header.Get("X-Request-Id"),
			"duration", s.clock.Now().Sub(started).Round(time.Microsecond),
		)
	})
}
