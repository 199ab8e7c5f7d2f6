// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/chunkfs/lib/chunkcipher"
	"github.com/bureau-foundation/chunkfs/lib/chunkindex"
	"github.com/bureau-foundation/chunkfs/lib/config"
	"github.com/bureau-foundation/chunkfs/lib/credential"
	"github.com/bureau-foundation/chunkfs/lib/fetch"
	"github.com/bureau-foundation/chunkfs/lib/secret"
	"github.com/bureau-foundation/chunkfs/lib/virtualfile"
)

// pipeline is the read path assembled from a Config. Close releases
// the secrets it holds.
type pipeline struct {
	reader      *virtualfile.Reader
	credentials *credential.Credentials
}

func (p *pipeline) Close() error {
	if p.credentials != nil {
		return p.credentials.Close()
	}
	return nil
}

// buildPipeline loads the chunk table and credentials named by cfg and
// wires the fetcher, cipher, and reader together. cfg must already be
// validated.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	index, err := loadIndex(cfg.Chunks)
	if err != nil {
		return nil, err
	}

	result := &pipeline{}
	if cfg.Credentials != (config.CredentialsConfig{}) {
		result.credentials, err = credential.Load(cfg.Credentials.Sources())
		if err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
	} else {
		result.credentials = &credential.Credentials{}
	}

	reader, err := assemble(ctx, cfg, index, result.credentials, logger)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.reader = reader
	return result, nil
}

func assemble(ctx context.Context, cfg *config.Config, index *chunkindex.Index, credentials *credential.Credentials, logger *slog.Logger) (*virtualfile.Reader, error) {
	fetcher, err := newFetcher(ctx, cfg.Remote, credentials, logger)
	if err != nil {
		return nil, err
	}

	var decryptor chunkcipher.Decryptor
	threshold := uint64(cfg.Chunks.Threshold)
	if threshold > 0 {
		if credentials.Key == nil {
			return nil, errors.New("chunks.threshold is set but the credentials provide no decryption key")
		}
		scheme := chunkcipher.Scheme(cfg.Decryption.Scheme)
		key, err := chunkcipher.DecodeKey(scheme, credentials.Key)
		if err != nil {
			return nil, err
		}
		defer key.Close()
		decryptor, err = chunkcipher.New(scheme, key)
		if err != nil {
			return nil, err
		}
	}

	boundary, err := virtualfile.ParseBoundaryPolicy(cfg.Chunks.BoundaryPolicy)
	if err != nil {
		return nil, err
	}

	return virtualfile.New(virtualfile.Config{
		Index:              index,
		Fetcher:            fetcher,
		Decryptor:          decryptor,
		Threshold:          threshold,
		Boundary:           boundary,
		MaxParallelFetches: cfg.Chunks.MaxParallelFetches,
		Logger:             logger,
	})
}

func loadIndex(chunks config.ChunksConfig) (*chunkindex.Index, error) {
	if chunks.TableFile != "" {
		return chunkindex.LoadTable(chunks.TableFile)
	}
	index, err := chunkindex.New(chunks.Table)
	if err != nil {
		return nil, fmt.Errorf("chunks.table: %w", err)
	}
	return index, nil
}

func newFetcher(ctx context.Context, remote config.RemoteConfig, credentials *credential.Credentials, logger *slog.Logger) (fetch.Fetcher, error) {
	switch remote.Backend {
	case config.BackendS3:
		clientConfig := fetch.S3ClientConfig{
			Region:       remote.S3.Region,
			Endpoint:     remote.S3.Endpoint,
			UsePathStyle: remote.S3.UsePathStyle,
			AccessKeyID:  remote.S3.AccessKeyID,
			Retry:        retryPolicy(remote.Retry),
			Logger:       logger,
		}
		if remote.S3.SecretAccessKeyFile != "" {
			secretKey, err := secret.ReadFromPath(remote.S3.SecretAccessKeyFile)
			if err != nil {
				return nil, fmt.Errorf("reading S3 secret access key: %w", err)
			}
			defer secretKey.Close()
			clientConfig.SecretAccessKey = secretKey
		}
		client, err := fetch.NewS3Client(ctx, clientConfig)
		if err != nil {
			return nil, err
		}
		return fetch.NewS3(client, fetch.S3Config{
			Bucket:      remote.S3.Bucket,
			Prefix:      remote.S3.Prefix,
			Timeout:     remote.Timeout,
			MaxBodySize: int64(remote.MaxBodySize),
			Logger:      logger,
		})
	case config.BackendHTTP, "":
		if credentials.Token == nil {
			return nil, errors.New("the http backend needs a bearer token")
		}
		return fetch.NewHTTP(fetch.HTTPConfig{
			URLTemplate: remote.URLTemplate,
			BaseURL:     remote.BaseURL,
			Token:       credentials.Token,
			Timeout:     remote.Timeout,
			Retry:       retryPolicy(remote.Retry),
			MaxBodySize: int64(remote.MaxBodySize),
			Logger:      logger,
		})
	default:
		return nil, fmt.Errorf("unknown remote backend %q", remote.Backend)
	}
}

func retryPolicy(retry config.RetryConfig) fetch.RetryPolicy {
	return fetch.RetryPolicy{
		MaxAttempts:    retry.MaxAttempts,
		InitialBackoff: retry.InitialBackoff,
		MaxBackoff:     retry.MaxBackoff,
	}
}

// loadConfig reads the file at path, or CHUNKFS_CONFIG when path is
// empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}
