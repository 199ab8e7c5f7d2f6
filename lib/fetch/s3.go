// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/bureau-foundation/chunkfs/lib/netutil"
)

// S3API is the subset of the S3 client used by S3Fetcher.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config configures an S3Fetcher.
type S3Config struct {
	// Bucket holds the chunk objects. Required.
	Bucket string

	// Prefix is prepended to the chunk ID to form the object key.
	Prefix string

	// Timeout bounds each fetch. Defaults to DefaultTimeout.
	Timeout time.Duration

	// MaxBodySize caps an object body. Defaults to
	// netutil.MaxBodySize.
	MaxBodySize int64

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// S3Fetcher reads chunks from an S3-compatible object store, one
// object per chunk.
type S3Fetcher struct {
	client      S3API
	bucket      string
	prefix      string
	timeout     time.Duration
	maxBodySize int64
	logger      *slog.Logger
}

// NewS3 returns an S3Fetcher reading from config.Bucket through client.
func NewS3(client S3API, config S3Config) (*S3Fetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("fetch: S3 client is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("fetch: S3 bucket is required")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBodySize := config.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = netutil.MaxBodySize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &S3Fetcher{
		client:      client,
		bucket:      config.Bucket,
		prefix:      config.Prefix,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		logger:      logger,
	}, nil
}

// Key returns the object key for chunkID.
func (f *S3Fetcher) Key(chunkID string) string { return f.prefix + chunkID }

// Fetch implements Fetcher.
func (f *S3Fetcher) Fetch(ctx context.Context, chunkID string, sub *Range) ([]byte, error) {
	if sub != nil {
		if err := sub.validate(); err != nil {
			return nil, &Error{ChunkID: chunkID, Range: sub, Kind: KindInvalidRange, Err: err}
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	input := &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.Key(chunkID)),
	}
	if sub != nil {
		input.Range = aws.String(sub.String())
	}

	output, err := f.client.GetObject(attemptCtx, input)
	if err != nil {
		return nil, f.classify(ctx, attemptCtx, chunkID, sub, err)
	}
	defer func() { _ = output.Body.Close() }()

	expected := int64(-1)
	if output.ContentLength != nil {
		expected = *output.ContentLength
	}
	body, err := netutil.ReadBody(output.Body, f.maxBodySize, expected)
	if err != nil {
		if classified := contextError(ctx, attemptCtx, chunkID, sub, err); classified != nil {
			return nil, classified
		}
		if errors.Is(err, netutil.ErrBodyTooLarge) {
			return nil, &Error{ChunkID: chunkID, Range: sub, Kind: KindStatus, Err: err}
		}
		return nil, &Error{ChunkID: chunkID, Range: sub, Kind: KindShortBody, Err: err}
	}

	if sub == nil {
		err = checkBody(chunkID, nil, body, expected)
	} else {
		err = checkBody(chunkID, sub, body, -1)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Debug("chunk fetch",
		"chunk", chunkID,
		"bucket", f.bucket,
		"range", rangeAttr(sub),
		"bytes", len(body),
	)
	return body, nil
}

func (f *S3Fetcher) classify(ctx, attemptCtx context.Context, chunkID string, sub *Range, err error) error {
	if classified := contextError(ctx, attemptCtx, chunkID, sub, err); classified != nil {
		return classified
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return &Error{ChunkID: chunkID, Range: sub, Kind: KindNotFound, StatusCode: http.StatusNotFound, Err: err}
	}

	status := 0
	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		status = statusErr.HTTPStatusCode()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return &Error{ChunkID: chunkID, Range: sub, Kind: KindNotFound, StatusCode: http.StatusNotFound, Err: err}
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return &Error{ChunkID: chunkID, Range: sub, Kind: KindUnauthorized, StatusCode: status, Err: err}
		case "InvalidRange":
			return &Error{ChunkID: chunkID, Range: sub, Kind: KindStatus, StatusCode: http.StatusRequestedRangeNotSatisfiable, Err: err}
		}
	}

	if status != 0 {
		return &Error{ChunkID: chunkID, Range: sub, Kind: statusKind(status), StatusCode: status, Err: err}
	}
	return &Error{ChunkID: chunkID, Range: sub, Kind: KindTransport, Err: err}
}
