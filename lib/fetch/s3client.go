// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/ratelimit"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bureau-foundation/chunkfs/lib/secret"
)

// S3ClientConfig holds connection settings for an S3-compatible store.
type S3ClientConfig struct {
	// Region is the bucket's region. Required.
	Region string

	// Endpoint overrides the service endpoint for S3-compatible stores
	// such as MinIO or R2.
	Endpoint string

	// UsePathStyle selects path-style addressing, which most
	// self-hosted stores need.
	UsePathStyle bool

	// AccessKeyID and SecretAccessKey select static credentials. Set
	// both or neither; with neither, the default AWS credential chain
	// (environment, shared config, instance role) is used. The secret
	// buffer is only read during NewS3Client.
	AccessKeyID     string
	SecretAccessKey *secret.Buffer

	// Retry controls re-sending requests the store answered with a
	// throttling or unavailable status. The zero value sends each
	// request once: the SDK's own retryer is replaced, so a fetch
	// never retries unless the policy asks for it.
	Retry RetryPolicy

	// Logger receives a Warn record for every retry. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*s3.Client, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("fetch: S3 region is required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == nil) {
		return nil, fmt.Errorf("fetch: S3 access key ID and secret access key must be set together")
	}

	options := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		// The provider holds its own string copy; the SDK offers no
		// byte-level credential type.
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey.String(), ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("fetch: loading AWS configuration: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retryer := newS3Retryer(cfg.Retry.withDefaults(), logger)

	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		o.Retryer = retryer
	}), nil
}

// newS3Retryer maps policy onto the SDK retry middleware. A single
// attempt disables retries outright.
func newS3Retryer(policy RetryPolicy, logger *slog.Logger) aws.Retryer {
	if policy.MaxAttempts <= 1 {
		return aws.NopRetryer{}
	}
	standard := retry.NewStandard(func(o *retry.StandardOptions) {
		o.MaxAttempts = policy.MaxAttempts
		o.MaxBackoff = policy.MaxBackoff
		o.Backoff = policyBackoff{policy: policy}
		o.Retryables = []retry.IsErrorRetryable{
			retry.IsErrorRetryableFunc(func(err error) aws.Ternary {
				var statusErr interface{ HTTPStatusCode() int }
				if errors.As(err, &statusErr) && retryableStatus(statusErr.HTTPStatusCode()) {
					return aws.TrueTernary
				}
				return aws.FalseTernary
			}),
		}
		// Client-side retry quotas would make the attempt count depend
		// on earlier failures; the policy alone bounds retries.
		o.RateLimiter = ratelimit.None
	})
	return &loggingRetryer{RetryerV2: standard, logger: logger}
}

// policyBackoff is the SDK form of RetryPolicy.backoff, without jitter.
type policyBackoff struct {
	policy RetryPolicy
}

func (b policyBackoff) BackoffDelay(attempt int, _ error) (time.Duration, error) {
	return b.policy.backoff(attempt), nil
}

// loggingRetryer logs each retry the way HTTPFetcher does.
type loggingRetryer struct {
	aws.RetryerV2
	logger *slog.Logger
}

func (r *loggingRetryer) RetryDelay(attempt int, err error) (time.Duration, error) {
	delay, delayErr := r.RetryerV2.RetryDelay(attempt, err)
	if delayErr == nil {
		r.logger.Warn("retrying S3 request",
			"attempt", attempt,
			"backoff", delay,
			"error", err,
		)
	}
	return delay, delayErr
}
