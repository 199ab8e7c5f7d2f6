// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/chunkfs/lib/chunkindex"
	"github.com/bureau-foundation/chunkfs/lib/credential"
)

// EnvironmentVariable names the config file for Load.
const EnvironmentVariable = "CHUNKFS_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Remote backends.
const (
	BackendHTTP = "http"
	BackendS3   = "s3"
)

// Config is the complete chunkfs configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Mount       MountConfig       `yaml:"mount"`
	Chunks      ChunksConfig      `yaml:"chunks"`
	Remote      RemoteConfig      `yaml:"remote"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Decryption  DecryptionConfig  `yaml:"decryption"`
	Logging     LoggingConfig     `yaml:"logging"`

	// Per-environment sections. The one matching Environment is
	// decoded over the base values after the file is loaded.
	Development yaml.Node `yaml:"development,omitempty"`
	Staging     yaml.Node `yaml:"staging,omitempty"`
	Production  yaml.Node `yaml:"production,omitempty"`
}

// MountConfig configures the FUSE mount.
type MountConfig struct {
	// Mountpoint is where the filesystem appears.
	Mountpoint string `yaml:"mountpoint"`

	// BackingDir is the local directory mirrored through the mount.
	BackingDir string `yaml:"backing_dir"`

	// VirtualName is the file name under which the remote file
	// appears at the mount root.
	VirtualName string `yaml:"virtual_name"`

	AllowOther bool `yaml:"allow_other"`

	// MaxConcurrentReads bounds reads of the virtual file in flight.
	// Default: 16
	MaxConcurrentReads int `yaml:"max_concurrent_reads"`

	// Debug enables go-fuse request tracing. Ignored in production.
	Debug bool `yaml:"debug"`
}

// ChunksConfig describes the chunk table and read policy.
type ChunksConfig struct {
	// TableFile is a YAML, JSON, or CBOR table, optionally zstd or
	// lz4 compressed. Mutually exclusive with Table.
	TableFile string `yaml:"table_file"`

	// Table lists the chunks inline.
	Table []chunkindex.Descriptor `yaml:"table"`

	// Threshold is the global offset below which chunks are fetched
	// whole and decrypted. Zero disables decryption.
	// Default: 64KiB
	Threshold ByteSize `yaml:"threshold"`

	// BoundaryPolicy is "split" or "reject".
	// Default: split
	BoundaryPolicy string `yaml:"boundary_policy"`

	// MaxParallelFetches bounds concurrent chunk fetches within one
	// read. Default: 4
	MaxParallelFetches int `yaml:"max_parallel_fetches"`
}

// RemoteConfig configures the chunk store.
type RemoteConfig struct {
	// Backend is "http" or "s3".
	// Default: http
	Backend string `yaml:"backend"`

	// URLTemplate contains "{chunk}" where the chunk ID goes, for
	// example "https://www.googleapis.com/drive/v3/files/{chunk}?alt=media".
	// Exactly one of URLTemplate and BaseURL is set for the http
	// backend.
	URLTemplate string `yaml:"url_template"`

	// BaseURL is joined with "/" and the chunk ID.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each fetch attempt.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxBodySize caps a single response body. Zero uses the fetch
	// package default.
	MaxBodySize ByteSize `yaml:"max_body_size"`

	Retry RetryConfig `yaml:"retry"`
	S3    S3Config    `yaml:"s3"`
}

// RetryConfig configures retries of throttled or unavailable
// responses. MaxAttempts of 0 or 1 disables retries.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// S3Config configures the s3 backend. Without access_key_id the
// standard AWS chain (environment, shared config, instance role)
// supplies credentials.
type S3Config struct {
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	UsePathStyle bool   `yaml:"use_path_style"`

	// AccessKeyID and SecretAccessKeyFile select static credentials,
	// for S3-compatible stores outside AWS. The secret is read from
	// the file ("-" for stdin) like the other credentials; it is never
	// written inline.
	AccessKeyID         string `yaml:"access_key_id"`
	SecretAccessKeyFile string `yaml:"secret_access_key_file"`
}

// CredentialsConfig names secret files. See credential.Sources.
type CredentialsConfig struct {
	TokenFile    string `yaml:"token_file"`
	KeyFile      string `yaml:"key_file"`
	SealedBundle string `yaml:"sealed_bundle"`
	IdentityFile string `yaml:"identity_file"`
}

// Sources converts the section for credential.Load.
func (c CredentialsConfig) Sources() credential.Sources {
	return credential.Sources{
		TokenFile:    c.TokenFile,
		KeyFile:      c.KeyFile,
		SealedBundle: c.SealedBundle,
		IdentityFile: c.IdentityFile,
	}
}

// DecryptionConfig selects the chunk cipher.
type DecryptionConfig struct {
	// Scheme is "xchacha20poly1305" or "fernet".
	// Default: xchacha20poly1305
	Scheme string `yaml:"scheme"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error. Default: info
	Level string `yaml:"level"`

	// Format is json or text. Default: text (development), json
	// (production)
	Format string `yaml:"format"`
}

// Default returns the values applied before the config file.
func Default() *Config {
	return &Config{
		Environment: Development,
		Mount: MountConfig{
			MaxConcurrentReads: 16,
		},
		Chunks: ChunksConfig{
			Threshold:          64 << 10,
			BoundaryPolicy:     "split",
			MaxParallelFetches: 4,
		},
		Remote: RemoteConfig{
			Backend: BackendHTTP,
			Timeout: 30 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:    1,
				InitialBackoff: 100 * time.Millisecond,
				MaxBackoff:     5 * time.Second,
			},
		},
		Decryption: DecryptionConfig{
			Scheme: "xchacha20poly1305",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads the file named by CHUNKFS_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your chunkfs.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path, applies the environment
// section, and expands variables. It does not validate.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes a config document. Relative paths in the result are
// resolved against baseDir.
func Parse(data []byte, baseDir string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	cfg.resolvePaths(baseDir)
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() error {
	var overrides *yaml.Node
	switch c.Environment {
	case Development:
		overrides = &c.Development
	case Staging:
		overrides = &c.Staging
	case Production:
		overrides = &c.Production
		if c.Logging.Format == "" {
			c.Logging.Format = "json"
		}
	}

	if overrides != nil && overrides.Kind != 0 {
		environment := c.Environment
		if err := overrides.Decode(c); err != nil {
			return fmt.Errorf("applying %s section: %w", environment, err)
		}
		c.Environment = environment
	}

	if c.Environment == Production {
		c.Mount.Debug = false
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	return nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	for _, field := range []*string{
		&c.Mount.Mountpoint,
		&c.Mount.BackingDir,
		&c.Chunks.TableFile,
		&c.Remote.URLTemplate,
		&c.Remote.BaseURL,
		&c.Remote.S3.Endpoint,
		&c.Remote.S3.SecretAccessKeyFile,
		&c.Credentials.TokenFile,
		&c.Credentials.KeyFile,
		&c.Credentials.SealedBundle,
		&c.Credentials.IdentityFile,
	} {
		*field = expandVars(*field, vars)
	}
}

// resolvePaths makes file paths relative to the config file's
// directory. "-" (stdin) is left alone.
func (c *Config) resolvePaths(baseDir string) {
	if baseDir == "" {
		return
	}
	for _, field := range []*string{
		&c.Chunks.TableFile,
		&c.Remote.S3.SecretAccessKeyFile,
		&c.Credentials.TokenFile,
		&c.Credentials.KeyFile,
		&c.Credentials.SealedBundle,
		&c.Credentials.IdentityFile,
	} {
		if *field != "" && *field != "-" && !filepath.IsAbs(*field) {
			*field = filepath.Join(baseDir, *field)
		}
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Mount.Mountpoint == "" {
		errs = append(errs, fmt.Errorf("mount.mountpoint is required"))
	}
	if c.Mount.BackingDir == "" {
		errs = append(errs, fmt.Errorf("mount.backing_dir is required"))
	}
	if c.Mount.VirtualName == "" {
		errs = append(errs, fmt.Errorf("mount.virtual_name is required"))
	} else if strings.Contains(c.Mount.VirtualName, "/") || c.Mount.VirtualName == "." || c.Mount.VirtualName == ".." {
		errs = append(errs, fmt.Errorf("mount.virtual_name must be a single path component"))
	}
	if c.Mount.MaxConcurrentReads < 0 {
		errs = append(errs, fmt.Errorf("mount.max_concurrent_reads must not be negative"))
	}

	errs = append(errs, c.ValidateSource()...)
	return errors.Join(errs...)
}

// ValidateSource checks every section except mount: what a one-shot
// read without a mount needs.
func (c *Config) ValidateSource() []error {
	var errs []error

	switch {
	case c.Chunks.TableFile == "" && len(c.Chunks.Table) == 0:
		errs = append(errs, fmt.Errorf("one of chunks.table_file or chunks.table is required"))
	case c.Chunks.TableFile != "" && len(c.Chunks.Table) != 0:
		errs = append(errs, fmt.Errorf("chunks.table_file and chunks.table are mutually exclusive"))
	}
	if !contains([]string{"split", "reject"}, c.Chunks.BoundaryPolicy) {
		errs = append(errs, fmt.Errorf("chunks.boundary_policy must be one of: split, reject"))
	}
	if c.Chunks.MaxParallelFetches < 0 {
		errs = append(errs, fmt.Errorf("chunks.max_parallel_fetches must not be negative"))
	}

	switch c.Remote.Backend {
	case BackendHTTP:
		if (c.Remote.URLTemplate == "") == (c.Remote.BaseURL == "") {
			errs = append(errs, fmt.Errorf("exactly one of remote.url_template or remote.base_url is required"))
		}
	case BackendS3:
		if c.Remote.S3.Bucket == "" {
			errs = append(errs, fmt.Errorf("remote.s3.bucket is required"))
		}
		if c.Remote.S3.Region == "" {
			errs = append(errs, fmt.Errorf("remote.s3.region is required"))
		}
		if (c.Remote.S3.AccessKeyID == "") != (c.Remote.S3.SecretAccessKeyFile == "") {
			errs = append(errs, fmt.Errorf("remote.s3.access_key_id and remote.s3.secret_access_key_file must be set together"))
		}
	default:
		errs = append(errs, fmt.Errorf("remote.backend must be one of: %s, %s", BackendHTTP, BackendS3))
	}
	if c.Remote.Timeout < 0 {
		errs = append(errs, fmt.Errorf("remote.timeout must not be negative"))
	}
	if c.Remote.Retry.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("remote.retry.max_attempts must not be negative"))
	}
	if c.Remote.Retry.MaxBackoff > 0 && c.Remote.Retry.InitialBackoff > c.Remote.Retry.MaxBackoff {
		errs = append(errs, fmt.Errorf("remote.retry.initial_backoff exceeds max_backoff"))
	}

	if c.Credentials != (CredentialsConfig{}) {
		if err := c.Credentials.Sources().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("credentials: %w", err))
		}
	}
	if c.Remote.Backend == BackendHTTP && c.Credentials.TokenFile == "" && c.Credentials.SealedBundle == "" {
		errs = append(errs, fmt.Errorf("remote.backend http requires credentials.token_file or credentials.sealed_bundle"))
	}
	if c.Chunks.Threshold > 0 && c.Credentials.KeyFile == "" && c.Credentials.SealedBundle == "" {
		errs = append(errs, fmt.Errorf("chunks.threshold is %s but no decryption key is configured (credentials.key_file or credentials.sealed_bundle)", c.Chunks.Threshold))
	}

	if !contains([]string{"xchacha20poly1305", "fernet"}, c.Decryption.Scheme) {
		errs = append(errs, fmt.Errorf("decryption.scheme must be one of: xchacha20poly1305, fernet"))
	}
	if !contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: debug, info, warn, error"))
	}
	if !contains([]string{"json", "text"}, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: json, text"))
	}

	return errs
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
