package s3copy

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the resolved configuration for a single copy invocation,
// bound from CLI flags (and an optional viper-loaded file) by cmd/s3copy.
type Config struct {
	// SourceBucket/SourceKey/DestBucket/DestKey identify the two objects.
	SourceBucket string `mapstructure:"source_bucket" yaml:"source_bucket"`
	SourceKey    string `mapstructure:"source_key" yaml:"source_key"`
	DestBucket   string `mapstructure:"dest_bucket" yaml:"dest_bucket"`
	DestKey      string `mapstructure:"dest_key" yaml:"dest_key"`

	// Region is the default region for source and (unless DestRegion is set)
	// destination. DestRegion overrides it for the destination only.
	Region     string `mapstructure:"region" yaml:"region"`
	DestRegion string `mapstructure:"dest_region" yaml:"dest_region"`

	// PartSizeBytes overrides the planner's part size. Ignored when Auto is set.
	PartSizeBytes int64 `mapstructure:"part_size_bytes" yaml:"part_size_bytes"`

	// ConcurrencyCap is the hard cap on in-flight parts (user_concurrency_cap).
	ConcurrencyCap int `mapstructure:"concurrency_cap" yaml:"concurrency_cap" default:"32"`

	// Auto enables the auto planner (C4). AutoProfile selects its preference set.
	Auto        bool    `mapstructure:"auto" yaml:"auto" default:"true"`
	AutoProfile Profile `mapstructure:"auto_profile" yaml:"auto_profile" default:"balanced"`

	StorageClass      string         `mapstructure:"storage_class" yaml:"storage_class"`
	NoStorageClass    bool           `mapstructure:"no_storage_class" yaml:"no_storage_class"`
	NoMetadata        bool           `mapstructure:"no_metadata" yaml:"no_metadata"`
	NoTags            bool           `mapstructure:"no_tags" yaml:"no_tags"`
	FullControl       bool           `mapstructure:"full_control" yaml:"full_control"`
	NoACL             bool           `mapstructure:"no_acl" yaml:"no_acl"`
	SSE               SSEMode        `mapstructure:"sse" yaml:"sse"`
	SSEKMSKeyID       string         `mapstructure:"sse_kms_key_id" yaml:"sse_kms_key_id"`
	ChecksumAlgorithm ChecksumFamily `mapstructure:"checksum_algorithm" yaml:"checksum_algorithm"`
	VerifyIntegrity   VerifyMode     `mapstructure:"verify_integrity" yaml:"verify_integrity" default:"etag"`

	ForceCopy bool `mapstructure:"force_copy" yaml:"force_copy"`
	DryRun    bool `mapstructure:"dry_run" yaml:"dry_run"`
	Estimate  bool `mapstructure:"estimate" yaml:"estimate"`
	GetPrice  bool `mapstructure:"get_price" yaml:"get_price"`
	Quiet     bool `mapstructure:"quiet" yaml:"quiet"`

	// RequestTimeout bounds each individual network call.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" default:"30s"`
	MaxRetries     int           `mapstructure:"max_retries" yaml:"max_retries" default:"5"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial" yaml:"backoff_initial" default:"200ms"`
	BackoffMax     time.Duration `mapstructure:"backoff_max" yaml:"backoff_max" default:"20s"`

	// LogFormat selects the zap encoder ("console" or "json").
	LogFormat string `mapstructure:"log_format" yaml:"log_format" default:"console"`

	// MetricsAddr, when non-empty, serves the default Prometheus registry
	// over HTTP at /metrics.
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`

	// Credentials, mirroring the teacher's resolution chain.
	AccessKey      string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey      string `mapstructure:"secret_key" yaml:"secret_key"`
	SessionToken   string `mapstructure:"session_token" yaml:"session_token"`
	UseSDKDefaults bool   `mapstructure:"use_sdk_defaults" yaml:"use_sdk_defaults" default:"true"`
	Profile        string `mapstructure:"profile" yaml:"profile"`
	RoleARN        string `mapstructure:"role_arn" yaml:"role_arn"`
	ExternalID     string `mapstructure:"external_id" yaml:"external_id"`

	Endpoint     string `mapstructure:"endpoint" yaml:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style" yaml:"use_path_style"`
}

// Prefix returns the namespace name for this Config. cmd/s3copy's loadConfig
// does not use it: config-file keys are read at the top level.
func (Config) Prefix() string { return "s3copy" }

// DefaultConfig returns a Config with sensible defaults, matching flag
// defaults declared in cmd/s3copy/flags.go.
func DefaultConfig() *Config {
	return &Config{
		Region:            "us-east-1",
		ConcurrencyCap:    32,
		Auto:              true,
		AutoProfile:       ProfileBalanced,
		VerifyIntegrity:   VerifyETag,
		RequestTimeout:    30 * time.Second,
		MaxRetries:        5,
		BackoffInitial:    200 * time.Millisecond,
		BackoffMax:        20 * time.Second,
		LogFormat:         "console",
		UseSDKDefaults:    true,
		ChecksumAlgorithm: ChecksumNone,
	}
}

// Sanitize applies automatic fixes where possible and returns a sanitized
// copy without mutating the receiver.
func (cfg *Config) Sanitize() *Config {
	if cfg == nil {
		return DefaultConfig()
	}

	sanitized := *cfg

	if sanitized.Region == "" {
		sanitized.Region = "us-east-1"
	}
	if sanitized.DestRegion == "" {
		sanitized.DestRegion = sanitized.Region
	}
	if sanitized.ConcurrencyCap == 0 {
		sanitized.ConcurrencyCap = 32
	}
	if sanitized.AutoProfile == "" {
		sanitized.AutoProfile = ProfileBalanced
	}
	if sanitized.VerifyIntegrity == "" {
		sanitized.VerifyIntegrity = VerifyETag
	}
	if sanitized.RequestTimeout == 0 {
		sanitized.RequestTimeout = 30 * time.Second
	}
	if sanitized.MaxRetries == 0 {
		sanitized.MaxRetries = 5
	}
	if sanitized.BackoffInitial == 0 {
		sanitized.BackoffInitial = 200 * time.Millisecond
	}
	if sanitized.BackoffMax == 0 {
		sanitized.BackoffMax = 20 * time.Second
	}
	if sanitized.LogFormat == "" {
		sanitized.LogFormat = "console"
	}
	sanitized.Endpoint = strings.TrimSpace(strings.TrimSuffix(sanitized.Endpoint, "/"))

	return &sanitized
}

// ValidationError represents a single configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config field %q: %s", e.Field, e.Message)
}

// Validate aggregates every violation of cfg into a single error, mirroring
// the teacher's all-at-once validation reporting.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return &ValidationError{Field: "config", Message: "configuration cannot be nil"}
	}

	var errs []string

	if cfg.SourceBucket == "" {
		errs = append(errs, "source_bucket is required")
	}
	if cfg.SourceKey == "" {
		errs = append(errs, "source_key is required")
	}
	if cfg.DestBucket == "" {
		errs = append(errs, "dest_bucket is required")
	}
	if cfg.DestKey == "" {
		errs = append(errs, "dest_key is required")
	}

	if !cfg.Auto {
		if cfg.PartSizeBytes != 0 && (cfg.PartSizeBytes < MinPartSizeBytes || cfg.PartSizeBytes > MaxPartSizeBytes) {
			errs = append(errs, fmt.Sprintf("part_size_bytes must be between %d and %d", MinPartSizeBytes, MaxPartSizeBytes))
		}
	}
	if cfg.ConcurrencyCap < 1 || cfg.ConcurrencyCap > MaxConcurrencyCap {
		errs = append(errs, fmt.Sprintf("concurrency_cap must be between 1 and %d", MaxConcurrencyCap))
	}

	switch cfg.AutoProfile {
	case ProfileBalanced, ProfileAggressive, ProfileConservative, ProfileCostEfficient:
	default:
		errs = append(errs, fmt.Sprintf("auto_profile %q is not one of balanced|aggressive|conservative|cost-efficient", cfg.AutoProfile))
	}

	switch cfg.VerifyIntegrity {
	case VerifyOff, VerifyETag, VerifyChecksum:
	default:
		errs = append(errs, fmt.Sprintf("verify_integrity %q is not one of off|etag|checksum", cfg.VerifyIntegrity))
	}

	switch cfg.SSE {
	case "", SSENone, SSEProviderManaged, SSEKMS:
	default:
		errs = append(errs, fmt.Sprintf("sse %q is not one of AES256|aws:kms", cfg.SSE))
	}
	if cfg.SSE == SSEKMS && cfg.SSEKMSKeyID == "" {
		errs = append(errs, "sse_kms_key_id is required when sse=aws:kms")
	}

	switch cfg.ChecksumAlgorithm {
	case ChecksumNone, ChecksumCRC32, ChecksumCRC32C, ChecksumSHA1, ChecksumSHA256:
	default:
		errs = append(errs, fmt.Sprintf("checksum_algorithm %q is not one of CRC32|CRC32C|SHA1|SHA256", cfg.ChecksumAlgorithm))
	}

	// spec.md §9: --no-acl and --full-control together is an open question
	// resolved as a hard parse-time error, never silently reconciled.
	if cfg.FullControl && cfg.NoACL {
		errs = append(errs, "full_control and no_acl are mutually exclusive; specify at most one")
	}

	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		errs = append(errs, "both access_key and secret_key must be set together; do not provide only one")
	}

	if cfg.RequestTimeout <= 0 {
		errs = append(errs, "request_timeout must be positive")
	}
	if cfg.MaxRetries < 0 || cfg.MaxRetries > 20 {
		errs = append(errs, "max_retries must be between 0 and 20")
	}
	if cfg.BackoffMax <= cfg.BackoffInitial {
		errs = append(errs, "backoff_max must be greater than backoff_initial")
	}

	if len(errs) > 0 {
		return &ValidationError{Field: "config", Message: strings.Join(errs, "; ")}
	}
	return nil
}

// ConfigSummary returns a redacted summary suitable for logging.
func (cfg *Config) ConfigSummary() map[string]any {
	if cfg == nil {
		return map[string]any{"error": "nil config"}
	}
	summary := map[string]any{
		"source":           fmt.Sprintf("s3://%s/%s", cfg.SourceBucket, cfg.SourceKey),
		"dest":             fmt.Sprintf("s3://%s/%s", cfg.DestBucket, cfg.DestKey),
		"region":           cfg.Region,
		"dest_region":      cfg.DestRegion,
		"auto":             cfg.Auto,
		"auto_profile":     string(cfg.AutoProfile),
		"concurrency_cap":  cfg.ConcurrencyCap,
		"verify_integrity": string(cfg.VerifyIntegrity),
		"dry_run":          cfg.DryRun,
		"estimate":         cfg.Estimate,
	}
	if cfg.AccessKey != "" {
		summary["has_access_key"] = true
	}
	if cfg.SecretKey != "" {
		summary["has_secret_key"] = true
	}
	if cfg.RoleARN != "" {
		summary["role_arn"] = cfg.RoleARN
	}
	return summary
}
