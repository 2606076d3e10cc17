package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gostratum/s3copy"
)

// flagSet builds the full spec.md §6.1 flag surface bound into v. Binding
// through viper (rather than reading pflag values directly) lets a config
// file supply the same keys as top-level entries named like the flags, with
// explicitly set flags taking precedence by viper's own lookup order.
func flagSet(v *viper.Viper) *pflag.FlagSet {
	fs := pflag.NewFlagSet("s3copy", pflag.ContinueOnError)

	fs.String("source-bucket", "", "source bucket name (required)")
	fs.String("source-key", "", "source object key (required)")
	fs.String("dest-bucket", "", "destination bucket name (required)")
	fs.String("dest-key", "", "destination object key (required)")

	fs.String("region", "us-east-1", "default region for source and destination")
	fs.String("dest-region", "", "destination region override")

	fs.String("part-size", "", "override part size in MiB (5-5120); ignored when --auto")
	fs.Int("concurrency", 32, "upper bound on in-flight parts (1-1000)")

	fs.Bool("auto", true, "enable the auto planner")
	fs.String("auto-profile", "balanced", "balanced|aggressive|conservative|cost-efficient")

	fs.String("storage-class", "", "target storage class; empty inherits from source")
	fs.Bool("no-metadata", false, "skip user-metadata replication")
	fs.Bool("no-tags", false, "skip tag-set replication")
	fs.Bool("no-storage-class", false, "use destination's default storage class")
	fs.Bool("full-control", false, "apply full-control cross-account ACL")
	fs.Bool("no-acl", false, "suppress ACL replication")

	fs.String("sse", "", "AES256 or aws:kms")
	fs.String("sse-kms-key-id", "", "required when --sse aws:kms")
	fs.String("checksum-algorithm", "", "CRC32|CRC32C|SHA1|SHA256")
	fs.String("verify-integrity", "etag", "off|etag|checksum")

	fs.Bool("force-copy", false, "disable the shortcut decider")
	fs.Bool("dry-run", false, "plan and print, do not mutate the destination")
	fs.Bool("estimate", false, "run the cost estimator and exit; never mutates")
	fs.Bool("get-price", false, "print pricing for region and storage class, then exit")
	fs.Bool("quiet", false, "suppress non-essential output")

	fs.String("config", "", "optional config file (yaml/json/toml) with top-level keys named like the flags")
	fs.String("log-format", "console", "console|json")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090); empty disables")

	fs.String("access-key", "", "static access key (pairs with --secret-key)")
	fs.String("secret-key", "", "static secret key (pairs with --access-key)")
	fs.String("session-token", "", "session token for temporary static credentials")
	fs.String("profile", "", "named credentials profile")
	fs.String("role-arn", "", "assume this role before copying")
	fs.String("external-id", "", "external id for the assumed role")
	fs.String("endpoint", "", "override endpoint, for S3-compatible providers")
	fs.Bool("use-path-style", false, "use path-style addressing")

	fs.Duration("request-timeout", 30*time.Second, "per-request timeout")
	fs.Int("max-retries", 5, "maximum retry attempts per request")

	must(v.BindPFlags(fs))
	return fs
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("flag binding: %v", err))
	}
}

// loadConfig parses args against the flag surface above, optionally merges
// a config file named by --config, and returns the sanitized, validated
// Config cmd/s3copy's main loop runs with.
func loadConfig(args []string) (*s3copy.Config, error) {
	v := viper.New()
	v.SetEnvPrefix("S3COPY")
	v.AutomaticEnv()

	fs := flagSet(v)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", path, err)
		}
	}

	cfg := &s3copy.Config{
		SourceBucket:      v.GetString("source-bucket"),
		SourceKey:         v.GetString("source-key"),
		DestBucket:        v.GetString("dest-bucket"),
		DestKey:           v.GetString("dest-key"),
		Region:            v.GetString("region"),
		DestRegion:        v.GetString("dest-region"),
		PartSizeBytes:     parsePartSizeMiB(v.GetString("part-size")),
		ConcurrencyCap:    v.GetInt("concurrency"),
		Auto:              v.GetBool("auto"),
		AutoProfile:       s3copy.Profile(v.GetString("auto-profile")),
		StorageClass:      v.GetString("storage-class"),
		NoStorageClass:    v.GetBool("no-storage-class"),
		NoMetadata:        v.GetBool("no-metadata"),
		NoTags:            v.GetBool("no-tags"),
		FullControl:       v.GetBool("full-control"),
		NoACL:             v.GetBool("no-acl"),
		SSE:               mapSSEFlag(v.GetString("sse")),
		SSEKMSKeyID:       v.GetString("sse-kms-key-id"),
		ChecksumAlgorithm: s3copy.ChecksumFamily(v.GetString("checksum-algorithm")),
		VerifyIntegrity:   s3copy.VerifyMode(v.GetString("verify-integrity")),
		ForceCopy:         v.GetBool("force-copy"),
		DryRun:            v.GetBool("dry-run"),
		Estimate:          v.GetBool("estimate"),
		GetPrice:          v.GetBool("get-price"),
		Quiet:             v.GetBool("quiet"),
		RequestTimeout:    v.GetDuration("request-timeout"),
		MaxRetries:        v.GetInt("max-retries"),
		LogFormat:         v.GetString("log-format"),
		MetricsAddr:       v.GetString("metrics-addr"),
		AccessKey:         v.GetString("access-key"),
		SecretKey:         v.GetString("secret-key"),
		SessionToken:      v.GetString("session-token"),
		UseSDKDefaults:    v.GetString("access-key") == "" && v.GetString("profile") == "",
		Profile:           v.GetString("profile"),
		RoleARN:           v.GetString("role-arn"),
		ExternalID:        v.GetString("external-id"),
		Endpoint:          v.GetString("endpoint"),
		UsePathStyle:      v.GetBool("use-path-style"),
	}

	cfg = cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parsePartSizeMiB converts a "--part-size" MiB string into bytes; an empty
// string means "let the auto planner decide" and maps to 0.
func parsePartSizeMiB(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	var mib int64
	if _, err := fmt.Sscanf(raw, "%d", &mib); err != nil {
		return 0
	}
	return mib << 20
}

// mapSSEFlag translates the CLI's provider-facing algorithm names into the
// internal SSEMode enum applySSE (internal/gw) switches on.
func mapSSEFlag(raw string) s3copy.SSEMode {
	switch raw {
	case "AES256":
		return s3copy.SSEProviderManaged
	case "aws:kms":
		return s3copy.SSEKMS
	case "":
		return s3copy.SSENone
	default:
		return s3copy.SSEMode(raw)
	}
}
