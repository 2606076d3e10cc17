// Package gw implements the Gateway interface (s3copy.Gateway) on top of
// AWS SDK v2's S3 client, plus the AWS config/credential/retry machinery
// shared by the source and destination clients.
package gw

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/cenkalti/backoff/v4"

	"github.com/gostratum/s3copy"
)

// ClientManager owns the source and destination S3 clients used by the
// Gateway. A single client is shared between source and destination when
// their regions (and credentials) coincide; otherwise two independent
// clients are built, each bound to its own region.
type ClientManager struct {
	cfg    *s3copy.Config
	logger s3copy.Logger

	srcClient *s3.Client
	dstClient *s3.Client
}

// awsConfigLoader is a function that loads an aws.Config given LoadOptions;
// injected so buildAWSConfigWithLoader is testable without real network I/O.
type awsConfigLoader func(ctx context.Context, opts ...func(*config.LoadOptions) error) (aws.Config, error)

// NewClientManager builds the source and destination clients from cfg. When
// Region == DestRegion it builds a single underlying client and uses it for
// both roles, matching the teacher's single-client-per-config shape;
// otherwise it builds two, one per region.
func NewClientManager(ctx context.Context, cfg *s3copy.Config, logger s3copy.Logger) (*ClientManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = s3copy.NewNopLogger()
	}

	logger.Debug("creating s3 client manager",
		"region", cfg.Region, "dest_region", cfg.DestRegion, "endpoint", cfg.Endpoint)

	srcClient, credSource, err := buildClient(ctx, cfg, cfg.Region, logger, config.LoadDefaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build source client: %w", err)
	}
	logger.Info("credential source selected", "cred_source", credSource, "role", "source")

	dstClient := srcClient
	if cfg.DestRegion != "" && cfg.DestRegion != cfg.Region {
		dstClient, credSource, err = buildClient(ctx, cfg, cfg.DestRegion, logger, config.LoadDefaultConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build destination client: %w", err)
		}
		logger.Info("credential source selected", "cred_source", credSource, "role", "destination")
	}

	return &ClientManager{cfg: cfg, logger: logger, srcClient: srcClient, dstClient: dstClient}, nil
}

func buildClient(ctx context.Context, cfg *s3copy.Config, region string, logger s3copy.Logger, loader awsConfigLoader) (*s3.Client, string, error) {
	awsConfig, credSource, err := buildAWSConfigWithLoader(ctx, cfg, region, logger, loader)
	if err != nil {
		return nil, credSource, err
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.GetEndpointURL())
		}
		o.RetryMaxAttempts = cfg.MaxRetries
		o.RetryMode = aws.RetryModeAdaptive
		o.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	})
	return client, credSource, nil
}

// buildAWSConfigWithLoader builds an AWS config for the given region using
// the supplied loader (testable). It returns the loaded aws.Config and the
// detected credential source: "static", "profile", "sdk-default", or
// "assumed-role".
func buildAWSConfigWithLoader(ctx context.Context, cfg *s3copy.Config, region string, logger s3copy.Logger, loader awsConfigLoader) (aws.Config, string, error) {
	var options []func(*config.LoadOptions) error
	credSource := "unknown"

	if region != "" {
		options = append(options, config.WithRegion(region))
	}

	if !cfg.UseSDKDefaults {
		if cfg.AccessKey != "" && cfg.SecretKey != "" {
			options = append(options, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)))
			credSource = "static"
		} else if cfg.Profile != "" {
			options = append(options, config.WithSharedConfigProfile(cfg.Profile))
			credSource = "profile"
		} else {
			return aws.Config{}, credSource, fmt.Errorf("use_sdk_defaults is false but no explicit credentials provided (access_key/secret_key or profile)")
		}
	} else {
		if cfg.AccessKey != "" && cfg.SecretKey != "" {
			options = append(options, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)))
			credSource = "static"
		} else if cfg.Profile != "" {
			options = append(options, config.WithSharedConfigProfile(cfg.Profile))
			credSource = "profile"
		}
	}

	options = append(options, config.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = cfg.MaxRetries
			o.MaxBackoff = cfg.BackoffMax
			o.Backoff = createBackoffStrategy(cfg)
		})
	}))

	awsConfig, err := loader(ctx, options...)
	if err != nil {
		return aws.Config{}, credSource, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	if credSource == "unknown" {
		credSource = "sdk-default"
	}

	if cfg.RoleARN != "" {
		logger.Info("config requests STS AssumeRole", "role_arn", cfg.RoleARN)

		stsClient := sts.NewFromConfig(awsConfig)
		assumeProv := stscreds.NewAssumeRoleProvider(stsClient, cfg.RoleARN, func(o *stscreds.AssumeRoleOptions) {
			if cfg.ExternalID != "" {
				o.ExternalID = &cfg.ExternalID
			}
			o.RoleSessionName = "s3copy-assume-role"
		})
		awsConfig.Credentials = aws.NewCredentialsCache(assumeProv)
		credSource = "assumed-role"
	}

	return awsConfig, credSource, nil
}

// createBackoffStrategy adapts cfg's backoff bounds into an AWS SDK
// BackoffDelayerFunc using cenkalti/backoff's exponential-with-jitter curve.
func createBackoffStrategy(cfg *s3copy.Config) retry.BackoffDelayerFunc {
	return func(attempt int, err error) (time.Duration, error) {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = cfg.BackoffInitial
		b.MaxInterval = cfg.BackoffMax
		b.MaxElapsedTime = 0
		b.Multiplier = 2.0
		b.RandomizationFactor = 0.1
		b.Reset()

		var delay time.Duration
		for i := 0; i < attempt; i++ {
			delay = b.NextBackOff()
			if delay == backoff.Stop {
				break
			}
		}
		return delay, nil
	}
}

// SourceClient returns the *s3.Client bound to the source region.
func (cm *ClientManager) SourceClient() *s3.Client { return cm.srcClient }

// DestClient returns the *s3.Client bound to the destination region.
func (cm *ClientManager) DestClient() *s3.Client { return cm.dstClient }

// ClientForBucket returns the client bound to bucket's region: the source
// client if bucket matches the configured source bucket, the destination
// client otherwise. Calls that take an arbitrary Coordinate (Head, GetTags,
// PutTags) use this instead of assuming a fixed source/dest role.
func (cm *ClientManager) ClientForBucket(bucket string) *s3.Client {
	if bucket == cm.cfg.SourceBucket {
		return cm.srcClient
	}
	return cm.dstClient
}

// Close performs cleanup. AWS SDK v2 clients require no explicit teardown;
// kept for the io.Closer-style lifecycle hook registered by Module.
func (cm *ClientManager) Close() error {
	cm.logger.Debug("closing s3 client manager")
	return nil
}
