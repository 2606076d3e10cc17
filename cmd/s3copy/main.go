// Command s3copy copies a single object between two S3-compatible buckets,
// choosing the cheapest correct strategy (skip, tag-only, property-only,
// single-shot or adaptive multipart) and verifying the result.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/gostratum/s3copy"
	"github.com/gostratum/s3copy/internal/estimator"
	"github.com/gostratum/s3copy/internal/gw"
	"github.com/gostratum/s3copy/internal/progress"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "s3copy:", err)
		os.Exit(2)
	}

	logger, err := s3copy.NewZapLoggerFromFormat(cfg.LogFormat, cfg.Quiet)
	if err != nil {
		fmt.Fprintln(os.Stderr, "s3copy: building logger:", err)
		os.Exit(7)
	}

	runErr := run(cfg, logger)
	os.Exit(s3copy.ExitCode(runErr))
}

// run builds the fx graph and drives the one invocation this process
// performs, returning the error that determines the process exit code.
// A verification failure is reported on stderr but is not itself a reason
// to exit non-zero beyond code 6, matching spec.md §6.1's exit table.
func run(cfg *s3copy.Config, logger s3copy.Logger) error {
	if cfg.GetPrice {
		printPricing(cfg)
		return nil
	}

	var (
		orch    *s3copy.Orchestrator
		gateway s3copy.Gateway
	)
	observer := progress.New(logger)
	if cfg.Quiet {
		observer = progress.New(s3copy.NewNopLogger())
	}

	app := fx.New(
		fx.Supply(cfg, logger),
		fx.Provide(func() s3copy.ProgressObserver { return observer }),
		gw.Module(),
		s3copy.Module(),
		fx.NopLogger,
		fx.Invoke(func(lc fx.Lifecycle) { registerMetricsServer(lc, cfg, logger) }),
		fx.Populate(&orch, &gateway),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout*2)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return s3copy.NewTransferError("startup", "", s3copy.CategoryInternal, err)
	}
	defer func() { _ = app.Stop(context.Background()) }()

	ctx := context.Background()
	switch {
	case cfg.Estimate:
		return runEstimate(ctx, gateway, logger, cfg, true)
	case cfg.DryRun:
		return runEstimate(ctx, gateway, logger, cfg, false)
	default:
		return runCopy(ctx, orch, cfg)
	}
}

// registerMetricsServer serves the default Prometheus registry over HTTP
// for the lifetime of the fx app when --metrics-addr is set; the transfer
// runs after app.Start, so the endpoint is up while it is in flight. The
// s3copy_* series (e.g. s3copy_window_throughput_bytes_per_sec) appear there
// only when the fx graph supplies a metricsx.Metrics; this binary supplies
// none, so the Instrumenter records nothing.
func registerMetricsServer(lc fx.Lifecycle, cfg *s3copy.Config, logger s3copy.Logger) {
	if cfg.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Warn("metrics server stopped", "error", err)
				}
			}()
			logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func runCopy(ctx context.Context, orch *s3copy.Orchestrator, cfg *s3copy.Config) error {
	req := s3copy.CopyRequest{
		Src:                   s3copy.Coordinate{Bucket: cfg.SourceBucket, Key: cfg.SourceKey, Region: cfg.Region},
		Dst:                   s3copy.Coordinate{Bucket: cfg.DestBucket, Key: cfg.DestKey, Region: cfg.DestRegion},
		Profile:               cfg.AutoProfile,
		ConcurrencyCap:        cfg.ConcurrencyCap,
		ForceCopy:             cfg.ForceCopy,
		NoTags:                cfg.NoTags,
		NoMetadata:            cfg.NoMetadata,
		ReplicateStorageClass: !cfg.NoStorageClass,
		FullControlACL:        cfg.FullControl,
		StorageClass:          cfg.StorageClass,
		SSE:                   cfg.SSE,
		SSEKMSKeyID:           cfg.SSEKMSKeyID,
		ChecksumAlgorithm:     cfg.ChecksumAlgorithm,
		VerifyMode:            cfg.VerifyIntegrity,
	}

	result, err := orch.Copy(ctx, req)
	if err != nil {
		return err
	}
	if !cfg.Quiet {
		fmt.Printf("%s: s3://%s/%s -> s3://%s/%s\n", result.Strategy, cfg.SourceBucket, cfg.SourceKey, cfg.DestBucket, cfg.DestKey)
	}
	if result.VerifyError != nil {
		fmt.Fprintln(os.Stderr, "s3copy: verification failed:", result.VerifyError)
		return result.VerifyError
	}
	return nil
}

// runEstimate backs both --estimate and --dry-run: both plan via C9 without
// ever creating, completing or aborting an upload. --estimate additionally
// prices the plan out against a pricing record; --dry-run reports only the
// strategy and request shape.
func runEstimate(ctx context.Context, gateway s3copy.Gateway, logger s3copy.Logger, cfg *s3copy.Config, withCost bool) error {
	est := estimator.New(gateway, logger)
	in := estimator.Input{
		Src:              s3copy.Coordinate{Bucket: cfg.SourceBucket, Key: cfg.SourceKey, Region: cfg.Region},
		Dst:              s3copy.Coordinate{Bucket: cfg.DestBucket, Key: cfg.DestKey, Region: cfg.DestRegion},
		SameRegion:       cfg.Region == cfg.DestRegion,
		DestRegion:       cfg.DestRegion,
		Profile:          cfg.AutoProfile,
		ConcurrencyCap:   cfg.ConcurrencyCap,
		DestStorageClass: cfg.StorageClass,
		VerifyMode:       cfg.VerifyIntegrity,
		Pricing:          pricingFor(cfg.Region),
	}

	estimate, err := est.Estimate(ctx, in)
	if err != nil {
		return err
	}

	if !withCost {
		fmt.Printf("dry run: strategy=%s copy_part_requests=%d create_complete_requests=%d head_requests=%d cross_region_bytes=%d\n",
			estimate.Strategy, estimate.CopyPartRequests, estimate.CreateCompleteRequests(), estimate.HeadRequests, estimate.CrossRegionBytes)
		return nil
	}

	fmt.Printf("strategy=%s copy_part_requests=%d create_complete_requests=%d head_requests=%d cross_region_bytes=%d monthly_storage_cents=%.4f estimated_request_cents=%.4f\n",
		estimate.Strategy, estimate.CopyPartRequests, estimate.CreateCompleteRequests(), estimate.HeadRequests,
		estimate.CrossRegionBytes, estimate.MonthlyStorageCents, estimate.EstimatedRequestCents)
	return nil
}

func printPricing(cfg *s3copy.Config) {
	rec := pricingFor(cfg.Region)
	storageClass := cfg.StorageClass
	if storageClass == "" {
		storageClass = "STANDARD"
	}
	storageRate, ok := rec.StorageClass[storageClass]
	if !ok {
		storageRate = rec.Rates[s3copy.RateStoragePerGiBMonth]
	}
	fmt.Printf("region=%s storage_class=%s put_copy_per_1000=%.4f get_head_per_1000=%.4f data_out_per_gib=%.4f storage_per_gib_month=%.4f\n",
		cfg.Region, storageClass,
		rec.Rates[s3copy.RatePutCopyRequestPer1000], rec.Rates[s3copy.RateGetHeadRequestPer1000],
		rec.Rates[s3copy.RateDataOutPerGiB], storageRate)
}
