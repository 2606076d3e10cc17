// Package estimator implements the cost estimator (C9): a read-only report
// of what a transfer would cost and how it would be planned, without ever
// mutating the destination.
package estimator

import (
	"context"

	"github.com/gostratum/s3copy"
	"github.com/gostratum/s3copy/internal/planner"
)

// Input bundles everything Estimate needs to project a plan and its cost.
type Input struct {
	Src              s3copy.Coordinate
	Dst              s3copy.Coordinate // Dst.Key == "" skips the destination pre-flight head
	SameRegion       bool
	DestRegion       string
	Profile          s3copy.Profile
	ConcurrencyCap   int
	DestStorageClass string
	VerifyMode       s3copy.VerifyMode
	Pricing          s3copy.PricingRecord
}

// Estimator reports a CostEstimate without creating, completing or aborting
// any multipart upload; it heads each object at most once.
type Estimator struct {
	gw     s3copy.Gateway
	logger s3copy.Logger
}

// New builds an Estimator.
func New(gw s3copy.Gateway, logger s3copy.Logger) *Estimator {
	if logger == nil {
		logger = s3copy.NewNopLogger()
	}
	return &Estimator{gw: gw, logger: logger}
}

// Estimate heads the source (and, unless Dst.Key is empty, the destination)
// to learn the object's size, derives a TransferPlan via the auto planner,
// and prices it out against in.Pricing.
func (e *Estimator) Estimate(ctx context.Context, in Input) (s3copy.CostEstimate, error) {
	srcHead, err := e.gw.Head(ctx, in.Src)
	if err != nil {
		return s3copy.CostEstimate{}, err
	}
	if !srcHead.Found {
		return s3copy.CostEstimate{}, s3copy.NewTransferError("estimate", in.Src.Key, s3copy.CategoryNotFound, s3copy.ErrSourceMissing)
	}

	headRequests := 1
	if in.Dst.Key != "" {
		if _, err := e.gw.Head(ctx, in.Dst); err != nil {
			return s3copy.CostEstimate{}, err
		}
		headRequests++
	}
	if in.VerifyMode != s3copy.VerifyOff {
		headRequests++
	}

	plan := planner.Plan(srcHead.Attributes.Size, in.SameRegion, in.Profile, in.ConcurrencyCap)

	estimate := s3copy.CostEstimate{
		Strategy:     plan.Strategy,
		HeadRequests: headRequests,
	}
	if plan.Strategy == s3copy.StrategyMultipart {
		estimate.CopyPartRequests = plan.PartCount()
		estimate.CreateCompletePairs = 1
	}
	if !in.SameRegion {
		estimate.CrossRegionBytes = srcHead.Attributes.Size
	}

	estimate.MonthlyStorageCents = monthlyStorageCents(srcHead.Attributes.Size, in.DestStorageClass, in.Pricing)
	estimate.EstimatedRequestCents = requestCents(estimate, in.DestRegion, in.Pricing)

	e.logger.Debug("cost estimate computed", "key", in.Src.Key, "strategy", plan.Strategy.String(), "part_count", estimate.CopyPartRequests)
	return estimate, nil
}

func monthlyStorageCents(size int64, storageClass string, pricing s3copy.PricingRecord) float64 {
	gib := float64(size) / (1 << 30)
	rate, ok := pricing.StorageClass[storageClass]
	if !ok {
		rate = pricing.Rates[s3copy.RateStoragePerGiBMonth]
	}
	return gib * rate
}

func requestCents(estimate s3copy.CostEstimate, destRegion string, pricing s3copy.PricingRecord) float64 {
	putCopyRate := pricing.Rates[s3copy.RatePutCopyRequestPer1000]
	getHeadRate := pricing.Rates[s3copy.RateGetHeadRequestPer1000]
	dataOutRate, ok := pricing.DestRegion[destRegion]
	if !ok {
		dataOutRate = pricing.Rates[s3copy.RateDataOutPerGiB]
	}

	putCopyRequests := estimate.CopyPartRequests + 2*estimate.CreateCompletePairs
	cents := float64(putCopyRequests) / 1000 * putCopyRate
	cents += float64(estimate.HeadRequests) / 1000 * getHeadRate
	cents += float64(estimate.CrossRegionBytes) / (1 << 30) * dataOutRate
	return cents
}
