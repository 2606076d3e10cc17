package estimator

import (
	"context"
	"testing"

	"github.com/gostratum/s3copy"
	"github.com/gostratum/s3copy/internal/testutil"
)

func samplePricing() s3copy.PricingRecord {
	return s3copy.PricingRecord{
		Region: "us-east-1",
		Rates: map[s3copy.PricingRateKind]float64{
			s3copy.RatePutCopyRequestPer1000: 5,
			s3copy.RateGetHeadRequestPer1000: 0.4,
			s3copy.RateDataOutPerGiB:         2,
			s3copy.RateStoragePerGiBMonth:    2.3,
		},
		DestRegion:   map[string]float64{"eu-west-1": 9},
		StorageClass: map[string]float64{"GLACIER": 0.4},
	}
}

func TestEstimate_SmallObjectPlansSingleShotWithNoPartRequests(t *testing.T) {
	gw := testutil.NewFakeGateway()
	src := s3copy.Coordinate{Bucket: "s", Key: "small.bin"}
	gw.Seed(src, make([]byte, 1<<20), s3copy.Attributes{})

	e := New(gw, nil)
	est, err := e.Estimate(context.Background(), Input{
		Src:        src,
		SameRegion: true,
		Profile:    s3copy.ProfileBalanced,
		VerifyMode: s3copy.VerifyOff,
		Pricing:    samplePricing(),
	})
	if err != nil {
		t.Fatalf("Estimate returned error: %v", err)
	}
	if est.Strategy != s3copy.StrategySingleShot && est.Strategy != s3copy.StrategyPropertyCopy {
		t.Errorf("expected a single-operation strategy for a 1 MiB object, got %v", est.Strategy)
	}
	if est.CopyPartRequests != 0 || est.CreateCompletePairs != 0 {
		t.Errorf("expected no multipart requests for a single-operation strategy, got parts=%d pairs=%d", est.CopyPartRequests, est.CreateCompletePairs)
	}
	if est.CrossRegionBytes != 0 {
		t.Errorf("expected no cross-region bytes for a same-region transfer, got %d", est.CrossRegionBytes)
	}
	if est.HeadRequests != 1 {
		t.Errorf("expected exactly one head request (source pre-flight only), got %d", est.HeadRequests)
	}
}

func TestEstimate_LargeObjectPlansMultipartWithMatchingPartCount(t *testing.T) {
	gw := testutil.NewFakeGateway()
	src := s3copy.Coordinate{Bucket: "s", Key: "large.bin"}
	size := int64(6) << 30 // 6 GiB, above the single-shot threshold
	gw.SeedSize(src, size, s3copy.Attributes{})

	e := New(gw, nil)
	est, err := e.Estimate(context.Background(), Input{
		Src:        src,
		SameRegion: false,
		DestRegion: "eu-west-1",
		Profile:    s3copy.ProfileBalanced,
		Pricing:    samplePricing(),
	})
	if err != nil {
		t.Fatalf("Estimate returned error: %v", err)
	}
	if est.Strategy != s3copy.StrategyMultipart {
		t.Fatalf("expected a multipart strategy for a 6 GiB object, got %v", est.Strategy)
	}
	if est.CopyPartRequests <= 0 {
		t.Error("expected a positive copy_part request count")
	}
	if est.CreateCompletePairs != 1 {
		t.Errorf("expected exactly one create/complete pair, got %d", est.CreateCompletePairs)
	}
	if est.CrossRegionBytes != size {
		t.Errorf("expected cross-region bytes to equal the object size for a cross-region transfer, got %d", est.CrossRegionBytes)
	}
	if est.EstimatedRequestCents <= 0 {
		t.Error("expected a positive request cost estimate")
	}
}

// TestEstimate_OneTiBBalancedSameRegionMatchesWorkedExample reproduces the
// literal 1 TiB/balanced/same-region scenario: at 256 MiB initial part size
// ceil(1 TiB / 256 MiB) lands exactly on the balanced profile's target part
// count, so the cost floor must not double the part size further.
func TestEstimate_OneTiBBalancedSameRegionMatchesWorkedExample(t *testing.T) {
	gw := testutil.NewFakeGateway()
	src := s3copy.Coordinate{Bucket: "s", Key: "huge.bin"}
	size := int64(1) << 40 // 1 TiB
	gw.SeedSize(src, size, s3copy.Attributes{})

	e := New(gw, nil)
	est, err := e.Estimate(context.Background(), Input{
		Src:        src,
		SameRegion: true,
		Profile:    s3copy.ProfileBalanced,
		Pricing:    samplePricing(),
	})
	if err != nil {
		t.Fatalf("Estimate returned error: %v", err)
	}
	if est.Strategy != s3copy.StrategyMultipart {
		t.Fatalf("expected a multipart strategy for a 1 TiB object, got %v", est.Strategy)
	}
	if est.CopyPartRequests != 4096 {
		t.Errorf("expected 4096 copy_part requests, got %d", est.CopyPartRequests)
	}
	if got := est.CreateCompleteRequests(); got != 2 {
		t.Errorf("expected 2 create+complete requests, got %d", got)
	}
	if est.CrossRegionBytes != 0 {
		t.Errorf("expected no cross-region bytes for a same-region transfer, got %d", est.CrossRegionBytes)
	}
	if len(gw.OpenUploadIDs()) != 0 {
		t.Errorf("expected the estimator to never create a multipart upload, found open uploads: %v", gw.OpenUploadIDs())
	}
}

func TestEstimate_VerifyModeAddsAHeadRequest(t *testing.T) {
	gw := testutil.NewFakeGateway()
	src := s3copy.Coordinate{Bucket: "s", Key: "obj.bin"}
	gw.Seed(src, make([]byte, 1<<20), s3copy.Attributes{})

	e := New(gw, nil)
	off, err := e.Estimate(context.Background(), Input{Src: src, SameRegion: true, Profile: s3copy.ProfileBalanced, VerifyMode: s3copy.VerifyOff, Pricing: samplePricing()})
	if err != nil {
		t.Fatalf("Estimate returned error: %v", err)
	}
	withVerify, err := e.Estimate(context.Background(), Input{Src: src, SameRegion: true, Profile: s3copy.ProfileBalanced, VerifyMode: s3copy.VerifyETag, Pricing: samplePricing()})
	if err != nil {
		t.Fatalf("Estimate returned error: %v", err)
	}
	if withVerify.HeadRequests != off.HeadRequests+1 {
		t.Errorf("expected verification to add exactly one head request, off=%d with=%d", off.HeadRequests, withVerify.HeadRequests)
	}
}

func TestEstimate_DestinationPreflightAddsAHeadRequest(t *testing.T) {
	gw := testutil.NewFakeGateway()
	src := s3copy.Coordinate{Bucket: "s", Key: "obj.bin"}
	dst := s3copy.Coordinate{Bucket: "d", Key: "obj.bin"}
	gw.Seed(src, make([]byte, 1<<20), s3copy.Attributes{})
	gw.Seed(dst, make([]byte, 1<<20), s3copy.Attributes{})

	e := New(gw, nil)
	est, err := e.Estimate(context.Background(), Input{Src: src, Dst: dst, SameRegion: true, Profile: s3copy.ProfileBalanced, VerifyMode: s3copy.VerifyOff, Pricing: samplePricing()})
	if err != nil {
		t.Fatalf("Estimate returned error: %v", err)
	}
	if est.HeadRequests != 2 {
		t.Errorf("expected source + destination pre-flight heads, got %d", est.HeadRequests)
	}
}

func TestEstimate_MissingSourceIsAnError(t *testing.T) {
	gw := testutil.NewFakeGateway()
	src := s3copy.Coordinate{Bucket: "s", Key: "absent"}

	e := New(gw, nil)
	_, err := e.Estimate(context.Background(), Input{Src: src, SameRegion: true, Profile: s3copy.ProfileBalanced, Pricing: samplePricing()})
	if s3copy.CategoryOf(err) != s3copy.CategoryNotFound {
		t.Errorf("expected CategoryNotFound for a missing source, got %v", s3copy.CategoryOf(err))
	}
}

func TestEstimate_NeverCreatesAnUpload(t *testing.T) {
	gw := testutil.NewFakeGateway()
	src := s3copy.Coordinate{Bucket: "s", Key: "large.bin"}
	gw.SeedSize(src, int64(6)<<30, s3copy.Attributes{})

	e := New(gw, nil)
	if _, err := e.Estimate(context.Background(), Input{Src: src, SameRegion: true, Profile: s3copy.ProfileBalanced, Pricing: samplePricing()}); err != nil {
		t.Fatalf("Estimate returned error: %v", err)
	}
	if len(gw.OpenUploadIDs()) != 0 {
		t.Errorf("expected the estimator to never create a multipart upload, found open uploads: %v", gw.OpenUploadIDs())
	}
}
