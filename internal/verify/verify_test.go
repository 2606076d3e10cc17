package verify

import (
	"context"
	"testing"

	"github.com/gostratum/s3copy"
	"github.com/gostratum/s3copy/internal/testutil"
)

func TestVerify_OffModeAlwaysPasses(t *testing.T) {
	gw := testutil.NewFakeGateway()
	v := New(gw, nil)
	src := s3copy.Coordinate{Bucket: "s", Key: "k"}
	dst := s3copy.Coordinate{Bucket: "d", Key: "k"}
	if err := v.Verify(context.Background(), s3copy.VerifyOff, src, s3copy.Attributes{}, dst); err != nil {
		t.Errorf("expected off-mode to never fail, got %v", err)
	}
}

func TestVerify_ETagPassesWhenIdentityTagAndSizeMatch(t *testing.T) {
	gw := testutil.NewFakeGateway()
	dst := s3copy.Coordinate{Bucket: "d", Key: "k"}
	srcAttrs := s3copy.Attributes{Size: 100, ETag: "src-etag"}
	gw.Seed(dst, make([]byte, 100), s3copy.Attributes{Metadata: map[string]string{s3copy.SourceEtagTagKey: "src-etag"}})

	v := New(gw, nil)
	if err := v.Verify(context.Background(), s3copy.VerifyETag, s3copy.Coordinate{}, srcAttrs, dst); err != nil {
		t.Errorf("expected verification to pass, got %v", err)
	}
}

func TestVerify_ETagFailsOnSizeMismatch(t *testing.T) {
	gw := testutil.NewFakeGateway()
	dst := s3copy.Coordinate{Bucket: "d", Key: "k"}
	srcAttrs := s3copy.Attributes{Size: 100, ETag: "src-etag"}
	gw.Seed(dst, make([]byte, 50), s3copy.Attributes{Metadata: map[string]string{s3copy.SourceEtagTagKey: "src-etag"}})

	v := New(gw, nil)
	err := v.Verify(context.Background(), s3copy.VerifyETag, s3copy.Coordinate{}, srcAttrs, dst)
	if s3copy.CategoryOf(err) != s3copy.CategoryVerificationFailed {
		t.Errorf("expected CategoryVerificationFailed, got %v (err=%v)", s3copy.CategoryOf(err), err)
	}
}

func TestVerify_ETagFailsWhenIdentityTagMissing(t *testing.T) {
	gw := testutil.NewFakeGateway()
	dst := s3copy.Coordinate{Bucket: "d", Key: "k"}
	srcAttrs := s3copy.Attributes{Size: 100, ETag: "src-etag"}
	gw.Seed(dst, make([]byte, 100), s3copy.Attributes{})

	v := New(gw, nil)
	err := v.Verify(context.Background(), s3copy.VerifyETag, s3copy.Coordinate{}, srcAttrs, dst)
	if s3copy.CategoryOf(err) != s3copy.CategoryVerificationFailed {
		t.Errorf("expected CategoryVerificationFailed when identity tag is absent, got %v", s3copy.CategoryOf(err))
	}
}

func TestVerify_ETagNeverComparesRawDestinationEtag(t *testing.T) {
	gw := testutil.NewFakeGateway()
	dst := s3copy.Coordinate{Bucket: "d", Key: "k"}
	// Destination's own raw ETag deliberately differs from the source's (as
	// it always would for a multipart object); only the identity tag must
	// be consulted.
	srcAttrs := s3copy.Attributes{Size: 100, ETag: "single-shot-style-etag"}
	gw.Seed(dst, make([]byte, 100), s3copy.Attributes{
		ETag:     "multipart-style-etag-with-dash-3",
		Metadata: map[string]string{s3copy.SourceEtagTagKey: "single-shot-style-etag"},
	})

	v := New(gw, nil)
	if err := v.Verify(context.Background(), s3copy.VerifyETag, s3copy.Coordinate{}, srcAttrs, dst); err != nil {
		t.Errorf("expected verification to pass despite differing raw ETags, got %v", err)
	}
}

func TestVerify_ChecksumFailsWhenEitherSideLacksOne(t *testing.T) {
	gw := testutil.NewFakeGateway()
	dst := s3copy.Coordinate{Bucket: "d", Key: "k"}
	srcAttrs := s3copy.Attributes{Size: 10, ChecksumFamily: s3copy.ChecksumSHA256, ChecksumValue: "abc"}
	gw.Seed(dst, make([]byte, 10), s3copy.Attributes{})

	v := New(gw, nil)
	err := v.Verify(context.Background(), s3copy.VerifyChecksum, s3copy.Coordinate{}, srcAttrs, dst)
	if s3copy.CategoryOf(err) != s3copy.CategoryVerificationFailed {
		t.Errorf("expected CategoryVerificationFailed when destination lacks a checksum, got %v", s3copy.CategoryOf(err))
	}
}

func TestVerify_ChecksumPassesOnMatchingValues(t *testing.T) {
	gw := testutil.NewFakeGateway()
	dst := s3copy.Coordinate{Bucket: "d", Key: "k"}
	srcAttrs := s3copy.Attributes{Size: 10, ChecksumFamily: s3copy.ChecksumSHA256, ChecksumValue: "abc"}
	gw.Seed(dst, make([]byte, 10), s3copy.Attributes{ChecksumFamily: s3copy.ChecksumSHA256, ChecksumValue: "abc"})

	v := New(gw, nil)
	if err := v.Verify(context.Background(), s3copy.VerifyChecksum, s3copy.Coordinate{}, srcAttrs, dst); err != nil {
		t.Errorf("expected checksum verification to pass, got %v", err)
	}
}

func TestVerify_DestinationMissingIsAFailure(t *testing.T) {
	gw := testutil.NewFakeGateway()
	dst := s3copy.Coordinate{Bucket: "d", Key: "gone"}
	srcAttrs := s3copy.Attributes{Size: 10, ETag: "e"}

	v := New(gw, nil)
	err := v.Verify(context.Background(), s3copy.VerifyETag, s3copy.Coordinate{}, srcAttrs, dst)
	if s3copy.CategoryOf(err) != s3copy.CategoryVerificationFailed {
		t.Errorf("expected CategoryVerificationFailed for a missing destination, got %v", s3copy.CategoryOf(err))
	}
}
