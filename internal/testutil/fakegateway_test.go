package testutil

import (
	"context"
	"testing"

	"github.com/gostratum/s3copy"
)

func TestFakeGateway_HeadMissingIsNotFound(t *testing.T) {
	f := NewFakeGateway()
	result, err := f.Head(context.Background(), s3copy.Coordinate{Bucket: "b", Key: "missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Errorf("expected Found=false")
	}
}

func TestFakeGateway_CopySingleRoundTrip(t *testing.T) {
	f := NewFakeGateway()
	src := s3copy.Coordinate{Bucket: "src", Key: "a.bin"}
	dst := s3copy.Coordinate{Bucket: "dst", Key: "a.bin"}
	f.Seed(src, []byte("payload"), s3copy.Attributes{ContentType: "application/octet-stream"})

	attrs, err := f.CopySingle(context.Background(), src, dst, 7, s3copy.ReplicationOptions{})
	if err != nil {
		t.Fatalf("copy single failed: %v", err)
	}
	if attrs.Size != 7 {
		t.Errorf("expected size 7, got %d", attrs.Size)
	}

	result, err := f.Head(context.Background(), dst)
	if err != nil || !result.Found {
		t.Fatalf("expected destination to be found, err=%v result=%+v", err, result)
	}
}

func TestFakeGateway_MultipartCopyAssemblesInOrder(t *testing.T) {
	f := NewFakeGateway()
	src := s3copy.Coordinate{Bucket: "src", Key: "big.bin"}
	dst := s3copy.Coordinate{Bucket: "dst", Key: "big.bin"}
	body := []byte("0123456789abcdef")
	f.Seed(src, body, s3copy.Attributes{})

	ctx := context.Background()
	uploadID, err := f.CreateMultipart(ctx, dst, s3copy.ReplicationOptions{})
	if err != nil {
		t.Fatalf("create multipart failed: %v", err)
	}

	etag2, err := f.CopyPart(ctx, uploadID, 2, src, dst, 8, 16)
	if err != nil {
		t.Fatalf("copy part 2 failed: %v", err)
	}
	etag1, err := f.CopyPart(ctx, uploadID, 1, src, dst, 0, 8)
	if err != nil {
		t.Fatalf("copy part 1 failed: %v", err)
	}

	parts := []s3copy.PartRecord{
		{PartNumber: 2, ETag: etag2, RangeStart: 8, RangeEnd: 16},
		{PartNumber: 1, ETag: etag1, RangeStart: 0, RangeEnd: 8},
	}
	attrs, err := f.CompleteMultipart(ctx, dst, uploadID, parts)
	if err != nil {
		t.Fatalf("complete multipart failed: %v", err)
	}
	if attrs.Size != int64(len(body)) {
		t.Errorf("expected completed size %d, got %d", len(body), attrs.Size)
	}

	result, err := f.Head(ctx, dst)
	if err != nil || !result.Found {
		t.Fatalf("expected destination found: err=%v", err)
	}
	if len(f.OpenUploadIDs()) != 0 {
		t.Errorf("expected no open uploads after completion")
	}
}

func TestFakeGateway_AbortRemovesOpenUpload(t *testing.T) {
	f := NewFakeGateway()
	dst := s3copy.Coordinate{Bucket: "dst", Key: "abandoned.bin"}
	ctx := context.Background()

	uploadID, err := f.CreateMultipart(ctx, dst, s3copy.ReplicationOptions{})
	if err != nil {
		t.Fatalf("create multipart failed: %v", err)
	}
	if len(f.OpenUploadIDs()) != 1 {
		t.Fatalf("expected one open upload")
	}
	if err := f.AbortMultipart(ctx, dst, uploadID); err != nil {
		t.Fatalf("abort failed: %v", err)
	}
	if len(f.OpenUploadIDs()) != 0 {
		t.Errorf("expected no open uploads after abort")
	}
	// Idempotent second abort.
	if err := f.AbortMultipart(ctx, dst, uploadID); err != nil {
		t.Errorf("second abort should not error: %v", err)
	}
}

func TestFakeGateway_DeniedKey(t *testing.T) {
	f := NewFakeGateway()
	f.DenyKeys = map[string]bool{"secret.bin": true}

	_, err := f.Head(context.Background(), s3copy.Coordinate{Bucket: "b", Key: "secret.bin"})
	if s3copy.CategoryOf(err) != s3copy.CategoryDenied {
		t.Errorf("expected CategoryDenied, got %v (err=%v)", s3copy.CategoryOf(err), err)
	}
}
