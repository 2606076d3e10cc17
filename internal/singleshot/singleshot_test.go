package singleshot

import (
	"context"
	"testing"

	"github.com/gostratum/s3copy"
	"github.com/gostratum/s3copy/internal/testutil"
)

func seed(t *testing.T, gw *testutil.FakeGateway, obj s3copy.Coordinate, data string, attrs s3copy.Attributes) {
	t.Helper()
	gw.Seed(obj, []byte(data), attrs)
}

func TestCopy_SingleShotStampsIdentityTagAndReplicatesMetadata(t *testing.T) {
	gw := testutil.NewFakeGateway()
	src := s3copy.Coordinate{Bucket: "src-bucket", Key: "obj.txt"}
	dst := s3copy.Coordinate{Bucket: "dst-bucket", Key: "obj.txt"}
	seed(t, gw, src, "hello world", s3copy.Attributes{ContentType: "text/plain", Metadata: map[string]string{"owner": "team-a"}})

	srcHead, err := gw.Head(context.Background(), src)
	if err != nil || !srcHead.Found {
		t.Fatalf("expected seeded source to be found, err=%v", err)
	}

	c := New(gw, nil)
	attrs, err := c.Copy(context.Background(), s3copy.StrategySingleShot, src, dst, srcHead.Attributes,
		s3copy.ReplicationOptions{ReplicateMetadata: true})
	if err != nil {
		t.Fatalf("Copy returned error: %v", err)
	}

	gotEtag, ok := attrs.SourceEtag()
	if !ok || gotEtag != srcHead.Attributes.ETag {
		t.Errorf("expected destination to carry source-etag %q, got %q (present=%v)", srcHead.Attributes.ETag, gotEtag, ok)
	}
	if attrs.Metadata["owner"] != "team-a" {
		t.Errorf("expected replicated metadata to survive, got %v", attrs.Metadata)
	}
}

func TestCopy_SingleShotWithoutReplicateMetadataOnlyCarriesIdentity(t *testing.T) {
	gw := testutil.NewFakeGateway()
	src := s3copy.Coordinate{Bucket: "src-bucket", Key: "obj.txt"}
	dst := s3copy.Coordinate{Bucket: "dst-bucket", Key: "obj.txt"}
	seed(t, gw, src, "hello world", s3copy.Attributes{Metadata: map[string]string{"owner": "team-a"}})

	srcHead, _ := gw.Head(context.Background(), src)

	c := New(gw, nil)
	attrs, err := c.Copy(context.Background(), s3copy.StrategySingleShot, src, dst, srcHead.Attributes,
		s3copy.ReplicationOptions{ReplicateMetadata: false})
	if err != nil {
		t.Fatalf("Copy returned error: %v", err)
	}
	if _, present := attrs.Metadata["owner"]; present {
		t.Errorf("expected source metadata to be dropped when ReplicateMetadata is false, got %v", attrs.Metadata)
	}
	if _, ok := attrs.SourceEtag(); !ok {
		t.Error("expected source-etag identity tag to survive regardless of ReplicateMetadata")
	}
}

func TestCopy_PropertyCopyRefreshesHeadersInPlace(t *testing.T) {
	gw := testutil.NewFakeGateway()
	obj := s3copy.Coordinate{Bucket: "dst-bucket", Key: "obj.txt"}
	seed(t, gw, obj, "payload", s3copy.Attributes{ContentType: "application/octet-stream"})

	head, _ := gw.Head(context.Background(), obj)
	newAttrs := head.Attributes
	newAttrs.ContentType = "text/plain"

	c := New(gw, nil)
	attrs, err := c.Copy(context.Background(), s3copy.StrategyPropertyCopy, obj, obj, newAttrs,
		s3copy.ReplicationOptions{ReplicateMetadata: true})
	if err != nil {
		t.Fatalf("Copy returned error: %v", err)
	}
	if _, ok := attrs.SourceEtag(); !ok {
		t.Error("expected property copy to also stamp the identity tag")
	}
}

func TestCopy_TagOnlyLeavesBodyAndMetadataUntouched(t *testing.T) {
	gw := testutil.NewFakeGateway()
	obj := s3copy.Coordinate{Bucket: "dst-bucket", Key: "obj.txt"}
	seed(t, gw, obj, "payload", s3copy.Attributes{ContentType: "application/octet-stream"})

	before, _ := gw.Head(context.Background(), obj)

	c := New(gw, nil)
	srcAttrs := s3copy.Attributes{Tags: map[string]string{"env": "prod"}}
	attrs, err := c.Copy(context.Background(), s3copy.StrategyTagOnly, obj, obj, srcAttrs, s3copy.ReplicationOptions{})
	if err != nil {
		t.Fatalf("Copy returned error: %v", err)
	}
	if attrs.ETag != before.Attributes.ETag {
		t.Errorf("expected tag-only update to leave the object's ETag unchanged, before=%q after=%q", before.Attributes.ETag, attrs.ETag)
	}

	tags, err := gw.GetTags(context.Background(), obj)
	if err != nil {
		t.Fatalf("GetTags returned error: %v", err)
	}
	if tags["env"] != "prod" {
		t.Errorf("expected tags to be updated to %v, got %v", srcAttrs.Tags, tags)
	}
}

func TestCopy_UnknownStrategyIsAnError(t *testing.T) {
	gw := testutil.NewFakeGateway()
	obj := s3copy.Coordinate{Bucket: "b", Key: "k"}

	c := New(gw, nil)
	_, err := c.Copy(context.Background(), s3copy.StrategySkip, obj, obj, s3copy.Attributes{}, s3copy.ReplicationOptions{})
	if err == nil {
		t.Fatal("expected an error for a non-copy strategy")
	}
}
