package gw

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"

	"github.com/gostratum/s3copy"
)

// newFakeGateway spins up an in-process gofakes3 server backing a single
// *s3.Client shared for both source and destination roles, and returns a
// Gateway wired to it plus a teardown func.
func newFakeGateway(t *testing.T) (*Gateway, *s3.Client, func()) {
	t.Helper()

	backend := s3mem.New()
	faker := gofakes3.New(backend)
	server := httptest.NewServer(faker.Server())

	client := s3.NewFromConfig(aws.Config{
		Region: "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider(
			"test", "test", ""),
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(server.URL)
		o.UsePathStyle = true
	})

	cm := &ClientManager{
		cfg:       &s3copy.Config{SourceBucket: "src-bucket", DestBucket: "dst-bucket"},
		logger:    s3copy.NewNopLogger(),
		srcClient: client,
		dstClient: client,
	}
	gw := NewGateway(cm, s3copy.NewNopLogger())

	return gw, client, server.Close
}

func mustCreateBucket(t *testing.T, ctx context.Context, client *s3.Client, bucket string) {
	t.Helper()
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Fatalf("failed to create bucket %q: %v", bucket, err)
	}
}

func mustPutObject(t *testing.T, ctx context.Context, client *s3.Client, bucket, key string, body []byte) {
	t.Helper()
	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}); err != nil {
		t.Fatalf("failed to put object %q: %v", key, err)
	}
}

func TestEncodeCopySourceKey_EscapesHeaderSyntaxCharactersButKeepsSlashes(t *testing.T) {
	cases := map[string]string{
		"plain/key.txt":       "plain/key.txt",
		"has space.txt":       "has%20space.txt",
		"weird?version=x.txt": "weird%3Fversion=x.txt",
		"a&b#c":               "a%26b%23c",
		"dir/sub dir/k?v":     "dir/sub%20dir/k%3Fv",
	}
	for key, want := range cases {
		if got := encodeCopySourceKey(key); got != want {
			t.Errorf("encodeCopySourceKey(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestCopySource_JoinsBucketAndEncodedKey(t *testing.T) {
	got := copySource(s3copy.Coordinate{Bucket: "my-bucket", Key: "a dir/file?x.txt"})
	want := "my-bucket/a%20dir/file%3Fx.txt"
	if got != want {
		t.Errorf("copySource = %q, want %q", got, want)
	}
}

func TestGateway_HeadMissingObject(t *testing.T) {
	gw, client, teardown := newFakeGateway(t)
	defer teardown()
	ctx := context.Background()
	mustCreateBucket(t, ctx, client, "src-bucket")

	result, err := gw.Head(ctx, s3copy.Coordinate{Bucket: "src-bucket", Key: "missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found {
		t.Errorf("expected Found=false for a missing object")
	}
}

func TestGateway_HeadAndTags(t *testing.T) {
	gw, client, teardown := newFakeGateway(t)
	defer teardown()
	ctx := context.Background()
	mustCreateBucket(t, ctx, client, "src-bucket")
	mustPutObject(t, ctx, client, "src-bucket", "obj.txt", []byte("hello world"))

	result, err := gw.Head(ctx, s3copy.Coordinate{Bucket: "src-bucket", Key: "obj.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found {
		t.Fatalf("expected object to be found")
	}
	if result.Attributes.Size != int64(len("hello world")) {
		t.Errorf("size mismatch: got %d", result.Attributes.Size)
	}

	if err := gw.PutTags(ctx, s3copy.Coordinate{Bucket: "src-bucket", Key: "obj.txt"}, map[string]string{"env": "test"}); err != nil {
		t.Fatalf("put tags failed: %v", err)
	}
	tags, err := gw.GetTags(ctx, s3copy.Coordinate{Bucket: "src-bucket", Key: "obj.txt"})
	if err != nil {
		t.Fatalf("get tags failed: %v", err)
	}
	if tags["env"] != "test" {
		t.Errorf("expected tag env=test, got %v", tags)
	}
}

func TestGateway_CopySingle(t *testing.T) {
	gw, client, teardown := newFakeGateway(t)
	defer teardown()
	ctx := context.Background()
	mustCreateBucket(t, ctx, client, "src-bucket")
	mustCreateBucket(t, ctx, client, "dst-bucket")
	body := []byte("small object body")
	mustPutObject(t, ctx, client, "src-bucket", "obj.txt", body)

	src := s3copy.Coordinate{Bucket: "src-bucket", Key: "obj.txt"}
	dst := s3copy.Coordinate{Bucket: "dst-bucket", Key: "obj-copy.txt"}

	attrs, err := gw.CopySingle(ctx, src, dst, int64(len(body)), s3copy.ReplicationOptions{
		MetadataDirective: s3copy.MetadataDirectiveCopy,
	})
	if err != nil {
		t.Fatalf("copy single failed: %v", err)
	}
	if attrs.ETag == "" {
		t.Errorf("expected non-empty ETag from copy")
	}

	result, err := gw.Head(ctx, dst)
	if err != nil {
		t.Fatalf("head after copy failed: %v", err)
	}
	if !result.Found || result.Attributes.Size != int64(len(body)) {
		t.Errorf("destination object not copied correctly: %+v", result)
	}
}

func TestGateway_MultipartCopyRoundTrip(t *testing.T) {
	gw, client, teardown := newFakeGateway(t)
	defer teardown()
	ctx := context.Background()
	mustCreateBucket(t, ctx, client, "src-bucket")
	mustCreateBucket(t, ctx, client, "dst-bucket")

	partSize := 5 << 20 // gofakes3's in-memory backend still enforces S3's 5 MiB part minimum
	body := make([]byte, partSize*2+1024)
	for i := range body {
		body[i] = byte(i % 251)
	}
	mustPutObject(t, ctx, client, "src-bucket", "large.bin", body)

	src := s3copy.Coordinate{Bucket: "src-bucket", Key: "large.bin"}
	dst := s3copy.Coordinate{Bucket: "dst-bucket", Key: "large-copy.bin"}

	uploadID, err := gw.CreateMultipart(ctx, dst, s3copy.ReplicationOptions{})
	if err != nil {
		t.Fatalf("create multipart failed: %v", err)
	}

	var parts []s3copy.PartRecord
	offsets := [][2]int64{
		{0, int64(partSize)},
		{int64(partSize), int64(partSize * 2)},
		{int64(partSize * 2), int64(len(body))},
	}
	for i, rng := range offsets {
		partNumber := int32(i + 1)
		etag, err := gw.CopyPart(ctx, uploadID, partNumber, src, dst, rng[0], rng[1])
		if err != nil {
			_ = gw.AbortMultipart(ctx, dst, uploadID)
			t.Fatalf("copy part %d failed: %v", partNumber, err)
		}
		parts = append(parts, s3copy.PartRecord{
			PartNumber: partNumber,
			ETag:       etag,
			Size:       rng[1] - rng[0],
			RangeStart: rng[0],
			RangeEnd:   rng[1],
		})
	}

	// Submit out of order to exercise CompleteMultipart's internal sort.
	parts[0], parts[2] = parts[2], parts[0]

	attrs, err := gw.CompleteMultipart(ctx, dst, uploadID, parts)
	if err != nil {
		t.Fatalf("complete multipart failed: %v", err)
	}
	if attrs.Size != int64(len(body)) {
		t.Errorf("completed object size mismatch: got %d want %d", attrs.Size, len(body))
	}
}

func TestGateway_AbortMultipartIsIdempotent(t *testing.T) {
	gw, client, teardown := newFakeGateway(t)
	defer teardown()
	ctx := context.Background()
	mustCreateBucket(t, ctx, client, "dst-bucket")

	dst := s3copy.Coordinate{Bucket: "dst-bucket", Key: "abandoned.bin"}
	uploadID, err := gw.CreateMultipart(ctx, dst, s3copy.ReplicationOptions{})
	if err != nil {
		t.Fatalf("create multipart failed: %v", err)
	}

	if err := gw.AbortMultipart(ctx, dst, uploadID); err != nil {
		t.Fatalf("first abort failed: %v", err)
	}
	if err := gw.AbortMultipart(ctx, dst, uploadID); err != nil {
		t.Errorf("second abort on an already-aborted upload should not error, got: %v", err)
	}
}
