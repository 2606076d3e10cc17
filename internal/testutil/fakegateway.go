// Package testutil provides an in-memory s3copy.Gateway fake for tests that
// need a full head/copy/multipart round trip without a real provider.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gostratum/s3copy"
)

type fakeObject struct {
	data         []byte
	attrs        s3copy.Attributes
	tags         map[string]string
	lastModified time.Time
}

type fakeUpload struct {
	dst      s3copy.Coordinate
	parts    map[int32][]byte
	metadata map[string]string
}

// FakeGateway is a thread-safe in-memory implementation of s3copy.Gateway.
// Objects live in a single map keyed "bucket/key" so tests can exercise
// cross-bucket and same-bucket copies alike.
type FakeGateway struct {
	mu      sync.RWMutex
	objects map[string]*fakeObject
	uploads map[string]*fakeUpload
	regions map[string]string
	etagSeq int
	NowFn   func() time.Time

	// DenyKeys, when non-empty, makes Head/CopySingle/CopyPart fail with
	// CategoryDenied for any coordinate whose key is in the set.
	DenyKeys map[string]bool

	// partFaults scripts a sequence of errors CopyPart returns for a given
	// part number before falling through to its normal behavior; each call
	// consumes one entry. Set via ScriptPartFaults.
	partFaults   map[int32][]error
	partAttempts map[int32]int
}

// NewFakeGateway creates an empty in-memory gateway fake.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		objects:      make(map[string]*fakeObject),
		uploads:      make(map[string]*fakeUpload),
		regions:      make(map[string]string),
		partFaults:   make(map[int32][]error),
		partAttempts: make(map[int32]int),
		NowFn:        time.Now,
	}
}

// ScriptPartFaults arranges for CopyPart on partNumber to fail with each of
// errs in turn (one per call) before behaving normally. Tests use this to
// drive the executor's per-part retry and probe slow-down paths.
func (f *FakeGateway) ScriptPartFaults(partNumber int32, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partFaults[partNumber] = append([]error{}, errs...)
}

// PartAttempts reports how many times CopyPart was called for partNumber,
// for tests asserting retry counts.
func (f *FakeGateway) PartAttempts(partNumber int32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.partAttempts[partNumber]
}

func objKey(c s3copy.Coordinate) string {
	return c.Bucket + "/" + c.Key
}

// Seed inserts an object directly, bypassing the copy protocol, for test setup.
func (f *FakeGateway) Seed(obj s3copy.Coordinate, data []byte, attrs s3copy.Attributes) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attrs.Size = int64(len(data))
	if attrs.ETag == "" {
		attrs.ETag = f.nextETag()
	}
	if attrs.Metadata == nil {
		attrs.Metadata = map[string]string{}
	}
	f.objects[objKey(obj)] = &fakeObject{data: data, attrs: attrs, tags: map[string]string{}, lastModified: f.NowFn()}
}

// SeedSize inserts an object head with the given size but no real backing
// bytes, for tests (e.g. the cost estimator) that only ever call Head and
// would otherwise need to allocate multi-gigabyte buffers to exercise the
// multipart threshold.
func (f *FakeGateway) SeedSize(obj s3copy.Coordinate, size int64, attrs s3copy.Attributes) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attrs.Size = size
	if attrs.ETag == "" {
		attrs.ETag = f.nextETag()
	}
	if attrs.Metadata == nil {
		attrs.Metadata = map[string]string{}
	}
	f.objects[objKey(obj)] = &fakeObject{attrs: attrs, tags: map[string]string{}, lastModified: f.NowFn()}
}

// SetBucketRegion records the region HeadBucketRegion should report for bucket.
func (f *FakeGateway) SetBucketRegion(bucket, region string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regions[bucket] = region
}

func (f *FakeGateway) nextETag() string {
	f.etagSeq++
	return fmt.Sprintf("\"fake-etag-%d\"", f.etagSeq)
}

func (f *FakeGateway) deniedErr(op, key string) error {
	return s3copy.NewTransferError(op, key, s3copy.CategoryDenied, fmt.Errorf("access denied to %q", key))
}

// Head implements s3copy.Gateway.
func (f *FakeGateway) Head(ctx context.Context, obj s3copy.Coordinate) (s3copy.HeadResult, error) {
	if f.DenyKeys[obj.Key] {
		return s3copy.HeadResult{}, f.deniedErr("head", obj.Key)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	o, ok := f.objects[objKey(obj)]
	if !ok {
		return s3copy.HeadResult{Found: false}, nil
	}
	attrs := o.attrs
	attrs.Tags = cloneMap(o.tags)
	return s3copy.HeadResult{Found: true, Attributes: attrs}, nil
}

// HeadBucketRegion implements s3copy.Gateway.
func (f *FakeGateway) HeadBucketRegion(ctx context.Context, bucket string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if region, ok := f.regions[bucket]; ok {
		return region, nil
	}
	return "us-east-1", nil
}

// GetTags implements s3copy.Gateway.
func (f *FakeGateway) GetTags(ctx context.Context, obj s3copy.Coordinate) (map[string]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	o, ok := f.objects[objKey(obj)]
	if !ok {
		return nil, s3copy.NewTransferError("get_tags", obj.Key, s3copy.CategoryNotFound, s3copy.ErrDestMissing)
	}
	return cloneMap(o.tags), nil
}

// PutTags implements s3copy.Gateway.
func (f *FakeGateway) PutTags(ctx context.Context, obj s3copy.Coordinate, tags map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[objKey(obj)]
	if !ok {
		return s3copy.NewTransferError("put_tags", obj.Key, s3copy.CategoryNotFound, s3copy.ErrDestMissing)
	}
	o.tags = cloneMap(tags)
	return nil
}

// CopySingle implements s3copy.Gateway.
func (f *FakeGateway) CopySingle(ctx context.Context, src, dst s3copy.Coordinate, srcSize int64, opts s3copy.ReplicationOptions) (s3copy.Attributes, error) {
	if f.DenyKeys[dst.Key] {
		return s3copy.Attributes{}, f.deniedErr("copy_single", dst.Key)
	}
	if srcSize > s3copy.MaxSingleShotSize {
		return s3copy.Attributes{}, s3copy.NewTransferError("copy_single", dst.Key, s3copy.CategoryInvalidPlan,
			fmt.Errorf("object size %d exceeds single-shot limit", srcSize))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	srcObj, ok := f.objects[objKey(src)]
	if !ok {
		return s3copy.Attributes{}, s3copy.NewTransferError("copy_single", src.Key, s3copy.CategoryNotFound, s3copy.ErrSourceMissing)
	}

	attrs := srcObj.attrs
	attrs.ETag = f.nextETag()
	attrs.LastModified = f.NowFn()
	// The fake computes no checksums, so a copy carries none (as with
	// CompleteMultipart).
	attrs.ChecksumFamily = s3copy.ChecksumNone
	attrs.ChecksumValue = ""
	if opts.MetadataDirective == s3copy.MetadataDirectiveReplace {
		attrs.Metadata = cloneMap(opts.Metadata)
	}
	if opts.StorageClass != "" {
		attrs.StorageClass = opts.StorageClass
	}

	data := make([]byte, len(srcObj.data))
	copy(data, srcObj.data)
	f.objects[objKey(dst)] = &fakeObject{data: data, attrs: attrs, tags: map[string]string{}, lastModified: attrs.LastModified}

	return attrs, nil
}

// CreateMultipart implements s3copy.Gateway.
func (f *FakeGateway) CreateMultipart(ctx context.Context, dst s3copy.Coordinate, opts s3copy.ReplicationOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uploadID := fmt.Sprintf("fake-upload-%s-%d", dst.Key, len(f.uploads)+1)
	f.uploads[uploadID] = &fakeUpload{dst: dst, parts: map[int32][]byte{}, metadata: cloneMap(opts.Metadata)}
	return uploadID, nil
}

// CopyPart implements s3copy.Gateway.
func (f *FakeGateway) CopyPart(ctx context.Context, uploadID string, partNumber int32, src, dst s3copy.Coordinate, byteRangeStart, byteRangeEnd int64) (string, error) {
	if f.DenyKeys[dst.Key] {
		return "", f.deniedErr("copy_part", dst.Key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.partAttempts[partNumber]++
	if faults := f.partFaults[partNumber]; len(faults) > 0 {
		next := faults[0]
		f.partFaults[partNumber] = faults[1:]
		if next != nil {
			return "", next
		}
	}

	upload, ok := f.uploads[uploadID]
	if !ok {
		return "", s3copy.NewTransferError("copy_part", dst.Key, s3copy.CategoryProtocolViolation, fmt.Errorf("unknown upload id %q", uploadID))
	}
	srcObj, ok := f.objects[objKey(src)]
	if !ok {
		return "", s3copy.NewTransferError("copy_part", src.Key, s3copy.CategoryNotFound, s3copy.ErrSourceMissing)
	}
	if byteRangeStart < 0 || byteRangeEnd > int64(len(srcObj.data)) || byteRangeStart >= byteRangeEnd {
		return "", s3copy.NewTransferError("copy_part", dst.Key, s3copy.CategoryInvalidPlan,
			fmt.Errorf("invalid byte range [%d,%d) for object of size %d", byteRangeStart, byteRangeEnd, len(srcObj.data)))
	}

	chunk := make([]byte, byteRangeEnd-byteRangeStart)
	copy(chunk, srcObj.data[byteRangeStart:byteRangeEnd])
	upload.parts[partNumber] = chunk

	return f.nextETag(), nil
}

// CompleteMultipart implements s3copy.Gateway.
func (f *FakeGateway) CompleteMultipart(ctx context.Context, dst s3copy.Coordinate, uploadID string, parts []s3copy.PartRecord) (s3copy.Attributes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	upload, ok := f.uploads[uploadID]
	if !ok {
		return s3copy.Attributes{}, s3copy.NewTransferError("complete_multipart", dst.Key, s3copy.CategoryProtocolViolation, fmt.Errorf("unknown upload id %q", uploadID))
	}

	sorted := make([]s3copy.PartRecord, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	var assembled []byte
	for _, p := range sorted {
		chunk, ok := upload.parts[p.PartNumber]
		if !ok {
			return s3copy.Attributes{}, s3copy.NewTransferError("complete_multipart", dst.Key, s3copy.CategoryProtocolViolation,
				fmt.Errorf("part %d was never copied", p.PartNumber))
		}
		assembled = append(assembled, chunk...)
	}

	attrs := s3copy.Attributes{
		Size:         int64(len(assembled)),
		ETag:         f.nextETag(),
		LastModified: f.NowFn(),
		Metadata:     cloneMap(upload.metadata),
	}
	f.objects[objKey(dst)] = &fakeObject{data: assembled, attrs: attrs, tags: map[string]string{}, lastModified: attrs.LastModified}
	delete(f.uploads, uploadID)

	return attrs, nil
}

// AbortMultipart implements s3copy.Gateway. Idempotent: aborting an unknown
// or already-finalized upload id is not an error.
func (f *FakeGateway) AbortMultipart(ctx context.Context, dst s3copy.Coordinate, uploadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, uploadID)
	return nil
}

// OpenUploadIDs returns the upload ids currently tracked as open, for tests
// asserting that a failed transfer aborted cleanly (no leaked uploads).
func (f *FakeGateway) OpenUploadIDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]string, 0, len(f.uploads))
	for id := range f.uploads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ s3copy.Gateway = (*FakeGateway)(nil)
