package gw

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/gostratum/s3copy"
)

// Gateway is the AWS SDK v2 backed implementation of s3copy.Gateway.
type Gateway struct {
	clients *ClientManager
	logger  s3copy.Logger
}

// NewGateway builds a Gateway over the given client manager.
func NewGateway(clients *ClientManager, logger s3copy.Logger) *Gateway {
	if logger == nil {
		logger = s3copy.NewNopLogger()
	}
	return &Gateway{clients: clients, logger: logger}
}

var _ s3copy.Gateway = (*Gateway)(nil)

// Head fetches an object's attributes via HeadObject. A NoSuchKey/NotFound
// response is reported as HeadResult{Found: false}, nil rather than an
// error; any other mapped category is returned as an error.
func (g *Gateway) Head(ctx context.Context, obj s3copy.Coordinate) (s3copy.HeadResult, error) {
	client := g.clientFor(obj)

	out, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	})
	if err != nil {
		mapped := MapS3Error(err, "head", obj.Key)
		if s3copy.CategoryOf(mapped) == s3copy.CategoryNotFound {
			return s3copy.HeadResult{Found: false}, nil
		}
		return s3copy.HeadResult{}, mapped
	}

	attrs := s3copy.Attributes{
		Size:               aws.ToInt64(out.ContentLength),
		ETag:               aws.ToString(out.ETag),
		ContentType:        aws.ToString(out.ContentType),
		CacheControl:       aws.ToString(out.CacheControl),
		ContentDisposition: aws.ToString(out.ContentDisposition),
		ContentEncoding:    aws.ToString(out.ContentEncoding),
		ContentLanguage:    aws.ToString(out.ContentLanguage),
		Metadata:           out.Metadata,
		StorageClass:       string(out.StorageClass),
	}
	if out.LastModified != nil {
		attrs.LastModified = *out.LastModified
	}
	if ck := checksumOf(out.ChecksumCRC32, out.ChecksumCRC32C, out.ChecksumSHA1, out.ChecksumSHA256); ck != nil {
		attrs.ChecksumFamily = ck.family
		attrs.ChecksumValue = ck.value
	}

	tags, err := g.GetTags(ctx, obj)
	if err != nil && s3copy.CategoryOf(err) != s3copy.CategoryNotFound {
		return s3copy.HeadResult{}, err
	}
	attrs.Tags = tags

	return s3copy.HeadResult{Found: true, Attributes: attrs}, nil
}

type checksumResult struct {
	family s3copy.ChecksumFamily
	value  string
}

func checksumOf(crc32, crc32c, sha1, sha256 *string) *checksumResult {
	switch {
	case aws.ToString(sha256) != "":
		return &checksumResult{family: s3copy.ChecksumSHA256, value: aws.ToString(sha256)}
	case aws.ToString(sha1) != "":
		return &checksumResult{family: s3copy.ChecksumSHA1, value: aws.ToString(sha1)}
	case aws.ToString(crc32c) != "":
		return &checksumResult{family: s3copy.ChecksumCRC32C, value: aws.ToString(crc32c)}
	case aws.ToString(crc32) != "":
		return &checksumResult{family: s3copy.ChecksumCRC32, value: aws.ToString(crc32)}
	default:
		return nil
	}
}

// HeadBucketRegion resolves a bucket's region via GetBucketLocation.
func (g *Gateway) HeadBucketRegion(ctx context.Context, bucket string) (string, error) {
	out, err := g.clients.SourceClient().GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return "", MapS3Error(err, "head_bucket_region", bucket)
	}

	region := string(out.LocationConstraint)
	if region == "" {
		// An empty LocationConstraint means us-east-1 (S3's historical default).
		region = "us-east-1"
	}
	return region, nil
}

// GetTags fetches an object's tag set via GetObjectTagging.
func (g *Gateway) GetTags(ctx context.Context, obj s3copy.Coordinate) (map[string]string, error) {
	client := g.clientFor(obj)

	out, err := client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	})
	if err != nil {
		return nil, MapS3Error(err, "get_tags", obj.Key)
	}

	tags := make(map[string]string, len(out.TagSet))
	for _, t := range out.TagSet {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return tags, nil
}

// PutTags replaces an object's tag set wholesale via PutObjectTagging.
func (g *Gateway) PutTags(ctx context.Context, obj s3copy.Coordinate, tags map[string]string) error {
	client := g.clientFor(obj)

	tagSet := make([]types.Tag, 0, len(tags))
	for k, v := range tags {
		tagSet = append(tagSet, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}

	_, err := client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
		Bucket:  aws.String(obj.Bucket),
		Key:     aws.String(obj.Key),
		Tagging: &types.Tagging{TagSet: tagSet},
	})
	if err != nil {
		return MapS3Error(err, "put_tags", obj.Key)
	}
	return nil
}

// CopySingle performs a one-shot server-side copy via CopyObject. The
// destination client performs the copy since CopyObject is destination-bound
// (it reads CopySource but writes to the bucket the request targets).
func (g *Gateway) CopySingle(ctx context.Context, src, dst s3copy.Coordinate, srcSize int64, opts s3copy.ReplicationOptions) (s3copy.Attributes, error) {
	if srcSize > s3copy.MaxSingleShotSize {
		return s3copy.Attributes{}, s3copy.NewTransferError("copy_single", dst.Key, s3copy.CategoryInvalidPlan,
			fmt.Errorf("object size %d exceeds single-shot limit %d", srcSize, s3copy.MaxSingleShotSize))
	}

	input := &s3.CopyObjectInput{
		Bucket:     aws.String(dst.Bucket),
		Key:        aws.String(dst.Key),
		CopySource: aws.String(copySource(src)),
	}
	applyReplicationOptions(input, opts)

	out, err := g.clients.DestClient().CopyObject(ctx, input)
	if err != nil {
		return s3copy.Attributes{}, MapS3Error(err, "copy_single", dst.Key)
	}
	if out.CopyObjectResult == nil {
		return s3copy.Attributes{}, s3copy.NewTransferError("copy_single", dst.Key, s3copy.CategoryProtocolViolation,
			fmt.Errorf("provider response missing CopyObjectResult"))
	}

	attrs := s3copy.Attributes{
		ETag: aws.ToString(out.CopyObjectResult.ETag),
		Size: srcSize,
	}
	if out.CopyObjectResult.LastModified != nil {
		attrs.LastModified = *out.CopyObjectResult.LastModified
	}
	return attrs, nil
}

// CreateMultipart initiates a multipart upload on dst via CreateMultipartUpload.
func (g *Gateway) CreateMultipart(ctx context.Context, dst s3copy.Coordinate, opts s3copy.ReplicationOptions) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(dst.Bucket),
		Key:    aws.String(dst.Key),
	}
	applyCreateMultipartOptions(input, opts)

	out, err := g.clients.DestClient().CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", MapS3Error(err, "create_multipart", dst.Key)
	}

	uploadID := aws.ToString(out.UploadId)
	if uploadID == "" {
		return "", s3copy.NewTransferError("create_multipart", dst.Key, s3copy.CategoryProtocolViolation,
			fmt.Errorf("provider response missing upload id"))
	}
	return uploadID, nil
}

// CopyPart issues one server-side UploadPartCopy request. The byte range is
// end-exclusive on the caller's side and translated to S3's inclusive
// CopySourceRange header here.
func (g *Gateway) CopyPart(ctx context.Context, uploadID string, partNumber int32, src, dst s3copy.Coordinate, byteRangeStart, byteRangeEnd int64) (string, error) {
	out, err := g.clients.DestClient().UploadPartCopy(ctx, &s3.UploadPartCopyInput{
		Bucket:          aws.String(dst.Bucket),
		Key:             aws.String(dst.Key),
		UploadId:        aws.String(uploadID),
		PartNumber:      aws.Int32(partNumber),
		CopySource:      aws.String(copySource(src)),
		CopySourceRange: aws.String(fmt.Sprintf("bytes=%d-%d", byteRangeStart, byteRangeEnd-1)),
	})
	if err != nil {
		return "", MapS3Error(err, "copy_part", dst.Key)
	}
	if out.CopyPartResult == nil || out.CopyPartResult.ETag == nil {
		return "", s3copy.NewTransferError("copy_part", dst.Key, s3copy.CategoryProtocolViolation,
			fmt.Errorf("provider response missing part etag for part %d", partNumber))
	}
	return aws.ToString(out.CopyPartResult.ETag), nil
}

// CompleteMultipart finalizes an upload. Parts are sorted by ascending part
// number before being submitted, independent of the order callers recorded
// them in (spec.md's ordering invariant for complete_multipart).
func (g *Gateway) CompleteMultipart(ctx context.Context, dst s3copy.Coordinate, uploadID string, parts []s3copy.PartRecord) (s3copy.Attributes, error) {
	sorted := make([]s3copy.PartRecord, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	completed := make([]types.CompletedPart, len(sorted))
	for i, p := range sorted {
		completed[i] = types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		}
	}

	out, err := g.clients.DestClient().CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(dst.Bucket),
		Key:             aws.String(dst.Key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return s3copy.Attributes{}, MapS3Error(err, "complete_multipart", dst.Key)
	}

	attrs := s3copy.Attributes{ETag: aws.ToString(out.ETag)}

	head, headErr := g.Head(ctx, dst)
	if headErr == nil && head.Found {
		attrs = head.Attributes
		if attrs.ETag == "" {
			attrs.ETag = aws.ToString(out.ETag)
		}
	}
	return attrs, nil
}

// AbortMultipart cancels an upload. It treats NotFound/NoSuchUpload as
// success so callers can call it unconditionally on any non-success exit
// without needing to track whether the upload was already finalized.
func (g *Gateway) AbortMultipart(ctx context.Context, dst s3copy.Coordinate, uploadID string) error {
	_, err := g.clients.DestClient().AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(dst.Bucket),
		Key:      aws.String(dst.Key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		mapped := MapS3Error(err, "abort_multipart", dst.Key)
		if s3copy.CategoryOf(mapped) == s3copy.CategoryNotFound || s3copy.CategoryOf(mapped) == s3copy.CategoryProtocolViolation {
			g.logger.Debug("abort_multipart targeted an already-finalized upload", "upload_id", uploadID, "key", dst.Key)
			return nil
		}
		return mapped
	}
	return nil
}

// clientFor picks the client bound to obj's role. Head/GetTags/PutTags read
// from whichever side they're asked about, so the choice is driven by which
// bucket the coordinate names rather than a fixed source/dest role; both
// clients are interchangeable API surfaces over potentially different
// regions, selected here by comparing against the configured source bucket.
func (g *Gateway) clientFor(obj s3copy.Coordinate) *s3.Client {
	return g.clients.ClientForBucket(obj.Bucket)
}

func copySource(src s3copy.Coordinate) string {
	return fmt.Sprintf("%s/%s", src.Bucket, encodeCopySourceKey(src.Key))
}

// encodeCopySourceKey percent-encodes the parts of a key that would
// otherwise be misread as CopySource header syntax (notably '?' starting a
// version-id query, '#', '&', and raw spaces), segment by segment so a
// literal '/' used as a pseudo-directory separator in the key is preserved
// rather than escaped into %2F. url.PathEscape leaves '&' unescaped (it's a
// legal path-segment character per RFC 3986), so it's replaced separately;
// everything else it escapes is exactly what CopySource parsing is at risk
// from.
func encodeCopySourceKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		escaped := url.PathEscape(seg)
		escaped = strings.ReplaceAll(escaped, "&", "%26")
		segments[i] = escaped
	}
	return strings.Join(segments, "/")
}

func applyReplicationOptions(input *s3.CopyObjectInput, opts s3copy.ReplicationOptions) {
	if opts.StorageClass != "" {
		input.StorageClass = types.StorageClass(opts.StorageClass)
	}
	switch opts.MetadataDirective {
	case s3copy.MetadataDirectiveReplace:
		input.MetadataDirective = types.MetadataDirectiveReplace
		if len(opts.Metadata) > 0 {
			input.Metadata = opts.Metadata
		}
	default:
		input.MetadataDirective = types.MetadataDirectiveCopy
	}
	applySSE(opts, &input.ServerSideEncryption, &input.SSEKMSKeyId)
	if opts.FullControlACL {
		input.ACL = types.ObjectCannedACLBucketOwnerFullControl
	}
	if opts.ChecksumAlgorithm != s3copy.ChecksumNone {
		input.ChecksumAlgorithm = types.ChecksumAlgorithm(opts.ChecksumAlgorithm)
	}
}

func applyCreateMultipartOptions(input *s3.CreateMultipartUploadInput, opts s3copy.ReplicationOptions) {
	if opts.StorageClass != "" {
		input.StorageClass = types.StorageClass(opts.StorageClass)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}
	applySSE(opts, &input.ServerSideEncryption, &input.SSEKMSKeyId)
	if opts.FullControlACL {
		input.ACL = types.ObjectCannedACLBucketOwnerFullControl
	}
	if opts.ChecksumAlgorithm != s3copy.ChecksumNone {
		input.ChecksumAlgorithm = types.ChecksumAlgorithm(opts.ChecksumAlgorithm)
	}
}

func applySSE(opts s3copy.ReplicationOptions, sse *types.ServerSideEncryption, kmsKeyID **string) {
	switch opts.SSE {
	case s3copy.SSEProviderManaged:
		*sse = types.ServerSideEncryptionAes256
	case s3copy.SSEKMS:
		*sse = types.ServerSideEncryptionAwsKms
		if opts.SSEKMSKeyID != "" {
			*kmsKeyID = aws.String(opts.SSEKMSKeyID)
		}
	}
}
