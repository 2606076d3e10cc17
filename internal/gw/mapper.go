package gw

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/gostratum/s3copy"
)

// MapS3Error converts an AWS SDK v2 error into a *s3copy.TransferError
// categorized per the taxonomy of spec.md §7.
func MapS3Error(err error, op, key string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return s3copy.NewTransferError(op, key, s3copy.CategoryCancelled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return s3copy.NewTransferError(op, key, s3copy.CategoryTransient, err)
	}

	switch e := err.(type) {
	case *types.NoSuchBucket:
		return s3copy.NewTransferError(op, key, s3copy.CategoryNotFound, fmt.Errorf("bucket does not exist: %w", e))
	case *types.NoSuchKey:
		return s3copy.NewTransferError(op, key, s3copy.CategoryNotFound, e)
	case *types.NotFound:
		return s3copy.NewTransferError(op, key, s3copy.CategoryNotFound, e)
	case *types.NoSuchUpload:
		return s3copy.NewTransferError(op, key, s3copy.CategoryProtocolViolation, fmt.Errorf("multipart upload does not exist: %w", e))
	case *types.InvalidObjectState:
		return s3copy.NewTransferError(op, key, s3copy.CategoryUserInput, fmt.Errorf("invalid object state: %w", e))
	}

	if httpErr := extractHTTPError(err); httpErr != nil {
		return mapHTTPError(httpErr, op, key)
	}
	if awsErr := extractAWSError(err); awsErr != nil {
		return mapAWSError(awsErr, op, key)
	}
	if mapped := mapByErrorMessage(err, op, key); mapped != nil {
		return mapped
	}

	return s3copy.NewTransferError(op, key, s3copy.CategoryInternal, err)
}

// HTTPError represents an HTTP-level error extracted from an error message.
type HTTPError struct {
	StatusCode int
	Status     string
	Message    string
}

func extractHTTPError(err error) *HTTPError {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "404") || strings.Contains(strings.ToLower(errStr), "not found"):
		return &HTTPError{StatusCode: 404, Status: "Not Found", Message: errStr}
	case strings.Contains(errStr, "403") || strings.Contains(strings.ToLower(errStr), "forbidden"):
		return &HTTPError{StatusCode: 403, Status: "Forbidden", Message: errStr}
	case strings.Contains(errStr, "409") || strings.Contains(strings.ToLower(errStr), "conflict"):
		return &HTTPError{StatusCode: 409, Status: "Conflict", Message: errStr}
	case strings.Contains(errStr, "429") || strings.Contains(strings.ToLower(errStr), "too many requests"),
		strings.Contains(strings.ToLower(errStr), "slow down"):
		return &HTTPError{StatusCode: 429, Status: "Slow Down", Message: errStr}
	case strings.Contains(errStr, "500") || strings.Contains(strings.ToLower(errStr), "internal server"):
		return &HTTPError{StatusCode: 500, Status: "Internal Server Error", Message: errStr}
	case strings.Contains(errStr, "503") || strings.Contains(strings.ToLower(errStr), "service unavailable"):
		return &HTTPError{StatusCode: 503, Status: "Service Unavailable", Message: errStr}
	}

	if code := parseStatusCodeFromMessage(errStr); code > 0 {
		return &HTTPError{StatusCode: code, Message: errStr}
	}
	return nil
}

func parseStatusCodeFromMessage(errStr string) int {
	patterns := []string{"status code: ", "status code ", "HTTP ", "http "}
	for _, pattern := range patterns {
		idx := strings.Index(strings.ToLower(errStr), pattern)
		if idx < 0 {
			continue
		}
		start := idx + len(pattern)
		numStr := ""
		for i := start; i < len(errStr) && len(numStr) < 3; i++ {
			if errStr[i] >= '0' && errStr[i] <= '9' {
				numStr += string(errStr[i])
			} else if len(numStr) > 0 {
				break
			}
		}
		if code, err := strconv.Atoi(numStr); err == nil && code >= 100 && code <= 599 {
			return code
		}
	}
	return 0
}

func mapHTTPError(httpErr *HTTPError, op, key string) error {
	switch httpErr.StatusCode {
	case 404:
		return s3copy.NewTransferError(op, key, s3copy.CategoryNotFound, errors.New(httpErr.Message))
	case 403:
		return s3copy.NewTransferError(op, key, s3copy.CategoryDenied, errors.New(httpErr.Message))
	case 409:
		return s3copy.NewTransferError(op, key, s3copy.CategoryProtocolViolation, errors.New(httpErr.Message))
	case 429:
		return s3copy.NewTransferError(op, key, s3copy.CategorySlowDown, errors.New(httpErr.Message))
	case 500, 502, 503, 504:
		return s3copy.NewTransferError(op, key, s3copy.CategoryTransient, fmt.Errorf("server error (%d): %s", httpErr.StatusCode, httpErr.Message))
	default:
		return s3copy.NewTransferError(op, key, s3copy.CategoryInternal, fmt.Errorf("HTTP %d: %s", httpErr.StatusCode, httpErr.Message))
	}
}

// AWSError represents a generic AWS API error extracted from an error message.
type AWSError struct {
	Code    string
	Message string
}

var awsErrorCodes = map[string]string{
	"NoSuchBucket":          "bucket does not exist",
	"NoSuchKey":             "object does not exist",
	"NoSuchUpload":          "multipart upload does not exist",
	"InvalidBucketName":     "invalid bucket name",
	"AccessDenied":          "access denied",
	"InvalidAccessKeyId":    "invalid access key",
	"SignatureDoesNotMatch": "invalid secret key",
	"TokenRefreshRequired":  "token refresh required",
	"RequestTimeTooSkewed":  "request time too skewed",
	"EntityTooLarge":        "entity too large",
	"InvalidPart":           "invalid multipart upload part",
	"InvalidPartOrder":      "invalid part order",
	"MalformedXML":          "malformed request",
	"InvalidRequest":        "invalid request",
	"ServiceUnavailable":    "service unavailable",
	"InternalError":         "internal server error",
	"SlowDown":              "reduce request rate",
}

func extractAWSError(err error) *AWSError {
	errStr := err.Error()
	for code, message := range awsErrorCodes {
		if strings.Contains(errStr, code) {
			return &AWSError{Code: code, Message: message}
		}
	}
	return nil
}

func mapAWSError(awsErr *AWSError, op, key string) error {
	switch awsErr.Code {
	case "NoSuchBucket", "NoSuchKey":
		return s3copy.NewTransferError(op, key, s3copy.CategoryNotFound, errors.New(awsErr.Message))
	case "NoSuchUpload", "InvalidPart", "InvalidPartOrder":
		return s3copy.NewTransferError(op, key, s3copy.CategoryProtocolViolation, errors.New(awsErr.Message))
	case "InvalidBucketName", "InvalidAccessKeyId", "SignatureDoesNotMatch", "MalformedXML", "InvalidRequest":
		return s3copy.NewTransferError(op, key, s3copy.CategoryUserInput, errors.New(awsErr.Message))
	case "AccessDenied":
		return s3copy.NewTransferError(op, key, s3copy.CategoryDenied, errors.New(awsErr.Message))
	case "EntityTooLarge":
		return s3copy.NewTransferError(op, key, s3copy.CategoryInvalidPlan, errors.New(awsErr.Message))
	case "SlowDown":
		return s3copy.NewTransferError(op, key, s3copy.CategorySlowDown, errors.New(awsErr.Message))
	case "TokenRefreshRequired", "RequestTimeTooSkewed", "ServiceUnavailable", "InternalError":
		return s3copy.NewTransferError(op, key, s3copy.CategoryTransient, errors.New(awsErr.Message))
	default:
		return s3copy.NewTransferError(op, key, s3copy.CategoryInternal, fmt.Errorf("%s: %s", awsErr.Code, awsErr.Message))
	}
}

func mapByErrorMessage(err error, op, key string) error {
	errStr := strings.ToLower(err.Error())

	for _, pattern := range []string{"not found", "does not exist", "no such", "nosuchkey", "nosuchbucket"} {
		if strings.Contains(errStr, pattern) {
			return s3copy.NewTransferError(op, key, s3copy.CategoryNotFound, err)
		}
	}
	for _, pattern := range []string{"access denied", "forbidden", "permission"} {
		if strings.Contains(errStr, pattern) {
			return s3copy.NewTransferError(op, key, s3copy.CategoryDenied, err)
		}
	}
	for _, pattern := range []string{"slow down", "too many requests", "rate exceeded", "429"} {
		if strings.Contains(errStr, pattern) {
			return s3copy.NewTransferError(op, key, s3copy.CategorySlowDown, err)
		}
	}
	for _, pattern := range []string{"timeout", "deadline exceeded", "connection reset", "service unavailable", "eof"} {
		if strings.Contains(errStr, pattern) {
			return s3copy.NewTransferError(op, key, s3copy.CategoryTransient, err)
		}
	}
	for _, pattern := range []string{"too large", "entity too large", "exceeds maximum"} {
		if strings.Contains(errStr, pattern) {
			return s3copy.NewTransferError(op, key, s3copy.CategoryInvalidPlan, err)
		}
	}
	return nil
}

// IsRetryableError reports whether err's mapped category is one the
// gateway's retry loop should retry (Transient or SlowDown), matching
// s3copy.IsTransient but kept local so the retry loop doesn't need to
// round-trip through MapS3Error twice.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return s3copy.IsTransient(MapS3Error(err, "", ""))
}
