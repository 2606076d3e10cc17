package s3copy

import (
	"fmt"
	"strings"
)

// IsMinIO returns true if the configuration appears to target a MinIO-style
// S3-compatible endpoint rather than AWS S3 proper.
func (c *Config) IsMinIO() bool {
	if c.Endpoint == "" {
		return false
	}
	endpoint := strings.ToLower(c.Endpoint)
	return strings.Contains(endpoint, "minio") ||
		strings.Contains(endpoint, "localhost") ||
		strings.Contains(endpoint, "127.0.0.1") ||
		c.UsePathStyle
}

// GetEndpointURL returns the full endpoint URL, defaulting the scheme to
// https when the configured endpoint has none.
func (c *Config) GetEndpointURL() string {
	if c.Endpoint == "" {
		return ""
	}
	if strings.HasPrefix(c.Endpoint, "http://") || strings.HasPrefix(c.Endpoint, "https://") {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s", c.Endpoint)
}

// String returns a safe string representation (redacts secrets).
func (c *Config) String() string {
	return fmt.Sprintf("Config{Source:s3://%s/%s, Dest:s3://%s/%s, Region:%s, Profile:%s}",
		c.SourceBucket, c.SourceKey, c.DestBucket, c.DestKey, c.Region, c.AutoProfile)
}
