// Package s3copy implements an adaptive multipart object copy engine
// between two buckets of an S3-compatible object store.
//
// The package is designed to be imported from the module root:
//
//	import "github.com/gostratum/s3copy"
//
// Use the Fx module (`s3copy.Module`) or the programmatic constructors to
// obtain an Orchestrator. The concrete gateway implementation (AWS SDK v2
// backed) lives under internal/gw and is wired in by Module or by
// cmd/s3copy; only the stable Gateway interface and pipeline types are part
// of this package's public surface.
package s3copy
