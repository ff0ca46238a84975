package object

import (
	"context"
	"errors"
)

var (
	ErrMissingPath   = errors.New("missing storage_path")
	ErrMissingBucket = errors.New("BUCKET_NAME is not set; cannot build S3 URL")
)

// FileRef locates one uploaded document.
type FileRef struct {
	FileID      string
	StoragePath string
	StorageURL  string
}

// URLResolver returns a URL the extraction service can download the file from.
type URLResolver interface {
	FileURL(ctx context.Context, ref FileRef) (string, error)
}
