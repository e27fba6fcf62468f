package domain

import "context"

// UploadResult is what a destination reports after a successful upload.
type UploadResult struct {
	RemotePath string
	Size       int64
}

// Storage is a backup destination. Read returns (nil, nil) for a
// missing object so sidecar lookups do not error on fresh artifacts.
type Storage interface {
	Upload(ctx context.Context, localPath string, remoteName string) (*UploadResult, error)
	Download(ctx context.Context, remotePath string, localPath string) error
	List(ctx context.Context) ([]FileInfo, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
}
