package domain

import "context"

// Database is a backup source backed by an engine's native dump tool.
type Database interface {
	Backup(ctx context.Context, outputPath string) error
	Restore(ctx context.Context, inputPath string) error
	Ping(ctx context.Context) error
	Version(ctx context.Context) (string, error)
	GetName() string
	GetType() string
}
