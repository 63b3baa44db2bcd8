// internal/storage/archive/interface.go
package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/stratsim/internal/core"
)

// Storage defines the interface for report archive backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path; missing paths yield core.ErrNotFound
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects and configures a backend.
type Config struct {
	Type string // "localfs" (default) or "s3"
	Path string
	S3   S3Config
}

// New builds the backend described by cfg.
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", cfg.Type))
	}
}

// cleanPath rejects absolute paths and parent references.
func cleanPath(path string) (string, error) {
	p := strings.TrimPrefix(path, "/")
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", core.WrapError(core.ErrInvalidArgument, fmt.Errorf("path %q escapes the archive", path))
		}
	}
	return p, nil
}
