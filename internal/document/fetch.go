package document

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/fhiba/2025Q2-G4/internal/config"
)

// ObjectFetcher returns the full bytes of one stored object.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

type GCSFetcher struct {
	client *storage.Client
}

func NewGCSFetcher(client *storage.Client) *GCSFetcher {
	return &GCSFetcher{client: client}
}

func (f *GCSFetcher) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	r, err := f.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// FileFetcher serves objects from <Root>/<bucket>/<key> on local disk.
type FileFetcher struct {
	Root string
}

func (f FileFetcher) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.path(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (f FileFetcher) path(bucket, key string) (string, error) {
	root := filepath.Clean(filepath.Join(f.Root, bucket))
	full := filepath.Clean(filepath.Join(root, filepath.FromSlash(key)))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes bucket directory", key)
	}
	return full, nil
}

// OpenFetcher builds the fetcher named by cfg.Documents.FetchBackend. The
// returned close func releases its client.
func OpenFetcher(ctx context.Context, cfg *config.Config) (ObjectFetcher, func() error, error) {
	switch cfg.Documents.FetchBackend {
	case config.FetchBackendFile:
		return FileFetcher{Root: cfg.Documents.LocalRoot}, func() error { return nil }, nil
	case config.FetchBackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create GCS client: %w", err)
		}
		return NewGCSFetcher(client), client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown fetch backend %q", cfg.Documents.FetchBackend)
}
