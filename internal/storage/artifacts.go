// Package storage persists raw trajectory artifacts on the local filesystem
// and enforces the retention policy over aged jobs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"mdserver/internal/domain"
)

// ArtifactStore persists trajectory dumps keyed by artifact id. Dumps are
// plain text and compress well, so they are stored gzipped and transparently
// decompressed on retrieval.
type ArtifactStore struct {
	basePath string
}

// NewArtifactStore initializes an ArtifactStore rooted at basePath.
func NewArtifactStore(basePath string) (*ArtifactStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &ArtifactStore{basePath: basePath}, nil
}

func (s *ArtifactStore) path(artifactID string) (string, error) {
	key, err := sanitizeKey(artifactID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, "trajectories", key+".dump.gz"), nil
}

// SaveTrajectory stores the raw trajectory text under the artifact id.
func (s *ArtifactStore) SaveTrajectory(ctx context.Context, artifactID string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(artifactID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("storage: ensure directory: %w", err)
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("storage: create artifact: %w", err)
	}
	zw := gzip.NewWriter(f)
	if _, err := io.Copy(zw, r); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("storage: write artifact: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("storage: finalize artifact: %w", err)
	}
	return f.Close()
}

// OpenTrajectory returns the decompressed trajectory text. Unknown or purged
// ids yield domain.ErrNotFound.
func (s *ArtifactStore) OpenTrajectory(ctx context.Context, artifactID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(artifactID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("storage: open artifact: %w", err)
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: decompress artifact: %w", err)
	}
	return &artifactReader{zr: zr, f: f}, nil
}

// RemoveTrajectory deletes the artifact if present and reports whether a file
// was actually removed. Removing an absent artifact is a no-op, not an error.
func (s *ArtifactStore) RemoveTrajectory(ctx context.Context, artifactID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.path(artifactID)
	if err != nil {
		return false, err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: remove artifact: %w", err)
	}
	return true, nil
}

type artifactReader struct {
	zr *gzip.Reader
	f  *os.File
}

func (r *artifactReader) Read(p []byte) (int, error) { return r.zr.Read(p) }

func (r *artifactReader) Close() error {
	zerr := r.zr.Close()
	ferr := r.f.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
