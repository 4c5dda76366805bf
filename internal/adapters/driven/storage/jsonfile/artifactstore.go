package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/fundlink/internal/adapters/driven/storage/artifact"
	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// Ensure ArtifactStore implements the interface.
var _ driven.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore writes each artifact as <dir>/<name>. Artifacts are
// schema-checked when read back.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates a store rooted at dir. The directory is
// created on first write.
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

// Put writes an artifact, replacing any previous version.
func (s *ArtifactStore) Put(ctx context.Context, name string, data []byte) error {
	path, err := s.pathFor(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// Get reads and validates an artifact.
func (s *ArtifactStore) Get(ctx context.Context, name string) ([]byte, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrArtifactMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	if err := artifact.Validate(name, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Exists reports whether an artifact file is present.
func (s *ArtifactStore) Exists(_ context.Context, name string) (bool, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("checking %s: %w", name, err)
	}
}

// Location returns the artifact directory.
func (s *ArtifactStore) Location() string {
	return s.dir
}

// pathFor rejects names that would escape the directory.
func (s *ArtifactStore) pathFor(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("artifact name %q: %w", name, domain.ErrInvalidInput)
	}
	return filepath.Join(s.dir, name), nil
}
