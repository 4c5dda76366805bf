package driven

import "context"

// ArtifactStore persists stage artifacts so a run can resume from the last
// completed stage. Artifacts are JSON documents addressed by file name.
type ArtifactStore interface {
	// Put writes an artifact, replacing any previous version.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads an artifact.
	// Returns domain.ErrArtifactMissing if it does not exist.
	Get(ctx context.Context, name string) ([]byte, error)

	// Exists reports whether an artifact has been written.
	Exists(ctx context.Context, name string) (bool, error)

	// Location describes where artifacts live.
	Location() string
}
