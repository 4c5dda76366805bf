package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider, engine or store kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Text queries cannot be answered without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrNotConfigured indicates an optional collaborator was not supplied.
	ErrNotConfigured = errors.New("not configured")

	// Ingestion Errors.

	// ErrContentTooShort indicates a document has too little text to be useful.
	ErrContentTooShort = errors.New("content too short")

	// ErrInvariantViolation indicates a logic defect, such as a duplicate
	// chunk ID or a chunk missing a field required for storage.
	// It is fatal for the pipeline run that encounters it.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrStageOrder indicates an attempt to move the pipeline out of sequence.
	ErrStageOrder = errors.New("pipeline stage out of order")

	// ErrArtifactMissing indicates a stage artifact has not been persisted yet.
	ErrArtifactMissing = errors.New("artifact missing")

	// ErrInvalidArtifact indicates a persisted artifact failed schema validation.
	ErrInvalidArtifact = errors.New("invalid artifact")

	// Link Resolution Errors.

	// ErrUnknownCategory indicates a category key absent from the catalog.
	ErrUnknownCategory = errors.New("unknown info category")
)
