package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// MaxBatchSize bounds one Upsert. SQLite's variable limit is not the
// constraint here; it keeps each write transaction short.
const MaxBatchSize = 500

// Ensure VectorEngine implements the interface.
var _ driven.VectorEngine = (*VectorEngine)(nil)

// VectorEngine stores embeddings as little-endian float32 BLOBs and
// answers queries by brute-force cosine distance. It suits the few
// thousand chunks a fund FAQ corpus holds; use pgvector beyond that.
type VectorEngine struct {
	store      *Store
	collection string
	now        func() time.Time
}

func newVectorEngine(store *Store, collection string) *VectorEngine {
	return &VectorEngine{store: store, collection: collection, now: time.Now}
}

// Upsert inserts or overwrites records by ID in one transaction.
func (e *VectorEngine) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) > MaxBatchSize {
		return fmt.Errorf("batch of %d exceeds limit %d: %w", len(records), MaxBatchSize, domain.ErrInvalidInput)
	}
	if len(records) == 0 {
		return nil
	}

	dims, err := e.dimensions(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record without id: %w", domain.ErrInvalidInput)
		}
		if len(r.Embedding) == 0 {
			continue
		}
		if dims == 0 {
			dims = len(r.Embedding)
		} else if len(r.Embedding) != dims {
			return fmt.Errorf("record %q has %d dimensions, collection has %d: %w",
				r.ID, len(r.Embedding), dims, domain.ErrInvalidInput)
		}
	}

	tx, err := e.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (collection, id, document, embedding, dimensions, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			document = excluded.document,
			embedding = excluded.embedding,
			dimensions = excluded.dimensions,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	stamp := formatTime(e.now())
	for _, r := range records {
		meta, err := json.Marshal(nonNilMeta(r.Metadata))
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, e.collection, r.ID, r.Document,
			float32SliceToBytes(r.Embedding), len(r.Embedding), string(meta), stamp); err != nil {
			return fmt.Errorf("upserting %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// Query scans the collection and returns the n nearest records.
// Metadata filtering happens after decoding, before ranking.
func (e *VectorEngine) Query(
	ctx context.Context,
	embedding []float32,
	n int,
	where map[string]any,
) ([]driven.VectorMatch, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := e.store.db.QueryContext(ctx,
		"SELECT id, document, embedding, metadata FROM vectors WHERE collection = ? AND dimensions > 0",
		e.collection)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var matches []driven.VectorMatch
	for rows.Next() {
		rec, err := scanVector(rows)
		if err != nil {
			return nil, err
		}
		if !domain.MatchesFilter(rec.Metadata, where) {
			continue
		}
		matches = append(matches, driven.VectorMatch{
			VectorRecord: rec,
			Distance:     domain.CosineDistance(embedding, rec.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > n {
		matches = matches[:n]
	}
	return matches, nil
}

// Get returns the records with the given IDs in request order.
func (e *VectorEngine) Get(ctx context.Context, ids []string) ([]driven.VectorRecord, error) {
	if len(ids) == 0 {
		return []driven.VectorRecord{}, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, e.collection)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	//nolint:gosec // G202: only placeholders are concatenated
	rows, err := e.store.db.QueryContext(ctx,
		"SELECT id, document, embedding, metadata FROM vectors WHERE collection = ? AND id IN ("+placeholders+")",
		args...)
	if err != nil {
		return nil, fmt.Errorf("getting vectors: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]driven.VectorRecord, len(ids))
	for rows.Next() {
		rec, err := scanVector(rows)
		if err != nil {
			return nil, err
		}
		byID[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	out := make([]driven.VectorRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Filter returns records matching where, ordered by ID.
func (e *VectorEngine) Filter(ctx context.Context, where map[string]any, limit int) ([]driven.VectorRecord, error) {
	rows, err := e.store.db.QueryContext(ctx,
		"SELECT id, document, embedding, metadata FROM vectors WHERE collection = ? ORDER BY id",
		e.collection)
	if err != nil {
		return nil, fmt.Errorf("filtering vectors: %w", err)
	}
	defer rows.Close()

	out := []driven.VectorRecord{}
	for rows.Next() {
		rec, err := scanVector(rows)
		if err != nil {
			return nil, err
		}
		if !domain.MatchesFilter(rec.Metadata, where) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}
	return out, nil
}

// Count returns the number of records in the collection.
func (e *VectorEngine) Count(ctx context.Context) (int, error) {
	var n int
	if err := e.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vectors WHERE collection = ?", e.collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// Reset deletes the collection's records.
func (e *VectorEngine) Reset(ctx context.Context) error {
	if _, err := e.store.db.ExecContext(ctx, "DELETE FROM vectors WHERE collection = ?", e.collection); err != nil {
		return fmt.Errorf("resetting collection: %w", err)
	}
	return nil
}

// MaxBatchSize returns the Upsert limit.
func (e *VectorEngine) MaxBatchSize() int {
	return MaxBatchSize
}

// SupportsWhere returns true.
func (e *VectorEngine) SupportsWhere() bool {
	return true
}

// Info describes the engine.
func (e *VectorEngine) Info() driven.EngineInfo {
	return driven.EngineInfo{Engine: "sqlite", Collection: e.collection, Location: e.store.path}
}

// Close is a no-op; the owning Store closes the database.
func (e *VectorEngine) Close() error {
	return nil
}

func (e *VectorEngine) dimensions(ctx context.Context) (int, error) {
	var dims int
	err := e.store.db.QueryRowContext(ctx,
		"SELECT dimensions FROM vectors WHERE collection = ? AND dimensions > 0 LIMIT 1",
		e.collection).Scan(&dims)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading collection dimensions: %w", err)
	}
	return dims, nil
}

func scanVector(rows *sql.Rows) (driven.VectorRecord, error) {
	var rec driven.VectorRecord
	var blob []byte
	var meta string

	if err := rows.Scan(&rec.ID, &rec.Document, &blob, &meta); err != nil {
		return rec, fmt.Errorf("scanning vector: %w", err)
	}
	rec.Embedding = bytesToFloat32Slice(blob)

	m, err := domain.DecodeMetadata([]byte(meta))
	if err != nil {
		return rec, fmt.Errorf("decoding metadata for %s: %w", rec.ID, err)
	}
	rec.Metadata = m
	return rec, nil
}

func nonNilMeta(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
