// Package pgvector implements driven.VectorEngine on PostgreSQL with the
// pgvector extension, for corpora too large for brute-force search.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver "pgx"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// MaxBatchSize bounds one Upsert transaction.
const MaxBatchSize = 200

// tablePattern keeps collection names safe to splice into SQL.
var tablePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Ensure Engine implements the interface.
var _ driven.VectorEngine = (*Engine)(nil)

// Engine stores one collection in one table.
type Engine struct {
	db         *sql.DB
	table      string
	collection string
	dims       int
	location   string
}

// Open connects to dsn, creates the extension and table if needed, and
// returns an engine for collection. dims fixes the vector column width.
func Open(ctx context.Context, dsn, collection string, dims int) (*Engine, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pgvector dsn: %w", domain.ErrNotConfigured)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w: %w", domain.ErrVectorIndexUnavailable, err)
	}

	e, err := NewEngine(db, collection, dims)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	e.location = redactDSN(dsn)

	if err := e.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

// NewEngine wraps an open database. It does not touch the schema.
func NewEngine(db *sql.DB, collection string, dims int) (*Engine, error) {
	table := TableName(collection)
	if !tablePattern.MatchString(table) {
		return nil, fmt.Errorf("collection %q: %w", collection, domain.ErrInvalidInput)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("vector dimensions %d: %w", dims, domain.ErrInvalidInput)
	}
	return &Engine{db: db, table: table, collection: collection, dims: dims, location: "postgres"}, nil
}

// TableName maps a collection to its table: lower-case, with anything
// outside [a-z0-9_] replaced by an underscore.
func TableName(collection string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(collection) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// EnsureSchema creates the extension, table and cosine index.
func (e *Engine) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			document   TEXT NOT NULL,
			embedding  vector(%d),
			metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, e.table, e.dims),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)",
			e.table, e.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_metadata_idx ON %s USING gin (metadata jsonb_path_ops)",
			e.table, e.table),
	}
	for _, stmt := range stmts {
		if _, err := e.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

// Upsert inserts or overwrites records by ID.
func (e *Engine) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) > MaxBatchSize {
		return fmt.Errorf("batch of %d exceeds limit %d: %w", len(records), MaxBatchSize, domain.ErrInvalidInput)
	}
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record without id: %w", domain.ErrInvalidInput)
		}
		if len(r.Embedding) > 0 && len(r.Embedding) != e.dims {
			return fmt.Errorf("record %q has %d dimensions, collection has %d: %w",
				r.ID, len(r.Embedding), e.dims, domain.ErrInvalidInput)
		}
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	//nolint:gosec // G201: table name is validated against tablePattern
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, document, embedding, metadata, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET
			document = EXCLUDED.document,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = now()
	`, e.table))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := encodeMetadata(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", r.ID, err)
		}
		var vec any
		if len(r.Embedding) > 0 {
			vec = pgvector.NewVector(r.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Document, vec, meta); err != nil {
			return fmt.Errorf("upserting %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Query orders by the <=> cosine distance operator and filters with
// jsonb containment.
func (e *Engine) Query(
	ctx context.Context,
	embedding []float32,
	n int,
	where map[string]any,
) ([]driven.VectorMatch, error) {
	if n <= 0 {
		return nil, nil
	}
	filter, err := encodeMetadata(where)
	if err != nil {
		return nil, fmt.Errorf("encoding filter: %w", err)
	}

	//nolint:gosec // G201: table name is validated against tablePattern
	q := fmt.Sprintf(`
		SELECT id, document, embedding, metadata, embedding <=> $1 AS distance
		FROM %s
		WHERE embedding IS NOT NULL AND metadata @> $2::jsonb
		ORDER BY distance, id
		LIMIT $3
	`, e.table)

	rows, err := e.db.QueryContext(ctx, q, pgvector.NewVector(embedding), filter, n)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var out []driven.VectorMatch
	for rows.Next() {
		var m driven.VectorMatch
		rec, err := scanRecord(rows, &m.Distance)
		if err != nil {
			return nil, err
		}
		m.VectorRecord = rec
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vectors: %w", err)
	}
	return out, nil
}

// Get returns records in request order.
func (e *Engine) Get(ctx context.Context, ids []string) ([]driven.VectorRecord, error) {
	if len(ids) == 0 {
		return []driven.VectorRecord{}, nil
	}

	//nolint:gosec // G201: table name is validated against tablePattern
	q := fmt.Sprintf("SELECT id, document, embedding, metadata FROM %s WHERE id = ANY($1)", e.table)
	rows, err := e.db.QueryContext(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("get vectors: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]driven.VectorRecord, len(ids))
	for rows.Next() {
		rec, err := scanRecord(rows, nil)
		if err != nil {
			return nil, err
		}
		byID[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vectors: %w", err)
	}

	out := make([]driven.VectorRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Filter returns records whose metadata contains where, ordered by ID.
func (e *Engine) Filter(ctx context.Context, where map[string]any, limit int) ([]driven.VectorRecord, error) {
	filter, err := encodeMetadata(where)
	if err != nil {
		return nil, fmt.Errorf("encoding filter: %w", err)
	}
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	//nolint:gosec // G201: table name is validated against tablePattern
	q := fmt.Sprintf(`SELECT id, document, embedding, metadata FROM %s
		WHERE metadata @> $1::jsonb ORDER BY id LIMIT $2`, e.table)
	rows, err := e.db.QueryContext(ctx, q, filter, lim)
	if err != nil {
		return nil, fmt.Errorf("filter vectors: %w", err)
	}
	defer rows.Close()

	out := []driven.VectorRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vectors: %w", err)
	}
	return out, nil
}

// Count returns the number of rows.
func (e *Engine) Count(ctx context.Context) (int, error) {
	var n int
	//nolint:gosec // G201: table name is validated against tablePattern
	if err := e.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", e.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

// Reset truncates the table.
func (e *Engine) Reset(ctx context.Context) error {
	if _, err := e.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", e.table)); err != nil {
		return fmt.Errorf("truncate %s: %w", e.table, err)
	}
	return nil
}

// MaxBatchSize returns the Upsert limit.
func (e *Engine) MaxBatchSize() int {
	return MaxBatchSize
}

// SupportsWhere returns true; filters run as jsonb containment.
func (e *Engine) SupportsWhere() bool {
	return true
}

// Info describes the engine. The DSN password is never included.
func (e *Engine) Info() driven.EngineInfo {
	return driven.EngineInfo{Engine: "pgvector", Collection: e.collection, Location: e.location}
}

// Close closes the connection pool.
func (e *Engine) Close() error {
	return e.db.Close()
}

func scanRecord(rows *sql.Rows, distance *float64) (driven.VectorRecord, error) {
	var rec driven.VectorRecord
	var emb *pgvector.Vector
	var meta []byte

	dest := []any{&rec.ID, &rec.Document, &emb, &meta}
	if distance != nil {
		dest = append(dest, distance)
	}
	if err := rows.Scan(dest...); err != nil {
		return rec, fmt.Errorf("scan vector: %w", err)
	}
	if emb != nil {
		rec.Embedding = emb.Slice()
	}

	m, err := domain.DecodeMetadata(meta)
	if err != nil {
		return rec, fmt.Errorf("decode metadata for %s: %w", rec.ID, err)
	}
	rec.Metadata = m
	return rec, nil
}

func encodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// redactDSN keeps host and database for display.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "postgres"
	}
	return "postgres://" + u.Host + u.Path
}
