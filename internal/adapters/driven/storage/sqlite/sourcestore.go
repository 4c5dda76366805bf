package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// sourceStore implements driven.SourceStore over the sources and
// content_sources tables.
type sourceStore struct {
	store *Store
}

var _ driven.SourceStore = (*sourceStore)(nil)

// Location returns the database path.
func (s *sourceStore) Location() string {
	return s.store.path
}

// Save replaces the stored ledger in one transaction.
func (s *sourceStore) Save(ctx context.Context, ledger *domain.SourceLedger) error {
	if ledger == nil {
		return fmt.Errorf("saving ledger: %w", domain.ErrInvalidInput)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM content_sources"); err != nil {
		return fmt.Errorf("clearing content links: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sources"); err != nil {
		return fmt.Errorf("clearing sources: %w", err)
	}

	insertSource, err := tx.PrepareContext(ctx, `
		INSERT INTO sources (id, url, amc_name, title, source_type, domain,
			validated, is_accessible, validated_at, first_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing source insert: %w", err)
	}
	defer insertSource.Close()

	for _, rec := range ledger.Sources {
		var accessible sql.NullBool
		if rec.IsAccessible != nil {
			accessible = sql.NullBool{Bool: *rec.IsAccessible, Valid: true}
		}
		var validatedAt sql.NullString
		if rec.ValidatedAt != nil {
			validatedAt = sql.NullString{String: formatTime(*rec.ValidatedAt), Valid: true}
		}

		if _, err := insertSource.ExecContext(ctx,
			rec.ID, rec.URL, rec.AMCName, rec.Title, string(rec.Type), rec.Domain,
			rec.Validated, accessible, validatedAt, formatTime(rec.FirstSeenAt),
		); err != nil {
			return fmt.Errorf("inserting source %s: %w", rec.ID, err)
		}
	}

	insertLink, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO content_sources (content_id, source_id, position) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing link insert: %w", err)
	}
	defer insertLink.Close()

	for contentID, ids := range ledger.ContentToSources {
		for pos, id := range ids {
			if _, ok := ledger.Sources[id]; !ok {
				continue
			}
			if _, err := insertLink.ExecContext(ctx, contentID, id, pos); err != nil {
				return fmt.Errorf("linking %s to %s: %w", contentID, id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing ledger: %w", err)
	}
	return nil
}

// Load reads the stored ledger. An empty database yields an empty ledger.
func (s *sourceStore) Load(ctx context.Context) (*domain.SourceLedger, error) {
	ledger := domain.NewSourceLedger()

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, url, amc_name, title, source_type, domain,
			validated, is_accessible, validated_at, first_seen_at
		FROM sources
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		ledger.Sources[rec.ID] = rec
		ledger.URLToID[rec.URL] = rec.ID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}

	links, err := s.store.db.QueryContext(ctx,
		"SELECT content_id, source_id FROM content_sources ORDER BY content_id, position")
	if err != nil {
		return nil, fmt.Errorf("querying content links: %w", err)
	}
	defer links.Close()

	for links.Next() {
		var contentID, sourceID string
		if err := links.Scan(&contentID, &sourceID); err != nil {
			return nil, fmt.Errorf("scanning content link: %w", err)
		}
		ledger.ContentToSources[contentID] = append(ledger.ContentToSources[contentID], sourceID)
	}
	if err := links.Err(); err != nil {
		return nil, fmt.Errorf("iterating content links: %w", err)
	}

	return ledger, nil
}

func scanSource(rows *sql.Rows) (domain.SourceRecord, error) {
	var rec domain.SourceRecord
	var sourceType, firstSeen string
	var accessible sql.NullBool
	var validatedAt sql.NullString

	if err := rows.Scan(&rec.ID, &rec.URL, &rec.AMCName, &rec.Title, &sourceType, &rec.Domain,
		&rec.Validated, &accessible, &validatedAt, &firstSeen); err != nil {
		return rec, fmt.Errorf("scanning source: %w", err)
	}

	rec.Type = domain.SourceType(sourceType)
	if accessible.Valid {
		v := accessible.Bool
		rec.IsAccessible = &v
	}
	if validatedAt.Valid {
		t, err := parseTime(validatedAt.String)
		if err != nil {
			return rec, err
		}
		rec.ValidatedAt = &t
	}
	t, err := parseTime(firstSeen)
	if err != nil {
		return rec, err
	}
	rec.FirstSeenAt = t

	return rec, nil
}
