package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vertextoedge/wget-fetch/internal/domain"
)

const transferColumns = `id, url, path, part_path, offset_bytes, etag, expected_bytes, created_at, updated_at`

// Get retrieves the journal record for a url and destination path
func (s *Store) Get(ctx context.Context, url, path string) (*domain.ResumeRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE url = ? AND path = ?`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, url, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// Save creates or replaces the record for (rec.URL, rec.Path).
// A new record gets an ID and CreatedAt; UpdatedAt is always refreshed.
func (s *Store) Save(ctx context.Context, rec *domain.ResumeRecord) error {
	now := time.Now()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query := `
		INSERT INTO transfers (` + transferColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url, path) DO UPDATE SET
			part_path = excluded.part_path,
			offset_bytes = excluded.offset_bytes,
			etag = excluded.etag,
			expected_bytes = excluded.expected_bytes,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.URL, rec.Path, rec.PartPath, rec.Offset, rec.ETag, rec.ExpectedBytes,
		rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano())
	return err
}

// Delete removes the record for a url and path
func (s *Store) Delete(ctx context.Context, url, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transfers WHERE url = ? AND path = ?`, url, path)
	return err
}

// ListOlderThan returns records not updated within age, oldest first
func (s *Store) ListOlderThan(ctx context.Context, age time.Duration) ([]*domain.ResumeRecord, error) {
	threshold := time.Now().Add(-age).UnixNano()
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE updated_at < ? ORDER BY updated_at ASC`

	rows, err := s.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ResumeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.ResumeRecord, error) {
	rec := &domain.ResumeRecord{}
	var createdAt, updatedAt int64

	err := row.Scan(
		&rec.ID, &rec.URL, &rec.Path, &rec.PartPath, &rec.Offset,
		&rec.ETag, &rec.ExpectedBytes, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.CreatedAt = time.Unix(0, createdAt)
	rec.UpdatedAt = time.Unix(0, updatedAt)
	return rec, nil
}
