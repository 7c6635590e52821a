package port

import (
	"context"
	"time"

	"github.com/vertextoedge/wget-fetch/internal/domain"
)

// TransferStore is the resume journal. It records partially written files so
// a later fetch of the same URL into the same path can continue.
type TransferStore interface {
	// Get returns the record for (url, path) or domain.ErrNotFound
	Get(ctx context.Context, url, path string) (*domain.ResumeRecord, error)

	// Save creates or replaces the record for (rec.URL, rec.Path)
	Save(ctx context.Context, rec *domain.ResumeRecord) error

	// Delete removes the record for (url, path). A missing record is not an error.
	Delete(ctx context.Context, url, path string) error

	// ListOlderThan returns records not updated within the given age
	ListOlderThan(ctx context.Context, age time.Duration) ([]*domain.ResumeRecord, error)

	// Close releases the store
	Close() error
}
