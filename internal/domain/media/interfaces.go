package media

import (
	"context"
	"time"

	"portfolio/internal/storage"
)

// ObjectStore is the slice of the storage service the media domain uses.
type ObjectStore interface {
	StoreFile(ctx context.Context, data []byte, originalName, fileID, mimeType string) (*storage.StoredFile, error)
	FetchFile(ctx context.Context, rawURL string) ([]byte, string, error)
	DeleteFile(ctx context.Context, key string)
	GeneratePresignedURL(ctx context.Context, key, mimeType string, expires time.Duration) (string, error)
}

// Enqueuer hands a media id to the background pipeline. The dispatcher is
// the production implementation; tests run the pipeline inline.
type Enqueuer interface {
	Enqueue(id string)
}

// Repository owns Media rows and enforces the status machine.
type Repository interface {
	Create(ctx context.Context, m *Media) error
	GetByID(ctx context.Context, id string) (*Media, error)
	List(ctx context.Context) ([]*Media, error)

	// ClaimProcessing performs the pending->processing transition and
	// returns the claimed row. It is the single-flight guard: a second
	// claim for the same id fails with ErrNotClaimable.
	ClaimProcessing(ctx context.Context, id string) (*Media, error)
	MarkCompleted(ctx context.Context, m *Media) error
	MarkFailed(ctx context.Context, id, reason string) error
	// ResetForRetry performs the explicit failed->pending transition.
	ResetForRetry(ctx context.Context, id string) error

	UpdateMetadata(ctx context.Context, id string, meta Metadata) error
	Delete(ctx context.Context, id string) error
}

// Metadata is the editable descriptive part of a media item. Editing it is
// a separate operation from reprocessing and never touches status.
type Metadata struct {
	Title       string
	Description string
	AltText     string
	Tags        []string
}
