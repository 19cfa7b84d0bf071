package consultation

import (
	"context"
	"time"
)

type Repository interface {
	// Create persists a new record. Returns ErrAlreadyExists on a duplicate ID.
	Create(ctx context.Context, r *Record) error

	// GetByID returns ErrNotFound if there is no such record.
	GetByID(ctx context.Context, id string) (*Record, error)

	// Update applies a partial update and returns the stored result.
	Update(ctx context.Context, id string, cmd *UpdateCommand) (*Record, error)

	// Delete removes the metadata only. The video file is untouched.
	Delete(ctx context.Context, id string) error

	// List runs a built predicate. It must never be called for ErrEmptyScope.
	List(ctx context.Context, q *ListQuery) (*PagedRecords, error)

	// MarkVideoUploaded records that a complete video landed in folder and
	// moves the record to StatusCompleted.
	MarkVideoUploaded(ctx context.Context, id, folder string, at time.Time) error

	// ExistingIDs returns the subset of ids that have a record.
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)

	// ListByVideoFolders returns uploaded records whose VideoFolder is in folders.
	ListByVideoFolders(ctx context.Context, folders []string) ([]*Record, error)

	// Ping checks the backing store is reachable.
	Ping(ctx context.Context) error
}
