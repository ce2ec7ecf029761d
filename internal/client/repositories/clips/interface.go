package clips

import (
	"context"

	"github.com/dmitrijs2005/clipvault/internal/client/models"
)

type Repository interface {
	// Insert stores a new clip and returns the assigned id.
	Insert(ctx context.Context, clip *models.Clip) (int64, error)

	// SetPreviewHandle records where the playable copy of the clip lives.
	SetPreviewHandle(ctx context.Context, id int64, handle string) error

	// GetByID returns the full clip or common.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.Clip, error)

	// GetStatus returns only the status column or common.ErrNotFound.
	GetStatus(ctx context.Context, id int64) (models.Status, error)

	// UpdateStatus replaces the status, returning common.ErrNotFound when no
	// row matched.
	UpdateStatus(ctx context.Context, id int64, status models.Status) error

	// DeleteByID removes the row and returns its preview handle. deleted is
	// false when no row matched.
	DeleteByID(ctx context.Context, id int64) (handle string, deleted bool, err error)

	// GetAll returns summaries of every clip in display order.
	GetAll(ctx context.Context) ([]models.Clip, error)

	// GetByStatus returns summaries of clips in any of the given statuses.
	GetByStatus(ctx context.Context, statuses ...models.Status) ([]models.Clip, error)

	// ResetStatus moves every clip in from to to and returns how many moved.
	ResetStatus(ctx context.Context, from, to models.Status) (int64, error)
}
