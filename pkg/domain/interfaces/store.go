package interfaces

import (
	"context"

	"github.com/m-mizutani/drover/pkg/domain/model"
)

// ReleaseStore holds the canonical list of releases. Keys are demand IDs,
// matched case-insensitively.
type ReleaseStore interface {
	// GetAll returns every stored release.
	GetAll(ctx context.Context) ([]*model.Release, error)

	// GetByDemandID returns the release for the demand ID, or nil when
	// absent.
	GetByDemandID(ctx context.Context, demandID string) (*model.Release, error)

	// Put inserts or replaces a release keyed by its demand ID.
	Put(ctx context.Context, release *model.Release) error

	// Delete removes the release for the demand ID. Deleting a missing
	// release succeeds.
	Delete(ctx context.Context, demandID string) error

	// Watch delivers change notifications until ctx is cancelled.
	Watch(ctx context.Context) <-chan model.ChangeEvent
}
