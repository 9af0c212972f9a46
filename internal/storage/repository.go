package storage

import (
	"context"
	"errors"

	"reelcast/internal/models"
)

var (
	// ErrNotFound indicates the referenced reel does not exist in the store.
	ErrNotFound = errors.New("reel not found")
	// ErrDuplicateReel indicates a create collided with an existing reel id.
	ErrDuplicateReel = errors.New("reel already exists")
)

// Repository exposes the datastore operations required by the publish
// pipeline, the feed reader, and the like mutator. AddLike must be atomic at
// the store: concurrent likes on the same reel may not lose increments.
type Repository interface {
	Ping(ctx context.Context) error
	CreateReel(ctx context.Context, reel models.Reel) error
	GetReel(ctx context.Context, reelID string) (models.Reel, bool, error)
	ListReels(ctx context.Context) ([]models.Reel, error)
	AddLike(ctx context.Context, reelID, clientID string) (models.Reel, error)
}
