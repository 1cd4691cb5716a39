package remote

import (
	"context"

	"pocket-ledger/internal/models"
)

// Store is the remote document store holding one snapshot per user.
// GetSnapshot returns (nil, nil) when no document exists yet.
//
// Both operations require an authenticated user id supplied by the caller;
// neither retries internally.
type Store interface {
	GetSnapshot(ctx context.Context, userID uint) (*models.SyncSnapshot, error)
	PutSnapshot(ctx context.Context, userID uint, snap *models.SyncSnapshot) error
}
