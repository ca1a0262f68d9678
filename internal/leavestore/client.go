package leavestore

import (
	"context"

	"leave-expiry/internal/domain"
)

// Client is the minimal contract the engine needs from the leave record store.
// Implementations must be safe for concurrent use by several reconcilers.
//
//go:generate mockgen -source=client.go -destination=mock/client_mock.go -package=mock
type Client interface {
	FetchByOwner(ctx context.Context, ownerID string) ([]domain.LeaveRecord, error)
	FetchPending(ctx context.Context) ([]domain.LeaveRecord, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, reason string) (domain.LeaveRecord, error)
}
