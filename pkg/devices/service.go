package devices

import (
	"context"
	"time"

	"github.com/jordanlanch/replykit/pkg/store"
)

// Service is the device registry. Devices are identified by
// (user, client-reported device id); sighting an already-known device
// refreshes its model, OS version and last-seen time but never its
// platform.
type Service struct {
	store store.Store

	// Now returns wall-clock time. Tests override it.
	Now func() time.Time
}

// NewService creates a device registry
func NewService(st store.Store) *Service {
	return &Service{store: st, Now: time.Now}
}

// Register upserts a device sighting for the user.
func (s *Service) Register(ctx context.Context, userID string, in store.DeviceInput) (*store.Device, error) {
	return s.store.UpsertDevice(ctx, userID, in, s.Now())
}

// List returns the user's devices in creation order.
func (s *Service) List(ctx context.Context, userID string) ([]*store.Device, error) {
	return s.store.DevicesByUser(ctx, userID)
}
