package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/NeroQue/onboarding-flow-backend/internal/storage/kv"
	"github.com/NeroQue/onboarding-flow-backend/pkg/util"
)

// DeviceIdentity hands out the stable user id of this storage namespace
type DeviceIdentity struct {
	kv    kv.Store
	newID util.IDFunc
	mu    sync.Mutex
}

func NewDeviceIdentity(store kv.Store, newID util.IDFunc) *DeviceIdentity {
	if newID == nil {
		newID = util.Prefixed(util.PrefixUser)
	}
	return &DeviceIdentity{kv: store, newID: newID}
}

// UserID returns the persisted id, generating and storing one on first use
func (d *DeviceIdentity) UserID(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := d.kv.Get(ctx, KeyUserID)
	if err == nil && strings.TrimSpace(string(data)) != "" {
		return string(data), nil
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return "", fmt.Errorf("load user id: %w", err)
	}

	id := d.newID()
	if err := d.kv.Set(ctx, KeyUserID, []byte(id)); err != nil {
		return "", fmt.Errorf("save user id: %w", err)
	}
	return id, nil
}
