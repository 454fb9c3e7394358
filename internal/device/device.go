// Package device gives this installation a stable identifier, attached to
// every document it uploads.
package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/attendkeeper/internal/kv"
	"github.com/google/uuid"
)

const prefix = "device_"

var newUUID = uuid.NewString

// ID returns the stored device id, creating and persisting one on first use.
func ID(ctx context.Context, store kv.Store) (string, error) {
	data, err := store.Get(ctx, kv.KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}
	if id := strings.TrimSpace(string(data)); id != "" {
		return id, nil
	}

	id := prefix + newUUID()
	if err := store.Set(ctx, kv.KeyDeviceID, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to save device id: %w", err)
	}
	return id, nil
}
