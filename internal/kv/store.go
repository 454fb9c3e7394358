// Package kv is the local key-value persistence behind the ledger, the
// settings, the device id and the pending sync queue. Values are opaque JSON
// blobs.
package kv

import (
	"context"
	"sync"
)

// Well-known keys.
const (
	KeyAttendance  = "attendanceData"
	KeySettings    = "appSettings"
	KeyPendingSync = "pendingSyncData"
	KeyDeviceID    = "deviceId"
)

// Store reads and writes blobs by key. Get returns nil, nil for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Memory is a process-local Store, used where nothing must survive a restart.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}
