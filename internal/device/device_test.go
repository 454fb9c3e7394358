package device

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/attendkeeper/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingKV struct {
	kv.Store
	getErr, setErr error
}

func (f failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f failingKV) Set(ctx context.Context, key string, v []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, v)
}

func TestID_CreatesOnceThenReuses(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	first, err := ID(ctx, store)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "device_"))

	second, err := ID(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestID_KeepsExistingValue(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, kv.KeyDeviceID, []byte("device_k2j4h5_1693555200000")))

	id, err := ID(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "device_k2j4h5_1693555200000", id)
}

func TestID_Deterministic(t *testing.T) {
	orig := newUUID
	t.Cleanup(func() { newUUID = orig })
	newUUID = func() string { return "fixed" }

	id, err := ID(context.Background(), kv.NewMemory())
	require.NoError(t, err)
	assert.Equal(t, "device_fixed", id)
}

func TestID_StoreErrors(t *testing.T) {
	ctx := context.Background()

	_, err := ID(ctx, failingKV{Store: kv.NewMemory(), getErr: errors.New("read")})
	assert.ErrorContains(t, err, "failed to read device id")

	_, err = ID(ctx, failingKV{Store: kv.NewMemory(), setErr: errors.New("write")})
	assert.ErrorContains(t, err, "failed to save device id")
}
