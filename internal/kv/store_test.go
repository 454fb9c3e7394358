package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	v, err := m.Get(ctx, KeyAttendance)
	require.NoError(t, err)
	assert.Nil(t, v)

	buf := []byte(`[]`)
	require.NoError(t, m.Set(ctx, KeyAttendance, buf))
	buf[0] = 'X'

	v, err = m.Get(ctx, KeyAttendance)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), v, "stored value must not alias the caller's slice")
}
