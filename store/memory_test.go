// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreLoadEmpty(t *testing.T) {
	s := NewInMemoryStore()
	_, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInMemoryStoreSaveLoadRoundTrip(t *testing.T) {
	s := NewInMemoryStore()
	snap := BuildSnapshot(123, 7, nil, nil)
	require.NoError(t, s.Save(context.Background(), snap))

	loaded, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(7), loaded.CurrentEpoch)
}
