package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeedStore(t *testing.T) {
	store, err := seedStore()
	require.NoError(t, err)

	user, err := store.Authenticate("demo", "demo")
	require.NoError(t, err)
	require.Equal(t, "demo", user.Name)

	rows, ok := store.View("frontpage")
	require.True(t, ok)
	require.Len(t, rows, 2)
	require.Len(t, store.NodeComments(1), 2)
	require.Len(t, store.Vocabulary(1), 2)
}
