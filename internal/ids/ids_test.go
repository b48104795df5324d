package ids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIsUniqueAndValid(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		id := New()
		require.True(t, Valid(id))
		require.NotContains(t, seen, id)
		seen[id] = struct{}{}
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	require.False(t, Valid(""))
	require.False(t, Valid("not-an-id"))
}
