package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExportArchive(t *testing.T) {
	s := NewMemoryExportArchive("koinor")
	ctx := context.Background()

	t.Run("stores a copy", func(t *testing.T) {
		data := []byte("tipdoc\n")
		key, err := s.Archive(ctx, "abc", "cxc.csv", data)
		require.NoError(t, err)
		assert.Contains(t, key, "koinor/")
		assert.Contains(t, key, "/abc/cxc.csv")

		data[0] = 'X'
		stored, ok := s.Get(key)
		require.True(t, ok)
		assert.Equal(t, "tipdoc\n", string(stored))
	})

	t.Run("same digest and name is stored once", func(t *testing.T) {
		_, err := s.Archive(ctx, "abc", "cxc.csv", []byte("other"))
		require.NoError(t, err)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("empty digest", func(t *testing.T) {
		_, err := s.Archive(ctx, "", "cxc.csv", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "digest is required")
	})
}
