package widget

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	_, ok, err := s.GetItem("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetItem("k", "v"))
	v, ok, err := s.GetItem("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")
	s := NewFileStorage(path)

	_, ok, err := s.GetItem(MessagesKey)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetItem(MessagesKey, "[]"))
	require.NoError(t, s.SetItem(ConversationIDKey, "conv-1"))

	reopened := NewFileStorage(path)
	v, ok, err := reopened.GetItem(ConversationIDKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "conv-1", v)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestFileStorageCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, _, err := NewFileStorage(path).GetItem(MessagesKey)
	require.Error(t, err)
}
