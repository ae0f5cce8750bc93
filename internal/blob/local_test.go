package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreSave(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	ref, err := store.Save(context.Background(), []byte("image bytes"), "receipt.JPG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "receipts/"))
	assert.True(t, strings.HasSuffix(ref, ".jpg"), "extension is lowercased")

	data, err := os.ReadFile(filepath.Join(store.Root(), filepath.FromSlash(ref)))
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), data)
}

func TestLocalStoreSaveUniqueRefs(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	first, err := store.Save(context.Background(), []byte("a"), "same.png")
	require.NoError(t, err)
	second, err := store.Save(context.Background(), []byte("b"), "same.png")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestLocalStoreSaveEmptyData(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	_, err = store.Save(context.Background(), nil, "receipt.png")
	require.Error(t, err)
}

func TestLocalStoreURLFor(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	assert.Equal(t, "/uploads/receipts/abc.png", store.URLFor("receipts/abc.png"))
	assert.Empty(t, store.URLFor(""))
}
