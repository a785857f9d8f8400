package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreMissingKey(t *testing.T) {
	s := NewFileStore(t.TempDir())

	_, ok, err := s.Get("codeListings")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStorePutGet(t *testing.T) {
	s := NewFileStore(t.TempDir())

	require.NoError(t, s.Put("codeListings", []byte(`[{"id":"1"}]`)))
	data, ok, err := s.Get("codeListings")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"1"}]`, string(data))

	// Overwrites replace the whole value.
	require.NoError(t, s.Put("codeListings", []byte(`[]`)))
	data, _, err = s.Get("codeListings")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestFileStoreCreatesDirectory(t *testing.T) {
	s := NewFileStore(t.TempDir() + "/nested/store")
	require.NoError(t, s.Put("k", []byte("v")))
	data, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(data))
}
