package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBolt(t *testing.T) *BoltStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltStore_RoundTrip(t *testing.T) {
	s := openBolt(t)

	require.NoError(t, s.Save(LiveSessionKey, []byte(`{"game_number":3}`)))

	blob, err := s.Load(LiveSessionKey)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"game_number":3}`), blob)

	// Overwrite replaces the previous blob.
	require.NoError(t, s.Save(LiveSessionKey, []byte(`{"game_number":4}`)))
	blob, err = s.Load(LiveSessionKey)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"game_number":4}`), blob)
}

func TestBoltStore_LoadMissing(t *testing.T) {
	s := openBolt(t)

	_, err := s.Load(LiveSessionKey)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestBoltStore_Clear(t *testing.T) {
	s := openBolt(t)

	require.NoError(t, s.Save(LiveSessionKey, []byte("x")))
	require.NoError(t, s.Clear(LiveSessionKey))

	_, err := s.Load(LiveSessionKey)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	// Clearing an absent key is not an error.
	assert.NoError(t, s.Clear(LiveSessionKey))
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(LiveSessionKey, []byte("persisted")))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	blob, err := reopened.Load(LiveSessionKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), blob)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestMemory(t *testing.T) {
	m := NewMemory()

	_, err := m.Load("k")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, m.Save("k", []byte("v")))
	blob, err := m.Load("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), blob)

	// The returned slice is a copy.
	blob[0] = 'x'
	again, err := m.Load("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), again)

	require.NoError(t, m.Clear("k"))
	_, err = m.Load("k")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}
