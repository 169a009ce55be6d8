package tokenstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	s := NewMemory()

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrEmpty)

	require.NoError(t, s.Save(Tokens{AccessToken: "a", RefreshToken: "r"}))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Tokens{AccessToken: "a", RefreshToken: "r"}, got)

	require.NoError(t, s.Clear())
	_, err = s.Load()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestFileRoundTripIsObfuscated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.session")
	s := NewFile(path, "k3y")

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrEmpty)

	want := Tokens{AccessToken: "eyJhbGciOi.access", RefreshToken: "refresh-secret"}
	require.NoError(t, s.Save(want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "refresh-secret"))
	assert.False(t, strings.Contains(string(raw), "accessToken"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := NewFile(path, "k3y").Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = NewFile(path, "other").Load()
	assert.Error(t, err)
}

func TestFileClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.session")
	s := NewFile(path, "")

	require.NoError(t, s.Clear())
	require.NoError(t, s.Save(Tokens{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, s.Clear())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestDefaultPath(t *testing.T) {
	p := DefaultPath()
	assert.True(t, strings.HasPrefix(p, os.TempDir()))
	assert.True(t, strings.HasSuffix(p, ".session"))
}
