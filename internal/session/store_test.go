package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/optica/internal/models"
)

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewFileStore(path)

	got, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, got)

	u := models.User{ID: uuid.New(), Email: "seller@tuvision.cl", Role: models.RoleSeller}
	require.NoError(t, s.Save(Stored{Token: "abc", User: u}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err = s.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc", got.Token)
	assert.Equal(t, u.ID, got.User.ID)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	got, err = s.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Save(Stored{Token: "one"}))

	got, err := s.Load()
	require.NoError(t, err)
	got.Token = "changed"

	again, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "one", again.Token)
}

func TestTokenExpiry_Rejects(t *testing.T) {
	_, err := TokenExpiry("not-a-jwt")
	assert.Error(t, err)
}
