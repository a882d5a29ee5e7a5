package filestaterepo_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-services-client/entities"
	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/jrsteele09/go-services-client/sessions"
	filestaterepo "github.com/jrsteele09/go-services-client/sessions/repofile"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*filestaterepo.FileStateRepo, string) {
	t.Helper()
	sealer, err := sessions.NewSealer("seal-secret")
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), "state")
	return filestaterepo.NewFileStateRepo(dir, sealer), dir
}

func TestFileStateRepo(t *testing.T) {
	ctx := context.Background()
	repo, dir := newRepo(t)

	s := &sessions.Session{ID: "S1", CurrentUser: &entities.User{UID: 7, Name: "alice"}}
	require.NoError(t, repo.Save(ctx, "alice", s.Snapshot()))

	info, err := os.Stat(filepath.Join(dir, "alice.state"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := repo.Load(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "S1", loaded.SessionID)
	require.Equal(t, "alice", loaded.User.Name)

	require.NoError(t, repo.Delete(ctx, "alice"))
	_, err = repo.Load(ctx, "alice")
	require.ErrorIs(t, err, svcerrors.ErrSessionNotFound)

	t.Run("delete missing is not an error", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "nobody"))
	})

	t.Run("rejects path keys", func(t *testing.T) {
		require.Error(t, repo.Save(ctx, "../escape", s.Snapshot()))
		_, err := repo.Load(ctx, "")
		require.Error(t, err)
	})

	t.Run("edited file fails verification", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, "bob", s.Snapshot()))
		path := filepath.Join(dir, "bob.state")
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		b[len(b)-3] ^= 0x01
		require.NoError(t, os.WriteFile(path, b, 0o600))

		_, err = repo.Load(ctx, "bob")
		require.ErrorIs(t, err, svcerrors.ErrSessionTampered)
	})
}
