package servicestub_test

import (
	"testing"

	"github.com/jrsteele09/go-services-client/entities"
	"github.com/jrsteele09/go-services-client/servicestub"
	"github.com/stretchr/testify/require"
)

func TestStore_Users(t *testing.T) {
	store := servicestub.NewStore()

	uid, err := store.AddUser("alice", "secret", "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, 1, uid)

	_, err = store.AddUser("Alice", "other", "")
	require.Error(t, err, "names are case-insensitive")

	user, err := store.Authenticate("ALICE", "secret")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Name)
	require.True(t, bool(user.Status))

	_, err = store.Authenticate("alice", "wrong")
	require.Error(t, err)
	_, err = store.Authenticate("bob", "secret")
	require.Error(t, err)

	_, err = store.User(7)
	require.Error(t, err)
}

func TestStore_Nodes(t *testing.T) {
	store := servicestub.NewStore()

	node := &entities.Node{Type: "page", Title: "About"}
	nid := store.SaveNode(node)
	require.Equal(t, 1, nid)
	require.Equal(t, entities.Int(1), node.NID)

	t.Run("returns copies", func(t *testing.T) {
		got, err := store.Node(nid)
		require.NoError(t, err)
		got.Title = "changed"

		again, err := store.Node(nid)
		require.NoError(t, err)
		require.Equal(t, "About", again.Title)
	})

	t.Run("explicit nid advances the counter", func(t *testing.T) {
		require.Equal(t, 10, store.SaveNode(&entities.Node{NID: 10, Type: "page", Title: "Ten"}))
		require.Equal(t, 11, store.SaveNode(&entities.Node{Type: "page", Title: "Eleven"}))
	})

	t.Run("comment count", func(t *testing.T) {
		_, err := store.SaveComment(&entities.Comment{NID: entities.Int(nid), Subject: "a"})
		require.NoError(t, err)
		_, err = store.SaveComment(&entities.Comment{NID: entities.Int(nid), Subject: "b"})
		require.NoError(t, err)

		got, err := store.Node(nid)
		require.NoError(t, err)
		require.Equal(t, entities.Int(2), got.CommentCount)
		require.Len(t, store.NodeComments(nid), 2)

		_, err = store.SaveComment(&entities.Comment{NID: 404, Subject: "orphan"})
		require.Error(t, err)
	})
}

func TestStore_ViewsAndFiles(t *testing.T) {
	store := servicestub.NewStore()
	store.SaveNode(&entities.Node{Type: "story", Title: "One"})
	store.AddTerm(entities.TaxonomyTerm{TID: 5, VID: 1, Name: "b"})
	store.AddTerm(entities.TaxonomyTerm{TID: 6, VID: 1, Name: "a"})
	store.AddNodeView("recent", 1, 99)
	store.AddTermView("all", 6, 5)

	rows, ok := store.View("recent")
	require.True(t, ok)
	require.Len(t, rows, 1, "missing nodes are skipped")

	rows, ok = store.View("all")
	require.True(t, ok)
	require.Len(t, rows, 2)
	require.Equal(t, "a", rows[0].(*entities.TaxonomyTerm).Name)

	_, ok = store.View("nope")
	require.False(t, ok)

	vocab := store.Vocabulary(1)
	require.Len(t, vocab, 2)
	require.Equal(t, "a", vocab[0].Name)

	f := store.SaveFile(1, "../../etc/passwd", "text/plain", []byte("x"), 1700000000)
	require.Equal(t, "sites/default/files/passwd", f.Filepath)
	contents, ok := store.FileContents("/" + f.Filepath)
	require.True(t, ok)
	require.Equal(t, "x", string(contents))
}
