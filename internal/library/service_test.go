package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/geom"
	"github.com/latticeapp/lattice/backend-go/internal/scene"
	"github.com/latticeapp/lattice/backend-go/internal/storage"
	"github.com/latticeapp/lattice/backend-go/internal/typeid"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	owner := &storage.User{
		ID:           typeid.NewUserID(),
		Email:        "ada@example.com",
		DisplayName:  "Ada",
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.CreateUser(context.Background(), owner))
	return NewService(store), owner.ID
}

func TestCreateSeedsEmptyDocument(t *testing.T) {
	svc, owner := newTestService(t)
	ctx := context.Background()

	meta, err := svc.Create(ctx, owner, "")
	require.NoError(t, err)
	assert.Equal(t, "Untitled", meta.Name)
	assert.Equal(t, int64(1), meta.Version)

	_, doc, err := svc.Get(ctx, meta.ID, owner)
	require.NoError(t, err)
	root := doc.Node(doc.RootID)
	require.NotNil(t, root)
	assert.Empty(t, root.ChildIDs)
}

func TestSaveAppendsAndGetServesLatest(t *testing.T) {
	svc, owner := newTestService(t)
	ctx := context.Background()

	meta, err := svc.Create(ctx, owner, "design")
	require.NoError(t, err)

	_, doc, err := svc.Get(ctx, meta.ID, owner)
	require.NoError(t, err)

	rect := scene.CreateNode(document.KindRectangle, geom.Rect{W: 40, H: 40}, document.DefaultStyle(document.KindRectangle))
	doc, err = scene.AddChild(doc, doc.RootID, rect, -1)
	require.NoError(t, err)

	v, err := svc.Save(ctx, meta.ID, owner, doc)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	got, loaded, err := svc.Get(ctx, meta.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.NotNil(t, loaded.Node(rect.ID))
}

func TestOwnershipEnforced(t *testing.T) {
	svc, owner := newTestService(t)
	ctx := context.Background()

	meta, err := svc.Create(ctx, owner, "private")
	require.NoError(t, err)

	_, _, err = svc.Get(ctx, meta.ID, "user_stranger")
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.Delete(ctx, meta.ID, "user_stranger")
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.Rename(ctx, meta.ID, "user_stranger", "mine now")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGetUnknownDocument(t *testing.T) {
	svc, owner := newTestService(t)
	_, _, err := svc.Get(context.Background(), "doc_missing", owner)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, owner := newTestService(t)
	ctx := context.Background()

	meta, err := svc.Create(ctx, owner, "original")
	require.NoError(t, err)

	_, doc, err := svc.Get(ctx, meta.ID, owner)
	require.NoError(t, err)
	rect := scene.CreateNode(document.KindRectangle, geom.Rect{W: 10, H: 10}, document.DefaultStyle(document.KindRectangle))
	doc, err = scene.AddChild(doc, doc.RootID, rect, -1)
	require.NoError(t, err)
	_, err = svc.Save(ctx, meta.ID, owner, doc)
	require.NoError(t, err)

	body, err := svc.Export(ctx, meta.ID, owner)
	require.NoError(t, err)

	imported, err := svc.Import(ctx, owner, "copy", body)
	require.NoError(t, err)
	assert.Equal(t, "copy", imported.Name)
	assert.NotEqual(t, meta.ID, imported.ID)

	_, loaded, err := svc.Get(ctx, imported.ID, owner)
	require.NoError(t, err)
	assert.NotNil(t, loaded.Node(rect.ID))
}

func TestGetFallsBackOnUnmigratableSnapshot(t *testing.T) {
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	owner := &storage.User{
		ID: typeid.NewUserID(), Email: "ada@example.com",
		DisplayName: "Ada", PasswordHash: "x", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateUser(context.Background(), owner))

	// A snapshot from the future: no migration path down to it.
	meta, err := store.CreateDocument(context.Background(), owner.ID, "future",
		[]byte(`{"schemaVersion":99,"rootId":"node_x","nodes":{}}`))
	require.NoError(t, err)

	svc := NewService(store)
	got, doc, err := svc.Get(context.Background(), meta.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "future", got.Name)
	require.NotNil(t, doc)
	assert.NotNil(t, doc.Node(doc.RootID))
}

func TestImportRejectsGarbage(t *testing.T) {
	svc, owner := newTestService(t)

	_, err := svc.Import(context.Background(), owner, "bad", []byte(`{"schemaVersion":99}`))
	assert.Error(t, err)

	_, err = svc.Import(context.Background(), owner, "bad", []byte(`not json`))
	assert.Error(t, err)
}
