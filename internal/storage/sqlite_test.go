package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticeapp/lattice/backend-go/internal/typeid"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "lattice.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestUser(t *testing.T, s *SQLiteStore, email string) *User {
	t.Helper()
	u := &User{
		ID:           typeid.NewUserID(),
		Email:        email,
		DisplayName:  "Test User",
		PasswordHash: "$2a$12$notarealhash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "ada@example.com")

	byEmail, err := s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, u.PasswordHash, byEmail.PasswordHash)

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	newTestUser(t, s, "ada@example.com")

	dup := &User{
		ID:           typeid.NewUserID(),
		Email:        "ada@example.com",
		DisplayName:  "Impostor",
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	err := s.CreateUser(context.Background(), dup)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "ada@example.com")

	body := json.RawMessage(`{"name":"Untitled","nodes":{}}`)
	meta, err := s.CreateDocument(ctx, u.ID, "Untitled", body)
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Version)
	assert.Equal(t, u.ID, meta.OwnerID)

	got, gotBody, err := s.GetDocument(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "Untitled", got.Name)
	assert.Equal(t, int64(1), got.Version)
	assert.JSONEq(t, string(body), string(gotBody))

	require.NoError(t, s.RenameDocument(ctx, meta.ID, "Homepage"))
	got, _, err = s.GetDocument(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "Homepage", got.Name)

	require.NoError(t, s.DeleteDocument(ctx, meta.ID))
	_, _, err = s.GetDocument(ctx, meta.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveSnapshotAppendsVersions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "ada@example.com")

	meta, err := s.CreateDocument(ctx, u.ID, "doc", json.RawMessage(`{"v":1}`))
	require.NoError(t, err)

	v, err := s.SaveSnapshot(ctx, meta.ID, json.RawMessage(`{"v":2}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	v, err = s.SaveSnapshot(ctx, meta.ID, json.RawMessage(`{"v":3}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	// GetDocument always serves the latest snapshot.
	got, body, err := s.GetDocument(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	assert.JSONEq(t, `{"v":3}`, string(body))
}

func TestSaveSnapshotUnknownDocument(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveSnapshot(context.Background(), "doc_missing", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDocumentsByOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ada := newTestUser(t, s, "ada@example.com")
	bob := newTestUser(t, s, "bob@example.com")

	first, err := s.CreateDocument(ctx, ada.ID, "first", json.RawMessage(`{}`))
	require.NoError(t, err)
	second, err := s.CreateDocument(ctx, ada.ID, "second", json.RawMessage(`{}`))
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, bob.ID, "other", json.RawMessage(`{}`))
	require.NoError(t, err)

	// Bump first so it sorts newest.
	_, err = s.SaveSnapshot(ctx, first.ID, json.RawMessage(`{"v":2}`))
	require.NoError(t, err)

	docs, err := s.ListDocuments(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	ids := []string{docs[0].ID, docs[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
	for _, d := range docs {
		if d.ID == first.ID {
			assert.Equal(t, int64(2), d.Version)
		}
	}

	docs, err = s.ListDocuments(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDeleteDocumentCascadesSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "ada@example.com")

	meta, err := s.CreateDocument(ctx, u.ID, "doc", json.RawMessage(`{}`))
	require.NoError(t, err)
	_, err = s.SaveSnapshot(ctx, meta.ID, json.RawMessage(`{"v":2}`))
	require.NoError(t, err)

	require.NoError(t, s.DeleteDocument(ctx, meta.ID))

	var n int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE document_id = ?`, meta.ID).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)
}
