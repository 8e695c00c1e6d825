// Package storage persists documents as versioned snapshots plus the user
// accounts that own them. Two implementations share the schema shape:
// SQLite for single-binary deployments and Postgres for shared ones.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// DocumentMeta is the listing row for a stored document. Version is the
// latest snapshot version.
type DocumentMeta struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store owns document metadata and snapshot history. Snapshots are
// append-only; saving writes a new version rather than overwriting, so a
// corrupted autosave never destroys the previous good state.
type Store interface {
	CreateDocument(ctx context.Context, ownerID, name string, doc json.RawMessage) (*DocumentMeta, error)
	ListDocuments(ctx context.Context, ownerID string) ([]DocumentMeta, error)
	// GetDocument returns the metadata and the latest snapshot body.
	GetDocument(ctx context.Context, id string) (*DocumentMeta, json.RawMessage, error)
	// SaveSnapshot appends a new snapshot version and returns it.
	SaveSnapshot(ctx context.Context, docID string, doc json.RawMessage) (int64, error)
	RenameDocument(ctx context.Context, id, name string) error
	DeleteDocument(ctx context.Context, id string) error
	Close() error
}

// User is a stored account. PasswordHash is a bcrypt hash, never the
// plaintext.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
}
