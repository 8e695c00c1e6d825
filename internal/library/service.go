// Package library is the document catalog: create, list, rename, delete,
// export and import documents, each persisted as versioned snapshots.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/latticeapp/lattice/backend-go/internal/document"
	"github.com/latticeapp/lattice/backend-go/internal/storage"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrForbidden = errors.New("forbidden")
)

type Service struct {
	store storage.Store
}

func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// Create seeds a new document. An empty name gets "Untitled".
func (s *Service) Create(ctx context.Context, ownerID, name string) (*storage.DocumentMeta, error) {
	if name == "" {
		name = "Untitled"
	}
	doc := document.NewEmptyDocument(name)
	body, err := document.Serialize(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize empty document: %w", err)
	}
	return s.store.CreateDocument(ctx, ownerID, name, body)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]storage.DocumentMeta, error) {
	return s.store.ListDocuments(ctx, ownerID)
}

// Get loads a document and its latest snapshot, enforcing ownership. The
// snapshot passes through Deserialize so stale on-disk formats are migrated
// before they reach an editor. A snapshot whose schema version has no
// migration path is unrecoverable here; rather than locking the user out of
// the document entirely, Get logs it and serves a fresh empty document under
// the same name.
func (s *Service) Get(ctx context.Context, docID, userID string) (*storage.DocumentMeta, *document.DocumentModel, error) {
	meta, body, err := s.getOwned(ctx, docID, userID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := document.Deserialize(body)
	if err != nil {
		if errors.Is(err, document.ErrMigrationPath) {
			slog.Error("snapshot has no migration path, serving empty document",
				"docId", docID, "error", err)
			return meta, document.NewEmptyDocument(meta.Name), nil
		}
		return nil, nil, fmt.Errorf("deserialize document %s: %w", docID, err)
	}
	return meta, doc, nil
}

// Save appends a snapshot of doc and returns the new version.
func (s *Service) Save(ctx context.Context, docID, userID string, doc *document.DocumentModel) (int64, error) {
	if _, _, err := s.getOwned(ctx, docID, userID); err != nil {
		return 0, err
	}
	body, err := document.Serialize(doc)
	if err != nil {
		return 0, fmt.Errorf("serialize document: %w", err)
	}
	return s.store.SaveSnapshot(ctx, docID, body)
}

func (s *Service) Rename(ctx context.Context, docID, userID, name string) error {
	if _, _, err := s.getOwned(ctx, docID, userID); err != nil {
		return err
	}
	return s.store.RenameDocument(ctx, docID, name)
}

func (s *Service) Delete(ctx context.Context, docID, userID string) error {
	if _, _, err := s.getOwned(ctx, docID, userID); err != nil {
		return err
	}
	return s.store.DeleteDocument(ctx, docID)
}

// Export returns the latest snapshot verbatim, suitable for download and
// later re-import.
func (s *Service) Export(ctx context.Context, docID, userID string) (json.RawMessage, error) {
	_, body, err := s.getOwned(ctx, docID, userID)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Import creates a document from a previously exported body. The body is
// validated and migrated through the document codec; whatever comes back is
// what gets stored, so imports of old formats land already upgraded.
func (s *Service) Import(ctx context.Context, ownerID, name string, body json.RawMessage) (*storage.DocumentMeta, error) {
	doc, err := document.Deserialize(body)
	if err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	if name == "" {
		name = doc.Metadata.Name
	}
	if name == "" {
		name = "Imported"
	}
	normalized, err := document.Serialize(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize imported document: %w", err)
	}
	return s.store.CreateDocument(ctx, ownerID, name, normalized)
}

func (s *Service) getOwned(ctx context.Context, docID, userID string) (*storage.DocumentMeta, json.RawMessage, error) {
	meta, body, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if meta.OwnerID != userID {
		return nil, nil, ErrForbidden
	}
	return meta, body, nil
}
