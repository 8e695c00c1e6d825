package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/latticeapp/lattice/backend-go/internal/typeid"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	display_name  TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	version     INTEGER NOT NULL,
	body        BLOB NOT NULL,
	created_at  TEXT NOT NULL,
	UNIQUE (document_id, version)
);

CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_document ON snapshots(document_id, version DESC);
`

// SQLiteStore implements Store and UserStore over a single SQLite file,
// using the wazero-backed pure-Go driver so the binary stays CGO-free.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating directories and schema as needed) the SQLite
// store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// --- UserStore ---

func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	if _, err := s.GetUserByEmail(ctx, u.Email); err == nil {
		return fmt.Errorf("user %s: %w", u.Email, ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.DisplayName, u.PasswordHash, u.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM users WHERE email = ?
	`, email))
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM users WHERE id = ?
	`, id))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

// --- Store ---

func (s *SQLiteStore) CreateDocument(ctx context.Context, ownerID, name string, doc json.RawMessage) (*DocumentMeta, error) {
	now := time.Now().UTC()
	meta := &DocumentMeta{
		ID:        typeid.NewDocumentID(),
		Name:      name,
		OwnerID:   ownerID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, owner_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, meta.ID, ownerID, name, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, document_id, version, body, created_at)
		VALUES (?, ?, 1, ?, ?)
	`, typeid.NewSnapshotID(), meta.ID, []byte(doc), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return meta, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, ownerID string) ([]DocumentMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.name, d.owner_id, d.created_at, d.updated_at,
		       COALESCE(MAX(sn.version), 0)
		FROM documents d
		LEFT JOIN snapshots sn ON sn.document_id = d.id
		WHERE d.owner_id = ?
		GROUP BY d.id
		ORDER BY d.updated_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentMeta
	for rows.Next() {
		var m DocumentMeta
		var created, updated string
		if err := rows.Scan(&m.ID, &m.Name, &m.OwnerID, &created, &updated, &m.Version); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, created)
		m.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*DocumentMeta, json.RawMessage, error) {
	var m DocumentMeta
	var created, updated string
	var body []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT d.id, d.name, d.owner_id, d.created_at, d.updated_at, sn.version, sn.body
		FROM documents d
		JOIN snapshots sn ON sn.document_id = d.id
		WHERE d.id = ?
		ORDER BY sn.version DESC
		LIMIT 1
	`, id).Scan(&m.ID, &m.Name, &m.OwnerID, &created, &updated, &m.Version, &body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("get document: %w", err)
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, created)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &m, body, nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, docID string, doc json.RawMessage) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM snapshots WHERE document_id = ?
	`, docID).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("current version: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE documents SET updated_at = ? WHERE id = ?
	`, now, docID)
	if err != nil {
		return 0, fmt.Errorf("touch document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}

	version++
	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, document_id, version, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, typeid.NewSnapshotID(), docID, version, []byte(doc), now)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return version, nil
}

func (s *SQLiteStore) RenameDocument(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET name = ?, updated_at = ? WHERE id = ?
	`, name, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("rename document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}
