package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/latticeapp/lattice/backend-go/internal/typeid"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	display_name  TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS snapshots (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	version     BIGINT NOT NULL,
	body        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (document_id, version)
);

CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_document ON snapshots(document_id, version DESC);
`

// PostgresStore implements Store and UserStore over a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and applies the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- UserStore ---

func (s *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	if _, err := s.GetUserByEmail(ctx, u.Email); err == nil {
		return fmt.Errorf("user %s: %w", u.Email, ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Email, u.DisplayName, u.PasswordHash, u.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM users WHERE email = $1
	`, email))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM users WHERE id = $1
	`, id))
}

func (s *PostgresStore) scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// --- Store ---

func (s *PostgresStore) CreateDocument(ctx context.Context, ownerID, name string, doc json.RawMessage) (*DocumentMeta, error) {
	now := time.Now().UTC()
	meta := &DocumentMeta{
		ID:        typeid.NewDocumentID(),
		Name:      name,
		OwnerID:   ownerID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO documents (id, owner_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, meta.ID, ownerID, name, now)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO snapshots (id, document_id, version, body, created_at)
		VALUES ($1, $2, 1, $3, $4)
	`, typeid.NewSnapshotID(), meta.ID, []byte(doc), now)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return meta, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, ownerID string) ([]DocumentMeta, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.id, d.name, d.owner_id, d.created_at, d.updated_at,
		       COALESCE(MAX(sn.version), 0)
		FROM documents d
		LEFT JOIN snapshots sn ON sn.document_id = d.id
		WHERE d.owner_id = $1
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
		if err := rows.Scan(&m.ID, &m.Name, &m.OwnerID, &m.CreatedAt, &m.UpdatedAt, &m.Version); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*DocumentMeta, json.RawMessage, error) {
	var m DocumentMeta
	var body []byte
	err := s.pool.QueryRow(ctx, `
		SELECT d.id, d.name, d.owner_id, d.created_at, d.updated_at, sn.version, sn.body
		FROM documents d
		JOIN snapshots sn ON sn.document_id = d.id
		WHERE d.id = $1
		ORDER BY sn.version DESC
		LIMIT 1
	`, id).Scan(&m.ID, &m.Name, &m.OwnerID, &m.CreatedAt, &m.UpdatedAt, &m.Version, &body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("get document: %w", err)
	}
	return &m, body, nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, docID string, doc json.RawMessage) (int64, error) {
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE documents SET updated_at = $1 WHERE id = $2
	`, now, docID)
	if err != nil {
		return 0, fmt.Errorf("touch document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}

	var version int64
	err = tx.QueryRow(ctx, `
		INSERT INTO snapshots (id, document_id, version, body, created_at)
		SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3, $4
		FROM snapshots WHERE document_id = $2
		RETURNING version
	`, typeid.NewSnapshotID(), docID, []byte(doc), now).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return version, nil
}

func (s *PostgresStore) RenameDocument(ctx context.Context, id, name string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET name = $1, updated_at = $2 WHERE id = $3
	`, name, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("rename document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}
