package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/meeting-digest/internal/domain"
	"github.com/tjfontaine/meeting-digest/internal/storage"
)

// Store is a SQLite implementation of DigestStore.
type Store struct {
	db *sqlx.DB
}

var _ storage.DigestStore = (*Store)(nil)

// New creates a new SQLite store
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS digests (
			id TEXT PRIMARY KEY,
			public_id TEXT NOT NULL UNIQUE,
			original_transcript TEXT NOT NULL,
			summary TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_digests_created_at ON digests(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// DB returns the underlying sqlx.DB for advanced operations
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) CreateDigest(ctx context.Context, d *domain.Digest) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `INSERT INTO digests (id, public_id, original_transcript, summary, created_at)
		VALUES (:id, :public_id, :original_transcript, :summary, :created_at)`, d)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("failed to create digest %s: %w", d.PublicID, storage.ErrDuplicate)
		}
		return fmt.Errorf("failed to create digest: %w", err)
	}
	return nil
}

func (s *Store) GetDigest(ctx context.Context, id string) (*domain.Digest, error) {
	return s.getOne(ctx, `SELECT id, public_id, original_transcript, summary, created_at FROM digests WHERE id = ?`, id)
}

func (s *Store) GetDigestByPublicID(ctx context.Context, publicID string) (*domain.Digest, error) {
	return s.getOne(ctx, `SELECT id, public_id, original_transcript, summary, created_at FROM digests WHERE public_id = ?`, publicID)
}

func (s *Store) getOne(ctx context.Context, query, arg string) (*domain.Digest, error) {
	var d domain.Digest
	if err := s.db.GetContext(ctx, &d, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get digest: %w", err)
	}
	return &d, nil
}

func (s *Store) ListDigests(ctx context.Context, opts storage.ListOptions) ([]*domain.Digest, error) {
	query := `SELECT id, public_id, original_transcript, summary, created_at
		FROM digests ORDER BY created_at DESC, rowid DESC`
	var args []any
	switch {
	case opts.Limit > 0:
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	case opts.Offset > 0:
		// SQLite requires a LIMIT clause before OFFSET; -1 means unbounded.
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, opts.Offset)
	}

	var digests []*domain.Digest
	if err := s.db.SelectContext(ctx, &digests, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list digests: %w", err)
	}
	if digests == nil {
		digests = []*domain.Digest{}
	}
	return digests, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
