package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/custodia-labs/docsearch/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

const (
	dbFile = "index.db"
	dsnOpt = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	metaEmbeddingModel = "embedding_model"
)

// Store is one index.db file. It owns the connection; VectorIndex hands out
// views over it.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens dataDir/index.db, creating the directory and schema as
// needed. An empty dataDir means ~/.docsearch/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docsearch", "data")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite", path+dsnOpt)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path is the database file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) VectorIndex() driven.VectorIndex {
	return &vectorIndex{store: s}
}

// migrate applies every migration newer than the recorded schema version.
// Each migration commits together with its version row.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	current, err := s.SchemaVersion()
	if err != nil {
		return err
	}
	pending, err := migrations.Up()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	for _, m := range pending {
		if m.Version <= current {
			continue
		}
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.Version)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
	}
	return nil
}

// SchemaVersion is the newest applied migration, zero for a fresh file.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// BindEmbeddingModel records model as the source of the stored vectors.
// Vectors from different models are not comparable, so binding a second
// model fails while chunks from the first remain. An empty index rebinds.
func (s *Store) BindEmbeddingModel(ctx context.Context, model string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var bound string
		err := tx.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", metaEmbeddingModel).Scan(&bound)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("reading embedding model: %w", err)
		case bound == model:
			return nil
		default:
			var chunks int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&chunks); err != nil {
				return fmt.Errorf("counting chunks: %w", err)
			}
			if chunks > 0 {
				return fmt.Errorf("%w: %s holds %d chunks embedded with %q, not %q; "+
					"switch embedding.model back or clear the index",
					domain.ErrInvalidInput, s.path, chunks, bound, model)
			}
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO index_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			metaEmbeddingModel, model)
		return err
	})
}

// EmbeddingModel returns the bound model, empty when none is bound.
func (s *Store) EmbeddingModel(ctx context.Context) (string, error) {
	var model string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", metaEmbeddingModel).Scan(&model)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return model, err
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
