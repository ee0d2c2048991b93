package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// schemaVersion bumps whenever the table layout changes. A store created by
// a different version is dropped and rebuilt; worst case is one full rebuild.
const schemaVersion = 1

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the cache database at dbPath. A corrupt
// or version-incompatible database is reset to empty rather than reported as
// an error.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		// Unreadable state is recovered by starting over, not by failing
		// the build.
		slog.Warn("Cache database unusable, resetting", "path", dbPath, "error", err)
		_ = db.Close()
		if rmErr := os.Remove(dbPath); rmErr != nil {
			return nil, fmt.Errorf("reset cache database: %w", rmErr)
		}
		db, err = sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("reopen cache database: %w", err)
		}
		store = &SQLiteStore{db: db}
		if err := store.initialize(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialize cache schema: %w", err)
		}
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_info (
		version INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS formats (
		project TEXT NOT NULL,
		format TEXT NOT NULL,
		metadata_hash TEXT NOT NULL,
		template_fingerprint TEXT NOT NULL,
		artifact TEXT NOT NULL,
		built_at INTEGER NOT NULL,
		PRIMARY KEY (project, format)
	);
	CREATE TABLE IF NOT EXISTS files (
		project TEXT NOT NULL,
		format TEXT NOT NULL,
		path TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		PRIMARY KEY (project, format, path)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_info LIMIT 1").Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.Exec("INSERT INTO schema_info (version) VALUES (?)", schemaVersion)
		return err
	case err != nil:
		return err
	case version != schemaVersion:
		return fmt.Errorf("schema version %d, expected %d", version, schemaVersion)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, project, format string) (FormatState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var state FormatState
	err := s.db.QueryRowContext(ctx,
		"SELECT metadata_hash, template_fingerprint, artifact FROM formats WHERE project = ? AND format = ?",
		project, format,
	).Scan(&state.MetadataHash, &state.TemplateFingerprint, &state.Artifact)
	if err == sql.ErrNoRows {
		return FormatState{}, false, nil
	}
	if err != nil {
		return FormatState{}, false, fmt.Errorf("load format state: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT path, fingerprint FROM files WHERE project = ? AND format = ?",
		project, format,
	)
	if err != nil {
		return FormatState{}, false, fmt.Errorf("load file state: %w", err)
	}
	defer rows.Close()

	state.Fragments = make(map[string]string)
	for rows.Next() {
		var path, fp string
		if err := rows.Scan(&path, &fp); err != nil {
			return FormatState{}, false, fmt.Errorf("scan file state: %w", err)
		}
		state.Fragments[path] = fp
	}
	if err := rows.Err(); err != nil {
		return FormatState{}, false, fmt.Errorf("iterate file state: %w", err)
	}

	return state, true, nil
}

// Save implements Store. The replace is transactional so a crash never leaves
// a half-written state behind.
func (s *SQLiteStore) Save(ctx context.Context, project, format string, state FormatState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO formats (project, format, metadata_hash, template_fingerprint, artifact, built_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project, format) DO UPDATE SET
		   metadata_hash = excluded.metadata_hash,
		   template_fingerprint = excluded.template_fingerprint,
		   artifact = excluded.artifact,
		   built_at = excluded.built_at`,
		project, format, state.MetadataHash, state.TemplateFingerprint, state.Artifact, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save format state: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM files WHERE project = ? AND format = ?", project, format,
	); err != nil {
		return fmt.Errorf("clear file state: %w", err)
	}
	for path, fp := range state.Fragments {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO files (project, format, path, fingerprint) VALUES (?, ?, ?, ?)",
			project, format, path, fp,
		); err != nil {
			return fmt.Errorf("save file state: %w", err)
		}
	}

	return tx.Commit()
}

// Reset implements Store.
func (s *SQLiteStore) Reset(ctx context.Context, project string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM formats WHERE project = ?", project); err != nil {
		return fmt.Errorf("reset format state: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE project = ?", project); err != nil {
		return fmt.Errorf("reset file state: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, project string) ([]Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT f.format, f.artifact, f.metadata_hash, f.built_at,
		        (SELECT COUNT(*) FROM files WHERE project = f.project AND format = f.format)
		 FROM formats f WHERE f.project = ? ORDER BY f.format`,
		project,
	)
	if err != nil {
		return nil, fmt.Errorf("list cache state: %w", err)
	}
	defer rows.Close()

	var statuses []Status
	for rows.Next() {
		var st Status
		var builtAt int64
		if err := rows.Scan(&st.Format, &st.Artifact, &st.MetadataHash, &builtAt, &st.Fragments); err != nil {
			return nil, fmt.Errorf("scan cache state: %w", err)
		}
		st.BuiltAt = time.Unix(builtAt, 0)
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
