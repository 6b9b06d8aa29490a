package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the search history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "phoneadvisor.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Searches ---

// SaveSearch inserts s. CreatedAt defaults to now.
func (s *Store) SaveSearch(sr Search) error {
	if sr.CreatedAt.IsZero() {
		sr.CreatedAt = time.Now()
	}
	if sr.ConstraintsJSON == "" {
		sr.ConstraintsJSON = "{}"
	}
	_, err := s.db.Exec(`
		INSERT INTO searches (id, created_at, session_id, mode, query, constraints_json, result_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sr.ID, sr.CreatedAt.UTC().Format(time.RFC3339), sr.SessionID, sr.Mode,
		sr.Query, sr.ConstraintsJSON, sr.ResultCount,
	)
	return err
}

func (s *Store) GetSearch(id string) (Search, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, session_id, mode, query, constraints_json, result_count
		FROM searches WHERE id = ?`, id,
	)
	sr, err := scanSearch(row)
	if err == sql.ErrNoRows {
		return Search{}, ErrNotFound
	}
	return sr, err
}

// ListSearches returns searches newest first. A non-positive limit
// defaults to 50.
func (s *Store) ListSearches(limit, offset int) ([]Search, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(`
		SELECT id, created_at, session_id, mode, query, constraints_json, result_count
		FROM searches ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Search
	for rows.Next() {
		sr, err := scanSearch(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, sr)
	}
	return results, rows.Err()
}

// CountSearches returns the number of stored searches.
func (s *Store) CountSearches() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM searches").Scan(&n)
	return n, err
}

func (s *Store) DeleteSearch(id string) error {
	res, err := s.db.Exec(`DELETE FROM searches WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PruneSearches deletes searches created before cutoff and returns how many
// were removed.
func (s *Store) PruneSearches(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM searches WHERE created_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSearch(r rowScanner) (Search, error) {
	var sr Search
	var createdAt string
	if err := r.Scan(&sr.ID, &createdAt, &sr.SessionID, &sr.Mode, &sr.Query, &sr.ConstraintsJSON, &sr.ResultCount); err != nil {
		return Search{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Search{}, fmt.Errorf("parsing created_at: %w", err)
	}
	sr.CreatedAt = t
	return sr, nil
}
