package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding Q&A entries and video history.
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
		dsn = filepath.Join(dataDir, "vidqa.db")
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

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

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

// --- Q&A entries ---

// SaveQA appends a Q&A entry.
func (s *Store) SaveQA(ctx context.Context, e QAEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO qa_entries (id, video_id, question, answer, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.VideoID, e.Question, e.Answer, FormatTime(e.CreatedAt),
	)
	return err
}

// ListQA returns all entries for videoID in insertion order.
func (s *Store) ListQA(ctx context.Context, videoID string) ([]QAEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_id, question, answer, created_at
		FROM qa_entries WHERE video_id = ? ORDER BY created_at ASC, seq ASC`, videoID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []QAEntry{}
	for rows.Next() {
		var e QAEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.VideoID, &e.Question, &e.Answer, &createdAt); err != nil {
			return nil, err
		}
		t, err := ParseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		e.CreatedAt = t
		results = append(results, e)
	}
	return results, rows.Err()
}

// --- Videos ---

// RegisterVideo inserts v unless a record with the same VideoID exists.
// It reports whether a new row was written; an existing row is left untouched.
func (s *Store) RegisterVideo(ctx context.Context, v VideoRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (video_id, title, created_at) VALUES (?, ?, ?)
		ON CONFLICT(video_id) DO NOTHING`,
		v.VideoID, v.Title, FormatTime(v.CreatedAt),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetVideo returns the record for videoID or ErrNotFound.
func (s *Store) GetVideo(ctx context.Context, videoID string) (VideoRecord, error) {
	var v VideoRecord
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT video_id, title, created_at FROM videos WHERE video_id = ?`, videoID,
	).Scan(&v.VideoID, &v.Title, &createdAt)
	if err == sql.ErrNoRows {
		return VideoRecord{}, ErrNotFound
	}
	if err != nil {
		return VideoRecord{}, err
	}
	t, err := ParseTime(createdAt)
	if err != nil {
		return VideoRecord{}, fmt.Errorf("parsing created_at: %w", err)
	}
	v.CreatedAt = t
	return v, nil
}

// ListVideos returns every video record, most recently registered first.
func (s *Store) ListVideos(ctx context.Context) ([]VideoRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT video_id, title, created_at
		FROM videos ORDER BY created_at DESC, seq DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []VideoRecord{}
	for rows.Next() {
		var v VideoRecord
		var createdAt string
		if err := rows.Scan(&v.VideoID, &v.Title, &createdAt); err != nil {
			return nil, err
		}
		t, err := ParseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		v.CreatedAt = t
		results = append(results, v)
	}
	return results, rows.Err()
}

// UnregisteredVideoIDs returns video IDs that have Q&A entries but no video
// record, ordered by their first entry.
func (s *Store) UnregisteredVideoIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.video_id
		FROM qa_entries q LEFT JOIN videos v ON v.video_id = q.video_id
		WHERE v.video_id IS NULL
		GROUP BY q.video_id
		ORDER BY MIN(q.seq) ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
