// Package postgres provides a PostgreSQL-backed store for Q&A entries and
// video history. Schema changes are applied with goose from embedded
// migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/kalambet/vidqa/internal/storage"
	"github.com/kalambet/vidqa/internal/storage/postgres/migrations"
)

// Store implements the Q&A store over a *sql.DB opened with the pgx driver.
type Store struct {
	db *sql.DB
}

// New wraps an existing connection pool. Migrations are not run.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn, verifies the connection and applies pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return New(db), nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveQA appends a Q&A entry.
func (s *Store) SaveQA(ctx context.Context, e storage.QAEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO qa_entries (id, video_id, question, answer, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.VideoID, e.Question, e.Answer, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListQA returns all entries for videoID in insertion order.
func (s *Store) ListQA(ctx context.Context, videoID string) ([]storage.QAEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_id, question, answer, created_at
		FROM qa_entries WHERE video_id = $1 ORDER BY created_at ASC, seq ASC`, videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	results := []storage.QAEntry{}
	for rows.Next() {
		var e storage.QAEntry
		if err := rows.Scan(&e.ID, &e.VideoID, &e.Question, &e.Answer, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		results = append(results, e)
	}
	return results, rows.Err()
}

// RegisterVideo inserts v unless the video is already known. The unique
// index on video_id settles concurrent first registrations.
func (s *Store) RegisterVideo(ctx context.Context, v storage.VideoRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (video_id, title, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (video_id) DO NOTHING`,
		v.VideoID, v.Title, v.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// GetVideo returns the record for videoID or storage.ErrNotFound.
func (s *Store) GetVideo(ctx context.Context, videoID string) (storage.VideoRecord, error) {
	var v storage.VideoRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT video_id, title, created_at FROM videos WHERE video_id = $1`, videoID,
	).Scan(&v.VideoID, &v.Title, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.VideoRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.VideoRecord{}, fmt.Errorf("db error: %w", err)
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return v, nil
}

// ListVideos returns every video record, most recently registered first.
func (s *Store) ListVideos(ctx context.Context) ([]storage.VideoRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT video_id, title, created_at
		FROM videos ORDER BY created_at DESC, seq DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	results := []storage.VideoRecord{}
	for rows.Next() {
		var v storage.VideoRecord
		if err := rows.Scan(&v.VideoID, &v.Title, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		v.CreatedAt = v.CreatedAt.UTC()
		results = append(results, v)
	}
	return results, rows.Err()
}

// UnregisteredVideoIDs returns video IDs with Q&A entries but no video record.
func (s *Store) UnregisteredVideoIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.video_id
		FROM qa_entries q LEFT JOIN videos v ON v.video_id = q.video_id
		WHERE v.video_id IS NULL
		GROUP BY q.video_id
		ORDER BY MIN(q.seq) ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
