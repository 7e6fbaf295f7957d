package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"

	"github.com/kalambet/vidqa/internal/storage"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return New(db), mock, db
}

var ctx = context.Background()

func TestSaveQA(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO qa_entries \(id, video_id, question, answer, created_at\)`).
		WithArgs("qa-1", "v1", "What is shown?", "A cat", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SaveQA(ctx, storage.QAEntry{ID: "qa-1", VideoID: "v1", Question: "What is shown?", Answer: "A cat", CreatedAt: now})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveQA_DBError(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	boom := errors.New("boom")
	mock.ExpectExec(`INSERT INTO qa_entries`).WillReturnError(boom)

	err := s.SaveQA(ctx, storage.QAEntry{ID: "x", VideoID: "v", CreatedAt: time.Now()})
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped boom, got %v", err)
	}
}

func TestRegisterVideo_Inserted(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO videos .* ON CONFLICT \(video_id\) DO NOTHING`).
		WithArgs("v1", "My Video", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := s.RegisterVideo(ctx, storage.VideoRecord{VideoID: "v1", Title: "My Video", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("created = false, want true")
	}
}

func TestRegisterVideo_ConflictIsNoop(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO videos .* ON CONFLICT \(video_id\) DO NOTHING`).
		WithArgs("v1", "Other", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := s.RegisterVideo(ctx, storage.VideoRecord{VideoID: "v1", Title: "Other", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("created = true, want false")
	}
}

func TestRegisterVideo_UnexpectedRows(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO videos`).WillReturnResult(sqlmock.NewResult(0, 2))

	if _, err := s.RegisterVideo(ctx, storage.VideoRecord{VideoID: "v1", CreatedAt: time.Now()}); err == nil {
		t.Fatal("expected error for 2 rows affected")
	}
}

func TestListQA(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "video_id", "question", "answer", "created_at"}).
		AddRow("a", "v1", "q1", "a1", t1).
		AddRow("b", "v1", "q2", "a2", t1.Add(time.Second))
	mock.ExpectQuery(`SELECT id, video_id, question, answer, created_at FROM qa_entries WHERE video_id = \$1 ORDER BY created_at ASC, seq ASC`).
		WithArgs("v1").
		WillReturnRows(rows)

	got, err := s.ListQA(ctx, "v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("got %+v", got)
	}
}

func TestListQA_Empty(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM qa_entries`).
		WithArgs("none").
		WillReturnRows(sqlmock.NewRows([]string{"id", "video_id", "question", "answer", "created_at"}))

	got, err := s.ListQA(ctx, "none")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %#v, want empty slice", got)
	}
}

func TestListVideos_Order(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"video_id", "title", "created_at"}).
		AddRow("c", "C", t1.Add(2*time.Hour)).
		AddRow("a", "A", t1)
	mock.ExpectQuery(`FROM videos ORDER BY created_at DESC, seq DESC`).WillReturnRows(rows)

	got, err := s.ListVideos(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].VideoID != "c" {
		t.Fatalf("got %+v", got)
	}
}

func TestGetVideo_NotFound(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM videos WHERE video_id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetVideo(ctx, "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUnregisteredVideoIDs(t *testing.T) {
	s, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`LEFT JOIN videos v ON v.video_id = q.video_id WHERE v.video_id IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"video_id"}).AddRow("o1").AddRow("o2"))

	ids, err := s.UnregisteredVideoIDs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "o1" || ids[1] != "o2" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestRunMigrations_UsesGoose(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	called := false
	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, gotDB *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		called = true
		if gotDB != db {
			t.Error("goose received a different *sql.DB")
		}
		if dir != "." {
			t.Errorf("dir = %q, want %q", dir, ".")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if !called {
		t.Fatal("goose.UpContext was not called")
	}
}

func TestRunMigrations_PropagatesError(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	boom := errors.New("migrate failed")
	orig := gooseUpContext
	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error { return boom }
	defer func() { gooseUpContext = orig }()

	if err := RunMigrations(ctx, db); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
}

func TestOpen_EmptyDSN(t *testing.T) {
	if _, err := Open(ctx, ""); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}
