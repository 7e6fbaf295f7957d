package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var bg = context.Background()

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	indexes := []string{"idx_qa_entries_video", "idx_videos_video_id", "idx_videos_created"}
	for _, idx := range indexes {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

func TestSaveAndListQA(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		e := QAEntry{
			ID:        fmt.Sprintf("qa-%d", i),
			VideoID:   "v1",
			Question:  fmt.Sprintf("question %d", i),
			Answer:    fmt.Sprintf("answer %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
		if err := s.SaveQA(bg, e); err != nil {
			t.Fatalf("SaveQA: %v", err)
		}
	}
	if err := s.SaveQA(bg, QAEntry{ID: "other", VideoID: "v2", Question: "q", Answer: "a", CreatedAt: base}); err != nil {
		t.Fatalf("SaveQA: %v", err)
	}

	got, err := s.ListQA(bg, "v1")
	if err != nil {
		t.Fatalf("ListQA: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, e := range got {
		if e.ID != fmt.Sprintf("qa-%d", i) {
			t.Errorf("got[%d].ID = %q, want qa-%d", i, e.ID, i)
		}
		if !e.CreatedAt.Equal(base.Add(time.Duration(i) * time.Millisecond)) {
			t.Errorf("got[%d].CreatedAt = %v", i, e.CreatedAt)
		}
	}
}

func TestListQA_Empty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.ListQA(bg, "nothing-here")
	if err != nil {
		t.Fatalf("ListQA: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListQA = %#v, want empty non-nil slice", got)
	}
}

// TestRegisterVideo_FirstWriterWins verifies the unique index turns a second
// insert into a no-op and keeps the first title.
func TestRegisterVideo_FirstWriterWins(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	created, err := s.RegisterVideo(bg, VideoRecord{VideoID: "v1", Title: "First", CreatedAt: now})
	if err != nil {
		t.Fatalf("RegisterVideo: %v", err)
	}
	if !created {
		t.Error("first RegisterVideo reported created=false")
	}

	created, err = s.RegisterVideo(bg, VideoRecord{VideoID: "v1", Title: "Second", CreatedAt: now.Add(time.Second)})
	if err != nil {
		t.Fatalf("second RegisterVideo: %v", err)
	}
	if created {
		t.Error("second RegisterVideo reported created=true")
	}

	v, err := s.GetVideo(bg, "v1")
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if v.Title != "First" {
		t.Errorf("Title = %q, want %q", v.Title, "First")
	}
}

func TestRegisterVideo_Concurrent(t *testing.T) {
	s := openTestStore(t)

	const n = 16
	results := make([]bool, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			created, err := s.RegisterVideo(bg, VideoRecord{
				VideoID:   "fresh",
				Title:     fmt.Sprintf("title %d", i),
				CreatedAt: time.Now(),
			})
			results[i] = created
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("RegisterVideo: %v", err)
	}

	createdCount := 0
	for _, c := range results {
		if c {
			createdCount++
		}
	}
	if createdCount != 1 {
		t.Errorf("created count = %d, want 1", createdCount)
	}

	videos, err := s.ListVideos(bg)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(videos) != 1 {
		t.Errorf("len(videos) = %d, want 1", len(videos))
	}
}

func TestGetVideoNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetVideo(bg, "missing")
	if err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListVideos_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	// Insert out of order to prove the sort is on created_at.
	for _, v := range []VideoRecord{
		{VideoID: "b", Title: "B", CreatedAt: t2},
		{VideoID: "c", Title: "C", CreatedAt: t3},
		{VideoID: "a", Title: "A", CreatedAt: t1},
	} {
		if _, err := s.RegisterVideo(bg, v); err != nil {
			t.Fatalf("RegisterVideo(%s): %v", v.VideoID, err)
		}
	}

	got, err := s.ListVideos(bg)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	want := []string{"c", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].VideoID != id {
			t.Errorf("got[%d].VideoID = %q, want %q", i, got[i].VideoID, id)
		}
	}
}

func TestUnregisteredVideoIDs(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	for i, vid := range []string{"orphan-1", "known", "orphan-2", "orphan-1"} {
		e := QAEntry{ID: fmt.Sprintf("e%d", i), VideoID: vid, Question: "q", Answer: "a", CreatedAt: now}
		if err := s.SaveQA(bg, e); err != nil {
			t.Fatalf("SaveQA: %v", err)
		}
	}
	if _, err := s.RegisterVideo(bg, VideoRecord{VideoID: "known", Title: "Known", CreatedAt: now}); err != nil {
		t.Fatalf("RegisterVideo: %v", err)
	}

	ids, err := s.UnregisteredVideoIDs(bg)
	if err != nil {
		t.Fatalf("UnregisteredVideoIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "orphan-1" || ids[1] != "orphan-2" {
		t.Errorf("ids = %v, want [orphan-1 orphan-2]", ids)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2025, 6, 7, 8, 9, 10, 123456789, time.FixedZone("X", 3600))
	got, err := ParseTime(FormatTime(in))
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if !got.Equal(in) {
		t.Errorf("round trip = %v, want %v", got, in)
	}
}
