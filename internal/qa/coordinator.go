// Package qa coordinates asking questions about a video and recording the
// answers. It owns the two invariants of the history: Q&A entries are
// append-only, and each video is registered at most once.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/vidqa/internal/inference"
	"github.com/kalambet/vidqa/internal/storage"
)

const defaultWriteTimeout = 5 * time.Second

// Gateway produces an answer for a question.
type Gateway interface {
	Answer(ctx context.Context, question string) (string, error)
}

// Store persists Q&A entries and video records. RegisterVideo must be
// insert-or-ignore on VideoID, enforced by the storage layer.
type Store interface {
	SaveQA(ctx context.Context, e storage.QAEntry) error
	RegisterVideo(ctx context.Context, v storage.VideoRecord) (created bool, err error)
	ListQA(ctx context.Context, videoID string) ([]storage.QAEntry, error)
	ListVideos(ctx context.Context) ([]storage.VideoRecord, error)
	UnregisteredVideoIDs(ctx context.Context) ([]string, error)
}

// TitleResolver looks up a human-readable video title.
type TitleResolver interface {
	Title(ctx context.Context, videoID string) (string, error)
}

// Deps holds the Coordinator's collaborators.
type Deps struct {
	Gateway      Gateway
	Store        Store
	Titles       TitleResolver    // optional; only used by Reconcile
	WriteTimeout time.Duration    // per store write; defaults to 5s
	Logger       *slog.Logger     // defaults to slog.Default()
	Now          func() time.Time // defaults to time.Now
}

// Coordinator implements ask-and-record and the history reads.
type Coordinator struct {
	gateway      Gateway
	store        Store
	titles       TitleResolver
	writeTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// New creates a Coordinator from deps.
func New(deps Deps) *Coordinator {
	c := &Coordinator{
		gateway:      deps.Gateway,
		store:        deps.Store,
		titles:       deps.Titles,
		writeTimeout: deps.WriteTimeout,
		logger:       deps.Logger,
		now:          deps.Now,
	}
	if c.writeTimeout <= 0 {
		c.writeTimeout = defaultWriteTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// AskAndRecord answers question, appends the Q&A entry for videoID and
// registers the video if it is new.
//
// Nothing is written when the gateway fails. If only the video registration
// fails, the saved entry is returned together with a *StoreFailure whose
// Partial method reports true.
func (c *Coordinator) AskAndRecord(ctx context.Context, videoID, videoTitle, question string) (storage.QAEntry, error) {
	if strings.TrimSpace(videoID) == "" {
		return storage.QAEntry{}, &ValidationError{Field: "videoId", Reason: "must not be empty"}
	}
	if strings.TrimSpace(question) == "" {
		return storage.QAEntry{}, &ValidationError{Field: "question", Reason: "must not be empty"}
	}

	answer, err := c.gateway.Answer(ctx, question)
	if err != nil {
		c.logger.WarnContext(ctx, "inference failed", "video_id", videoID, "error", err)
		return storage.QAEntry{}, &DependencyFailure{Err: err}
	}
	if answer == inference.FallbackAnswer {
		c.logger.WarnContext(ctx, "inference returned no usable text", "video_id", videoID)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return storage.QAEntry{}, fmt.Errorf("generating entry id: %w", err)
	}
	entry := storage.QAEntry{
		ID:        id.String(),
		VideoID:   videoID,
		Question:  question,
		Answer:    answer,
		CreatedAt: c.now().UTC(),
	}
	if err := c.withWriteTimeout(ctx, func(ctx context.Context) error {
		return c.store.SaveQA(ctx, entry)
	}); err != nil {
		c.logger.ErrorContext(ctx, "saving qa entry failed", "video_id", videoID, "error", err)
		return storage.QAEntry{}, &StoreFailure{Op: OpSaveQA, Err: err}
	}

	title := strings.TrimSpace(videoTitle)
	if title == "" {
		title = storage.UnknownTitle
	}
	created, err := c.registerVideo(ctx, videoID, title)
	if err != nil {
		c.logger.ErrorContext(ctx, "video registration failed, history may be incomplete",
			"video_id", videoID, "qa_id", entry.ID, "error", err)
		return entry, &StoreFailure{Op: OpRegisterVideo, Err: err}
	}
	if created {
		c.logger.DebugContext(ctx, "registered video", "video_id", videoID, "title", title)
	}

	return entry, nil
}

// ListQA returns every entry for videoID in the order they were recorded.
func (c *Coordinator) ListQA(ctx context.Context, videoID string) ([]storage.QAEntry, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, &ValidationError{Field: "videoId", Reason: "must not be empty"}
	}
	entries, err := c.store.ListQA(ctx, videoID)
	if err != nil {
		return nil, &StoreFailure{Op: OpListQA, Err: err}
	}
	if entries == nil {
		entries = []storage.QAEntry{}
	}
	return entries, nil
}

// ListVideos returns the video history, most recently first seen first.
func (c *Coordinator) ListVideos(ctx context.Context) ([]storage.VideoRecord, error) {
	videos, err := c.store.ListVideos(ctx)
	if err != nil {
		return nil, &StoreFailure{Op: OpListVideos, Err: err}
	}
	if videos == nil {
		videos = []storage.VideoRecord{}
	}
	return videos, nil
}

// Reconcile registers videos that have Q&A entries but no video record,
// which happens after a partial AskAndRecord. Titles come from the
// TitleResolver when one is configured. It returns the number of videos
// registered.
func (c *Coordinator) Reconcile(ctx context.Context) (int, error) {
	ids, err := c.store.UnregisteredVideoIDs(ctx)
	if err != nil {
		return 0, &StoreFailure{Op: OpReconcile, Err: err}
	}

	registered := 0
	for _, id := range ids {
		title := c.resolveTitle(ctx, id)
		created, err := c.registerVideo(ctx, id, title)
		if err != nil {
			return registered, &StoreFailure{Op: OpRegisterVideo, Err: err}
		}
		if created {
			registered++
			c.logger.InfoContext(ctx, "reconciled video", "video_id", id, "title", title)
		}
	}
	return registered, nil
}

func (c *Coordinator) resolveTitle(ctx context.Context, videoID string) string {
	if c.titles == nil {
		return storage.UnknownTitle
	}
	title, err := c.titles.Title(ctx, videoID)
	if err != nil {
		c.logger.WarnContext(ctx, "title lookup failed", "video_id", videoID, "error", err)
		return storage.UnknownTitle
	}
	if strings.TrimSpace(title) == "" {
		return storage.UnknownTitle
	}
	return title
}

func (c *Coordinator) registerVideo(ctx context.Context, videoID, title string) (bool, error) {
	var created bool
	err := c.withWriteTimeout(ctx, func(ctx context.Context) error {
		var err error
		created, err = c.store.RegisterVideo(ctx, storage.VideoRecord{
			VideoID:   videoID,
			Title:     title,
			CreatedAt: c.now().UTC(),
		})
		return err
	})
	return created, err
}

func (c *Coordinator) withWriteTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return fn(ctx)
}
