package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/vidqa/internal/qa"
)

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	VideoID    string `json:"videoId"`
	VideoTitle string `json:"videoTitle"`
	Question   string `json:"question"`
}

// AskResponse is returned by POST /api/ask. Warning is set when the answer
// was saved but the video could not be added to the history.
type AskResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Warning  string `json:"warning,omitempty"`
}

const partialWarning = "answer saved but the video could not be added to the history"

// askFailed is the only error callers of ask ever see.
const askFailed = "could not produce an answer"

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			deps.Logger.WarnContext(r.Context(), "ask rejected", "kind", "invalid_body", "error", err)
			httpError(w, http.StatusInternalServerError, askFailed)
			return
		}

		entry, err := deps.Coordinator.AskAndRecord(r.Context(), req.VideoID, req.VideoTitle, req.Question)

		var sErr *qa.StoreFailure
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, AskResponse{Question: entry.Question, Answer: entry.Answer})
		case errors.As(err, &sErr) && sErr.Partial():
			writeJSON(w, http.StatusOK, AskResponse{
				Question: entry.Question,
				Answer:   entry.Answer,
				Warning:  partialWarning,
			})
		default:
			deps.Logger.ErrorContext(r.Context(), "ask failed",
				"kind", askErrorKind(err), "video_id", req.VideoID, "error", err)
			httpError(w, http.StatusInternalServerError, askFailed)
		}
	}
}

// askErrorKind names the failure for logs.
func askErrorKind(err error) string {
	var (
		vErr   *qa.ValidationError
		depErr *qa.DependencyFailure
		sErr   *qa.StoreFailure
	)
	switch {
	case errors.As(err, &vErr):
		return "validation"
	case errors.As(err, &depErr):
		return "dependency"
	case errors.As(err, &sErr):
		return "store:" + string(sErr.Op)
	default:
		return "unknown"
	}
}

func handleListQA(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := chi.URLParam(r, "videoId")

		entries, err := deps.Coordinator.ListQA(r.Context(), videoID)
		var vErr *qa.ValidationError
		if errors.As(err, &vErr) {
			httpError(w, http.StatusBadRequest, "%s", vErr.Error())
			return
		}
		if err != nil {
			deps.Logger.ErrorContext(r.Context(), "listing qa failed", "video_id", videoID, "error", err)
			httpError(w, http.StatusInternalServerError, "could not load the history")
			return
		}

		writeJSON(w, http.StatusOK, entries)
	}
}

func handleListVideos(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videos, err := deps.Coordinator.ListVideos(r.Context())
		if err != nil {
			deps.Logger.ErrorContext(r.Context(), "listing videos failed", "error", err)
			httpError(w, http.StatusInternalServerError, "could not load the video history")
			return
		}

		writeJSON(w, http.StatusOK, videos)
	}
}

func handleVideoTitle(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := chi.URLParam(r, "videoId")

		title, err := deps.Titles.Title(r.Context(), videoID)
		if err != nil {
			deps.Logger.WarnContext(r.Context(), "title lookup failed", "video_id", videoID, "error", err)
			httpError(w, http.StatusBadGateway, "could not look up the video title")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"videoId": videoID, "title": title})
	}
}
