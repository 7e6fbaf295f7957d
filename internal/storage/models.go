package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// UnknownTitle is stored for videos registered without a title.
const UnknownTitle = "Unknown Video"

// QAEntry is one answered question. Entries are append-only.
type QAEntry struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"createdAt"`
}

// VideoRecord marks a video the user has asked about at least once.
// VideoID is unique across all records.
type VideoRecord struct {
	VideoID   string    `json:"videoId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// timeLayout is fixed-width UTC so that text comparison in SQL matches
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in the layout used by the SQL backends.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime parses a timestamp written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
