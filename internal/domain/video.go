package domain

import (
	"encoding/json"
	"time"
)

// VideoStatus enumerates the processing lifecycle states of a video.
type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "pending"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

// Terminal reports whether the status accepts no further runner writes.
func (s VideoStatus) Terminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

// Artifacts bundles the outputs of a successful enhancement run. The
// structured payloads (captions, cuts, zoom points) are owned by the
// enhancer; they are stored and returned verbatim.
type Artifacts struct {
	Transcript string
	AIScript   string
	Captions   json.RawMessage
	Cuts       json.RawMessage
	Voiceover  string
	ZoomPoints json.RawMessage
}

// Video represents an uploaded media item and its processing state.
type Video struct {
	ID          string
	ProjectID   string
	OwnerID     string // owner of the parent project, populated on reads
	Title       string
	Description string
	Filename    string
	Filepath    string
	Filesize    int64
	Filetype    string
	Duration    float64
	Thumbnail   string

	Status       VideoStatus
	Progress     int
	ErrorMessage string
	Artifacts    Artifacts

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}

// StatusUpdate carries a partial write against a video's processing state.
// Nil fields are left untouched by the store.
type StatusUpdate struct {
	Status       *VideoStatus
	Progress     *int
	ErrorMessage *string
	Artifacts    *Artifacts
	ProcessedAt  *time.Time
}
