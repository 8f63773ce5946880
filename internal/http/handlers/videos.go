package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clipforge/internal/domain"
)

type registerVideoRequest struct {
	ProjectID   string  `json:"projectId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Filename    string  `json:"filename"`
	Filepath    string  `json:"filepath"`
	Filesize    int64   `json:"filesize"`
	Filetype    string  `json:"filetype"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail"`
}

type videoDTO struct {
	ID                 string     `json:"id"`
	ProjectID          string     `json:"projectId"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Filename           string     `json:"filename"`
	Filepath           string     `json:"filepath"`
	Filesize           int64      `json:"filesize"`
	Filetype           string     `json:"filetype"`
	Duration           float64    `json:"duration"`
	Thumbnail          string     `json:"thumbnail,omitempty"`
	Status             string     `json:"status"`
	ProcessingProgress int        `json:"processingProgress"`
	ErrorMessage       string     `json:"errorMessage,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	ProcessedAt        *time.Time `json:"processedAt,omitempty"`
}

type videoDetailDTO struct {
	videoDTO
	Transcript string          `json:"transcript,omitempty"`
	AIScript   string          `json:"aiScript,omitempty"`
	Captions   json.RawMessage `json:"captions,omitempty"`
	Cuts       json.RawMessage `json:"cuts,omitempty"`
	Voiceover  string          `json:"voiceover,omitempty"`
	ZoomPoints json.RawMessage `json:"zoomPoints,omitempty"`
}

// VideosCreate registers an already uploaded media file under a project.
func (a *App) VideosCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req registerVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "projectId required")
		return
	}
	if strings.TrimSpace(req.Filepath) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "filepath required")
		return
	}

	project, err := a.Projects.GetByID(r.Context(), req.ProjectID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if project.UserID != userID {
		a.domainError(w, domain.ErrForbidden)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.Filename
	}
	video := &domain.Video{
		ID:          uuid.NewString(),
		ProjectID:   project.ID,
		OwnerID:     userID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Filename:    req.Filename,
		Filepath:    req.Filepath,
		Filesize:    req.Filesize,
		Filetype:    req.Filetype,
		Duration:    req.Duration,
		Thumbnail:   req.Thumbnail,
		Status:      domain.VideoStatusPending,
	}
	if err := a.Videos.Create(r.Context(), video); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, videoToDTO(video))
}

// VideosByProject lists a project's videos, newest first.
func (a *App) VideosByProject(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	project, err := a.Projects.GetByID(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	if project.UserID != userID {
		a.domainError(w, domain.ErrForbidden)
		return
	}
	videos, err := a.Videos.ListByProject(r.Context(), project.ID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	out := make([]videoDTO, 0, len(videos))
	for i := range videos {
		out = append(out, videoToDTO(&videos[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"videos": out})
}

func (a *App) VideosGet(w http.ResponseWriter, r *http.Request) {
	video, ok := a.ownedVideo(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, videoToDetailDTO(video))
}

// VideosProcess launches the enhancement pipeline for a video. The response
// acknowledges the launch; progress and outcome are observed via VideosStatus.
func (a *App) VideosProcess(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	ack, err := a.Processing.RequestProcessing(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, ack)
}

func (a *App) VideosStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	status, err := a.Processing.GetStatus(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, status)
}

// VideosDelete removes a video record. Deletion is refused while the video
// is being processed so a runner never writes into a deleted row.
func (a *App) VideosDelete(w http.ResponseWriter, r *http.Request) {
	video, ok := a.ownedVideo(w, r)
	if !ok {
		return
	}
	if video.Status == domain.VideoStatusProcessing {
		a.error(w, http.StatusConflict, "conflict", "video is still processing")
		return
	}
	if err := a.Videos.Delete(r.Context(), video.ID); err != nil {
		a.domainError(w, err)
		return
	}
	a.removeVoiceoverBlob(r.Context(), video)
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *App) ownedVideo(w http.ResponseWriter, r *http.Request) (*domain.Video, bool) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return nil, false
	}
	video, err := a.Videos.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return nil, false
	}
	if video.OwnerID != userID {
		a.domainError(w, domain.ErrForbidden)
		return nil, false
	}
	return video, true
}

// removeVoiceoverBlob clears a generated voiceover from blob storage. The
// record is already gone, so failures are logged and swallowed.
func (a *App) removeVoiceoverBlob(ctx context.Context, video *domain.Video) {
	key := video.Artifacts.Voiceover
	if key == "" || a.Blobs == nil {
		return
	}
	if err := a.Blobs.Remove(ctx, key); err != nil {
		a.Logger.Warn().Err(err).Str("video_id", video.ID).Msg("remove voiceover blob failed")
	}
}

func videoToDTO(video *domain.Video) videoDTO {
	return videoDTO{
		ID:                 video.ID,
		ProjectID:          video.ProjectID,
		Title:              video.Title,
		Description:        video.Description,
		Filename:           video.Filename,
		Filepath:           video.Filepath,
		Filesize:           video.Filesize,
		Filetype:           video.Filetype,
		Duration:           video.Duration,
		Thumbnail:          video.Thumbnail,
		Status:             string(video.Status),
		ProcessingProgress: video.Progress,
		ErrorMessage:       video.ErrorMessage,
		CreatedAt:          video.CreatedAt,
		UpdatedAt:          video.UpdatedAt,
		ProcessedAt:        video.ProcessedAt,
	}
}

func videoToDetailDTO(video *domain.Video) videoDetailDTO {
	return videoDetailDTO{
		videoDTO:   videoToDTO(video),
		Transcript: video.Artifacts.Transcript,
		AIScript:   video.Artifacts.AIScript,
		Captions:   video.Artifacts.Captions,
		Cuts:       video.Artifacts.Cuts,
		Voiceover:  video.Artifacts.Voiceover,
		ZoomPoints: video.Artifacts.ZoomPoints,
	}
}
