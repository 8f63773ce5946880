package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clipforge/internal/domain"
)

// ListByProject returns newest-first, so the head of the slice is the
// project's most recent uploads.
const recentVideosPerProject = 3

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type projectDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Videos      []videoDTO `json:"videos,omitempty"`
}

func (a *App) ProjectsList(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	projects, err := a.Projects.ListByUser(r.Context(), userID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	out := make([]projectDTO, 0, len(projects))
	for i := range projects {
		videos, err := a.Videos.ListByProject(r.Context(), projects[i].ID)
		if err != nil {
			a.domainError(w, err)
			return
		}
		if len(videos) > recentVideosPerProject {
			videos = videos[:recentVideosPerProject]
		}
		projects[i].Videos = videos
		out = append(out, projectToDTO(&projects[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"projects": out})
}

func (a *App) ProjectsCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "project name required")
		return
	}
	if req.Status == "" {
		req.Status = "active"
	}

	project := &domain.Project{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Status:      req.Status,
	}
	if err := a.Projects.Create(r.Context(), project); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, projectToDTO(project))
}

func (a *App) ProjectsGet(w http.ResponseWriter, r *http.Request) {
	project, ok := a.ownedProject(w, r)
	if !ok {
		return
	}
	videos, err := a.Videos.ListByProject(r.Context(), project.ID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	project.Videos = videos
	a.json(w, http.StatusOK, projectToDTO(project))
}

func (a *App) ProjectsUpdate(w http.ResponseWriter, r *http.Request) {
	project, ok := a.ownedProject(w, r)
	if !ok {
		return
	}
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		project.Name = name
	}
	if req.Description != "" {
		project.Description = strings.TrimSpace(req.Description)
	}
	if req.Status != "" {
		project.Status = req.Status
	}
	if err := a.Projects.Update(r.Context(), project); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, projectToDTO(project))
}

// ProjectsDelete removes a project and its videos. Deletion is refused while
// any of the project's videos is being processed.
func (a *App) ProjectsDelete(w http.ResponseWriter, r *http.Request) {
	project, ok := a.ownedProject(w, r)
	if !ok {
		return
	}
	videos, err := a.Videos.ListByProject(r.Context(), project.ID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	for i := range videos {
		if videos[i].Status == domain.VideoStatusProcessing {
			a.error(w, http.StatusConflict, "conflict", "a video in this project is still processing")
			return
		}
	}
	if err := a.Projects.Delete(r.Context(), project.ID); err != nil {
		a.domainError(w, err)
		return
	}
	for i := range videos {
		a.removeVoiceoverBlob(r.Context(), &videos[i])
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ownedProject loads the project from the URL and enforces ownership. It
// writes the error response itself when the lookup or check fails.
func (a *App) ownedProject(w http.ResponseWriter, r *http.Request) (*domain.Project, bool) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return nil, false
	}
	project, err := a.Projects.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return nil, false
	}
	if project.UserID != userID {
		a.domainError(w, domain.ErrForbidden)
		return nil, false
	}
	return project, true
}

func projectToDTO(project *domain.Project) projectDTO {
	dto := projectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		Status:      project.Status,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
	for i := range project.Videos {
		dto.Videos = append(dto.Videos, videoToDTO(&project.Videos[i]))
	}
	return dto
}
