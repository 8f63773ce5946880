package handlers

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clipforge/internal/domain"
	"clipforge/internal/middleware"
	"clipforge/internal/pipeline"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]domain.User)}
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = *user
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memProjects struct {
	mu       sync.Mutex
	projects map[string]domain.Project
}

func newMemProjects() *memProjects {
	return &memProjects{projects: make(map[string]domain.Project)}
}

func (m *memProjects) Create(_ context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	project.CreatedAt = time.Now()
	project.UpdatedAt = project.CreatedAt
	m.projects[project.ID] = *project
	return nil
}

func (m *memProjects) GetByID(_ context.Context, id string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &project, nil
}

func (m *memProjects) ListByUser(_ context.Context, userID string) ([]domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Project
	for _, project := range m.projects {
		if project.UserID == userID {
			out = append(out, project)
		}
	}
	return out, nil
}

func (m *memProjects) Update(_ context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[project.ID]; !ok {
		return domain.ErrNotFound
	}
	project.UpdatedAt = time.Now()
	m.projects[project.ID] = *project
	return nil
}

func (m *memProjects) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

type memVideoStore struct {
	mu     sync.Mutex
	videos map[string]domain.Video
}

func newMemVideoStore() *memVideoStore {
	return &memVideoStore{videos: make(map[string]domain.Video)}
}

func (m *memVideoStore) put(video domain.Video) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[video.ID] = video
}

func (m *memVideoStore) Create(_ context.Context, video *domain.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	video.CreatedAt = time.Now()
	video.UpdatedAt = video.CreatedAt
	m.videos[video.ID] = *video
	return nil
}

func (m *memVideoStore) GetByID(_ context.Context, id string) (*domain.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	video, ok := m.videos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &video, nil
}

func (m *memVideoStore) ListByProject(_ context.Context, projectID string) ([]domain.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Video
	for _, video := range m.videos {
		if video.ProjectID == projectID {
			out = append(out, video)
		}
	}
	return out, nil
}

func (m *memVideoStore) UpdateStatus(_ context.Context, id string, update domain.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	video, ok := m.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	if update.Status != nil {
		video.Status = *update.Status
	}
	if update.Progress != nil {
		video.Progress = *update.Progress
	}
	if update.ErrorMessage != nil {
		video.ErrorMessage = *update.ErrorMessage
	}
	if update.Artifacts != nil {
		video.Artifacts = *update.Artifacts
	}
	if update.ProcessedAt != nil {
		video.ProcessedAt = update.ProcessedAt
	}
	m.videos[id] = video
	return nil
}

func (m *memVideoStore) ClaimForProcessing(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	video, ok := m.videos[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if video.Status == domain.VideoStatusProcessing {
		return false, nil
	}
	video.Status = domain.VideoStatusProcessing
	video.Progress = 10
	video.ErrorMessage = ""
	video.Artifacts = domain.Artifacts{}
	video.ProcessedAt = nil
	m.videos[id] = video
	return true, nil
}

func (m *memVideoStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.videos[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.videos, id)
	return nil
}

func (m *memVideoStore) ListStalled(_ context.Context, olderThan time.Time) ([]domain.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Video
	for _, video := range m.videos {
		if video.Status == domain.VideoStatusProcessing && video.UpdatedAt.Before(olderThan) {
			out = append(out, video)
		}
	}
	return out, nil
}

// fakeProcessing records calls and replies with canned values so handler
// tests can assert routing and error mapping without running a pipeline.
type fakeProcessing struct {
	mu         sync.Mutex
	ack        *pipeline.Ack
	status     *pipeline.Status
	requestErr error
	statusErr  error
	gotVideoID string
	gotUserID  string
}

func (f *fakeProcessing) RequestProcessing(_ context.Context, videoID, requesterID string) (*pipeline.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotVideoID = videoID
	f.gotUserID = requesterID
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	if f.ack != nil {
		return f.ack, nil
	}
	return &pipeline.Ack{VideoID: videoID, Status: domain.VideoStatusProcessing}, nil
}

func (f *fakeProcessing) GetStatus(_ context.Context, videoID, requesterID string) (*pipeline.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotVideoID = videoID
	f.gotUserID = requesterID
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.status != nil {
		return f.status, nil
	}
	return &pipeline.Status{ID: videoID, Status: domain.VideoStatusProcessing, Progress: 10}, nil
}

func seedUser(t *testing.T, users *memUsers, email string) *domain.User {
	t.Helper()
	user := &domain.User{ID: uuid.NewString(), Email: email, Name: "Test User"}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedProject(t *testing.T, projects *memProjects, userID string) *domain.Project {
	t.Helper()
	project := &domain.Project{ID: uuid.NewString(), UserID: userID, Name: "Launch Teasers", Status: "active"}
	if err := projects.Create(context.Background(), project); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return project
}

func seedVideo(t *testing.T, videos *memVideoStore, projectID, ownerID string, status domain.VideoStatus) *domain.Video {
	t.Helper()
	video := &domain.Video{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		OwnerID:   ownerID,
		Title:     "demo take",
		Filename:  "demo.mp4",
		Filepath:  "uploads/demo.mp4",
		Duration:  42.5,
		Status:    status,
	}
	if err := videos.Create(context.Background(), video); err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return video
}

// withUser attaches the authenticated user and any route params to a request
// the way the middleware stack would in production.
func withUser(r *http.Request, userID string, params map[string]string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return r.WithContext(ctx)
}

func newTestApp() (*App, *memUsers, *memProjects, *memVideoStore, *fakeProcessing) {
	users := newMemUsers()
	projects := newMemProjects()
	videos := newMemVideoStore()
	proc := &fakeProcessing{}
	app := &App{
		Logger:     zerolog.Nop(),
		Users:      users,
		Projects:   projects,
		Videos:     videos,
		Processing: proc,
		JWTSecret:  "test-secret",
	}
	return app, users, projects, videos, proc
}
