package pipeline

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"clipforge/internal/domain"
	"clipforge/internal/providers/ai"
)

type memVideos struct {
	mu          sync.Mutex
	videos      map[string]*domain.Video
	progressLog map[string][]int
	failAt      int // progress value whose write should fail, 0 disables
}

func newMemVideos() *memVideos {
	return &memVideos{
		videos:      make(map[string]*domain.Video),
		progressLog: make(map[string][]int),
	}
}

func (m *memVideos) add(v domain.Video) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := v
	m.videos[v.ID] = &copied
}

func (m *memVideos) Create(ctx context.Context, v *domain.Video) error {
	m.add(*v)
	return nil
}

func (m *memVideos) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *v
	return &copied, nil
}

func (m *memVideos) ListByProject(ctx context.Context, projectID string) ([]domain.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Video
	for _, v := range m.videos {
		if v.ProjectID == projectID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *memVideos) UpdateStatus(ctx context.Context, id string, update domain.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return domain.ErrNotFound
	}
	if update.Status == nil && update.Progress != nil {
		if m.failAt != 0 && *update.Progress >= m.failAt {
			return errors.New("store unavailable")
		}
		if v.Status != domain.VideoStatusProcessing {
			return domain.ErrConflict
		}
	}
	if update.Status != nil {
		v.Status = *update.Status
	}
	if update.Progress != nil {
		v.Progress = *update.Progress
		m.progressLog[id] = append(m.progressLog[id], *update.Progress)
	}
	if update.ErrorMessage != nil {
		v.ErrorMessage = *update.ErrorMessage
	}
	if update.Artifacts != nil {
		v.Artifacts = *update.Artifacts
	}
	if update.ProcessedAt != nil {
		t := *update.ProcessedAt
		v.ProcessedAt = &t
	}
	v.UpdatedAt = time.Now()
	return nil
}

func (m *memVideos) ClaimForProcessing(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return false, nil
	}
	if v.Status == domain.VideoStatusProcessing {
		return false, nil
	}
	v.Status = domain.VideoStatusProcessing
	v.Progress = 10
	v.ErrorMessage = ""
	v.Artifacts = domain.Artifacts{}
	v.ProcessedAt = nil
	v.UpdatedAt = time.Now()
	m.progressLog[id] = append(m.progressLog[id], 10)
	return true, nil
}

func (m *memVideos) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.videos, id)
	return nil
}

func (m *memVideos) ListStalled(ctx context.Context, olderThan time.Time) ([]domain.Video, error) {
	return nil, nil
}

type stubEnhancer struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, req ai.Request) (*ai.Result, error)
}

func (s *stubEnhancer) Enhance(ctx context.Context, req ai.Request) (*ai.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(ctx, req)
	}
	return &ai.Result{
		Transcript: "hello world",
		AIScript:   "script for " + req.Title,
		Captions:   []byte(`[{"start":0,"end":5,"text":"hello"}]`),
		Cuts:       []byte(`[{"start":0,"end":1,"reason":"silence"}]`),
		Voiceover:  "voiceovers/" + req.VideoID + "/voiceover.txt",
		ZoomPoints: []byte(`[{"timestamp":2,"scale":1.4,"duration":2}]`),
	}, nil
}

func (s *stubEnhancer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testVideo(id, owner string) domain.Video {
	return domain.Video{
		ID:        id,
		ProjectID: "proj-1",
		OwnerID:   owner,
		Title:     "demo clip",
		Filepath:  "/uploads/demo.mp4",
		Duration:  42,
		Status:    domain.VideoStatusPending,
	}
}

func newTestService(t *testing.T, videos domain.VideoRepository, enh ai.Enhancer, cfg Config) *Service {
	t.Helper()
	if cfg.StepDelay == 0 {
		cfg.StepDelay = time.Millisecond
	}
	svc := New(videos, enh, zerolog.Nop(), cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Close(ctx)
	})
	return svc
}

func waitForTerminal(t *testing.T, store *memVideos, id string) domain.Video {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		v, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if v.Status.Terminal() {
			return *v
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("video %s never reached a terminal state", id)
	return domain.Video{}
}

func TestRequestProcessingAcknowledgesImmediately(t *testing.T) {
	store := newMemVideos()
	store.add(testVideo("vid-1", "user-1"))
	svc := newTestService(t, store, &stubEnhancer{}, Config{})

	ack, err := svc.RequestProcessing(context.Background(), "vid-1", "user-1")
	if err != nil {
		t.Fatalf("RequestProcessing: %v", err)
	}
	if ack.VideoID != "vid-1" || ack.Status != domain.VideoStatusProcessing {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	v, _ := store.GetByID(context.Background(), "vid-1")
	if v.Status != domain.VideoStatusProcessing {
		t.Fatalf("status after launch = %s, want processing", v.Status)
	}
	if v.Progress != 10 {
		t.Fatalf("progress after launch = %d, want 10", v.Progress)
	}
}

func TestRunnerCompletesAndRoundTripsArtifacts(t *testing.T) {
	store := newMemVideos()
	store.add(testVideo("vid-1", "user-1"))
	enh := &stubEnhancer{}
	svc := newTestService(t, store, enh, Config{})

	if _, err := svc.RequestProcessing(context.Background(), "vid-1", "user-1"); err != nil {
		t.Fatalf("RequestProcessing: %v", err)
	}

	v := waitForTerminal(t, store, "vid-1")
	if v.Status != domain.VideoStatusCompleted {
		t.Fatalf("status = %s (%s), want completed", v.Status, v.ErrorMessage)
	}
	if v.Progress != 100 {
		t.Fatalf("progress = %d, want 100", v.Progress)
	}
	if v.ErrorMessage != "" {
		t.Fatalf("errorMessage = %q, want empty", v.ErrorMessage)
	}
	if v.ProcessedAt == nil {
		t.Fatal("processedAt not set")
	}
	if v.Artifacts.Transcript != "hello world" {
		t.Fatalf("transcript = %q", v.Artifacts.Transcript)
	}
	if v.Artifacts.AIScript != "script for demo clip" {
		t.Fatalf("aiScript = %q", v.Artifacts.AIScript)
	}
	if !bytes.Equal(v.Artifacts.Captions, []byte(`[{"start":0,"end":5,"text":"hello"}]`)) {
		t.Fatalf("captions altered: %s", v.Artifacts.Captions)
	}
	if !bytes.Equal(v.Artifacts.Cuts, []byte(`[{"start":0,"end":1,"reason":"silence"}]`)) {
		t.Fatalf("cuts altered: %s", v.Artifacts.Cuts)
	}
	if len(v.Artifacts.ZoomPoints) == 0 || v.Artifacts.Voiceover == "" {
		t.Fatalf("missing artifacts: %+v", v.Artifacts)
	}

	status, err := svc.GetStatus(context.Background(), "vid-1", "user-1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Status != domain.VideoStatusCompleted || status.Progress != 100 {
		t.Fatalf("unexpected status view: %+v", status)
	}
}

func TestEnhancerFailureLeavesProgressAtLastMilestone(t *testing.T) {
	store := newMemVideos()
	store.add(testVideo("vid-1", "user-1"))
	enh := &stubEnhancer{fn: func(ctx context.Context, req ai.Request) (*ai.Result, error) {
		return nil, errors.New("transcription model unavailable")
	}}
	svc := newTestService(t, store, enh, Config{Milestones: []int{20, 40, 60}})

	if _, err := svc.RequestProcessing(context.Background(), "vid-1", "user-1"); err != nil {
		t.Fatalf("RequestProcessing: %v", err)
	}

	v := waitForTerminal(t, store, "vid-1")
	if v.Status != domain.VideoStatusFailed {
		t.Fatalf("status = %s, want failed", v.Status)
	}
	if v.Progress != 60 {
		t.Fatalf("progress = %d, want 60", v.Progress)
	}
	if v.ErrorMessage != "transcription model unavailable" {
		t.Fatalf("errorMessage = %q", v.ErrorMessage)
	}
	if v.Artifacts.Transcript != "" || len(v.Artifacts.Captions) != 0 {
		t.Fatalf("failed video carries artifacts: %+v", v.Artifacts)
	}
}

func TestProgressWriteFailureFailsRun(t *testing.T) {
	store := newMemVideos()
	store.failAt = 80
	store.add(testVideo("vid-1", "user-1"))
	enh := &stubEnhancer{}
	svc := newTestService(t, store, enh, Config{})

	if _, err := svc.RequestProcessing(context.Background(), "vid-1", "user-1"); err != nil {
		t.Fatalf("RequestProcessing: %v", err)
	}

	v := waitForTerminal(t, store, "vid-1")
	if v.Status != domain.VideoStatusFailed {
		t.Fatalf("status = %s, want failed", v.Status)
	}
	if v.Progress != 60 {
		t.Fatalf("progress = %d, want 60 (last successful write)", v.Progress)
	}
	if enh.callCount() != 0 {
		t.Fatalf("enhancer called %d times after persistence failure", enh.callCount())
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	store := newMemVideos()
	store.add(testVideo("vid-1", "user-1"))
	svc := newTestService(t, store, &stubEnhancer{}, Config{})

	if _, err := svc.RequestProcessing(context.Background(), "vid-1", "user-1"); err != nil {
		t.Fatalf("RequestProcessing: %v", err)
	}
	waitForTerminal(t, store, "vid-1")

	store.mu.Lock()
	log := append([]int(nil), store.progressLog["vid-1"]...)
	store.mu.Unlock()
	if len(log) == 0 {
		t.Fatal("no progress writes recorded")
	}
	for i := 1; i < len(log); i++ {
		if log[i] < log[i-1] {
			t.Fatalf("progress regressed: %v", log)
		}
	}
}

func TestRequestProcessingRejections(t *testing.T) {
	store := newMemVideos()
	store.add(testVideo("vid-1", "user-1"))
	enh := &stubEnhancer{}
	svc := newTestService(t, store, enh, Config{})

	tests := []struct {
		name      string
		videoID   string
		requester string
		wantErr   error
	}{
		{name: "unknown video", videoID: "vid-missing", requester: "user-1", wantErr: domain.ErrNotFound},
		{name: "not the owner", videoID: "vid-1", requester: "user-2", wantErr: domain.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RequestProcessing(context.Background(), tt.videoID, tt.requester)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	v, _ := store.GetByID(context.Background(), "vid-1")
	if v.Status != domain.VideoStatusPending || v.Progress != 0 {
		t.Fatalf("rejected requests mutated state: %+v", v)
	}
	if enh.callCount() != 0 {
		t.Fatal("enhancer invoked for rejected request")
	}
}

func TestConcurrentRequestsStartExactlyOneRunner(t *testing.T) {
	store := newMemVideos()
	store.add(testVideo("vid-1", "user-1"))
	enh := &stubEnhancer{}
	svc := newTestService(t, store, enh, Config{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RequestProcessing(context.Background(), "vid-1", "user-1")
		}(i)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("successes = %d, conflicts = %d, want 1 and 1", successes, conflicts)
	}

	waitForTerminal(t, store, "vid-1")
	if enh.callCount() != 1 {
		t.Fatalf("enhancer called %d times, want 1", enh.callCount())
	}
}

func TestReprocessingAfterFailure(t *testing.T) {
	store := newMemVideos()
	store.add(testVideo("vid-1", "user-1"))
	calls := 0
	enh := &stubEnhancer{}
	enh.fn = func(ctx context.Context, req ai.Request) (*ai.Result, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("first attempt fails")
		}
		enh.fn = nil
		return enh.Enhance(ctx, req)
	}
	svc := newTestService(t, store, enh, Config{Milestones: []int{50, 100}})

	if _, err := svc.RequestProcessing(context.Background(), "vid-1", "user-1"); err != nil {
		t.Fatalf("first RequestProcessing: %v", err)
	}
	v := waitForTerminal(t, store, "vid-1")
	if v.Status != domain.VideoStatusFailed {
		t.Fatalf("first run status = %s, want failed", v.Status)
	}

	if _, err := svc.RequestProcessing(context.Background(), "vid-1", "user-1"); err != nil {
		t.Fatalf("second RequestProcessing: %v", err)
	}
	v = waitForTerminal(t, store, "vid-1")
	if v.Status != domain.VideoStatusCompleted {
		t.Fatalf("second run status = %s (%s), want completed", v.Status, v.ErrorMessage)
	}
	if v.ErrorMessage != "" {
		t.Fatalf("completed video carries error: %q", v.ErrorMessage)
	}
}

func TestMissingSourceFailsBeforeMilestones(t *testing.T) {
	store := newMemVideos()
	video := testVideo("vid-1", "user-1")
	video.Filepath = ""
	store.add(video)
	enh := &stubEnhancer{}
	svc := newTestService(t, store, enh, Config{})

	if _, err := svc.RequestProcessing(context.Background(), "vid-1", "user-1"); err != nil {
		t.Fatalf("RequestProcessing: %v", err)
	}

	v := waitForTerminal(t, store, "vid-1")
	if v.Status != domain.VideoStatusFailed {
		t.Fatalf("status = %s, want failed", v.Status)
	}
	if v.ErrorMessage != "video source file missing" {
		t.Fatalf("errorMessage = %q", v.ErrorMessage)
	}
	if v.Progress != 10 {
		t.Fatalf("progress = %d, want 10", v.Progress)
	}
	if enh.callCount() != 0 {
		t.Fatal("enhancer invoked for malformed video")
	}
}

func TestGetStatusOwnershipAndView(t *testing.T) {
	store := newMemVideos()
	v := testVideo("vid-1", "user-1")
	v.Status = domain.VideoStatusFailed
	v.Progress = 60
	v.ErrorMessage = "boom"
	store.add(v)
	svc := newTestService(t, store, &stubEnhancer{}, Config{})

	if _, err := svc.GetStatus(context.Background(), "vid-1", "user-2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign read err = %v, want forbidden", err)
	}
	if _, err := svc.GetStatus(context.Background(), "vid-404", "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing read err = %v, want not found", err)
	}

	status, err := svc.GetStatus(context.Background(), "vid-1", "user-1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.ID != "vid-1" || status.Status != domain.VideoStatusFailed || status.Progress != 60 || status.ErrorMessage != "boom" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestCloseCancelsInFlightRun(t *testing.T) {
	store := newMemVideos()
	store.add(testVideo("vid-1", "user-1"))
	svc := New(store, &stubEnhancer{}, zerolog.Nop(), Config{StepDelay: 500 * time.Millisecond})

	if _, err := svc.RequestProcessing(context.Background(), "vid-1", "user-1"); err != nil {
		t.Fatalf("RequestProcessing: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	v, _ := store.GetByID(context.Background(), "vid-1")
	if v.Status != domain.VideoStatusFailed {
		t.Fatalf("status after shutdown = %s, want failed", v.Status)
	}
	if v.ErrorMessage == "" {
		t.Fatal("cancelled run recorded no error message")
	}
}
