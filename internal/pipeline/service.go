package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"clipforge/internal/domain"
	"clipforge/internal/providers/ai"
)

// Config controls the milestone schedule walked by the runner.
type Config struct {
	Milestones []int
	StepDelay  time.Duration
}

// DefaultMilestones mirrors the progress checkpoints reported to polling
// clients between the initial claim (10) and completion (100).
var DefaultMilestones = []int{20, 40, 60, 80, 100}

const DefaultStepDelay = time.Second

func (c Config) normalized() Config {
	if len(c.Milestones) == 0 {
		c.Milestones = DefaultMilestones
	}
	if c.StepDelay <= 0 {
		c.StepDelay = DefaultStepDelay
	}
	return c
}

// Service owns the processing lifecycle of videos: it validates and launches
// jobs, advances them on detached goroutines, and answers status polls.
type Service struct {
	videos   domain.VideoRepository
	enhancer ai.Enhancer
	logger   zerolog.Logger
	cfg      Config

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

func New(videos domain.VideoRepository, enhancer ai.Enhancer, logger zerolog.Logger, cfg Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		videos:     videos,
		enhancer:   enhancer,
		logger:     logger,
		cfg:        cfg.normalized(),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// Ack acknowledges a launched job before it completes.
type Ack struct {
	VideoID string             `json:"videoId"`
	Status  domain.VideoStatus `json:"status"`
}

// Status is the polling view of a video's processing state.
type Status struct {
	ID           string             `json:"id"`
	Status       domain.VideoStatus `json:"status"`
	Progress     int                `json:"processingProgress"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
}

// RequestProcessing validates the request, atomically claims the video into
// the processing state, and dispatches a runner. It returns before the job
// completes; runner failures are only ever observable through GetStatus.
func (s *Service) RequestProcessing(ctx context.Context, videoID, requesterID string) (*Ack, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.OwnerID != requesterID {
		return nil, domain.ErrForbidden
	}

	claimed, err := s.videos.ClaimForProcessing(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("claim video %s: %w", videoID, err)
	}
	if !claimed {
		return nil, domain.ErrConflict
	}

	video.Status = domain.VideoStatusProcessing
	video.Progress = 10
	video.ErrorMessage = ""

	s.wg.Add(1)
	go s.run(*video)

	return &Ack{VideoID: videoID, Status: domain.VideoStatusProcessing}, nil
}

// GetStatus returns the ownership-checked processing state of a video.
func (s *Service) GetStatus(ctx context.Context, videoID, requesterID string) (*Status, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.OwnerID != requesterID {
		return nil, domain.ErrForbidden
	}
	return &Status{
		ID:           video.ID,
		Status:       video.Status,
		Progress:     video.Progress,
		ErrorMessage: video.ErrorMessage,
	}, nil
}

// Close cancels all in-flight runners and waits for them to record a
// terminal state, bounded by the given context.
func (s *Service) Close(ctx context.Context) error {
	s.baseCancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
