package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clipforge/internal/domain"
	"clipforge/internal/providers/ai"
)

const terminalWriteTimeout = 10 * time.Second

// run drives a single video from processing to a terminal state. It executes
// on its own goroutine; every failure path ends in a persisted failed state,
// never in a returned error.
func (s *Service) run(video domain.Video) {
	defer s.wg.Done()

	runID := uuid.NewString()
	log := s.logger.With().Str("video_id", video.ID).Str("run_id", runID).Logger()
	log.Info().Msg("pipeline: run started")

	if video.Filepath == "" {
		s.fail(log, video.ID, "video source file missing")
		return
	}

	for _, milestone := range s.cfg.Milestones {
		select {
		case <-s.baseCtx.Done():
			s.fail(log, video.ID, "processing cancelled during shutdown")
			return
		case <-time.After(s.cfg.StepDelay):
		}

		progress := milestone
		err := s.videos.UpdateStatus(s.baseCtx, video.ID, domain.StatusUpdate{Progress: &progress})
		if err != nil {
			log.Error().Err(err).Int("progress", milestone).Msg("pipeline: progress write failed")
			s.fail(log, video.ID, "failed to record processing progress")
			return
		}
		log.Debug().Int("progress", milestone).Msg("pipeline: milestone recorded")
	}

	result, err := s.enhancer.Enhance(s.baseCtx, ai.Request{
		VideoID:  video.ID,
		Title:    video.Title,
		Source:   video.Filepath,
		Duration: video.Duration,
	})
	if err != nil {
		log.Error().Err(err).Msg("pipeline: enhancement failed")
		s.fail(log, video.ID, err.Error())
		return
	}

	now := time.Now().UTC()
	completed := domain.VideoStatusCompleted
	progress := 100
	artifacts := domain.Artifacts{
		Transcript: result.Transcript,
		AIScript:   result.AIScript,
		Captions:   result.Captions,
		Cuts:       result.Cuts,
		Voiceover:  result.Voiceover,
		ZoomPoints: result.ZoomPoints,
	}

	ctx, cancel := context.WithTimeout(context.Background(), terminalWriteTimeout)
	defer cancel()
	err = s.videos.UpdateStatus(ctx, video.ID, domain.StatusUpdate{
		Status:      &completed,
		Progress:    &progress,
		Artifacts:   &artifacts,
		ProcessedAt: &now,
	})
	if err != nil {
		log.Error().Err(err).Msg("pipeline: completion write failed")
		s.fail(log, video.ID, "failed to persist enhancement result")
		return
	}
	log.Info().Msg("pipeline: run completed")
}

// fail records the terminal failed state. Progress is left at the last
// recorded milestone. The write uses a fresh context so cancellation of the
// run itself cannot prevent the terminal state from landing; if the write
// still fails the video stays in processing until the stall sweep picks it
// up.
func (s *Service) fail(log zerolog.Logger, videoID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), terminalWriteTimeout)
	defer cancel()

	failed := domain.VideoStatusFailed
	err := s.videos.UpdateStatus(ctx, videoID, domain.StatusUpdate{
		Status:       &failed,
		ErrorMessage: &reason,
	})
	if err != nil {
		log.Error().Err(err).Str("reason", reason).Msg("pipeline: terminal failure write failed, video left in processing")
		return
	}
	log.Warn().Str("reason", reason).Msg("pipeline: run failed")
}
