package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"clipforge/internal/adapter/repo"
	"clipforge/internal/domain"
	"clipforge/internal/infra"
)

// The reconciler force-fails videos that a crashed or partitioned API
// instance left in the processing state. A healthy runner touches its row
// at every milestone, so a row idle for longer than the stall window has
// no runner behind it anymore.
type reconciler struct {
	videos      domain.VideoRepository
	logger      infra.Logger
	stallWindow time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	r := &reconciler{
		videos:      repo.NewVideoRepository(pool),
		logger:      logger,
		stallWindow: cfg.StallWindow,
	}

	logger.Info().
		Dur("stall_window", cfg.StallWindow).
		Dur("sweep_interval", cfg.SweepInterval).
		Msg("worker: stall reconciler started")

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("worker: stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *reconciler) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stalled, err := r.videos.ListStalled(ctx, time.Now().Add(-r.stallWindow))
	if err != nil {
		r.logger.Error().Err(err).Msg("worker: list stalled videos failed")
		return
	}
	for i := range stalled {
		video := &stalled[i]
		failed := domain.VideoStatusFailed
		msg := "processing stalled, no progress recorded within the stall window"
		err := r.videos.UpdateStatus(ctx, video.ID, domain.StatusUpdate{
			Status:       &failed,
			ErrorMessage: &msg,
		})
		if err != nil {
			r.logger.Error().Err(err).Str("video_id", video.ID).Msg("worker: force-fail stalled video failed")
			continue
		}
		r.logger.Warn().
			Str("video_id", video.ID).
			Int("last_progress", video.Progress).
			Time("last_update", video.UpdatedAt).
			Msg("worker: stalled video marked failed")
	}
}
