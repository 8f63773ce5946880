package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipforge/internal/domain"
)

// VideoRepositoryPG implements domain.VideoRepository.
type VideoRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewVideoRepository creates a new video repository backed by PostgreSQL.
func NewVideoRepository(pool *pgxpool.Pool) *VideoRepositoryPG {
	return &VideoRepositoryPG{pool: pool}
}

const videoColumns = `
v.id, v.project_id, p.user_id, v.title, v.description, v.filename, v.filepath,
v.filesize, v.filetype, v.duration, v.thumbnail, v.status, v.processing_progress,
v.error_message, v.transcript, v.ai_script, v.captions, v.cuts, v.voiceover,
v.zoom_points, v.created_at, v.updated_at, v.processed_at`

// Create inserts a new video record in the pending state.
func (r *VideoRepositoryPG) Create(ctx context.Context, video *domain.Video) error {
	query := `
INSERT INTO videos (id, project_id, title, description, filename, filepath, filesize, filetype, duration, thumbnail, status, processing_progress)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0);
`
	_, err := r.pool.Exec(ctx, query,
		video.ID,
		video.ProjectID,
		video.Title,
		video.Description,
		video.Filename,
		video.Filepath,
		video.Filesize,
		video.Filetype,
		video.Duration,
		video.Thumbnail,
		domain.VideoStatusPending,
	)
	return err
}

// GetByID fetches a video together with its project's owner.
func (r *VideoRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	query := `
SELECT ` + videoColumns + `
FROM videos v
JOIN projects p ON p.id = v.project_id
WHERE v.id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return video, nil
}

// ListByProject returns the project's videos, newest first.
func (r *VideoRepositoryPG) ListByProject(ctx context.Context, projectID string) ([]domain.Video, error) {
	query := `
SELECT ` + videoColumns + `
FROM videos v
JOIN projects p ON p.id = v.project_id
WHERE v.project_id = $1
ORDER BY v.created_at DESC;
`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []domain.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *video)
	}
	return videos, rows.Err()
}

// UpdateStatus applies the supplied fields in a single atomic UPDATE,
// leaving everything else untouched. Progress-only writes are accepted only
// while the video is still processing, so a runner that lost its record to
// an external transition cannot resurrect it.
func (r *VideoRepositoryPG) UpdateStatus(ctx context.Context, id string, update domain.StatusUpdate) error {
	progressOnly := update.Status == nil && update.Progress != nil

	query := `
UPDATE videos
SET status = COALESCE($2, status),
    processing_progress = COALESCE($3, processing_progress),
    error_message = COALESCE($4, error_message),
    transcript = COALESCE($5, transcript),
    ai_script = COALESCE($6, ai_script),
    captions = COALESCE($7, captions),
    cuts = COALESCE($8, cuts),
    voiceover = COALESCE($9, voiceover),
    zoom_points = COALESCE($10, zoom_points),
    processed_at = COALESCE($11, processed_at),
    updated_at = NOW()
WHERE id = $1 AND (NOT $12::boolean OR status = 'processing');
`
	var transcript, aiScript, voiceover *string
	var captions, cuts, zoomPoints []byte
	if a := update.Artifacts; a != nil {
		transcript = &a.Transcript
		aiScript = &a.AIScript
		voiceover = &a.Voiceover
		captions = a.Captions
		cuts = a.Cuts
		zoomPoints = a.ZoomPoints
	}

	tag, err := r.pool.Exec(ctx, query,
		id,
		statusOrNil(update.Status),
		update.Progress,
		update.ErrorMessage,
		transcript,
		aiScript,
		nullableBytes(captions),
		nullableBytes(cuts),
		voiceover,
		nullableBytes(zoomPoints),
		update.ProcessedAt,
		progressOnly,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if progressOnly {
			return domain.ErrConflict
		}
		return domain.ErrNotFound
	}
	return nil
}

// ClaimForProcessing is the single transition into the processing state. It
// resets progress to 10 and clears the previous run's error and artifacts.
// Returns false when the video is already processing (or gone).
func (r *VideoRepositoryPG) ClaimForProcessing(ctx context.Context, id string) (bool, error) {
	query := `
UPDATE videos
SET status = 'processing',
    processing_progress = 10,
    error_message = NULL,
    transcript = NULL,
    ai_script = NULL,
    captions = NULL,
    cuts = NULL,
    voiceover = NULL,
    zoom_points = NULL,
    processed_at = NULL,
    updated_at = NOW()
WHERE id = $1 AND status <> 'processing';
`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a video record.
func (r *VideoRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListStalled returns processing videos whose last write is older than the
// cutoff; the reconciler force-fails them.
func (r *VideoRepositoryPG) ListStalled(ctx context.Context, olderThan time.Time) ([]domain.Video, error) {
	query := `
SELECT ` + videoColumns + `
FROM videos v
JOIN projects p ON p.id = v.project_id
WHERE v.status = 'processing' AND v.updated_at < $1
ORDER BY v.updated_at ASC;
`
	rows, err := r.pool.Query(ctx, query, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []domain.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *video)
	}
	return videos, rows.Err()
}

func scanVideo(row pgx.Row) (*domain.Video, error) {
	var video domain.Video
	var description, filename, filepath, filetype, thumbnail *string
	var errorMessage, transcript, aiScript, voiceover *string
	var captions, cuts, zoomPoints []byte
	var filesize *int64
	var duration *float64
	if err := row.Scan(
		&video.ID,
		&video.ProjectID,
		&video.OwnerID,
		&video.Title,
		&description,
		&filename,
		&filepath,
		&filesize,
		&filetype,
		&duration,
		&thumbnail,
		&video.Status,
		&video.Progress,
		&errorMessage,
		&transcript,
		&aiScript,
		&captions,
		&cuts,
		&voiceover,
		&zoomPoints,
		&video.CreatedAt,
		&video.UpdatedAt,
		&video.ProcessedAt,
	); err != nil {
		return nil, err
	}
	video.Description = deref(description)
	video.Filename = deref(filename)
	video.Filepath = deref(filepath)
	video.Filetype = deref(filetype)
	video.Thumbnail = deref(thumbnail)
	video.ErrorMessage = deref(errorMessage)
	if filesize != nil {
		video.Filesize = *filesize
	}
	if duration != nil {
		video.Duration = *duration
	}
	video.Artifacts = domain.Artifacts{
		Transcript: deref(transcript),
		AIScript:   deref(aiScript),
		Captions:   captions,
		Cuts:       cuts,
		Voiceover:  deref(voiceover),
		ZoomPoints: zoomPoints,
	}
	return &video, nil
}

func statusOrNil(s *domain.VideoStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
