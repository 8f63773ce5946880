package domain

import (
	"context"
	"time"
)

// UserRepository defines access methods for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// ProjectRepository defines persistence for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id string) (*Project, error)
	ListByUser(ctx context.Context, userID string) ([]Project, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id string) error
}

// VideoRepository is the status store for videos. UpdateStatus applies only
// the supplied fields atomically; ClaimForProcessing is the single
// conditional transition into the processing state and reports false when
// the video is already being processed.
type VideoRepository interface {
	Create(ctx context.Context, video *Video) error
	GetByID(ctx context.Context, id string) (*Video, error)
	ListByProject(ctx context.Context, projectID string) ([]Video, error)
	UpdateStatus(ctx context.Context, id string, update StatusUpdate) error
	ClaimForProcessing(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	ListStalled(ctx context.Context, olderThan time.Time) ([]Video, error)
}
