package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clipforge/internal/domain"
)

// ProjectRepositoryPG implements domain.ProjectRepository.
type ProjectRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProjectRepository creates a new project repository backed by PostgreSQL.
func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{pool: pool}
}

// Create inserts a new project record.
func (r *ProjectRepositoryPG) Create(ctx context.Context, project *domain.Project) error {
	query := `
INSERT INTO projects (id, user_id, name, description, status)
VALUES ($1, $2, $3, $4, $5);
`
	status := project.Status
	if status == "" {
		status = "active"
	}
	_, err := r.pool.Exec(ctx, query, project.ID, project.UserID, project.Name, project.Description, status)
	return err
}

// GetByID fetches a project by its identifier.
func (r *ProjectRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	query := `
SELECT id, user_id, name, description, status, created_at, updated_at
FROM projects
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var project domain.Project
	var description *string
	if err := row.Scan(&project.ID, &project.UserID, &project.Name, &description, &project.Status, &project.CreatedAt, &project.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	project.Description = deref(description)
	return &project, nil
}

// ListByUser returns the user's projects, most recently updated first.
func (r *ProjectRepositoryPG) ListByUser(ctx context.Context, userID string) ([]domain.Project, error) {
	query := `
SELECT id, user_id, name, description, status, created_at, updated_at
FROM projects
WHERE user_id = $1
ORDER BY updated_at DESC;
`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var project domain.Project
		var description *string
		if err := rows.Scan(&project.ID, &project.UserID, &project.Name, &description, &project.Status, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, err
		}
		project.Description = deref(description)
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// Update overwrites the mutable project fields.
func (r *ProjectRepositoryPG) Update(ctx context.Context, project *domain.Project) error {
	query := `
UPDATE projects
SET name = $2, description = $3, status = $4, updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, project.ID, project.Name, project.Description, project.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a project and its videos.
func (r *ProjectRepositoryPG) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM videos WHERE project_id = $1;`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit(ctx)
}
