package domain

import "time"

// Project groups a user's videos.
type Project struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Videos      []Video // populated on detail reads
}
