package domain

import (
	"context"
	"time"
)

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	OwnerID     string    `json:"owner_id"`
	DueDate     time.Time `json:"due_date"`
	CreateDate  time.Time `json:"create_date"`
}

// ProjectFile and ProjectImage are owned child records; deleting the project
// cascades to them.
type ProjectFile struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	FilePath  string `json:"file_path"`
	Type      string `json:"type"`
}

type ProjectImage struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	URL       string `json:"url"`
}

type ProjectSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	OwnerID     string    `json:"owner_id"`
	OwnerName   string    `json:"owner_name"`
	DueDate     time.Time `json:"due_date"`
	CreateDate  time.Time `json:"create_date"`
}

type ProjectDetail struct {
	ProjectSummary
	OwnerEmail string         `json:"owner_email"`
	Files      []ProjectFile  `json:"files"`
	Images     []ProjectImage `json:"images"`
}

// SearchQuery carries normalized listing parameters; SortBy is already
// whitelisted by the service and SortDir is "asc" or "desc".
type SearchQuery struct {
	Name        string
	Description string
	Status      string
	OwnerID     string
	Page        int
	Size        int
	SortBy      string
	SortDir     string
}

func (q SearchQuery) Offset() int {
	page := q.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * q.Size
}

type CreateInput struct {
	Name          string
	Description   string
	Type          string
	DueDate       time.Time
	Files         []ProjectFile
	Images        []ProjectImage
	InvitedEmails []string
}

type Store interface {
	// Create inserts the project with its files, images and Pending
	// STUDENT invitations for the given emails, all in one transaction.
	Create(ctx context.Context, ownerID string, in CreateInput) (*Project, error)

	Get(ctx context.Context, id string) (*ProjectDetail, error)

	Search(ctx context.Context, q SearchQuery) ([]ProjectSummary, int64, error)

	// UpdateStatus persists the new status only if the project still holds
	// the expected current status; reports whether a row was updated.
	UpdateStatus(ctx context.Context, id, from, to string) (bool, error)

	Delete(ctx context.Context, id string) error
}
