package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/smrs-space/smrs-backend/internal/apperr"
	"github.com/smrs-space/smrs-backend/internal/auth"
	"github.com/smrs-space/smrs-backend/internal/projects/domain"
)

type Service struct {
	store domain.Store
	log   zerolog.Logger
}

func New(store domain.Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Whitelisted sort keys; anything else silently falls back to the default
// instead of failing.
var sortKeys = map[string]bool{
	"id":          true,
	"name":        true,
	"type":        true,
	"due_date":    true,
	"create_date": true,
}

const defaultSortKey = "id"

func NormalizeSort(by, dir string) (string, string) {
	by = strings.TrimSpace(strings.ToLower(by))
	if !sortKeys[by] {
		by = defaultSortKey
	}
	if strings.EqualFold(dir, "asc") {
		return by, "asc"
	}
	return by, "desc"
}

func NormalizePaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	return page, size
}

func (s *Service) Create(ctx context.Context, ownerID string, in domain.CreateInput) (*domain.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("name required")
	}

	p, err := s.store.Create(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("project_id", p.ID).Str("owner_id", ownerID).Msg("project created")
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.ProjectDetail, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Search(ctx context.Context, q domain.SearchQuery) ([]domain.ProjectSummary, int64, error) {
	q.Name = strings.TrimSpace(q.Name)
	q.Description = strings.TrimSpace(q.Description)
	q.Page, q.Size = NormalizePaging(q.Page, q.Size)
	q.SortBy, q.SortDir = NormalizeSort(q.SortBy, q.SortDir)
	return s.store.Search(ctx, q)
}

// UpdateStatus applies the lifecycle workflow: the project must exist, the
// (current, requested) pair must be in the transition table, and the actor
// must be the owner or an admin. The persisted write re-asserts the current
// status so a concurrent transition cannot be overwritten.
func (s *Service) UpdateStatus(ctx context.Context, projectID, requested, actorID, actorRole string) (*domain.ProjectDetail, error) {
	requested = strings.ToUpper(strings.TrimSpace(requested))

	p, err := s.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if !domain.ValidStatus(requested) || !domain.CanTransition(p.Status, requested) {
		return nil, apperr.InvalidTransition(fmt.Sprintf("cannot transition from %s to %s", p.Status, requested))
	}

	if actorID != p.OwnerID && actorRole != auth.RoleAdmin {
		return nil, apperr.Forbidden("only the project owner or an admin can update the project status")
	}

	updated, err := s.store.UpdateStatus(ctx, projectID, p.Status, requested)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, apperr.Conflict("project status changed concurrently, retry")
	}

	s.log.Info().
		Str("project_id", projectID).
		Str("from", p.Status).
		Str("to", requested).
		Msg("project status updated")

	p.Status = requested
	return p, nil
}

func (s *Service) Delete(ctx context.Context, projectID, actorID, actorRole string) error {
	p, err := s.store.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if actorID != p.OwnerID && actorRole != auth.RoleAdmin {
		return apperr.Forbidden("only the project owner or an admin can delete the project")
	}
	return s.store.Delete(ctx, projectID)
}
