package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/smrs-space/smrs-backend/internal/apperr"
	"github.com/smrs-space/smrs-backend/internal/auth"
	"github.com/smrs-space/smrs-backend/internal/members/domain"
)

// Service is the invitation workflow engine: it validates and applies
// transitions on membership rows. Every capacity check runs against the
// persisted state inside the same transaction as the write.
type Service struct {
	store domain.Store
	log   zerolog.Logger
}

func New(store domain.Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log}
}

// ListMyInvitations returns the account's Pending rows.
func (s *Service) ListMyInvitations(ctx context.Context, accountID string) ([]domain.MemberDetail, error) {
	return s.store.ListByAccountAndStatus(ctx, accountID, domain.StatusPending)
}

// ListMyProjects returns the account's Approved rows.
func (s *Service) ListMyProjects(ctx context.Context, accountID string) ([]domain.MemberDetail, error) {
	return s.store.ListByAccountAndStatus(ctx, accountID, domain.StatusApproved)
}

// MyActiveMembership returns the single Approved row whose project is still
// active, or nil when the account has none. The empty case is not an error.
func (s *Service) MyActiveMembership(ctx context.Context, accountID string) (*domain.MemberDetail, error) {
	return s.store.ActiveMembership(ctx, accountID)
}

// ListProjectMembers returns the project's Approved rows.
func (s *Service) ListProjectMembers(ctx context.Context, projectID string) ([]domain.MemberDetail, error) {
	return s.store.ListProjectMembers(ctx, projectID)
}

// Invite creates a Pending row for the account on the project. Only the
// project owner or an admin may invite.
func (s *Service) Invite(ctx context.Context, projectID, accountID, role, actorID, actorRole string) (*domain.ProjectMember, error) {
	if !domain.ValidRole(role) {
		return nil, apperr.InvalidState(fmt.Sprintf("unknown member role %q", role))
	}

	ownerID, err := s.store.ProjectOwner(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if actorID != ownerID && actorRole != auth.RoleAdmin {
		return nil, apperr.Forbidden("only the project owner can invite members")
	}

	open, err := s.store.HasOpenInvitation(ctx, projectID, accountID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, apperr.Conflict("this account is already invited to the project")
	}

	inv, err := s.store.CreateInvitation(ctx, projectID, accountID, role)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("invitation_id", inv.ID).
		Str("project_id", projectID).
		Str("account_id", accountID).
		Str("role", role).
		Msg("invitation created")

	return inv, nil
}

// Approve transitions a Pending invitation to Approved, enforcing the
// capacity constraints against live persisted state. The row locks taken
// inside the transaction serialize concurrent approvals for the same
// account or project, so two of them can never both pass a capacity check.
func (s *Service) Approve(ctx context.Context, invitationID, accountID string) error {
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		inv, err := tx.InvitationForUpdate(ctx, invitationID)
		if err != nil {
			return err
		}
		if inv.AccountID != accountID {
			return apperr.Forbidden("this invitation does not belong to you")
		}
		if inv.Status != domain.StatusPending {
			return apperr.InvalidState("this invitation has already been processed")
		}

		if err := tx.LockAccount(ctx, accountID); err != nil {
			return err
		}
		if err := tx.LockProject(ctx, inv.ProjectID); err != nil {
			return err
		}

		active, err := tx.HasActiveMembership(ctx, accountID)
		if err != nil {
			return err
		}
		if active {
			return apperr.Conflict("you are already in an active project, complete it before joining another")
		}

		switch inv.MemberRole {
		case domain.RoleLecturer:
			hasLecturer, err := tx.HasApprovedLecturer(ctx, inv.ProjectID)
			if err != nil {
				return err
			}
			if hasLecturer {
				return apperr.Conflict("this project already has a lecturer")
			}
		case domain.RoleStudent:
			students, err := tx.CountApprovedStudents(ctx, inv.ProjectID)
			if err != nil {
				return err
			}
			if students >= domain.MaxStudentsPerProject {
				return apperr.Conflict(fmt.Sprintf("maximum %d students reached", domain.MaxStudentsPerProject))
			}
		}

		return tx.SetStatus(ctx, inv.ID, domain.StatusApproved)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("invitation_id", invitationID).Str("account_id", accountID).Msg("invitation approved")
	return nil
}

// Cancel transitions an invitation to Cancelled. Allowed from Pending or
// Approved; cancelling a Cancelled row is an InvalidState failure.
func (s *Service) Cancel(ctx context.Context, invitationID, accountID string) error {
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		inv, err := tx.InvitationForUpdate(ctx, invitationID)
		if err != nil {
			return err
		}
		if inv.AccountID != accountID {
			return apperr.Forbidden("this invitation does not belong to you")
		}
		if inv.Status == domain.StatusCancelled {
			return apperr.InvalidState("this invitation has already been cancelled")
		}

		return tx.SetStatus(ctx, inv.ID, domain.StatusCancelled)
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("invitation_id", invitationID).Str("account_id", accountID).Msg("invitation cancelled")
	return nil
}
