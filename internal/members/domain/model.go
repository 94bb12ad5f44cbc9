package domain

import (
	"context"
	"time"
)

const (
	RoleLecturer = "LECTURER"
	RoleStudent  = "STUDENT"

	StatusPending   = "Pending"
	StatusApproved  = "Approved"
	StatusCancelled = "Cancelled"
)

// MaxStudentsPerProject is the hard cap on Approved STUDENT rows per project.
const MaxStudentsPerProject = 5

// ProjectMember links one account to one project with a role and a status.
// A Pending row is an invitation; an Approved row is an active assignment.
type ProjectMember struct {
	ID         string `json:"id"`
	ProjectID  string `json:"project_id"`
	AccountID  string `json:"account_id"`
	MemberRole string `json:"member_role"`
	Status     string `json:"status"`
}

// MemberDetail is the membership row joined with its project and owner,
// the shape every membership listing returns.
type MemberDetail struct {
	ID                 string    `json:"id"`
	ProjectID          string    `json:"project_id"`
	ProjectName        string    `json:"project_name"`
	ProjectDescription string    `json:"project_description"`
	ProjectType        string    `json:"project_type"`
	MemberRole         string    `json:"member_role"`
	OwnerName          string    `json:"owner_name"`
	OwnerEmail         string    `json:"owner_email"`
	Status             string    `json:"status"`
	CreateDate         time.Time `json:"create_date"`
	DueDate            time.Time `json:"due_date"`
}

func ValidRole(role string) bool {
	return role == RoleLecturer || role == RoleStudent
}

// Store is the persistence contract for membership rows.
type Store interface {
	ListByAccountAndStatus(ctx context.Context, accountID, status string) ([]MemberDetail, error)

	// ActiveMembership returns the Approved row whose project is still
	// active, or (nil, nil) when the account has none.
	ActiveMembership(ctx context.Context, accountID string) (*MemberDetail, error)

	ListProjectMembers(ctx context.Context, projectID string) ([]MemberDetail, error)

	// ProjectOwner returns the owner account id, or ErrNotFound.
	ProjectOwner(ctx context.Context, projectID string) (string, error)

	// HasOpenInvitation reports whether a non-Cancelled row already links
	// the account to the project.
	HasOpenInvitation(ctx context.Context, projectID, accountID string) (bool, error)

	CreateInvitation(ctx context.Context, projectID, accountID, role string) (*ProjectMember, error)

	// InTx runs fn inside one transaction. Capacity checks and the status
	// write must share a transaction so concurrent approvals cannot both
	// slip past a capacity boundary.
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the transactional view used by the approval workflow. Lock methods
// take row locks so the check-then-write pair serializes against concurrent
// approvals touching the same account or project.
type Tx interface {
	InvitationForUpdate(ctx context.Context, id string) (*ProjectMember, error)
	LockAccount(ctx context.Context, accountID string) error
	LockProject(ctx context.Context, projectID string) error

	HasActiveMembership(ctx context.Context, accountID string) (bool, error)
	HasApprovedLecturer(ctx context.Context, projectID string) (bool, error)
	CountApprovedStudents(ctx context.Context, projectID string) (int, error)

	SetStatus(ctx context.Context, id, status string) error
}
