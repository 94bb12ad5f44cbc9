package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smrs-space/smrs-backend/internal/apperr"
	"github.com/smrs-space/smrs-backend/internal/members/domain"
)

// fakeStore is an in-memory domain.Store. InTx holds a mutex for the whole
// closure and restores a snapshot on failure, mirroring the row-lock +
// rollback behavior of the Postgres repo.
type fakeStore struct {
	mu       sync.Mutex
	members  map[string]*domain.ProjectMember
	projects map[string]*fakeProject
	nextID   int
}

type fakeProject struct {
	ownerID string
	status  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:  map[string]*domain.ProjectMember{},
		projects: map[string]*fakeProject{},
	}
}

func (f *fakeStore) addProject(id, ownerID, status string) {
	f.projects[id] = &fakeProject{ownerID: ownerID, status: status}
}

func (f *fakeStore) addMember(projectID, accountID, role, status string) string {
	f.nextID++
	id := fmt.Sprintf("m%d", f.nextID)
	f.members[id] = &domain.ProjectMember{
		ID: id, ProjectID: projectID, AccountID: accountID, MemberRole: role, Status: status,
	}
	return id
}

func (f *fakeStore) detail(m *domain.ProjectMember) domain.MemberDetail {
	return domain.MemberDetail{
		ID:         m.ID,
		ProjectID:  m.ProjectID,
		MemberRole: m.MemberRole,
		Status:     m.Status,
		CreateDate: time.Now(),
	}
}

func (f *fakeStore) ListByAccountAndStatus(_ context.Context, accountID, status string) ([]domain.MemberDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MemberDetail
	for _, m := range f.members {
		if m.AccountID == accountID && m.Status == status {
			out = append(out, f.detail(m))
		}
	}
	return out, nil
}

func (f *fakeStore) ActiveMembership(_ context.Context, accountID string) (*domain.MemberDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.AccountID == accountID && m.Status == domain.StatusApproved && f.projectActive(m.ProjectID) {
			d := f.detail(m)
			return &d, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListProjectMembers(_ context.Context, projectID string) ([]domain.MemberDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MemberDetail
	for _, m := range f.members {
		if m.ProjectID == projectID && m.Status == domain.StatusApproved {
			out = append(out, f.detail(m))
		}
	}
	return out, nil
}

func (f *fakeStore) ProjectOwner(_ context.Context, projectID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[projectID]
	if !ok {
		return "", apperr.NotFound("project not found")
	}
	return p.ownerID, nil
}

func (f *fakeStore) HasOpenInvitation(_ context.Context, projectID, accountID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.ProjectID == projectID && m.AccountID == accountID && m.Status != domain.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateInvitation(_ context.Context, projectID, accountID, role string) (*domain.ProjectMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.addMember(projectID, accountID, role, domain.StatusPending)
	m := *f.members[id]
	return &m, nil
}

func (f *fakeStore) InTx(ctx context.Context, fn func(domain.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := make(map[string]*domain.ProjectMember, len(f.members))
	for k, v := range f.members {
		cp := *v
		snapshot[k] = &cp
	}

	if err := fn(&fakeTx{store: f}); err != nil {
		f.members = snapshot
		return err
	}
	return nil
}

func (f *fakeStore) projectActive(projectID string) bool {
	p, ok := f.projects[projectID]
	return ok && (p.status == "PENDING" || p.status == "ACTIVE")
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) InvitationForUpdate(_ context.Context, id string) (*domain.ProjectMember, error) {
	m, ok := t.store.members[id]
	if !ok {
		return nil, apperr.NotFound("invitation not found")
	}
	cp := *m
	return &cp, nil
}

func (t *fakeTx) LockAccount(context.Context, string) error { return nil }

func (t *fakeTx) LockProject(_ context.Context, projectID string) error {
	if _, ok := t.store.projects[projectID]; !ok {
		return apperr.NotFound("project not found")
	}
	return nil
}

func (t *fakeTx) HasActiveMembership(_ context.Context, accountID string) (bool, error) {
	for _, m := range t.store.members {
		if m.AccountID == accountID && m.Status == domain.StatusApproved && t.store.projectActive(m.ProjectID) {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) HasApprovedLecturer(_ context.Context, projectID string) (bool, error) {
	for _, m := range t.store.members {
		if m.ProjectID == projectID && m.MemberRole == domain.RoleLecturer && m.Status == domain.StatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTx) CountApprovedStudents(_ context.Context, projectID string) (int, error) {
	n := 0
	for _, m := range t.store.members {
		if m.ProjectID == projectID && m.MemberRole == domain.RoleStudent && m.Status == domain.StatusApproved {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) SetStatus(_ context.Context, id, status string) error {
	m, ok := t.store.members[id]
	if !ok {
		return apperr.NotFound("invitation not found")
	}
	m.Status = status
	return nil
}

func newService(store *fakeStore) *Service {
	return New(store, zerolog.Nop())
}

func TestApprove_Success(t *testing.T) {
	ctx := context.Background()

	t.Run("student joins a project with room", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")
		id := store.addMember("p1", "alice", domain.RoleStudent, domain.StatusPending)

		err := newService(store).Approve(ctx, id, "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, store.members[id].Status)
	})

	t.Run("lecturer joins a project without one", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "ACTIVE")
		id := store.addMember("p1", "dr-bob", domain.RoleLecturer, domain.StatusPending)

		err := newService(store).Approve(ctx, id, "dr-bob")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, store.members[id].Status)
	})

	t.Run("membership in an archived project does not block", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("old", "owner", "ARCHIVED")
		store.addProject("new", "owner", "PENDING")
		store.addMember("old", "alice", domain.RoleStudent, domain.StatusApproved)
		id := store.addMember("new", "alice", domain.RoleStudent, domain.StatusPending)

		err := newService(store).Approve(ctx, id, "alice")
		require.NoError(t, err)
	})
}

func TestApprove_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		store := newFakeStore()
		err := newService(store).Approve(ctx, "missing", "alice")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("someone else's invitation", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")
		id := store.addMember("p1", "alice", domain.RoleStudent, domain.StatusPending)

		err := newService(store).Approve(ctx, id, "mallory")
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		assert.Equal(t, domain.StatusPending, store.members[id].Status)
	})

	t.Run("already approved", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")
		id := store.addMember("p1", "alice", domain.RoleStudent, domain.StatusApproved)

		err := newService(store).Approve(ctx, id, "alice")
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
		assert.Equal(t, domain.StatusApproved, store.members[id].Status)
	})

	t.Run("already cancelled", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")
		id := store.addMember("p1", "alice", domain.RoleStudent, domain.StatusCancelled)

		err := newService(store).Approve(ctx, id, "alice")
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
		assert.Equal(t, domain.StatusCancelled, store.members[id].Status)
	})

	t.Run("account already in an active project", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "ACTIVE")
		store.addProject("p2", "owner", "PENDING")
		store.addMember("p1", "alice", domain.RoleStudent, domain.StatusApproved)
		id := store.addMember("p2", "alice", domain.RoleStudent, domain.StatusPending)

		err := newService(store).Approve(ctx, id, "alice")
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, domain.StatusPending, store.members[id].Status)
	})

	t.Run("project already has a lecturer", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")
		store.addMember("p1", "dr-bob", domain.RoleLecturer, domain.StatusApproved)
		id := store.addMember("p1", "dr-carol", domain.RoleLecturer, domain.StatusPending)

		err := newService(store).Approve(ctx, id, "dr-carol")
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, domain.StatusPending, store.members[id].Status)
	})

	t.Run("five students already approved", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")
		for i := 0; i < domain.MaxStudentsPerProject; i++ {
			store.addMember("p1", fmt.Sprintf("student%d", i), domain.RoleStudent, domain.StatusApproved)
		}
		id := store.addMember("p1", "alice", domain.RoleStudent, domain.StatusPending)

		err := newService(store).Approve(ctx, id, "alice")
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, domain.StatusPending, store.members[id].Status, "row must remain Pending after a failed capacity check")
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel pending", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")
		id := store.addMember("p1", "alice", domain.RoleStudent, domain.StatusPending)

		err := newService(store).Cancel(ctx, id, "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, store.members[id].Status)
	})

	t.Run("cancel approved", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")
		id := store.addMember("p1", "alice", domain.RoleStudent, domain.StatusApproved)

		err := newService(store).Cancel(ctx, id, "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, store.members[id].Status)
	})

	t.Run("cancel cancelled is invalid", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")
		id := store.addMember("p1", "alice", domain.RoleStudent, domain.StatusCancelled)

		err := newService(store).Cancel(ctx, id, "alice")
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("someone else's invitation", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")
		id := store.addMember("p1", "alice", domain.RoleStudent, domain.StatusPending)

		err := newService(store).Cancel(ctx, id, "mallory")
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		assert.Equal(t, domain.StatusPending, store.members[id].Status)
	})

	t.Run("not found", func(t *testing.T) {
		store := newFakeStore()
		err := newService(store).Cancel(ctx, "missing", "alice")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestInvite(t *testing.T) {
	ctx := context.Background()

	t.Run("owner invites", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")

		inv, err := newService(store).Invite(ctx, "p1", "alice", domain.RoleStudent, "owner", "LECTURER")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, inv.Status)
	})

	t.Run("admin invites", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")

		_, err := newService(store).Invite(ctx, "p1", "alice", domain.RoleStudent, "someone-else", "ADMIN")
		require.NoError(t, err)
	})

	t.Run("non-owner forbidden", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")

		_, err := newService(store).Invite(ctx, "p1", "alice", domain.RoleStudent, "mallory", "STUDENT")
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("duplicate invitation conflicts", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")
		store.addMember("p1", "alice", domain.RoleStudent, domain.StatusPending)

		_, err := newService(store).Invite(ctx, "p1", "alice", domain.RoleStudent, "owner", "LECTURER")
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("cancelled row does not block a new invitation", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")
		store.addMember("p1", "alice", domain.RoleStudent, domain.StatusCancelled)

		_, err := newService(store).Invite(ctx, "p1", "alice", domain.RoleStudent, "owner", "LECTURER")
		require.NoError(t, err)
	})

	t.Run("unknown project", func(t *testing.T) {
		store := newFakeStore()
		_, err := newService(store).Invite(ctx, "nope", "alice", domain.RoleStudent, "owner", "ADMIN")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("unknown role", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "PENDING")
		_, err := newService(store).Invite(ctx, "p1", "alice", "JANITOR", "owner", "ADMIN")
		assert.Error(t, err)
	})
}

func TestMyActiveMembership(t *testing.T) {
	ctx := context.Background()

	t.Run("none is not an error", func(t *testing.T) {
		store := newFakeStore()
		d, err := newService(store).MyActiveMembership(ctx, "alice")
		require.NoError(t, err)
		assert.Nil(t, d)
	})

	t.Run("returns the approved active row", func(t *testing.T) {
		store := newFakeStore()
		store.addProject("p1", "owner", "ACTIVE")
		id := store.addMember("p1", "alice", domain.RoleStudent, domain.StatusApproved)

		d, err := newService(store).MyActiveMembership(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, id, d.ID)
	})
}

// checkInvariants asserts the three capacity properties over the whole store.
func checkInvariants(t *testing.T, store *fakeStore) {
	t.Helper()

	lecturers := map[string]int{}
	students := map[string]int{}
	activePerAccount := map[string]int{}

	for _, m := range store.members {
		if m.Status != domain.StatusApproved {
			continue
		}
		switch m.MemberRole {
		case domain.RoleLecturer:
			lecturers[m.ProjectID]++
		case domain.RoleStudent:
			students[m.ProjectID]++
		}
		if store.projectActive(m.ProjectID) {
			activePerAccount[m.AccountID]++
		}
	}

	for pid, n := range lecturers {
		assert.LessOrEqual(t, n, 1, "project %s has %d approved lecturers", pid, n)
	}
	for pid, n := range students {
		assert.LessOrEqual(t, n, domain.MaxStudentsPerProject, "project %s has %d approved students", pid, n)
	}
	for acc, n := range activePerAccount {
		assert.LessOrEqual(t, n, 1, "account %s is in %d active projects", acc, n)
	}
}

// Drives a long mixed sequence of approvals and cancellations and checks the
// capacity invariants after every step.
func TestInvariants_ApproveCancelSequences(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newService(store)

	store.addProject("p1", "owner1", "PENDING")
	store.addProject("p2", "owner2", "ACTIVE")

	var ids []string
	for i := 0; i < 8; i++ {
		acc := fmt.Sprintf("student%d", i)
		ids = append(ids, store.addMember("p1", acc, domain.RoleStudent, domain.StatusPending))
		ids = append(ids, store.addMember("p2", acc, domain.RoleStudent, domain.StatusPending))
	}
	ids = append(ids, store.addMember("p1", "dr-a", domain.RoleLecturer, domain.StatusPending))
	ids = append(ids, store.addMember("p1", "dr-b", domain.RoleLecturer, domain.StatusPending))

	// Approve everything; capacity checks must reject the overflow.
	for _, id := range ids {
		m := store.members[id]
		_ = svc.Approve(ctx, id, m.AccountID)
		checkInvariants(t, store)
	}

	// Cancel a few approved rows, then approve previously rejected ones.
	cancelled := 0
	for _, id := range ids {
		m := store.members[id]
		if m.Status == domain.StatusApproved && m.MemberRole == domain.RoleStudent {
			require.NoError(t, svc.Cancel(ctx, id, m.AccountID))
			checkInvariants(t, store)
			cancelled++
			if cancelled == 2 {
				break
			}
		}
	}
	for _, id := range ids {
		m := store.members[id]
		if m.Status == domain.StatusPending {
			_ = svc.Approve(ctx, id, m.AccountID)
			checkInvariants(t, store)
		}
	}

	// Exactly one lecturer made it in.
	lect := 0
	for _, m := range store.members {
		if m.ProjectID == "p1" && m.MemberRole == domain.RoleLecturer && m.Status == domain.StatusApproved {
			lect++
		}
	}
	assert.Equal(t, 1, lect)
}
