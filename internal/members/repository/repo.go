package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smrs-space/smrs-backend/internal/apperr"
	"github.com/smrs-space/smrs-backend/internal/members/domain"
)

// Repo implements domain.Store on Postgres.
type Repo struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const detailColumns = `
pm.id, pm.project_id, p.name, coalesce(p.description, ''), coalesce(p.type, ''),
pm.member_role, o.name, o.email, pm.status, p.create_date, p.due_date`

func scanDetail(row pgx.Row) (*domain.MemberDetail, error) {
	var d domain.MemberDetail
	err := row.Scan(&d.ID, &d.ProjectID, &d.ProjectName, &d.ProjectDescription, &d.ProjectType,
		&d.MemberRole, &d.OwnerName, &d.OwnerEmail, &d.Status, &d.CreateDate, &d.DueDate)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repo) ListByAccountAndStatus(ctx context.Context, accountID, status string) ([]domain.MemberDetail, error) {
	q := `
select ` + detailColumns + `
from project_members pm
join projects p on p.id = pm.project_id
join accounts o on o.id = p.owner_id
where pm.account_id = $1 and pm.status = $2
order by p.create_date desc;
`
	rows, err := r.db.Query(ctx, q, accountID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.MemberDetail, 0, 8)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *Repo) ActiveMembership(ctx context.Context, accountID string) (*domain.MemberDetail, error) {
	q := `
select ` + detailColumns + `
from project_members pm
join projects p on p.id = pm.project_id
join accounts o on o.id = p.owner_id
where pm.account_id = $1 and pm.status = 'Approved' and p.status in ('PENDING', 'ACTIVE')
limit 1;
`
	d, err := scanDetail(r.db.QueryRow(ctx, q, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

func (r *Repo) ListProjectMembers(ctx context.Context, projectID string) ([]domain.MemberDetail, error) {
	q := `
select ` + detailColumns + `
from project_members pm
join projects p on p.id = pm.project_id
join accounts o on o.id = p.owner_id
where pm.project_id = $1 and pm.status = 'Approved'
order by pm.member_role, o.name;
`
	rows, err := r.db.Query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.MemberDetail, 0, domain.MaxStudentsPerProject+1)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *Repo) ProjectOwner(ctx context.Context, projectID string) (string, error) {
	const q = `select owner_id from projects where id = $1;`

	var ownerID string
	if err := r.db.QueryRow(ctx, q, projectID).Scan(&ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperr.NotFound("project not found")
		}
		return "", err
	}
	return ownerID, nil
}

func (r *Repo) HasOpenInvitation(ctx context.Context, projectID, accountID string) (bool, error) {
	const q = `
select exists(
	select 1 from project_members
	where project_id = $1 and account_id = $2 and status <> 'Cancelled'
);`

	var exists bool
	if err := r.db.QueryRow(ctx, q, projectID, accountID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repo) CreateInvitation(ctx context.Context, projectID, accountID, role string) (*domain.ProjectMember, error) {
	const q = `
insert into project_members (project_id, account_id, member_role, status)
values ($1, $2, $3, 'Pending')
returning id, project_id, account_id, member_role, status;
`
	var m domain.ProjectMember
	err := r.db.QueryRow(ctx, q, projectID, accountID, role).
		Scan(&m.ID, &m.ProjectID, &m.AccountID, &m.MemberRole, &m.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503": // fk violation: the account or project does not exist
				return nil, apperr.NotFound("account or project not found")
			case "23505": // lost a race against another invite
				return nil, apperr.Conflict("this account is already invited to the project")
			}
		}
		return nil, err
	}
	return &m, nil
}

// InTx runs fn in one transaction; any error rolls the whole thing back so
// a failed capacity check leaves no persisted change.
func (r *Repo) InTx(ctx context.Context, fn func(domain.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	tx pgx.Tx
}

func (t *txStore) InvitationForUpdate(ctx context.Context, id string) (*domain.ProjectMember, error) {
	const q = `
select id, project_id, account_id, member_role, status
from project_members
where id = $1
for update;
`
	var m domain.ProjectMember
	err := t.tx.QueryRow(ctx, q, id).
		Scan(&m.ID, &m.ProjectID, &m.AccountID, &m.MemberRole, &m.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("invitation not found")
		}
		return nil, err
	}
	return &m, nil
}

func (t *txStore) LockAccount(ctx context.Context, accountID string) error {
	const q = `select id from accounts where id = $1 for update;`

	var id string
	if err := t.tx.QueryRow(ctx, q, accountID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("account not found")
		}
		return err
	}
	return nil
}

func (t *txStore) LockProject(ctx context.Context, projectID string) error {
	const q = `select id from projects where id = $1 for update;`

	var id string
	if err := t.tx.QueryRow(ctx, q, projectID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("project not found")
		}
		return err
	}
	return nil
}

func (t *txStore) HasActiveMembership(ctx context.Context, accountID string) (bool, error) {
	const q = `
select exists(
	select 1
	from project_members pm
	join projects p on p.id = pm.project_id
	where pm.account_id = $1 and pm.status = 'Approved' and p.status in ('PENDING', 'ACTIVE')
);`

	var exists bool
	if err := t.tx.QueryRow(ctx, q, accountID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (t *txStore) HasApprovedLecturer(ctx context.Context, projectID string) (bool, error) {
	const q = `
select exists(
	select 1 from project_members
	where project_id = $1 and member_role = 'LECTURER' and status = 'Approved'
);`

	var exists bool
	if err := t.tx.QueryRow(ctx, q, projectID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (t *txStore) CountApprovedStudents(ctx context.Context, projectID string) (int, error) {
	const q = `
select count(*) from project_members
where project_id = $1 and member_role = 'STUDENT' and status = 'Approved';
`
	var n int
	if err := t.tx.QueryRow(ctx, q, projectID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *txStore) SetStatus(ctx context.Context, id, status string) error {
	const q = `update project_members set status = $2, updated_at = now() where id = $1;`

	ct, err := t.tx.Exec(ctx, q, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("invitation not found")
	}
	return nil
}
