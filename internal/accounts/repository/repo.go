package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smrs-space/smrs-backend/internal/accounts/domain"
	"github.com/smrs-space/smrs-backend/internal/apperr"
)

const accountColumns = `id, email, name, coalesce(phone, ''), coalesce(age, 0),
coalesce(avatar, ''), role, status, password_hash, create_date`

// Repo implements domain.Store on Postgres.
type Repo struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Phone, &a.Age,
		&a.Avatar, &a.Role, &a.Status, &a.PasswordHash, &a.CreateDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("account not found")
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repo) Create(ctx context.Context, in domain.CreateInput, passwordHash string) (*domain.Account, error) {
	const q = `
insert into accounts (email, name, phone, age, avatar, role, status, password_hash)
values ($1, $2, $3, $4, $5, $6, 'active', $7)
returning ` + accountColumns + `;`

	return scanAccount(r.db.QueryRow(ctx, q,
		in.Email, in.Name, in.Phone, in.Age, in.Avatar, in.Role, passwordHash))
}

func (r *Repo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	const q = `select ` + accountColumns + ` from accounts where id = $1;`
	return scanAccount(r.db.QueryRow(ctx, q, id))
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const q = `select ` + accountColumns + ` from accounts where email = $1;`
	return scanAccount(r.db.QueryRow(ctx, q, email))
}

func (r *Repo) Update(ctx context.Context, id string, in domain.UpdateInput) (*domain.Account, error) {
	const q = `
update accounts set name = $2, phone = $3, age = $4, avatar = $5
where id = $1
returning ` + accountColumns + `;`

	return scanAccount(r.db.QueryRow(ctx, q, id, in.Name, in.Phone, in.Age, in.Avatar))
}

func (r *Repo) List(ctx context.Context, page, size int) ([]domain.Account, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `select count(*) from accounts;`).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `select ` + accountColumns + ` from accounts order by create_date desc limit $1 offset $2;`
	rows, err := r.db.Query(ctx, q, size, (page-1)*size)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]domain.Account, 0, size)
	for rows.Next() {
		var a domain.Account
		err := rows.Scan(&a.ID, &a.Email, &a.Name, &a.Phone, &a.Age,
			&a.Avatar, &a.Role, &a.Status, &a.PasswordHash, &a.CreateDate)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *Repo) SetStatus(ctx context.Context, id, status string) error {
	const q = `update accounts set status = $2 where id = $1;`
	ct, err := r.db.Exec(ctx, q, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("account not found")
	}
	return nil
}

func (r *Repo) SetPasswordHash(ctx context.Context, id, hash string) error {
	const q = `update accounts set password_hash = $2 where id = $1;`
	ct, err := r.db.Exec(ctx, q, id, hash)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("account not found")
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	const q = `delete from accounts where id = $1;`
	ct, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("account not found")
	}
	return nil
}
