package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smrs-space/smrs-backend/internal/apperr"
	"github.com/smrs-space/smrs-backend/internal/projects/domain"
)

// Repo implements domain.Store on Postgres.
type Repo struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, ownerID string, in domain.CreateInput) (*domain.Project, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertProject = `
insert into projects (name, description, type, status, owner_id, due_date)
values ($1, $2, $3, 'PENDING', $4, $5)
returning id, name, coalesce(description, ''), coalesce(type, ''), status, owner_id, due_date, create_date;
`
	var p domain.Project
	err = tx.QueryRow(ctx, insertProject, in.Name, in.Description, in.Type, ownerID, in.DueDate).
		Scan(&p.ID, &p.Name, &p.Description, &p.Type, &p.Status, &p.OwnerID, &p.DueDate, &p.CreateDate)
	if err != nil {
		return nil, err
	}

	for _, f := range in.Files {
		const q = `insert into project_files (project_id, file_path, type) values ($1, $2, $3);`
		if _, err := tx.Exec(ctx, q, p.ID, f.FilePath, f.Type); err != nil {
			return nil, err
		}
	}
	for _, img := range in.Images {
		const q = `insert into project_images (project_id, url) values ($1, $2);`
		if _, err := tx.Exec(ctx, q, p.ID, img.URL); err != nil {
			return nil, err
		}
	}

	// Invited emails become Pending STUDENT invitations; unknown emails are
	// skipped rather than failing the whole creation.
	for _, email := range in.InvitedEmails {
		const q = `
insert into project_members (project_id, account_id, member_role, status)
select $1, id, 'STUDENT', 'Pending' from accounts where email = $2
on conflict do nothing;
`
		if _, err := tx.Exec(ctx, q, p.ID, email); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*domain.ProjectDetail, error) {
	const q = `
select p.id, p.name, coalesce(p.description, ''), coalesce(p.type, ''), p.status,
       p.owner_id, o.name, o.email, p.due_date, p.create_date
from projects p
join accounts o on o.id = p.owner_id
where p.id = $1;
`
	var d domain.ProjectDetail
	err := r.db.QueryRow(ctx, q, id).Scan(
		&d.ID, &d.Name, &d.Description, &d.Type, &d.Status,
		&d.OwnerID, &d.OwnerName, &d.OwnerEmail, &d.DueDate, &d.CreateDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("project not found")
		}
		return nil, err
	}

	const filesQ = `select id, project_id, file_path, coalesce(type, '') from project_files where project_id = $1 order by id;`
	rows, err := r.db.Query(ctx, filesQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	d.Files = make([]domain.ProjectFile, 0, 4)
	for rows.Next() {
		var f domain.ProjectFile
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.FilePath, &f.Type); err != nil {
			return nil, err
		}
		d.Files = append(d.Files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const imagesQ = `select id, project_id, url from project_images where project_id = $1 order by id;`
	rows, err = r.db.Query(ctx, imagesQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	d.Images = make([]domain.ProjectImage, 0, 4)
	for rows.Next() {
		var img domain.ProjectImage
		if err := rows.Scan(&img.ID, &img.ProjectID, &img.URL); err != nil {
			return nil, err
		}
		d.Images = append(d.Images, img)
	}
	return &d, rows.Err()
}

// Sort keys that may appear in an ORDER BY clause. The service normalizes
// sort parameters before they get here, but the clause is interpolated into
// the SQL string, so the repo re-checks rather than trusting its callers.
var orderColumns = map[string]string{
	"id":          "p.id",
	"name":        "p.name",
	"type":        "p.type",
	"due_date":    "p.due_date",
	"create_date": "p.create_date",
}

func orderClause(sortBy, sortDir string) string {
	col, ok := orderColumns[sortBy]
	if !ok {
		col = "p.id"
	}
	dir := "desc"
	if sortDir == "asc" {
		dir = "asc"
	}
	return col + " " + dir
}

// Search composes the listing query from the decision table: no filters,
// name only, description only, or the OR of both substring predicates.
func (r *Repo) Search(ctx context.Context, q domain.SearchQuery) ([]domain.ProjectSummary, int64, error) {
	where := ""
	args := []interface{}{}

	add := func(clause string, val interface{}) {
		args = append(args, val)
		placeholder := fmt.Sprintf("$%d", len(args))
		if where == "" {
			where = "where "
		} else {
			where += " and "
		}
		where += fmt.Sprintf(clause, placeholder)
	}

	switch {
	case q.Name != "" && q.Description != "":
		args = append(args, "%"+q.Name+"%", "%"+q.Description+"%")
		where = fmt.Sprintf("where (p.name ilike $%d or p.description ilike $%d)", len(args)-1, len(args))
	case q.Name != "":
		add("p.name ilike %s", "%"+q.Name+"%")
	case q.Description != "":
		add("p.description ilike %s", "%"+q.Description+"%")
	}

	if q.Status != "" {
		add("p.status = %s", q.Status)
	}
	if q.OwnerID != "" {
		add("p.owner_id = %s", q.OwnerID)
	}

	countQ := fmt.Sprintf(`select count(*) from projects p %s;`, where)
	var total int64
	if err := r.db.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	size := q.Size
	if size < 1 {
		size = 10
	}

	listQ := fmt.Sprintf(`
select p.id, p.name, coalesce(p.description, ''), coalesce(p.type, ''), p.status,
       p.owner_id, o.name, p.due_date, p.create_date
from projects p
join accounts o on o.id = p.owner_id
%s
order by %s
limit %d offset %d;
`, where, orderClause(q.SortBy, q.SortDir), size, q.Offset())

	rows, err := r.db.Query(ctx, listQ, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]domain.ProjectSummary, 0, size)
	for rows.Next() {
		var s domain.ProjectSummary
		err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Type, &s.Status,
			&s.OwnerID, &s.OwnerName, &s.DueDate, &s.CreateDate)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *Repo) UpdateStatus(ctx context.Context, id, from, to string) (bool, error) {
	const q = `update projects set status = $3 where id = $1 and status = $2;`

	ct, err := r.db.Exec(ctx, q, id, from, to)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	// files and images go with the project via ON DELETE CASCADE
	const q = `delete from projects where id = $1;`

	ct, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("project not found")
	}
	return nil
}
