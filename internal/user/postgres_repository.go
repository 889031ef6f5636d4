package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool used by the Postgres repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	db DBTX
}

// NewPostgresRepository returns a Repository backed by the users table. Constraint
// violations are returned as *pgconn.PgError for the HTTP layer to classify.
func NewPostgresRepository(db DBTX) Repository {
	return &postgresRepository{db: db}
}

const userColumns = `id::text, name, email, password_hash, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, user User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *postgresRepository) Update(ctx context.Context, user User) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET name = $2, updated_at = $3 WHERE id = $1`,
		user.ID, user.Name, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context, page Pagination) ([]User, PageInfo, error) {
	page = page.normalized()

	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		page.PageSize, page.offset(),
	)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0, page.PageSize)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, PageInfo{}, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, PageInfo{}, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, PageInfo{}, fmt.Errorf("count users: %w", err)
	}
	return users, newPageInfo(page, total), nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}
