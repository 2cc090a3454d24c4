package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/humanist/internal/common"
	"github.com/dmitrijs2005/humanist/internal/dbx"
	"github.com/dmitrijs2005/humanist/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"

	emailIndex  = "users_email_lower_idx"
	authorIndex = "users_single_author_idx"
)

// PostgresRepository takes a pooled connection for every call and returns
// it before returning.
type PostgresRepository struct {
	db dbx.Connector
}

func NewPostgresRepository(db dbx.Connector) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// withConn runs fn on a connection borrowed from the pool.
func (r *PostgresRepository) withConn(ctx context.Context, fn func(q dbx.DBTX) error) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	var created *models.User
	err := r.withConn(ctx, func(q dbx.DBTX) error {
		var err error
		created, err = insertUser(ctx, q, user)
		return err
	})
	return created, err
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, hashed_password, full_name, role, is_active, created_at FROM users
		 WHERE lower(email) = $1
		 `
	return r.getOne(ctx, query, foldEmail(email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT id, email, hashed_password, full_name, role, is_active, created_at FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user *models.User
	err := r.withConn(ctx, func(q dbx.DBTX) error {
		var err error
		user, err = selectUser(ctx, q, query, arg)
		return err
	})
	return user, err
}

func insertUser(ctx context.Context, q dbx.DBTX, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, hashed_password, full_name, role, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	created := *user
	created.Email = foldEmail(user.Email)

	err := q.QueryRowContext(ctx, query,
		created.Email, created.PasswordHash, created.DisplayName, string(created.Role), created.Active).
		Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, mapInsertError(err)
	}

	return &created, nil
}

func selectUser(ctx context.Context, q dbx.DBTX, query string, arg any) (*models.User, error) {
	var (
		user models.User
		role string
	)
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if user.Role, err = models.ParseRole(role); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &user, nil
}

// foldEmail is the lookup key for an address: trimmed and lower-cased.
func foldEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func mapInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case emailIndex:
			return common.ErrDuplicateEmail
		case authorIndex:
			return common.ErrAuthorAlreadyExists
		}
	}
	return fmt.Errorf("db error: %w", err)
}
