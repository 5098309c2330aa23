package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/imelapp/auth-server/internal/auth/domain"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("username or email already exists")
)

type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	FindByID(ctx context.Context, id int64) (domain.User, error)
	Update(ctx context.Context, user domain.User) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.User, error)
	RecordFailedAttempt(ctx context.Context, id int64, threshold int, lockUntil time.Time) (int, *time.Time, error)
	ResetFailedAttempts(ctx context.Context, id int64) error
}

type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, is_active, role, created_at, failed_login_attempts, lockout_end`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO users (username, email, password_hash, is_active, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		int(user.Role),
	)

	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, ErrDuplicateUser
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (r *PgUserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`,
		username,
	)
	return scanUser(row, "failed to find user by username")
}

func (r *PgUserRepository) FindByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row, "failed to find user by id")
}

func (r *PgUserRepository) Update(ctx context.Context, user domain.User) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE users
		 SET username = $2, email = $3, password_hash = $4, is_active = $5, role = $6
		 WHERE id = $1`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		int(user.Role),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgUserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgUserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows, "failed to scan user row")
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// RecordFailedAttempt increments the failure counter and arms the lockout in a
// single statement, so two racing attempts cannot lose an increment. The
// lockout timestamp is (re)set whenever the incremented counter reaches the
// threshold. Returns the new counter and lockout end.
func (r *PgUserRepository) RecordFailedAttempt(ctx context.Context, id int64, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	row := r.pool.QueryRow(
		ctx,
		`UPDATE users
		 SET failed_login_attempts = failed_login_attempts + 1,
		     lockout_end = CASE
		         WHEN failed_login_attempts + 1 >= $2 THEN $3
		         ELSE lockout_end
		     END
		 WHERE id = $1
		 RETURNING failed_login_attempts, lockout_end`,
		id,
		threshold,
		lockUntil,
	)

	var attempts int
	var lockoutEnd *time.Time
	if err := row.Scan(&attempts, &lockoutEnd); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, ErrUserNotFound
		}
		return 0, nil, fmt.Errorf("failed to record failed attempt: %w", err)
	}

	return attempts, lockoutEnd, nil
}

func (r *PgUserRepository) ResetFailedAttempts(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE users SET failed_login_attempts = 0 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to reset failed attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner, failMsg string) (domain.User, error) {
	var user domain.User
	var role int
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&role,
		&user.CreatedAt,
		&user.FailedLoginAttempts,
		&user.LockoutEnd,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("%s: %w", failMsg, err)
	}
	user.Role = domain.Role(role)
	return user, nil
}
