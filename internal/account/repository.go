package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

type Repository interface {
	Create(ctx context.Context, user *User) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	List(ctx context.Context) ([]User, error)
}

type postgresRepository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &postgresRepository{db: q}
}

const userColumns = `user_id, first_name, last_name, gender, email, phone_number, username, password_hash, role, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, user *User) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate user ID: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO users (user_id, first_name, last_name, gender, email, phone_number, username, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`
	_, err = r.db.Exec(ctx, query,
		id,
		user.FirstName,
		user.LastName,
		nullable(user.Gender),
		user.Email,
		nullable(user.PhoneNumber),
		user.Username,
		user.PasswordHash,
		string(user.Role),
		now,
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return uuid.Nil, mapped
		}
		return uuid.Nil, fmt.Errorf("repository: failed to insert user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return id, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	return r.getOne(ctx, query, id)
}

func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.getOne(ctx, query, username)
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, NormalizeEmail(email))
}

func (r *postgresRepository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, gender = $3, email = $4, phone_number = $5,
		    username = $6, password_hash = $7, updated_at = $8
		WHERE user_id = $9
	`
	now := time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx, query,
		user.FirstName,
		user.LastName,
		nullable(user.Gender),
		user.Email,
		nullable(user.PhoneNumber),
		user.Username,
		user.PasswordHash,
		now,
		user.ID,
	)
	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("repository: failed to update user %s: %w", user.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	user.UpdatedAt = now
	return nil
}

func (r *postgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE user_id = $3`,
		passwordHash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update password for user %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating users: %w", err)
	}

	return users, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		user          User
		gender, phone *string
		role          string
	)
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&gender,
		&user.Email,
		&phone,
		&user.Username,
		&user.PasswordHash,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if gender != nil {
		user.Gender = *gender
	}
	if phone != nil {
		user.PhoneNumber = *phone
	}
	user.Role = Role(role)
	return &user, nil
}

func mapUniqueViolation(err error) error {
	constraint, ok := db.UniqueViolation(err)
	if !ok {
		return nil
	}
	switch constraint {
	case "users_email_key":
		return ErrEmailExists
	case "users_username_key":
		return ErrUsernameTaken
	default:
		return fmt.Errorf("repository: unique constraint %s violated: %w", constraint, err)
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
