package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moneta/internal/domain/user"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	query := `
		INSERT INTO users (email, name, avatar_url, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, name, avatar_url, password_hash, created_at, updated_at
	`

	return r.scanUser(r.db.QueryRowContext(ctx, query,
		params.Email, params.Name, params.AvatarURL, params.PasswordHash,
	))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `
		SELECT id, email, name, avatar_url, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `
		SELECT id, email, name, avatar_url, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, params user.UpdateProfileParams) (*user.User, error) {
	query := `
		UPDATE users
		SET name = COALESCE($2, name),
		    avatar_url = COALESCE($3, avatar_url),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, name, avatar_url, password_hash, created_at, updated_at
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id, params.Name, params.AvatarURL))
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	query := `
		SELECT id, email, name, avatar_url, password_hash, created_at, updated_at
		FROM users
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		var u user.User
		var avatarURL, passwordHash sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &avatarURL, &passwordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if avatarURL.Valid {
			u.AvatarURL = &avatarURL.String
		}
		if passwordHash.Valid {
			u.PasswordHash = &passwordHash.String
		}
		users = append(users, &u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	var avatarURL, passwordHash sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.Name, &avatarURL, &passwordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if avatarURL.Valid {
		u.AvatarURL = &avatarURL.String
	}
	if passwordHash.Valid {
		u.PasswordHash = &passwordHash.String
	}
	return &u, nil
}
