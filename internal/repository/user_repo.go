package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signal_kz/internal/model"

	"github.com/jackc/pgx/v5"
)

// UserRepository defines operations for user data
type UserRepository interface {
	// Insert adds the user unless one with the same ID exists. It reports
	// whether a row was created.
	Insert(ctx context.Context, user *model.User) (bool, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	// UpdateRole reports false when no user has the given ID.
	UpdateRole(ctx context.Context, id int64, role model.Role) (bool, error)
	FindIDsByRole(ctx context.Context, role model.Role) ([]int64, error)
	List(ctx context.Context, role *model.Role) ([]model.User, error)
}

type userRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

// Insert creates the user row if it is absent
func (r *userRepository) Insert(ctx context.Context, user *model.User) (bool, error) {
	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = time.Now()
	}
	sql := `INSERT INTO users (id, username, first_name, last_name, role, registered_at)
            VALUES ($1, $2, $3, $4, $5, $6)
            ON CONFLICT (id) DO NOTHING`
	cmdTag, err := r.db.Exec(ctx, sql, user.ID, user.Username, user.FirstName, user.LastName, string(user.Role), user.RegisteredAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert user: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// FindByID retrieves a user by their ID
func (r *userRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user := &model.User{}
	var role string
	sql := `SELECT id, username, first_name, last_name, role, registered_at FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, sql, id).Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &role, &user.RegisteredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	user.Role = model.Role(role)
	return user, nil
}

// UpdateRole overwrites the role of an existing user
func (r *userRepository) UpdateRole(ctx context.Context, id int64, role model.Role) (bool, error) {
	sql := `UPDATE users SET role = $1 WHERE id = $2`
	cmdTag, err := r.db.Exec(ctx, sql, string(role), id)
	if err != nil {
		return false, fmt.Errorf("failed to update user role: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// FindIDsByRole returns the IDs of every user currently holding role
func (r *userRepository) FindIDsByRole(ctx context.Context, role model.Role) ([]int64, error) {
	sql := `SELECT id FROM users WHERE role = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, sql, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to query users by role: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return ids, nil
}

// List returns all users, optionally restricted to one role
func (r *userRepository) List(ctx context.Context, role *model.Role) ([]model.User, error) {
	sql := `SELECT id, username, first_name, last_name, role, registered_at FROM users`
	args := []interface{}{}
	if role != nil {
		sql += ` WHERE role = $1`
		args = append(args, string(*role))
	}
	sql += ` ORDER BY registered_at, id`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var roleStr string
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &roleStr, &u.RegisteredAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		u.Role = model.Role(roleStr)
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}
