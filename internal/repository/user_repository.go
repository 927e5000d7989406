package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/study-room-reservation/internal/model"
	"github.com/iliyamo/study-room-reservation/internal/utils"
)

// ErrUsernameExists is returned when registration hits the unique
// username index.
var ErrUsernameExists = errors.New("username already exists")

// ErrUserNotFound is returned when a user lookup yields no rows.
var ErrUserNotFound = errors.New("user not found")

// UserRepo provides access to the users table.  Ban and violation
// counter updates are applied by ReservationRepo inside the no-show
// batch transaction, not here.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a user with a bcrypt-hashed password and returns its ID.
func (r *UserRepo) Create(ctx context.Context, username, password, role, name string, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role, name) VALUES (?,?,?,?)",
		username, hash, role, name)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

const userColumns = `id, username, password_hash, role, name, avatar,
	violation_count, banned_until, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var avatar sql.NullString
	var banned sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Name,
		&avatar, &u.ViolationCount, &banned, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if avatar.Valid {
		a := avatar.String
		u.Avatar = &a
	}
	if banned.Valid {
		b := banned.Time.UTC()
		u.BannedUntil = &b
	}
	return &u, nil
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1",
		strings.TrimSpace(username)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// TopViolators returns users with at least one violation ordered by
// violation count descending, capped at limit. Used by the admin
// high-frequency violators report.
func (r *UserRepo) TopViolators(ctx context.Context, limit int) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE violation_count > 0 ORDER BY violation_count DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		var avatar sql.NullString
		var banned sql.NullTime
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Name,
			&avatar, &u.ViolationCount, &banned, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if avatar.Valid {
			a := avatar.String
			u.Avatar = &a
		}
		if banned.Valid {
			b := banned.Time.UTC()
			u.BannedUntil = &b
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
