package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bible-game/common/internal/database"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write would duplicate a unique column.
	ErrConflict = errors.New("record conflicts with an existing one")
)

const userColumns = `id, username, email, display_name, active, created_date, last_modified`

type UserRepository struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

func NewUserRepository(db *sql.DB, dialect database.Dialect) *UserRepository {
	return &UserRepository{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for audit timestamps.
func (r *UserRepository) WithClock(now func() time.Time) *UserRepository {
	cp := *r
	cp.now = now
	return &cp
}

// Create inserts user and fills in its id and timestamps.
func (r *UserRepository) Create(ctx context.Context, user *database.User) error {
	user.MarkCreated(r.now())

	query := r.dialect.Rebind(`
        INSERT INTO users (username, email, display_name, active, created_date, last_modified)
        VALUES (?, ?, ?, ?, ?, ?)
        RETURNING id
    `)
	err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.DisplayName,
		user.Active, user.CreatedDate, user.LastModified).Scan(&user.ID)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("failed to create user %q: %w", user.Username, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create user %q: %w", user.Username, err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*database.User, error) {
	query := r.dialect.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID))
}

// GetByUsername retrieves an active user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*database.User, error) {
	query := r.dialect.Rebind(`SELECT ` + userColumns + ` FROM users WHERE username = ? AND active = ?`)
	return r.scanOne(r.db.QueryRowContext(ctx, query, username, true))
}

// Update writes the mutable fields of user and advances its last-modified
// timestamp. The created date is left untouched.
func (r *UserRepository) Update(ctx context.Context, user *database.User) error {
	user.MarkModified(r.now())

	query := r.dialect.Rebind(`
        UPDATE users
        SET username = ?, email = ?, display_name = ?, active = ?, last_modified = ?
        WHERE id = ?
    `)
	result, err := r.db.ExecContext(ctx, query, user.Username, user.Email, user.DisplayName,
		user.Active, user.LastModified, user.ID)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("failed to update user %d: %w", user.ID, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}

	return expectOneRow(result)
}

// Touch advances last_modified without changing anything else.
func (r *UserRepository) Touch(ctx context.Context, userID int64) error {
	query := r.dialect.Rebind(`UPDATE users SET last_modified = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, r.now(), userID)
	if err != nil {
		return fmt.Errorf("failed to touch user %d: %w", userID, err)
	}

	return expectOneRow(result)
}

// Deactivate marks a user inactive
func (r *UserRepository) Deactivate(ctx context.Context, userID int64) error {
	query := r.dialect.Rebind(`UPDATE users SET active = ?, last_modified = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, false, r.now(), userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate user %d: %w", userID, err)
	}

	return expectOneRow(result)
}

func (r *UserRepository) scanOne(row *sql.Row) (*database.User, error) {
	var user database.User
	var displayName sql.NullString
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &displayName,
		&user.Active, &user.CreatedDate, &user.LastModified,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	user.DisplayName = displayName.String
	return &user, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
