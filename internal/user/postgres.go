package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chefshare/internal/apperror"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	bio TEXT NOT NULL DEFAULT '',
	avatar_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS user_saved_recipes (
	user_id TEXT NOT NULL REFERENCES users(id),
	recipe_id TEXT NOT NULL,
	seq BIGSERIAL,
	PRIMARY KEY (user_id, recipe_id)
);
`

// uniqueViolation is the PostgreSQL error code for a unique constraint failure.
const uniqueViolation = "23505"

const userColumns = "id, username, email, password_hash, bio, avatar_url, created_at, updated_at"

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates the user tables if needed and returns the store.
func NewPostgresStore(ctx context.Context, db *sqlx.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create user tables: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Bio          string    `db:"bio"`
	AvatarURL    string    `db:"avatar_url"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (row userRow) user() *User {
	return &User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Bio:          row.Bio,
		AvatarURL:    row.AvatarURL,
		SavedRecipes: []string{},
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

// Create inserts a new user row.
func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		id, u.Username, u.Email, u.PasswordHash, u.Bio, u.AvatarURL, now,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return apperror.Validation("User already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	u.ID = id
	u.SavedRecipes = []string{}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// FindByEmail retrieves a user by email.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// Get retrieves a user by id with the saved recipe list.
func (s *PostgresStore) Get(ctx context.Context, id string) (*User, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) get(ctx context.Context, query string, arg string) (*User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u := row.user()
	if u.SavedRecipes, err = s.saved(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *PostgresStore) saved(ctx context.Context, userID string) ([]string, error) {
	saved := []string{}
	err := s.db.SelectContext(ctx, &saved,
		`SELECT recipe_id FROM user_saved_recipes WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get saved recipes: %w", err)
	}
	return saved, nil
}

// FindByIDs retrieves the users with the given ids.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []string) ([]*User, error) {
	if len(ids) == 0 {
		return []*User{}, nil
	}
	var rows []userRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	users := make([]*User, 0, len(rows))
	for _, row := range rows {
		u := row.user()
		u.PasswordHash = ""
		users = append(users, u)
	}
	return users, nil
}

// Update saves the editable profile fields.
func (s *PostgresStore) Update(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET username = $2, password_hash = $3, bio = $4, avatar_url = $5, updated_at = $6 WHERE id = $1`,
		u.ID, u.Username, u.PasswordHash, u.Bio, u.AvatarURL, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("User not found")
	}
	return nil
}

// ToggleSaved deletes the saved row when present and inserts it otherwise.
func (s *PostgresStore) ToggleSaved(ctx context.Context, userID, recipeID string) ([]string, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Locking the user row serializes toggles of the same list.
	var locked string
	err = tx.GetContext(ctx, &locked, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, apperror.NotFound("User not found")
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM user_saved_recipes WHERE user_id = $1 AND recipe_id = $2`, userID, recipeID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to update saved recipes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to update saved recipes: %w", err)
	}
	added := n == 0
	if added {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_saved_recipes (user_id, recipe_id) VALUES ($1, $2)`, userID, recipeID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to update saved recipes: %w", err)
		}
	}

	saved := []string{}
	err = tx.SelectContext(ctx, &saved,
		`SELECT recipe_id FROM user_saved_recipes WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get saved recipes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit saved recipes: %w", err)
	}
	return saved, added, nil
}
