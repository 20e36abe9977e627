package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chefshare/internal/apperror"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS recipes (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	author_id TEXT NOT NULL,
	image_url TEXT NOT NULL,
	ingredients JSONB NOT NULL,
	steps JSONB NOT NULL,
	category TEXT NOT NULL,
	cooking_time TEXT NOT NULL DEFAULT '',
	calories TEXT NOT NULL DEFAULT '',
	mood TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS recipes_author_idx ON recipes (author_id);
CREATE TABLE IF NOT EXISTS recipe_ratings (
	recipe_id TEXT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	rating INTEGER NOT NULL,
	seq BIGSERIAL,
	PRIMARY KEY (recipe_id, user_id)
);
CREATE TABLE IF NOT EXISTS recipe_comments (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL,
	recipe_id TEXT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

const recipeColumns = "id, title, description, author_id, image_url, ingredients, steps, category, cooking_time, calories, mood, created_at, updated_at"

// PostgresStore implements Store on PostgreSQL. Ratings and comments live in
// child tables keyed by recipe.
type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates the recipe tables if needed and returns the store.
func NewPostgresStore(ctx context.Context, db *sqlx.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create recipe tables: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

type recipeRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	AuthorID    string    `db:"author_id"`
	ImageURL    string    `db:"image_url"`
	Ingredients []byte    `db:"ingredients"`
	Steps       []byte    `db:"steps"`
	Category    string    `db:"category"`
	CookingTime string    `db:"cooking_time"`
	Calories    string    `db:"calories"`
	Mood        string    `db:"mood"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row recipeRow) recipe() (*Recipe, error) {
	r := &Recipe{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Author:      Profile{ID: row.AuthorID},
		ImageURL:    row.ImageURL,
		Category:    Category(row.Category),
		CookingTime: row.CookingTime,
		Calories:    row.Calories,
		Mood:        row.Mood,
		Ratings:     []Rating{},
		Comments:    []Comment{},
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Ingredients, &r.Ingredients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
	}
	if err := json.Unmarshal(row.Steps, &r.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	return r, nil
}

// likePattern escapes LIKE metacharacters so s matches as a literal substring.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// Find retrieves recipes matching the filter.
func (s *PostgresStore) Find(ctx context.Context, f Filter) ([]*Recipe, error) {
	f = f.Normalize()
	var args []interface{}
	query := "SELECT " + recipeColumns + " FROM recipes WHERE 1=1"

	paramCount := 1
	if f.Author != "" {
		query += fmt.Sprintf(" AND author_id = $%d", paramCount)
		args = append(args, f.Author)
		paramCount++
	}
	if f.Search != "" {
		query += fmt.Sprintf(" AND title ILIKE $%d", paramCount)
		args = append(args, likePattern(f.Search))
		paramCount++
	}
	if f.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", paramCount)
		args = append(args, f.Category)
		paramCount++
	}
	if f.Ingredient != "" {
		query += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM jsonb_array_elements_text(ingredients) AS i WHERE i ILIKE $%d)", paramCount)
		args = append(args, likePattern(f.Ingredient))
		paramCount++
	}
	if f.Mood != "" {
		query += fmt.Sprintf(" AND mood = $%d", paramCount)
		args = append(args, f.Mood)
	}
	query += " ORDER BY seq"

	return s.query(ctx, query, args...)
}

// FindByIDs retrieves the recipes with the given ids.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []string) ([]*Recipe, error) {
	if len(ids) == 0 {
		return []*Recipe{}, nil
	}
	return s.query(ctx, "SELECT "+recipeColumns+" FROM recipes WHERE id = ANY($1) ORDER BY seq", pq.Array(ids))
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...interface{}) ([]*Recipe, error) {
	var rows []recipeRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get recipes: %w", err)
	}

	recipes := make([]*Recipe, 0, len(rows))
	byID := make(map[string]*Recipe, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		r, err := row.recipe()
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
		byID[r.ID] = r
		ids = append(ids, r.ID)
	}
	if len(ids) == 0 {
		return recipes, nil
	}

	if err := s.attachRatings(ctx, byID, ids); err != nil {
		return nil, err
	}
	if err := s.attachComments(ctx, byID, ids); err != nil {
		return nil, err
	}
	return recipes, nil
}

func (s *PostgresStore) attachRatings(ctx context.Context, byID map[string]*Recipe, ids []string) error {
	var rows []struct {
		RecipeID string `db:"recipe_id"`
		UserID   string `db:"user_id"`
		Rating   int    `db:"rating"`
	}
	err := s.db.SelectContext(ctx, &rows,
		"SELECT recipe_id, user_id, rating FROM recipe_ratings WHERE recipe_id = ANY($1) ORDER BY seq", pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get ratings: %w", err)
	}
	for _, row := range rows {
		r := byID[row.RecipeID]
		r.Ratings = append(r.Ratings, Rating{User: row.UserID, Rating: row.Rating})
	}
	return nil
}

type commentRow struct {
	ID        string    `db:"id"`
	RecipeID  string    `db:"recipe_id"`
	UserID    string    `db:"user_id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

func (row commentRow) comment() Comment {
	return Comment{ID: row.ID, User: Profile{ID: row.UserID}, Text: row.Text, CreatedAt: row.CreatedAt}
}

func (s *PostgresStore) attachComments(ctx context.Context, byID map[string]*Recipe, ids []string) error {
	var rows []commentRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, recipe_id, user_id, text, created_at FROM recipe_comments WHERE recipe_id = ANY($1) ORDER BY seq", pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get comments: %w", err)
	}
	for _, row := range rows {
		r := byID[row.RecipeID]
		r.Comments = append(r.Comments, row.comment())
	}
	return nil
}

// Get retrieves a recipe by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Recipe, error) {
	recipes, err := s.query(ctx, "SELECT "+recipeColumns+" FROM recipes WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(recipes) == 0 {
		return nil, apperror.NotFound("Recipe not found")
	}
	return recipes[0], nil
}

// Insert saves a new recipe.
func (s *PostgresStore) Insert(ctx context.Context, r *Recipe) error {
	ingredientsJSON, err := json.Marshal(r.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	stepsJSON, err := json.Marshal(r.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	now := time.Now().UTC()
	r.ID = uuid.New().String()
	r.CreatedAt, r.UpdatedAt = now, now

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO recipes ("+recipeColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		r.ID, r.Title, r.Description, r.Author.ID, r.ImageURL, ingredientsJSON, stepsJSON,
		string(r.Category), r.CookingTime, r.Calories, r.Mood, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}
	return nil
}

// Update saves the editable fields of a recipe.
func (s *PostgresStore) Update(ctx context.Context, r *Recipe) error {
	ingredientsJSON, err := json.Marshal(r.Ingredients)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	stepsJSON, err := json.Marshal(r.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	r.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE recipes SET title = $2, description = $3, image_url = $4, ingredients = $5, steps = $6,
		category = $7, cooking_time = $8, calories = $9, mood = $10, updated_at = $11 WHERE id = $1`,
		r.ID, r.Title, r.Description, r.ImageURL, ingredientsJSON, stepsJSON,
		string(r.Category), r.CookingTime, r.Calories, r.Mood, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a recipe together with its ratings and comments.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM recipes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("Recipe not found")
	}
	return nil
}

func (s *PostgresStore) exists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM recipes WHERE id = $1", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("Recipe not found")
	}
	if err != nil {
		return fmt.Errorf("failed to get recipe: %w", err)
	}
	return nil
}

// UpsertRating inserts or overwrites the user's rating in one statement.
func (s *PostgresStore) UpsertRating(ctx context.Context, recipeID string, rt Rating) ([]Rating, error) {
	if err := s.exists(ctx, recipeID); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recipe_ratings (recipe_id, user_id, rating) VALUES ($1, $2, $3)
		ON CONFLICT (recipe_id, user_id) DO UPDATE SET rating = EXCLUDED.rating`,
		recipeID, rt.User, rt.Rating,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save rating: %w", err)
	}

	r := &Recipe{ID: recipeID, Ratings: []Rating{}}
	if err := s.attachRatings(ctx, map[string]*Recipe{recipeID: r}, []string{recipeID}); err != nil {
		return nil, err
	}
	return r.Ratings, nil
}

// AddComment appends a comment to the recipe.
func (s *PostgresStore) AddComment(ctx context.Context, recipeID string, c Comment) ([]Comment, error) {
	if err := s.exists(ctx, recipeID); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO recipe_comments (id, recipe_id, user_id, text, created_at) VALUES ($1, $2, $3, $4, $5)",
		uuid.New().String(), recipeID, c.User.ID, c.Text, c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}

	r := &Recipe{ID: recipeID, Comments: []Comment{}}
	if err := s.attachComments(ctx, map[string]*Recipe{recipeID: r}, []string{recipeID}); err != nil {
		return nil, err
	}
	return r.Comments, nil
}

// CountByAuthor groups recipes by author.
func (s *PostgresStore) CountByAuthor(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		AuthorID string `db:"author_id"`
		Count    int    `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &rows, "SELECT author_id, COUNT(*) AS count FROM recipes GROUP BY author_id"); err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.AuthorID] = row.Count
	}
	return counts, nil
}
