package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chefshare/internal/apperror"
	"chefshare/internal/auth"
	"chefshare/internal/config"
	"chefshare/internal/recipe"
	"chefshare/internal/suggest"
	"chefshare/internal/user"
)

// memRecipes is an in-memory recipe.Store.
type memRecipes struct {
	mu      sync.Mutex
	recipes []*recipe.Recipe
	next    int
}

func (m *memRecipes) Find(ctx context.Context, f recipe.Filter) ([]*recipe.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.MinRating = nil
	out := []*recipe.Recipe{}
	for _, r := range m.recipes {
		if f.Matches(r) {
			out = append(out, copyRecipe(r))
		}
	}
	return out, nil
}

func (m *memRecipes) FindByIDs(ctx context.Context, ids []string) ([]*recipe.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*recipe.Recipe{}
	for _, r := range m.recipes {
		for _, id := range ids {
			if r.ID == id {
				out = append(out, copyRecipe(r))
			}
		}
	}
	return out, nil
}

func (m *memRecipes) Get(ctx context.Context, id string) (*recipe.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.find(id); r != nil {
		return copyRecipe(r), nil
	}
	return nil, apperror.NotFound("Recipe not found")
}

func (m *memRecipes) find(id string) *recipe.Recipe {
	for _, r := range m.recipes {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *memRecipes) Insert(ctx context.Context, r *recipe.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	r.ID = fmt.Sprintf("r%d", m.next)
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.recipes = append(m.recipes, copyRecipe(r))
	return nil
}

func (m *memRecipes) Update(ctx context.Context, r *recipe.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.find(r.ID)
	if stored == nil {
		return apperror.NotFound("Recipe not found")
	}
	ratings, comments, author := stored.Ratings, stored.Comments, stored.Author
	*stored = *copyRecipe(r)
	stored.Ratings, stored.Comments, stored.Author = ratings, comments, author
	return nil
}

func (m *memRecipes) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.recipes {
		if r.ID == id {
			m.recipes = append(m.recipes[:i], m.recipes[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("Recipe not found")
}

func (m *memRecipes) UpsertRating(ctx context.Context, recipeID string, rt recipe.Rating) ([]recipe.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(recipeID)
	if r == nil {
		return nil, apperror.NotFound("Recipe not found")
	}
	for i := range r.Ratings {
		if r.Ratings[i].User == rt.User {
			r.Ratings[i].Rating = rt.Rating
			return append([]recipe.Rating{}, r.Ratings...), nil
		}
	}
	r.Ratings = append(r.Ratings, rt)
	return append([]recipe.Rating{}, r.Ratings...), nil
}

func (m *memRecipes) AddComment(ctx context.Context, recipeID string, c recipe.Comment) ([]recipe.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.find(recipeID)
	if r == nil {
		return nil, apperror.NotFound("Recipe not found")
	}
	c.ID = fmt.Sprintf("c%d", len(r.Comments)+1)
	r.Comments = append(r.Comments, c)
	return append([]recipe.Comment{}, r.Comments...), nil
}

func (m *memRecipes) CountByAuthor(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, r := range m.recipes {
		counts[r.Author.ID]++
	}
	return counts, nil
}

func copyRecipe(r *recipe.Recipe) *recipe.Recipe {
	c := *r
	c.Ingredients = append([]string{}, r.Ingredients...)
	c.Steps = append([]string{}, r.Steps...)
	c.Ratings = append([]recipe.Rating{}, r.Ratings...)
	c.Comments = append([]recipe.Comment{}, r.Comments...)
	return &c
}

// memUsers is an in-memory user.Store.
type memUsers struct {
	mu    sync.Mutex
	users []*user.User
}

func (m *memUsers) Create(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperror.Validation("User already exists")
		}
	}
	u.ID = fmt.Sprintf("u%d", len(m.users)+1)
	u.SavedRecipes = []string{}
	c := *u
	m.users = append(m.users, &c)
	return nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("User not found")
}

func (m *memUsers) Get(ctx context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.find(id); u != nil {
		c := *u
		c.SavedRecipes = append([]string{}, u.SavedRecipes...)
		return &c, nil
	}
	return nil, apperror.NotFound("User not found")
}

func (m *memUsers) find(id string) *user.User {
	for _, u := range m.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (m *memUsers) FindByIDs(ctx context.Context, ids []string) ([]*user.User, error) {
	out := []*user.User{}
	for _, id := range ids {
		if u, err := m.Get(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) Update(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.find(u.ID)
	if stored == nil {
		return apperror.NotFound("User not found")
	}
	stored.Username, stored.Bio, stored.AvatarURL, stored.PasswordHash = u.Username, u.Bio, u.AvatarURL, u.PasswordHash
	return nil
}

func (m *memUsers) ToggleSaved(ctx context.Context, userID, recipeID string) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.find(userID)
	if u == nil {
		return nil, false, apperror.NotFound("User not found")
	}
	for i, id := range u.SavedRecipes {
		if id == recipeID {
			u.SavedRecipes = append(u.SavedRecipes[:i], u.SavedRecipes[i+1:]...)
			return append([]string{}, u.SavedRecipes...), false, nil
		}
	}
	u.SavedRecipes = append(u.SavedRecipes, recipeID)
	return append([]string{}, u.SavedRecipes...), true, nil
}

// failingCandidate always returns err and counts its calls.
type failingCandidate struct {
	name  string
	err   error
	calls int
}

func (f *failingCandidate) Name() string { return f.name }

func (f *failingCandidate) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return "", f.err
}

type app struct {
	t      *testing.T
	router *gin.Engine
}

func newApp(t *testing.T, candidates ...suggest.Candidate) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server:  config.ServerConfig{CORSOrigins: []string{"http://localhost:5173"}, Timeout: time.Second, AITimeout: time.Second},
		Auth:    config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour},
		Uploads: config.UploadsConfig{Dir: t.TempDir(), PublicURL: "/images"},
	}
	router := buildRouter(cfg, &memRecipes{}, &memUsers{}, auth.NewRevocations(nil), candidates)
	return &app{t: t, router: router}
}

func (a *app) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *app) decode(rr *httptest.ResponseRecorder, v interface{}) {
	a.t.Helper()
	require.NoError(a.t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func (a *app) register(name string) user.Session {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": name,
		"email":    name + "@example.com",
		"password": "secret",
	})
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	var s user.Session
	a.decode(rr, &s)
	return s
}

func (a *app) create(token, title string, category recipe.Category, ingredients ...string) recipe.Recipe {
	a.t.Helper()
	rr := a.do(http.MethodPost, "/api/recipes", token, gin.H{
		"title":       title,
		"ingredients": ingredients,
		"steps":       []string{"cook"},
		"category":    category,
	})
	require.Equal(a.t, http.StatusCreated, rr.Code, rr.Body.String())
	var r recipe.Recipe
	a.decode(rr, &r)
	return r
}

func (a *app) list(query string) []recipe.Recipe {
	a.t.Helper()
	rr := a.do(http.MethodGet, "/api/recipes"+query, "", nil)
	require.Equal(a.t, http.StatusOK, rr.Code, rr.Body.String())
	var out []recipe.Recipe
	a.decode(rr, &out)
	return out
}

func titles(recipes []recipe.Recipe) []string {
	out := make([]string, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, r.Title)
	}
	return out
}

func TestRecipeFilters(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice")
	bob := a.register("bob")

	a.create(alice.Token, "Leek Soup", recipe.Lunch, "Leek", "Potato")
	a.create(alice.Token, "Brownies", recipe.Dessert, "Chocolate")
	a.create(bob.Token, "Potato Salad", recipe.Lunch, "potato")

	assert.Equal(t, []string{"Leek Soup", "Brownies", "Potato Salad"}, titles(a.list("?category=All")))
	assert.Equal(t, []string{"Leek Soup", "Potato Salad"}, titles(a.list("?category=Lunch")))
	assert.Equal(t, []string{"Leek Soup", "Potato Salad"}, titles(a.list("?ingredient=POTATO")))
	assert.Equal(t, []string{"Brownies"}, titles(a.list("?search=brown")))
	assert.Equal(t, []string{"Potato Salad"}, titles(a.list("?author="+bob.ID)))

	all := a.list("")
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].Author.Username)
}

func TestRatingFlow(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice")
	bob := a.register("bob")
	soup := a.create(alice.Token, "Leek Soup", recipe.Lunch, "Leek")
	a.create(alice.Token, "Brownies", recipe.Dessert, "Chocolate")

	rr := a.do(http.MethodPost, "/api/recipes/"+soup.ID+"/rating", bob.Token, gin.H{"rating": 2})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = a.do(http.MethodPost, "/api/recipes/"+soup.ID+"/rating", bob.Token, gin.H{"rating": 4})
	require.Equal(t, http.StatusOK, rr.Code)

	var ratings []recipe.Rating
	a.decode(rr, &ratings)
	assert.Equal(t, []recipe.Rating{{User: bob.ID, Rating: 4}}, ratings)

	assert.Equal(t, []string{"Leek Soup"}, titles(a.list("?minRating=4")))
	assert.Empty(t, a.list("?minRating=4.5"))
	// Unrated recipes never pass a rating threshold.
	assert.Equal(t, []string{"Leek Soup"}, titles(a.list("?minRating=0")))

	rr = a.do(http.MethodGet, "/api/recipes/trending", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var trending []recipe.Recipe
	a.decode(rr, &trending)
	assert.Equal(t, []string{"Leek Soup", "Brownies"}, titles(trending))
}

func TestCommentFlow(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice")
	bob := a.register("bob")
	soup := a.create(alice.Token, "Leek Soup", recipe.Lunch, "Leek")

	rr := a.do(http.MethodPost, "/api/recipes/"+soup.ID+"/comments", bob.Token, gin.H{"text": "Lovely"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = a.do(http.MethodGet, "/api/recipes/"+soup.ID, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got recipe.Recipe
	a.decode(rr, &got)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "bob", got.Comments[0].User.Username)
	assert.Equal(t, "Lovely", got.Comments[0].Text)
}

func TestOnlyOwnerMayDelete(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice")
	bob := a.register("bob")
	soup := a.create(alice.Token, "Leek Soup", recipe.Lunch, "Leek")

	rr := a.do(http.MethodDelete, "/api/recipes/"+soup.ID, bob.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"message":"User not authorized"}`, rr.Body.String())

	rr = a.do(http.MethodPut, "/api/recipes/"+soup.ID, bob.Token, gin.H{"title": "Mine now"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = a.do(http.MethodDelete, "/api/recipes/"+soup.ID, alice.Token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%q}`, soup.ID), rr.Body.String())

	rr = a.do(http.MethodGet, "/api/recipes/"+soup.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTopContributors(t *testing.T) {
	a := newApp(t)
	counts := map[string]int{"ann": 4, "ben": 3, "cat": 2, "dan": 1}
	for _, name := range []string{"ann", "ben", "cat", "dan"} {
		s := a.register(name)
		for i := 0; i < counts[name]; i++ {
			a.create(s.Token, fmt.Sprintf("%s %d", name, i), recipe.Other, "salt")
		}
	}

	contributors := func(query string) []recipe.Contributor {
		rr := a.do(http.MethodGet, "/api/recipes/top-contributors"+query, "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var out []recipe.Contributor
		a.decode(rr, &out)
		return out
	}

	top := contributors("")
	require.Len(t, top, 3)
	assert.Equal(t, "ann", top[0].Username)
	assert.Equal(t, 4, top[0].RecipeCount)
	assert.Equal(t, "cat", top[2].Username)

	assert.Len(t, contributors("?limit=all"), 4)
	assert.Len(t, contributors("?limit=1"), 1)
	assert.Len(t, contributors("?limit=abc"), 3)
}

func TestSuggestAllCandidatesFail(t *testing.T) {
	first := &failingCandidate{name: "gemini-flash-latest", err: errors.New("model not found")}
	second := &failingCandidate{name: "gemini-1.5-flash", err: errors.New("quota exceeded")}
	a := newApp(t, first, second)
	s := a.register("alice")

	rr := a.do(http.MethodPost, "/api/ai/suggest", s.Token, gin.H{"ingredients": []string{"rice", "egg"}, "mode": "leftover"})

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body apperror.ErrorResponse
	a.decode(rr, &body)
	assert.Equal(t, suggest.BusyMessage, body.Message)
	assert.Equal(t, "quota exceeded", body.Error)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestSuggestWithoutIngredientsCallsNoModel(t *testing.T) {
	c := &failingCandidate{name: "gemini-flash-latest", err: errors.New("unused")}
	a := newApp(t, c)
	s := a.register("alice")

	rr := a.do(http.MethodPost, "/api/ai/suggest", s.Token, gin.H{"ingredients": []string{" ", ""}})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"message":"Please provide ingredients or a prompt"}`, rr.Body.String())
	assert.Zero(t, c.calls)
}

func TestAccountFlow(t *testing.T) {
	a := newApp(t)
	alice := a.register("alice")
	soup := a.create(alice.Token, "Leek Soup", recipe.Lunch, "Leek")

	rr := a.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "again", "email": "ALICE@example.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"message":"User already exists"}`, rr.Body.String())

	rr = a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "Alice@Example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rr.Code)
	var session user.Session
	a.decode(rr, &session)
	assert.Equal(t, alice.ID, session.ID)

	rr = a.do(http.MethodPut, "/api/auth/save/"+soup.ID, session.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = a.do(http.MethodGet, "/api/auth/me", session.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var me user.Account
	a.decode(rr, &me)
	require.Len(t, me.SavedRecipes, 1)
	assert.Equal(t, "Leek Soup", me.SavedRecipes[0].Title)

	rr = a.do(http.MethodGet, "/api/auth/"+alice.ID, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "alice@example.com")

	// Without Redis logout cannot revoke, so the token stays usable.
	rr = a.do(http.MethodPost, "/api/auth/logout", session.Token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = a.do(http.MethodGet, "/api/auth/me", session.Token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
