package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chefshare/internal/apperror"
	"chefshare/internal/recipe"
)

// mockCandidate returns a fixed response and counts calls.
type mockCandidate struct {
	name    string
	text    string
	err     error
	calls   int
	prompts []string
}

func (m *mockCandidate) Name() string { return m.name }

func (m *mockCandidate) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	return m.text, m.err
}

const validJSON = `{"title":"Fried Rice","description":"quick","ingredients":["rice","egg"],"steps":["fry"],"category":"Dinner","cookingTime":"15 minutes","calories":"450 kcal","mood":"Quick","usesLeftoverOnly":true}`

func TestSuggestEmptyIngredientsMakesNoCalls(t *testing.T) {
	c := &mockCandidate{name: "m1", text: validJSON}
	svc := NewService(c)

	for _, ingredients := range [][]string{nil, {}, {"  ", ""}} {
		_, err := svc.Suggest(context.Background(), Request{Ingredients: ingredients, Mode: Leftover})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrValidation))
		assert.Equal(t, "Please provide ingredients or a prompt", err.Error())
	}
	assert.Equal(t, 0, c.calls)
}

func TestSuggestFallsBackToThirdCandidate(t *testing.T) {
	first := &mockCandidate{name: "m1", err: errors.New("status 404")}
	second := &mockCandidate{name: "m2", text: "Sorry, I can't help with that."}
	third := &mockCandidate{name: "m3", text: "```json\n" + validJSON + "\n```"}
	fourth := &mockCandidate{name: "m4", text: validJSON}
	svc := NewService(first, second, third, fourth)

	s, err := svc.Suggest(context.Background(), Request{Ingredients: []string{"rice", "egg"}, Mode: Leftover})
	require.NoError(t, err)

	assert.Equal(t, "Fried Rice", s.Title)
	assert.Equal(t, recipe.DefaultImageURL, s.ImageURL)
	assert.True(t, s.UsesLeftoverOnly)
	assert.Equal(t, 3, first.calls+second.calls+third.calls+fourth.calls)
	assert.Equal(t, 1, third.calls)
	assert.Equal(t, 0, fourth.calls)
}

func TestSuggestExhausted(t *testing.T) {
	first := &mockCandidate{name: "m1", err: errors.New("quota exceeded")}
	second := &mockCandidate{name: "m2", text: ""}
	svc := NewService(first, second)

	_, err := svc.Suggest(context.Background(), Request{Ingredients: []string{"rice"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUpstream))

	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, BusyMessage, appErr.Message)
	assert.Equal(t, "empty response from AI", appErr.Detail)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestSuggestRestartsEveryCall(t *testing.T) {
	first := &mockCandidate{name: "m1", err: errors.New("down")}
	second := &mockCandidate{name: "m2", text: validJSON}
	svc := NewService(first, second)
	req := Request{Ingredients: []string{"rice"}}

	for i := 0; i < 2; i++ {
		_, err := svc.Suggest(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, first.calls)
	assert.Equal(t, 2, second.calls)
}

func TestRunOutcome(t *testing.T) {
	t.Run("no candidates", func(t *testing.T) {
		out := Run(context.Background(), nil, "p")
		assert.True(t, out.Exhausted())
		assert.Equal(t, 0, out.Attempts)
		assert.Error(t, out.Err)
	})

	t.Run("success reports model", func(t *testing.T) {
		c := []Candidate{
			&mockCandidate{name: "m1", err: errors.New("down")},
			&mockCandidate{name: "m2", text: validJSON},
		}
		out := Run(context.Background(), c, "p")
		assert.False(t, out.Exhausted())
		assert.Equal(t, "m2", out.Model)
		assert.Equal(t, 2, out.Attempts)
		assert.NoError(t, out.Err)
	})

	t.Run("cancelled context stops the loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := &mockCandidate{name: "m1", text: validJSON}
		out := Run(ctx, []Candidate{c}, "p")
		assert.True(t, out.Exhausted())
		assert.ErrorIs(t, out.Err, context.Canceled)
		assert.Equal(t, 0, c.calls)
	})
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"plain", validJSON, false},
		{"fenced", "```json\n" + validJSON + "\n```", false},
		{"bare fence", "```\n" + validJSON + "```", false},
		{"empty", "   ", true},
		{"prose", "Here is your recipe!", true},
		{"array", `[` + validJSON + `]`, true},
		{"no title", `{"description":"x"}`, true},
		{"truncated", validJSON[:40], true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Extract(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Fried Rice", s.Title)
			assert.Equal(t, []string{"rice", "egg"}, s.Ingredients)
		})
	}
}

func TestExtractNormalises(t *testing.T) {
	s, err := Extract(`{"title":"Toast","calories":250,"cookingTime":null,"imageUrl":"  "}`)
	require.NoError(t, err)

	assert.Equal(t, Text("250"), s.Calories)
	assert.Equal(t, Text(""), s.CookingTime)
	assert.Equal(t, recipe.DefaultImageURL, s.ImageURL)
	assert.NotNil(t, s.Ingredients)
	assert.NotNil(t, s.Steps)

	s, err = Extract(`{"title":"Toast","imageUrl":"https://example.com/t.png"}`)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/t.png", s.ImageURL)
}

func TestBuildPrompt(t *testing.T) {
	t.Run("leftover", func(t *testing.T) {
		p := BuildPrompt(Request{Ingredients: []string{"rice", "egg"}, Mode: Leftover})
		assert.Contains(t, p, "User provides ingredients: rice, egg.")
		assert.Contains(t, p, "plus basic pantry items")
		assert.Contains(t, p, `Set "usesLeftoverOnly": true.`)
		assert.NotContains(t, p, "User mood")
	})

	t.Run("creative with default mood", func(t *testing.T) {
		p := BuildPrompt(Request{Ingredients: []string{"rice"}, Mode: Creative})
		assert.Contains(t, p, "User mood: Any.")
		assert.Contains(t, p, "Creativity > restriction.")
		assert.Contains(t, p, `Set "usesLeftoverOnly": false.`)
	})

	t.Run("unknown mode is creative", func(t *testing.T) {
		p := BuildPrompt(Request{Ingredients: []string{"rice"}, Mood: "Fancy", Mode: "surprise"})
		assert.Contains(t, p, "User mood: Fancy.")
	})

	t.Run("output rules", func(t *testing.T) {
		p := BuildPrompt(Request{Ingredients: []string{"rice"}})
		assert.Contains(t, p, `"category" options: "Breakfast", "Lunch", "Dinner", "Snacks", "Dessert", "Other".`)
		assert.Contains(t, p, `"mood" options: "Comfort", "Healthy", "Quick", "Fancy", "Sweet".`)
		assert.Contains(t, p, "Do not add markdown formatting. Just JSON.")
		assert.True(t, strings.HasPrefix(p, "**You are an AI chef for a cooking app.**"))
	})
}

func TestSuggestSendsPrompt(t *testing.T) {
	c := &mockCandidate{name: "m1", text: validJSON}
	svc := NewService(c)

	_, err := svc.Suggest(context.Background(), Request{Ingredients: []string{" rice ", ""}, Mood: "Comfort"})
	require.NoError(t, err)
	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], "User input: rice.")
	assert.Equal(t, []string{"m1"}, svc.Candidates())
}
