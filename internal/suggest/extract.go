package suggest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chefshare/internal/recipe"
)

// Suggestion is a generated recipe as returned to the client.
type Suggestion struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Ingredients      []string `json:"ingredients"`
	Steps            []string `json:"steps"`
	Category         string   `json:"category"`
	CookingTime      Text     `json:"cookingTime"`
	Calories         Text     `json:"calories"`
	Mood             string   `json:"mood"`
	UsesLeftoverOnly bool     `json:"usesLeftoverOnly"`
	ImageURL         string   `json:"imageUrl"`
}

// Text is a free-form string field that also accepts a bare JSON number,
// which models sometimes emit for calories or minutes.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*t = Text(n.String())
	return nil
}

var errEmptyResponse = errors.New("empty response from AI")

// Extract strips markdown code fences from text and parses the recipe object.
// A missing image is replaced by the placeholder image.
func Extract(text string) (*Suggestion, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, errEmptyResponse
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(cleaned), &s); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	if strings.TrimSpace(s.Title) == "" {
		return nil, errors.New("AI response has no title")
	}

	if strings.TrimSpace(s.ImageURL) == "" {
		s.ImageURL = recipe.DefaultImageURL
	}
	if s.Ingredients == nil {
		s.Ingredients = []string{}
	}
	if s.Steps == nil {
		s.Steps = []string{}
	}
	return &s, nil
}
