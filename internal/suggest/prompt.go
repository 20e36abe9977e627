// Package suggest generates recipe suggestions by prompting an ordered list of
// text generation candidates until one returns a usable recipe.
package suggest

import (
	"fmt"
	"strings"

	"chefshare/internal/recipe"
)

// Mode selects how closely the generator must stick to the ingredients.
type Mode string

const (
	// Leftover restricts the recipe to the supplied ingredients and pantry basics.
	Leftover Mode = "leftover"
	// Creative uses the ingredients and mood as seeds only.
	Creative Mode = "creative"
)

// Request is the body of a suggestion request.
type Request struct {
	Ingredients []string `json:"ingredients"`
	Mood        string   `json:"mood"`
	Mode        Mode     `json:"mode"`
}

const outputRules = `
### Output Rules
Return ONLY a valid JSON object with this exact structure:
{
  "title": "Recipe Name",
  "description": "Short description",
  "ingredients": ["List of ingredients"],
  "steps": ["Step 1", "Step 2"],
  "category": "Dinner",
  "cookingTime": "30 minutes",
  "calories": "500 kcal",
  "mood": "Comfort",
  "usesLeftoverOnly": true,
  "imageUrl": ""
}
IMPORTANT: "category" options: %s.
IMPORTANT: "mood" options: %s.
Do not add markdown formatting. Just JSON.
`

// BuildPrompt renders the instruction text for req. Any mode other than
// Leftover is treated as Creative.
func BuildPrompt(req Request) string {
	ingredients := strings.Join(req.Ingredients, ", ")

	var instruction string
	if req.Mode == Leftover {
		instruction = fmt.Sprintf(`Mode A: Leftover Cooking (Strict Mode)
User provides ingredients: %s.
Your job is to generate a recipe using **only those ingredients**, plus basic pantry items.
Set "usesLeftoverOnly": true.`, ingredients)
	} else {
		mood := strings.TrimSpace(req.Mood)
		if mood == "" {
			mood = "Any"
		}
		instruction = fmt.Sprintf(`Mode B: AI Creative Recipe Generator (Flexible Mode)
User input: %s.
User mood: %s.
Creativity > restriction.
Set "usesLeftoverOnly": false.`, ingredients, mood)
	}

	categories := make([]string, 0, len(recipe.Categories))
	for _, c := range recipe.Categories {
		categories = append(categories, string(c))
	}

	return "**You are an AI chef for a cooking app.**\n" +
		instruction + "\n" +
		fmt.Sprintf(outputRules, quoteList(categories), quoteList(recipe.Moods))
}

func quoteList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, s := range items {
		quoted = append(quoted, `"`+s+`"`)
	}
	return strings.Join(quoted, ", ")
}
