package suggest

import (
	"context"
	"strings"

	"chefshare/internal/apperror"
	"chefshare/internal/logging"
	"chefshare/internal/metrics"
)

// BusyMessage is reported when every candidate failed.
const BusyMessage = "The AI Chef is busy finding the right cookbook. Please try again!"

// Service validates suggestion requests and runs the candidate fallback.
type Service struct {
	candidates []Candidate
}

// NewService creates a Service trying candidates in the given order.
func NewService(candidates ...Candidate) *Service {
	return &Service{candidates: candidates}
}

// Candidates returns the candidate names in fallback order.
func (s *Service) Candidates() []string {
	names := make([]string, 0, len(s.candidates))
	for _, c := range s.candidates {
		names = append(names, c.Name())
	}
	return names
}

// Suggest generates a recipe for req. No candidate is called when there are
// no ingredients.
func (s *Service) Suggest(ctx context.Context, req Request) (*Suggestion, error) {
	ingredients := make([]string, 0, len(req.Ingredients))
	for _, in := range req.Ingredients {
		if in = strings.TrimSpace(in); in != "" {
			ingredients = append(ingredients, in)
		}
	}
	if len(ingredients) == 0 {
		return nil, apperror.Validation("Please provide ingredients or a prompt")
	}
	req.Ingredients = ingredients

	out := Run(ctx, s.candidates, BuildPrompt(req))
	if out.Exhausted() {
		metrics.AIExhausted.Inc()
		logging.Ctx(ctx).Error().Err(out.Err).Int("attempts", out.Attempts).Msg("all AI models failed")
		return nil, apperror.Upstream(BusyMessage, out.Err.Error())
	}
	return out.Suggestion, nil
}
