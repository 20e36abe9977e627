package suggest

import (
	"context"
	"errors"
	"time"

	"chefshare/internal/logging"
	"chefshare/internal/metrics"
)

// Candidate is one text generation endpoint in the fallback order.
type Candidate interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Outcome is the result of Run: either a suggestion from Model, or Err, the
// failure of the last candidate tried.
type Outcome struct {
	Suggestion *Suggestion
	Model      string
	Attempts   int
	Err        error
}

// Exhausted reports whether no candidate produced a suggestion.
func (o Outcome) Exhausted() bool {
	return o.Suggestion == nil
}

var errNoCandidates = errors.New("no AI candidates configured")

// Run tries each candidate once, in order, and stops at the first response
// that parses as a recipe. Calls are never made concurrently and nothing is
// remembered between runs.
func Run(ctx context.Context, candidates []Candidate, prompt string) Outcome {
	log := logging.Ctx(ctx)
	out := Outcome{Err: errNoCandidates}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			out.Err = err
			break
		}

		out.Attempts++
		log.Info().Str("model", c.Name()).Int("attempt", out.Attempts).Msg("AI chef attempting")

		start := time.Now()
		s, err := attempt(ctx, c, prompt)
		metrics.RecordAIAttempt(c.Name(), time.Since(start), err)
		if err != nil {
			log.Warn().Err(err).Str("model", c.Name()).Msg("AI candidate failed")
			out.Err = err
			continue
		}

		log.Info().Str("model", c.Name()).Msg("AI candidate succeeded")
		out.Suggestion, out.Model, out.Err = s, c.Name(), nil
		return out
	}

	return out
}

func attempt(ctx context.Context, c Candidate, prompt string) (*Suggestion, error) {
	text, err := c.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return Extract(text)
}
