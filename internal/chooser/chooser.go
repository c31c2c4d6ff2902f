// Package chooser asks a language-model backend to pick the candidate that
// best answers a question, validating the answer against the candidate list
// and falling back deterministically when the backend misbehaves.
package chooser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yourorg/apiscout/pkg/types"
)

// Outcome classifies how a choice was produced.
type Outcome int

const (
	// OutcomeConfirmed means the model named a candidate from the list.
	OutcomeConfirmed Outcome = iota
	// OutcomeFallback means the top-scored candidate was used instead.
	OutcomeFallback
	// OutcomeNone means no operation matched.
	OutcomeNone
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeFallback:
		return "fallback"
	}
	return "none"
}

var validMethods = map[string]struct{}{
	"get": {}, "post": {}, "put": {}, "delete": {}, "patch": {}, "options": {}, "head": {},
}

// Chooser picks one candidate for a question. A nil Client skips the backend
// entirely and goes straight to the fallback.
type Chooser struct {
	Client *Client
	Logger *slog.Logger
}

// Choose resolves the question against an already-ranked candidate list.
// The returned choice is always either none or a (route, method) pair taken
// verbatim from candidates; the model can never introduce a new operation.
// Backend failures of any kind degrade to the deterministic fallback.
func (c *Chooser) Choose(ctx context.Context, question string, candidates []types.Candidate) (types.Choice, Outcome) {
	if len(candidates) == 0 {
		return types.Choice{None: true}, OutcomeNone
	}

	answer := ""
	if c.Client != nil {
		text, err := c.Client.Chat(ctx, BuildPrompt(question, candidates))
		if err != nil {
			if c.Logger != nil {
				c.Logger.Warn("llm chat call failed", "error", err)
			}
		} else {
			answer = text
		}
	}

	if choice, outcome, ok := parseAnswer(answer, candidates); ok {
		return choice, outcome
	}
	return fallback(candidates)
}

// BuildPrompt renders the question and the numbered candidate list together
// with the strict answer format the parser expects.
func BuildPrompt(question string, candidates []types.Candidate) string {
	b := &strings.Builder{}
	b.WriteString("You are given a user question and a list of candidate API endpoints.\n")
	b.WriteString("User question:\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nCandidates:\n")
	for i, cand := range candidates {
		fmt.Fprintf(b, "%d. route=%s method=%s summary=%s\n", i+1, cand.Route, strings.ToUpper(cand.Method), cand.Summary)
	}
	b.WriteString("\nChoose the single candidate that best matches the user's intent.\n")
	b.WriteString("Reply with only: <route> <method>\n")
	b.WriteString("If none match, reply: NONE\n")
	return b.String()
}

// parseAnswer validates the raw model answer. ok is false whenever the
// answer did not produce a confirmed choice and the fallback should run.
func parseAnswer(answer string, candidates []types.Candidate) (types.Choice, Outcome, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return types.Choice{}, OutcomeNone, false
	}
	if strings.HasPrefix(strings.ToUpper(answer), "NONE") {
		return types.Choice{None: true}, OutcomeNone, true
	}

	parts := strings.Fields(answer)
	if len(parts) < 2 {
		return types.Choice{}, OutcomeNone, false
	}
	route := parts[0]
	method := normalizeMethod(parts[1])
	if _, ok := validMethods[method]; !ok {
		return types.Choice{}, OutcomeNone, false
	}
	for _, cand := range candidates {
		if cand.Route == route && strings.EqualFold(cand.Method, method) {
			return types.Choice{Route: route, Method: method}, OutcomeConfirmed, true
		}
	}
	return types.Choice{}, OutcomeNone, false
}

// normalizeMethod lower-cases the token, tolerates answers like method=get
// by keeping the part after the last '=', and strips everything that is not
// a lowercase ASCII letter.
func normalizeMethod(raw string) string {
	m := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.LastIndex(m, "="); idx >= 0 {
		m = m[idx+1:]
	}
	var b strings.Builder
	for _, r := range m {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fallback selects the first maximum-score candidate, or none when even the
// best score is not positive.
func fallback(candidates []types.Candidate) (types.Choice, Outcome) {
	best := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.Score > best.Score {
			best = cand
		}
	}
	if best.Score <= 0 {
		return types.Choice{None: true}, OutcomeNone
	}
	return types.Choice{Route: best.Route, Method: best.Method}, OutcomeFallback
}
