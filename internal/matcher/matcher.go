// Package matcher tokenizes a free-text question and ranks every operation
// of an OpenAPI document against it with a small additive heuristic.
package matcher

import (
	"sort"
	"strings"

	"github.com/yourorg/apiscout/internal/openapi"
	"github.com/yourorg/apiscout/pkg/types"
)

// Tokenize splits text into lower-cased maximal runs of ASCII letters and
// digits. Everything else is a separator. Order and repetition are kept.
func Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// Score computes the relevance of one operation for the query tokens:
// +3 for a substring match on the raw path, +2 each for a token match in the
// tokenized operationId and summary, +1 for a description token match and +1
// for equality with a referenced schema name. Each rule fires at most once
// per token per field; scores sum over tokens.
func Score(tokens []string, route string, op *openapi.Operation) float64 {
	routeLow := strings.ToLower(route)
	opTokens := tokenSet(op.OperationID)
	summaryTokens := tokenSet(op.Summary)
	descTokens := tokenSet(op.Description)

	schemaNames := make(map[string]struct{})
	for _, ref := range op.SchemaRefs() {
		schemaNames[strings.ToLower(openapi.RefName(ref))] = struct{}{}
	}

	var score float64
	for _, t := range uniqueTokens(tokens) {
		if strings.Contains(routeLow, t) {
			score += 3.0
		}
		if _, ok := opTokens[t]; ok {
			score += 2.0
		}
		if _, ok := summaryTokens[t]; ok {
			score += 2.0
		}
		if _, ok := descTokens[t]; ok {
			score += 1.0
		}
		if _, ok := schemaNames[t]; ok {
			score += 1.0
		}
	}
	return score
}

// FindCandidates scores every (route, method) operation of the document and
// returns at most topK candidates sorted by (score desc, route asc, method
// asc). Zero-score candidates are kept; the tie-break keeps the ordering
// deterministic for identical queries against an unchanged document.
func FindCandidates(doc *openapi.Document, question string, topK int) []types.Candidate {
	tokens := Tokenize(question)
	out := make([]types.Candidate, 0, doc.OperationCount())
	for _, route := range doc.Routes {
		item := doc.Paths[route]
		for method, op := range item.Operations {
			out = append(out, types.Candidate{
				Route:       route,
				Method:      method,
				Summary:     op.Summary,
				OperationID: op.OperationID,
				SchemaRefs:  op.SchemaRefs(),
				Score:       Score(tokens, route, op),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Route != out[j].Route {
			return out[i].Route < out[j].Route
		}
		return out[i].Method < out[j].Method
	})
	if topK < 0 {
		topK = 0
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokenize(text) {
		set[t] = struct{}{}
	}
	return set
}

func uniqueTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
