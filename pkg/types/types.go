package types

import "time"

// Candidate is one scored guess at which operation answers a question.
type Candidate struct {
	Route       string   `json:"route"`
	Method      string   `json:"method"`
	Summary     string   `json:"summary,omitempty"`
	OperationID string   `json:"operationId,omitempty"`
	SchemaRefs  []string `json:"schema_refs"`
	Score       float64  `json:"score"`
}

// Choice identifies the candidate picked for a question, or no match at all.
// A non-none choice always names a (route, method) pair taken from the
// candidate list it was derived from.
type Choice struct {
	Route  string `json:"route,omitempty"`
	Method string `json:"method,omitempty"`
	None   bool   `json:"none,omitempty"`
}

// SpecDocument is one OpenAPI document held in the local registry.
type SpecDocument struct {
	Name       string    `json:"name"`
	Title      string    `json:"title,omitempty"`
	Version    string    `json:"version,omitempty"`
	Operations int       `json:"operations"`
	Raw        string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
