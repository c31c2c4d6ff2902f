// Package resolver turns a chosen (route, method) pair back into developer
// facing artifacts: its schema references, a generated example payload and a
// ready-to-run curl template.
package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yourorg/apiscout/internal/openapi"
)

// ErrNoRequestBody reports an operation without a request body schema to
// sample. Like a lookup miss, it is a normal outcome, not a failure.
var ErrNoRequestBody = errors.New("no request body schema found")

// Summary describes a resolved operation.
type Summary struct {
	Route       string   `json:"route"`
	Method      string   `json:"method"`
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	OperationID string   `json:"operationId,omitempty"`
	SchemaRefs  []string `json:"schema_refs"`
}

// SchemaSet lists an operation's schema refs and the resolvable definitions
// among them, keyed by component name. Unresolvable refs stay in Refs but
// contribute nothing to Schemas.
type SchemaSet struct {
	Refs    []string                   `json:"refs"`
	Schemas map[string]*openapi.Schema `json:"schemas"`
}

// Sample is a generated example request body for one media type.
type Sample struct {
	ContentType string `json:"content_type"`
	SchemaRef   string `json:"schema_ref,omitempty"`
	Value       any    `json:"sample"`
}

// Command is an example invocation for a resolved operation.
type Command struct {
	Curl string `json:"curl"`
}

// ResolveSummary looks up the operation and reports its metadata and schema
// refs. The route tolerates trailing-slash variance.
func ResolveSummary(doc *openapi.Document, route, method string) (*Summary, error) {
	op, err := doc.FindOperation(route, method)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Route:       route,
		Method:      strings.ToLower(method),
		Summary:     op.Summary,
		Description: op.Description,
		OperationID: op.OperationID,
		SchemaRefs:  op.SchemaRefs(),
	}, nil
}

// ResolveSchemas collects the operation's refs and resolves each canonical
// one against the document's components.
func ResolveSchemas(doc *openapi.Document, route, method string) (*SchemaSet, error) {
	op, err := doc.FindOperation(route, method)
	if err != nil {
		return nil, err
	}
	refs := op.SchemaRefs()
	schemas := make(map[string]*openapi.Schema)
	for _, ref := range refs {
		if sch := doc.ResolveRef(ref); sch != nil {
			schemas[openapi.RefName(ref)] = sch
		}
	}
	return &SchemaSet{Refs: refs, Schemas: schemas}, nil
}

// ResolveSample generates an example body from the first request body media
// type whose schema is usable. A media type with an unresolvable ref is
// skipped in favor of the next one.
func ResolveSample(doc *openapi.Document, route, method string) (*Sample, error) {
	op, err := doc.FindOperation(route, method)
	if err != nil {
		return nil, err
	}
	if op.RequestBody == nil {
		return nil, ErrNoRequestBody
	}
	for _, mt := range op.RequestBody.Content {
		if mt.Schema != nil && mt.Schema.Ref != "" {
			resolved := doc.ResolveRef(mt.Schema.Ref)
			if resolved == nil {
				continue
			}
			return &Sample{ContentType: mt.Name, SchemaRef: mt.Schema.Ref, Value: SampleFromSchema(resolved)}, nil
		}
		return &Sample{ContentType: mt.Name, Value: SampleFromSchema(mt.Schema)}, nil
	}
	return nil, ErrNoRequestBody
}

// ResolveCurl builds a curl template for the operation. Path parameters keep
// their {name} placeholders and the host is a fixed placeholder. The first
// media type with a generated sample supplies the body; a bearer-token
// placeholder is appended when the operation or document requires security.
func ResolveCurl(doc *openapi.Document, route, method string) (*Command, error) {
	op, err := doc.FindOperation(route, method)
	if err != nil {
		return nil, err
	}
	b := &strings.Builder{}
	fmt.Fprintf(b, "curl -X %s \"http://<HOST>%s\"", strings.ToUpper(method), route)

	if op.RequestBody != nil {
		for _, mt := range op.RequestBody.Content {
			schema := mt.Schema
			if schema != nil && schema.Ref != "" {
				schema = doc.ResolveRef(schema.Ref)
			}
			sample := SampleFromSchema(schema)
			if sample == nil {
				continue
			}
			data, err := json.Marshal(sample)
			if err != nil {
				continue
			}
			fmt.Fprintf(b, " -H \"Content-Type: %s\" -d '%s'", mt.Name, data)
			break
		}
	}
	if op.HasSecurity() || doc.Security {
		b.WriteString(" -H \"Authorization: Bearer <TOKEN>\"")
	}
	return &Command{Curl: b.String()}, nil
}
