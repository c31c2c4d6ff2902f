// Package openapi holds a small typed model of an OpenAPI v3 JSON document.
// It is built once at load time and treated as read-only afterwards; malformed
// fragments decay to empty optional fields instead of failing the load.
package openapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

const schemaRefPrefix = "#/components/schemas/"

// ErrOperationNotFound reports a (route, method) pair with no operation in
// the document. Callers treat it as a normal lookup miss, not a failure.
var ErrOperationNotFound = errors.New("operation not found")

// Document is the in-memory form of one OpenAPI v3 JSON file.
type Document struct {
	Info     Info
	Paths    map[string]PathItem
	Routes   []string // path keys in document order
	Schemas  map[string]*Schema
	Security bool // document-level security requirement present
}

// Info carries the document's descriptive metadata.
type Info struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// PathItem maps lower-cased HTTP methods to operations. Keys whose value is
// not an object are dropped during decoding.
type PathItem struct {
	Operations map[string]*Operation
}

// Operation is one method under one path.
type Operation struct {
	Summary     string              `json:"summary,omitempty"`
	Description string              `json:"description,omitempty"`
	OperationID string              `json:"operationId,omitempty"`
	Parameters  []Parameter         `json:"parameters,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses,omitempty"`
	Security    []json.RawMessage   `json:"security,omitempty"`
}

// Parameter is one operation parameter, possibly schema-typed.
type Parameter struct {
	Name     string  `json:"name,omitempty"`
	In       string  `json:"in,omitempty"`
	Required bool    `json:"required,omitempty"`
	Schema   *Schema `json:"schema,omitempty"`
}

// RequestBody holds the media types an operation accepts.
type RequestBody struct {
	Required bool    `json:"required,omitempty"`
	Content  Content `json:"content,omitempty"`
}

// Response is one status-code entry of an operation.
type Response struct {
	Description string  `json:"description,omitempty"`
	Content     Content `json:"content,omitempty"`
}

// MediaType is one content entry, e.g. application/json.
type MediaType struct {
	Name   string
	Schema *Schema
}

// Content lists media types preserving their order in the document.
type Content []MediaType

// Schema is the subset of JSON Schema the tool inspects. Composition
// keywords and external refs are not modeled; fragments that are not JSON
// objects decode to the zero Schema, which samples to null.
type Schema struct {
	Ref        string             `json:"$ref,omitempty"`
	Type       string             `json:"type,omitempty"`
	Format     string             `json:"format,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
}

// Load reads and decodes an OpenAPI document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read openapi document: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes an OpenAPI document from raw JSON.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}

	*d = Document{Paths: map[string]PathItem{}}
	if raw, ok := top["info"]; ok {
		_ = json.Unmarshal(raw, &d.Info)
	}
	if raw, ok := top["paths"]; ok {
		var paths map[string]PathItem
		if err := json.Unmarshal(raw, &paths); err == nil && paths != nil {
			d.Paths = paths
			d.Routes = orderedKeys(raw, paths)
		}
	}
	if raw, ok := top["components"]; ok {
		var comp struct {
			Schemas map[string]*Schema `json:"schemas"`
		}
		if err := json.Unmarshal(raw, &comp); err == nil {
			d.Schemas = comp.Schemas
		}
	}
	if raw, ok := top["security"]; ok {
		var sec []json.RawMessage
		if err := json.Unmarshal(raw, &sec); err == nil && len(sec) > 0 {
			d.Security = true
		}
	}
	return nil
}

func (p *PathItem) UnmarshalJSON(data []byte) error {
	p.Operations = map[string]*Operation{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Non-object path entries carry no operations.
		return nil
	}
	for key, body := range raw {
		var op Operation
		if err := json.Unmarshal(body, &op); err != nil {
			continue
		}
		p.Operations[strings.ToLower(key)] = &op
	}
	return nil
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*c = nil
		return nil
	}
	out := make(Content, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, name := range objectKeys(data) {
		body, ok := raw[name]
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		var mt struct {
			Schema *Schema `json:"schema"`
		}
		if err := json.Unmarshal(body, &mt); err != nil {
			continue
		}
		out = append(out, MediaType{Name: name, Schema: mt.Schema})
	}
	*c = out
	return nil
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	type plain Schema
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		// Non-object fragments decay to the zero schema.
		*s = Schema{}
		return nil
	}
	*s = Schema(p)
	return nil
}

// RefName returns the component schema name for a canonical ref, or "" when
// the ref does not use the #/components/schemas/ prefix. Non-canonical refs
// are never dereferenced.
func RefName(ref string) string {
	if !strings.HasPrefix(ref, schemaRefPrefix) {
		return ""
	}
	return strings.TrimPrefix(ref, schemaRefPrefix)
}

// ResolveRef looks up a component schema by ref. It returns nil for unknown
// names and for refs outside the components/schemas space.
func (d *Document) ResolveRef(ref string) *Schema {
	name := RefName(ref)
	if name == "" {
		return nil
	}
	return d.Schemas[name]
}

// FindOperation looks up route directly, then retries with trailing slashes
// stripped from both sides, scanning paths in document order.
func (d *Document) FindOperation(route, method string) (*Operation, error) {
	item, ok := d.Paths[route]
	if !ok {
		trimmed := strings.TrimRight(route, "/")
		for _, p := range d.Routes {
			if strings.TrimRight(p, "/") == trimmed {
				item = d.Paths[p]
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, ErrOperationNotFound
	}
	op, found := item.Operations[strings.ToLower(method)]
	if !found {
		return nil, ErrOperationNotFound
	}
	return op, nil
}

// OperationCount reports how many operations the document declares.
func (d *Document) OperationCount() int {
	n := 0
	for _, item := range d.Paths {
		n += len(item.Operations)
	}
	return n
}

// SchemaRefs returns the operation's component schema refs collected from
// request body media types and parameters, deduplicated in first-seen order.
func (op *Operation) SchemaRefs() []string {
	refs := make([]string, 0)
	seen := make(map[string]struct{})
	add := func(s *Schema) {
		if s == nil || RefName(s.Ref) == "" {
			return
		}
		if _, ok := seen[s.Ref]; ok {
			return
		}
		seen[s.Ref] = struct{}{}
		refs = append(refs, s.Ref)
	}
	if op.RequestBody != nil {
		for _, mt := range op.RequestBody.Content {
			add(mt.Schema)
		}
	}
	for _, p := range op.Parameters {
		add(p.Schema)
	}
	return refs
}

// HasSecurity reports whether the operation declares a non-empty security
// requirement of its own.
func (op *Operation) HasSecurity() bool {
	return len(op.Security) > 0
}

// orderedKeys returns the keys of paths in document order, appending any
// stragglers in sorted order so every key appears exactly once.
func orderedKeys(data []byte, paths map[string]PathItem) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, k := range objectKeys(data) {
		if _, ok := paths[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	if len(out) < len(paths) {
		rest := make([]string, 0, len(paths)-len(out))
		for k := range paths {
			if _, ok := seen[k]; !ok {
				rest = append(rest, k)
			}
		}
		sort.Strings(rest)
		out = append(out, rest...)
	}
	return out
}

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(data []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}
	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := keyTok.(string)
		if !ok {
			return keys
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}
