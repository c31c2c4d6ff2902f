package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/yourorg/apiscout/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "apiscout.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestSaveAndGetSpec(t *testing.T) {
	s := newTestStore(t)

	rec := &types.SpecDocument{
		Name:       "petstore",
		Title:      "Petstore",
		Version:    "1.0.0",
		Operations: 4,
		Raw:        `{"paths": {}}`,
	}
	if err := s.SaveSpec(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetSpec("petstore")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Petstore" || got.Operations != 4 {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.Raw != `{"paths": {}}` {
		t.Fatalf("raw document not preserved: %q", got.Raw)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", got)
	}
}

func TestSaveSpecUpsert(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveSpec(&types.SpecDocument{Name: "api", Title: "v1", Raw: "{}"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveSpec(&types.SpecDocument{Name: "api", Title: "v2", Operations: 7, Raw: "{}"}); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	got, err := s.GetSpec("api")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "v2" || got.Operations != 7 {
		t.Fatalf("upsert did not replace: %+v", got)
	}

	specs, err := s.ListSpecs()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec after upsert, got %d", len(specs))
	}
}

func TestListSpecsSorted(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"zoo", "alpha", "mid"} {
		if err := s.SaveSpec(&types.SpecDocument{Name: name, Raw: "{}"}); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	specs, err := s.ListSpecs()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("expected 3 specs, got %d", len(specs))
	}
	if specs[0].Name != "alpha" || specs[1].Name != "mid" || specs[2].Name != "zoo" {
		t.Fatalf("unexpected order: %+v", specs)
	}
}

func TestDeleteSpec(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveSpec(&types.SpecDocument{Name: "gone", Raw: "{}"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.DeleteSpec("gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetSpec("gone"); !errors.Is(err, ErrSpecNotFound) {
		t.Fatalf("expected ErrSpecNotFound, got %v", err)
	}
	if err := s.DeleteSpec("gone"); !errors.Is(err, ErrSpecNotFound) {
		t.Fatalf("expected ErrSpecNotFound for double delete, got %v", err)
	}
}

func TestSaveSpecValidation(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveSpec(nil); err == nil {
		t.Fatalf("expected error for nil spec")
	}
	if err := s.SaveSpec(&types.SpecDocument{}); err == nil {
		t.Fatalf("expected error for empty name")
	}
}
