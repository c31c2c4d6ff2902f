package store

import "github.com/yourorg/apiscout/pkg/types"

// Store is the local OpenAPI document registry.
type Store interface {
	SaveSpec(doc *types.SpecDocument) error
	GetSpec(name string) (*types.SpecDocument, error)
	ListSpecs() ([]types.SpecDocument, error)
	DeleteSpec(name string) error

	Close() error
}
