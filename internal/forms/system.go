package forms

import (
	"context"

	"github.com/JaimeStill/stagehand/engine"
)

// System defines the public contract for intake form operations.
type System interface {
	Handler() *Handler

	List(ctx context.Context) ([]Form, error)
	Find(ctx context.Context, applicationType string) (*Form, error)
	// Save replaces the form of an application type, creating it if absent.
	Save(ctx context.Context, applicationType string, cmd Command) (*Form, error)
	Delete(ctx context.Context, applicationType string) error
	// Catalog returns the field catalog of an application type. A type with
	// no form yields the intrinsic fields only.
	Catalog(ctx context.Context, applicationType string) (*engine.FieldCatalog, error)
}
