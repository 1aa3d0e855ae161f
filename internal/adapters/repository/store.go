// Package repository loads the static game data (tag catalog, viewer groups,
// production tiers, on-set policies and game tunables) from SQLite or YAML.
package repository

import (
	"context"

	"github.com/okian/scenecalc/internal/domain/model"
)

// Reader provides read access to static game data.
type Reader interface {
	// TagDefinitions returns the tag catalog keyed by full tag name in
	// storage order.
	TagDefinitions(ctx context.Context) (*model.Catalog, error)
	// ViewerGroups returns the raw, unresolved viewer groups.
	ViewerGroups(ctx context.Context) ([]model.ViewerGroup, error)
	// ProductionSettings returns the tiers of every production category.
	ProductionSettings(ctx context.Context) (map[string][]model.ProductionTier, error)
	// OnSetPolicies returns the policies keyed by id.
	OnSetPolicies(ctx context.Context) (map[string]model.OnSetPolicy, error)
}

// Writer stores static game data.
type Writer interface {
	PutTag(ctx context.Context, def model.TagDefinition) error
	PutViewerGroup(ctx context.Context, g model.ViewerGroup) error
	PutProductionTier(ctx context.Context, category string, t model.ProductionTier) error
	PutOnSetPolicy(ctx context.Context, p model.OnSetPolicy) error
	PutGameConfig(ctx context.Context, key string, value any) error
}

// TxWriter is a Writer that can group writes in one transaction.
type TxWriter interface {
	Writer
	InTx(ctx context.Context, fn func(Writer) error) error
}
