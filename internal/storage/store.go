package storage

import (
	"context"

	"remedy/internal/catalog"
)

// Store combines rule and catalog storage capabilities.
type Store interface {
	RuleStore
	CatalogStore
	Close() error
}

// RuleStore persists the observation → category rules.
type RuleStore interface {
	// SaveRule inserts a rule, or updates it when ID is set. The assigned ID
	// is written back.
	SaveRule(ctx context.Context, r *catalog.Rule) error

	// DeleteRule removes a rule by ID.
	DeleteRule(ctx context.Context, id int64) error

	// ListRules returns every rule ordered by the numeric part of its
	// observation code.
	ListRules(ctx context.Context) ([]catalog.Rule, error)

	// RulesFor returns the first rule recorded for each of the given
	// observations. Observations without a rule are absent from the map.
	RulesFor(ctx context.Context, observations []string) (map[string]catalog.Rule, error)
}

// CatalogStore persists observations, categories and items.
type CatalogStore interface {
	SaveObservation(ctx context.Context, o catalog.Observation) error
	SaveCategory(ctx context.Context, c catalog.Category) error
	SaveItem(ctx context.Context, it catalog.Item) error

	ListObservations(ctx context.Context) ([]catalog.Observation, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)

	// ObservationsByCode returns the known observations among codes, in
	// the order given.
	ObservationsByCode(ctx context.Context, codes []string) ([]catalog.Observation, error)

	// ItemsByCategory returns the items of the given categories ordered by
	// category then item code.
	ItemsByCategory(ctx context.Context, categories ...string) ([]catalog.Item, error)

	// ImportCatalog writes a whole catalog in one transaction. Rules of the
	// observations it covers are replaced.
	ImportCatalog(ctx context.Context, c *catalog.Catalog) error
}
