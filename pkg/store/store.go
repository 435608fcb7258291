package store

import (
	"context"

	"github.com/kgtext/backend/pkg/common"
)

// GenericLabel is the partition label carried by every stored entity next to
// its domain type label.
const GenericLabel = "GraphResource"

// GraphStore persists knowledge graphs in a store shared by many graphs.
// Every row a backend writes carries its graph id and every read is scoped
// by it, so logically independent graphs never see each other's data.
type GraphStore interface {
	// SaveGraph upserts the catalog record, then the entities, then the
	// relationships of one graph. Writes are a best-effort sequence: a
	// failure part way returns an error and leaves applied merges in place.
	// Re-running the same call is idempotent.
	SaveGraph(
		ctx context.Context,
		graphID string,
		name string,
		entities []common.Entity,
		relations []common.Relationship,
	) error

	// ListGraphs returns one record per stored graph, ordered by name.
	ListGraphs(ctx context.Context) ([]common.GraphMeta, error)

	// LoadGraph rebuilds the entity and relationship sets of a graph. An
	// unknown graph id yields empty sets and no error.
	LoadGraph(ctx context.Context, graphID string) ([]common.Entity, []common.Relationship, error)

	Close(ctx context.Context) error
}
