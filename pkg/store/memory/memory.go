package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/kgtext/backend/pkg/common"
	"github.com/kgtext/backend/pkg/store"
)

type node struct {
	typ   string
	props map[string]any
}

type edgeKey struct {
	source, target, typ string
}

type graph struct {
	name  string
	nodes map[string]*node
	order []string
	edges map[edgeKey]map[string]any
	eord  []edgeKey
}

// GraphStore keeps graphs in process memory with the same merge semantics
// as the database backends. It backs tests and STORE_ADAPTER=memory.
type GraphStore struct {
	mu     sync.RWMutex
	graphs map[string]*graph

	// FailAfter makes SaveGraph fail once the given number of statements
	// has been applied. Zero disables it.
	FailAfter int
}

func New() *GraphStore {
	return &GraphStore{graphs: make(map[string]*graph)}
}

func (s *GraphStore) SaveGraph(
	ctx context.Context,
	graphID string,
	name string,
	entities []common.Entity,
	relations []common.Relationship,
) error {
	if graphID == "" {
		return common.NewValidationError("save graph", "graph id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	step := func() error {
		if err := ctx.Err(); err != nil {
			if applied == 0 {
				return common.NewStoreConnectionError("save graph", err)
			}
			return common.NewPartialWriteError("save graph", applied, err)
		}
		if s.FailAfter > 0 && applied >= s.FailAfter {
			return common.NewPartialWriteError("save graph", applied, errInjected)
		}
		applied++
		return nil
	}

	if err := step(); err != nil {
		return err
	}
	g, ok := s.graphs[graphID]
	if !ok {
		g = &graph{
			name:  name,
			nodes: make(map[string]*node),
			edges: make(map[edgeKey]map[string]any),
		}
		s.graphs[graphID] = g
	}

	for _, group := range store.GroupEntitiesByType(store.CoalesceEntities(entities)) {
		if err := step(); err != nil {
			return err
		}
		for _, e := range group {
			n, ok := g.nodes[e.ID]
			if !ok {
				n = &node{props: make(map[string]any)}
				g.nodes[e.ID] = n
				g.order = append(g.order, e.ID)
			}
			n.typ = e.Type
			maps.Copy(n.props, e.Properties)
		}
	}

	for _, group := range store.GroupRelationshipsByType(store.CoalesceRelationships(relations)) {
		if err := step(); err != nil {
			return err
		}
		for _, r := range group {
			if g.nodes[r.SourceID] == nil || g.nodes[r.TargetID] == nil {
				continue
			}
			key := edgeKey{r.SourceID, r.TargetID, r.Type}
			props, ok := g.edges[key]
			if !ok {
				props = make(map[string]any)
				g.edges[key] = props
				g.eord = append(g.eord, key)
			}
			maps.Copy(props, r.Properties)
		}
	}

	return nil
}

func (s *GraphStore) ListGraphs(ctx context.Context) ([]common.GraphMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]common.GraphMeta, 0, len(s.graphs))
	for id, g := range s.graphs {
		metas = append(metas, common.GraphMeta{GraphID: id, Name: g.name})
	}
	store.SortCatalog(metas)
	return metas, nil
}

func (s *GraphStore) LoadGraph(ctx context.Context, graphID string) ([]common.Entity, []common.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.graphs[graphID]
	if !ok {
		entities, relations := store.Reconstruct(nil)
		return entities, relations, nil
	}

	outgoing := make(map[string][]edgeKey)
	for _, k := range g.eord {
		outgoing[k.source] = append(outgoing[k.source], k)
	}

	rows := make([]store.Row, 0, len(g.order)+len(g.eord))
	for _, id := range g.order {
		n := nodeRow(id, g.nodes[id])
		edges := outgoing[id]
		if len(edges) == 0 {
			rows = append(rows, store.Row{Node: n})
			continue
		}
		for _, k := range edges {
			target := nodeRow(k.target, g.nodes[k.target])
			rows = append(rows, store.Row{
				Node:   n,
				Edge:   &store.EdgeRow{Type: k.typ, Properties: maps.Clone(g.edges[k])},
				Target: &target,
			})
		}
	}

	entities, relations := store.Reconstruct(rows)
	return entities, relations, nil
}

func (s *GraphStore) Close(ctx context.Context) error {
	return nil
}

func nodeRow(id string, n *node) store.NodeRow {
	return store.NodeRow{
		ID:         id,
		Type:       n.typ,
		Labels:     []string{store.GenericLabel, n.typ},
		Properties: maps.Clone(n.props),
	}
}
