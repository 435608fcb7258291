package neo4j

import (
	"context"
	"math"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kgtext/backend/pkg/common"
	"github.com/kgtext/backend/pkg/logger"
	"github.com/kgtext/backend/pkg/store"
)

const writeChunkSize = 500

// GraphDBStorage implements store.GraphStore on Neo4j. Every entity carries
// the GraphResource label plus its type label, and every node and
// relationship is tagged with the graph id it belongs to.
type GraphDBStorage struct {
	client *Client
}

func NewGraphDBStorage(ctx context.Context, client *Client) *GraphDBStorage {
	s := &GraphDBStorage{client: client}
	s.ensureSchema(ctx)
	return s
}

// ensureSchema creates the constraint and index the store relies on. It is
// best-effort since restricted users may not be allowed to run DDL.
func (s *GraphDBStorage) ensureSchema(ctx context.Context) {
	session := s.client.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range []string{constraintStatement, indexStatement} {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			logger.Warn("[Neo4j] Schema init failed (continuing)", "err", err)
			continue
		}
		if _, err := res.Consume(ctx); err != nil {
			logger.Warn("[Neo4j] Schema init failed (continuing)", "err", err)
		}
	}
}

type statement struct {
	query  string
	params map[string]any
}

// SaveGraph runs the metadata, entity and relationship merges as separate
// write transactions. There is no rollback across them.
func (s *GraphDBStorage) SaveGraph(
	ctx context.Context,
	graphID string,
	name string,
	entities []common.Entity,
	relations []common.Relationship,
) error {
	if graphID == "" {
		return common.NewValidationError("save graph", "graph id is required")
	}

	stmts := buildStatements(graphID, name, entities, relations)

	session := s.client.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for applied, stmt := range stmts {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, stmt.query, stmt.params)
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			logger.Error("[Neo4j][SaveGraph] Statement failed", "graph_id", graphID, "applied", applied, "err", err)
			return classifyWriteError(applied, err)
		}
	}

	logger.Debug("[Neo4j][SaveGraph] Saved graph", "graph_id", graphID, "statements", len(stmts))
	return nil
}

// buildStatements turns a batch into the ordered statement list: catalog
// record first, then one statement per entity type chunk, then one per
// relationship type chunk.
func buildStatements(
	graphID string,
	name string,
	entities []common.Entity,
	relations []common.Relationship,
) []statement {
	stmts := []statement{{
		query:  upsertMetadataQuery,
		params: map[string]any{"graph_id": graphID, "name": name},
	}}

	for _, group := range store.GroupEntitiesByType(store.CoalesceEntities(entities)) {
		query := upsertEntitiesQuery(group[0].Type)
		_ = store.ChunkRange(len(group), writeChunkSize, func(start, end int) error {
			rows := make([]map[string]any, 0, end-start)
			for _, e := range group[start:end] {
				rows = append(rows, map[string]any{
					"id":         e.ID,
					"type":       e.Type,
					"properties": toDriverProperties(e.Properties),
				})
			}
			stmts = append(stmts, statement{query: query, params: map[string]any{"graph_id": graphID, "rows": rows}})
			return nil
		})
	}

	for _, group := range store.GroupRelationshipsByType(store.CoalesceRelationships(relations)) {
		query := upsertRelationshipsQuery(group[0].Type)
		_ = store.ChunkRange(len(group), writeChunkSize, func(start, end int) error {
			rows := make([]map[string]any, 0, end-start)
			for _, r := range group[start:end] {
				rows = append(rows, map[string]any{
					"source":     r.SourceID,
					"target":     r.TargetID,
					"properties": toDriverProperties(r.Properties),
				})
			}
			stmts = append(stmts, statement{query: query, params: map[string]any{"graph_id": graphID, "rows": rows}})
			return nil
		})
	}

	return stmts
}

// classifyWriteError reports a failure before anything was written as a
// connection error; afterwards the graph is partially written.
func classifyWriteError(applied int, err error) error {
	if applied == 0 {
		return common.NewStoreConnectionError("save graph", err)
	}
	return common.NewPartialWriteError("save graph", applied, err)
}

// toDriverProperties widens integers and floats to the 64-bit types Bolt
// transports natively.
func toDriverProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch n := v.(type) {
		case int:
			out[k] = int64(n)
		case int8:
			out[k] = int64(n)
		case int16:
			out[k] = int64(n)
		case int32:
			out[k] = int64(n)
		case uint:
			out[k] = uintValue(uint64(n))
		case uint8:
			out[k] = int64(n)
		case uint16:
			out[k] = int64(n)
		case uint32:
			out[k] = int64(n)
		case uint64:
			out[k] = uintValue(n)
		case float32:
			out[k] = float64(n)
		default:
			out[k] = v
		}
	}
	return out
}

func uintValue(n uint64) any {
	if n > math.MaxInt64 {
		return float64(n)
	}
	return int64(n)
}

func (s *GraphDBStorage) ListGraphs(ctx context.Context) ([]common.GraphMeta, error) {
	session := s.client.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, catalogQuery, nil)
		if err != nil {
			return nil, err
		}
		metas := make([]common.GraphMeta, 0)
		for res.Next(ctx) {
			record := res.Record()
			metas = append(metas, common.GraphMeta{
				GraphID: recordString(record, "graph_id"),
				Name:    recordString(record, "name"),
			})
		}
		return metas, res.Err()
	})
	if err != nil {
		return nil, common.NewStoreConnectionError("list graphs", err)
	}

	metas := out.([]common.GraphMeta)
	store.SortCatalog(metas)
	return metas, nil
}

func (s *GraphDBStorage) LoadGraph(ctx context.Context, graphID string) ([]common.Entity, []common.Relationship, error) {
	session := s.client.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, reconstructQuery, map[string]any{"graph_id": graphID})
		if err != nil {
			return nil, err
		}
		rows := make([]store.Row, 0)
		for res.Next(ctx) {
			row, ok := rowFromRecord(res.Record())
			if !ok {
				continue
			}
			rows = append(rows, row)
		}
		return rows, res.Err()
	})
	if err != nil {
		return nil, nil, common.NewStoreConnectionError("load graph", err)
	}

	entities, relations := store.Reconstruct(out.([]store.Row))
	logger.Debug("[Neo4j][LoadGraph] Reconstructed graph", "graph_id", graphID, "entities", len(entities), "relationships", len(relations))
	return entities, relations, nil
}

func (s *GraphDBStorage) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
