package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kgtext/backend/internal/util"
	"github.com/kgtext/backend/pkg/common"
	"github.com/kgtext/backend/pkg/logger"
	"github.com/kgtext/backend/pkg/store"
)

const writeChunkSize = 1000

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
}

// GraphDBStorage implements store.GraphStore on PostgreSQL. Entities and
// relationships live in shared tables keyed by graph id, with properties in
// a jsonb column.
type GraphDBStorage struct {
	conn pgxIConn
}

// NewGraphDBStorageWithConnection wraps an existing pool or connection. The
// schema must already be migrated, see Migrate.
func NewGraphDBStorageWithConnection(conn pgxIConn) *GraphDBStorage {
	return &GraphDBStorage{conn: conn}
}

type statement struct {
	sql  string
	args []any
}

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

	stmts, err := buildStatements(graphID, name, entities, relations)
	if err != nil {
		return common.NewStoreConnectionError("save graph", err)
	}

	for applied, stmt := range stmts {
		if _, err := s.conn.Exec(ctx, stmt.sql, stmt.args...); err != nil {
			logger.Error("[Postgres][SaveGraph] Statement failed", "graph_id", graphID, "applied", applied, "err", err)
			if applied == 0 {
				return common.NewStoreConnectionError("save graph", err)
			}
			return common.NewPartialWriteError("save graph", applied, err)
		}
	}

	logger.Debug("[Postgres][SaveGraph] Saved graph", "graph_id", graphID, "statements", len(stmts))
	return nil
}

func buildStatements(
	graphID string,
	name string,
	entities []common.Entity,
	relations []common.Relationship,
) ([]statement, error) {
	graphID = util.SanitizePostgresText(graphID)
	stmts := []statement{{
		sql:  upsertMetadataSQL,
		args: []any{graphID, util.SanitizePostgresText(name)},
	}}

	merged := store.CoalesceEntities(sanitizeEntities(entities))
	err := store.ChunkRange(len(merged), writeChunkSize, func(start, end int) error {
		ids := make([]string, 0, end-start)
		types := make([]string, 0, end-start)
		props := make([]string, 0, end-start)
		for _, e := range merged[start:end] {
			encoded, err := encodeProperties(e.Properties)
			if err != nil {
				return err
			}
			ids = append(ids, e.ID)
			types = append(types, e.Type)
			props = append(props, encoded)
		}
		stmts = append(stmts, statement{sql: upsertEntitiesSQL, args: []any{graphID, ids, types, props}})
		return nil
	})
	if err != nil {
		return nil, err
	}

	rels := store.CoalesceRelationships(sanitizeRelationships(relations))
	err = store.ChunkRange(len(rels), writeChunkSize, func(start, end int) error {
		sources := make([]string, 0, end-start)
		targets := make([]string, 0, end-start)
		types := make([]string, 0, end-start)
		props := make([]string, 0, end-start)
		for _, r := range rels[start:end] {
			encoded, err := encodeProperties(r.Properties)
			if err != nil {
				return err
			}
			sources = append(sources, r.SourceID)
			targets = append(targets, r.TargetID)
			types = append(types, r.Type)
			props = append(props, encoded)
		}
		stmts = append(stmts, statement{sql: upsertRelationshipsSQL, args: []any{graphID, sources, targets, types, props}})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stmts, nil
}

func sanitizeEntities(entities []common.Entity) []common.Entity {
	out := make([]common.Entity, len(entities))
	for i, e := range entities {
		out[i] = common.Entity{
			ID:         util.SanitizePostgresText(e.ID),
			Type:       util.SanitizePostgresText(e.Type),
			Properties: util.SanitizePostgresProperties(common.Sanitize(e.Properties)),
		}
	}
	return out
}

func sanitizeRelationships(relations []common.Relationship) []common.Relationship {
	out := make([]common.Relationship, len(relations))
	for i, r := range relations {
		out[i] = common.Relationship{
			SourceID:   util.SanitizePostgresText(r.SourceID),
			TargetID:   util.SanitizePostgresText(r.TargetID),
			Type:       util.SanitizePostgresText(r.Type),
			Properties: util.SanitizePostgresProperties(common.Sanitize(r.Properties)),
		}
	}
	return out
}

func (s *GraphDBStorage) ListGraphs(ctx context.Context) ([]common.GraphMeta, error) {
	rows, err := s.conn.Query(ctx, catalogSQL)
	if err != nil {
		return nil, common.NewStoreConnectionError("list graphs", err)
	}
	metas, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.GraphMeta, error) {
		var m common.GraphMeta
		err := row.Scan(&m.GraphID, &m.Name)
		return m, err
	})
	if err != nil {
		return nil, common.NewStoreConnectionError("list graphs", err)
	}
	store.SortCatalog(metas)
	return metas, nil
}

func (s *GraphDBStorage) LoadGraph(ctx context.Context, graphID string) ([]common.Entity, []common.Relationship, error) {
	rows, err := s.conn.Query(ctx, reconstructSQL, graphID)
	if err != nil {
		return nil, nil, common.NewStoreConnectionError("load graph", err)
	}
	joined, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (joinRow, error) {
		var j joinRow
		err := row.Scan(
			&j.nodeID, &j.nodeType, &j.nodeProps,
			&j.edgeType, &j.edgeProps,
			&j.targetID, &j.targetType, &j.targetProps,
		)
		return j, err
	})
	if err != nil {
		return nil, nil, common.NewStoreConnectionError("load graph", err)
	}

	out := make([]store.Row, 0, len(joined))
	for _, j := range joined {
		row, err := j.toRow()
		if err != nil {
			return nil, nil, common.NewStoreConnectionError("load graph", err)
		}
		out = append(out, row)
	}

	entities, relations := store.Reconstruct(out)
	logger.Debug("[Postgres][LoadGraph] Reconstructed graph", "graph_id", graphID, "entities", len(entities), "relationships", len(relations))
	return entities, relations, nil
}

func (s *GraphDBStorage) Close(ctx context.Context) error {
	return nil
}
