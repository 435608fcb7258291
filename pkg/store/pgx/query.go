package pgx

const (
	upsertMetadataSQL = `
INSERT INTO graph_metadata (graph_id, name)
VALUES ($1, $2)
ON CONFLICT (graph_id) DO NOTHING`

	upsertEntitiesSQL = `
INSERT INTO graph_entities (graph_id, id, type, properties)
SELECT $1, u.id, u.type, u.properties::jsonb
FROM unnest($2::text[], $3::text[], $4::text[]) AS u(id, type, properties)
ON CONFLICT (graph_id, id) DO UPDATE
SET type = EXCLUDED.type,
    properties = graph_entities.properties || EXCLUDED.properties`

	upsertRelationshipsSQL = `
INSERT INTO graph_relationships (graph_id, source_id, target_id, type, properties)
SELECT $1, u.source_id, u.target_id, u.type, u.properties::jsonb
FROM unnest($2::text[], $3::text[], $4::text[], $5::text[]) AS u(source_id, target_id, type, properties)
WHERE EXISTS (SELECT 1 FROM graph_entities e WHERE e.graph_id = $1 AND e.id = u.source_id)
  AND EXISTS (SELECT 1 FROM graph_entities e WHERE e.graph_id = $1 AND e.id = u.target_id)
ON CONFLICT (graph_id, source_id, target_id, type) DO UPDATE
SET properties = graph_relationships.properties || EXCLUDED.properties`

	catalogSQL = `
SELECT graph_id, name
FROM graph_metadata
ORDER BY name, graph_id`

	reconstructSQL = `
SELECT n.id, n.type, n.properties, r.type, r.properties, m.id, m.type, m.properties
FROM graph_entities n
LEFT JOIN (
    graph_relationships r
    JOIN graph_entities m ON m.graph_id = r.graph_id AND m.id = r.target_id
) ON r.graph_id = n.graph_id AND r.source_id = n.id
WHERE n.graph_id = $1
ORDER BY n.id, m.id, r.type`
)
