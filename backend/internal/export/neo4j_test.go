package export

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"famgraph/backend/internal/graph"
	"famgraph/backend/internal/model"
	"famgraph/backend/internal/seed"
	"famgraph/backend/pkg/config"
)

func TestRelationshipType(t *testing.T) {
	assert.Equal(t, "ParentChild", RelationshipType("ParentChild"))
	assert.Equal(t, "_private2", RelationshipType("_private2"))
	assert.Equal(t, FallbackRelType, RelationshipType("has spouse"))
	assert.Equal(t, FallbackRelType, RelationshipType("1st"))
	assert.Equal(t, FallbackRelType, RelationshipType(""))
}

func TestNodeBatches_GroupedByTypeAndChunked(t *testing.T) {
	var nodes []graph.Node
	for i := 0; i < 5; i++ {
		nodes = append(nodes, graph.Node{ID: uuid.New(), Attributes: graph.Attributes{"object.type": "Person"}})
	}
	nodes = append(nodes, graph.Node{ID: uuid.New(), Attributes: graph.Attributes{"object.type": "DatedMarriage"}})
	nodes = append(nodes, graph.Node{ID: uuid.New(), Attributes: graph.Attributes{"object.type": "bad label!"}})

	batches := nodeBatches(nodes, 2)

	var sizes []int
	for _, b := range batches {
		sizes = append(sizes, len(b.rows))
	}
	// untyped (""), DatedMarriage, then Person in chunks of 2
	assert.Equal(t, []int{1, 1, 2, 2, 1}, sizes)
	assert.NotContains(t, batches[0].query, "n:bad")
	assert.Contains(t, batches[1].query, ", n:DatedMarriage")
	assert.Contains(t, batches[2].query, ", n:Person")

	row := batches[2].rows[0]
	assert.Equal(t, nodes[0].ID.String(), row["uid"])
	assert.Equal(t, "Person", row["props"].(map[string]interface{})["object.type"])
}

func TestEdgeBatches(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	edges := []graph.Edge{
		{Subject: a, Object: b, Attributes: graph.Attributes{graph.LabelKey: "ParentChild"}},
		{Subject: b, Object: a, Attributes: graph.Attributes{graph.LabelKey: "knows well", graph.WeightKey: 0.5}},
	}

	batches := edgeBatches(edges, DefaultBatchSize)
	require.Len(t, batches, 2)
	assert.True(t, strings.Contains(batches[0].query, "[r:ParentChild]"))
	assert.True(t, strings.Contains(batches[1].query, "[r:"+FallbackRelType+"]"))
	assert.Equal(t, "knows well", batches[1].rows[0]["props"].(map[string]interface{})[graph.LabelKey])
}

// TestExporter_Export requires a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables.
func TestExporter_Export(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	if os.Getenv("NEO4J_URI") == "" {
		t.Skip("NEO4J_URI not set")
	}

	ctx := context.Background()
	cfg := &config.Config{
		Neo4jURI:      os.Getenv("NEO4J_URI"),
		Neo4jUser:     os.Getenv("NEO4J_USER"),
		Neo4jPassword: os.Getenv("NEO4J_PASSWORD"),
		Neo4jDatabase: "neo4j",
		ExportWorkers: 2,
	}
	driver, err := Connect(ctx, cfg)
	require.NoError(t, err)
	defer driver.Close(ctx)

	m := model.NewMapperWithLogger(graph.NewStoreWithLogger(zap.NewNop()), zap.NewNop())
	fixture, err := seed.Demo()
	require.NoError(t, err)
	_, err = seed.Load(m, fixture, nil)
	require.NoError(t, err)

	result, err := NewExporter(driver, cfg).Export(ctx, m.Store())
	require.NoError(t, err)
	assert.Equal(t, m.Store().NodeCount(), result.Nodes)
	assert.Equal(t, m.Store().EdgeCount(), result.Edges)

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)
	res, err := session.Run(ctx, "MATCH (:Person)-[r:ParentChild]->(:Person) RETURN count(r) AS n", nil)
	require.NoError(t, err)
	record, err := res.Single(ctx)
	require.NoError(t, err)
	n, _ := record.Get("n")
	assert.Equal(t, int64(3), n)
}

func TestSchemaStatements(t *testing.T) {
	require.Len(t, schema, 2)
	assert.Contains(t, schema[0], "FOR (n:FamNode) REQUIRE n.uid IS UNIQUE")
	assert.Contains(t, schema[1], "ON (n.`object.id`)")
}
