// Package export copies the in-memory graph into Neo4j for browsing and
// visualisation. The copy is one way: nothing is ever read back.
package export

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"famgraph/backend/internal/constants"
	"famgraph/backend/internal/graph"
	"famgraph/backend/pkg/config"
	apperrors "famgraph/backend/pkg/errors"
	"famgraph/backend/pkg/logger"
)

const (
	// NodeLabel is carried by every exported node
	NodeLabel = "FamNode"
	// FallbackRelType is used for edge labels that are not valid Cypher identifiers
	FallbackRelType = "RELATED"
	// DefaultBatchSize is the number of rows sent per UNWIND query
	DefaultBatchSize = 500
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// schema keeps the MERGE on uid indexed and lets Browser searches find
// people by business id
var schema = []string{
	fmt.Sprintf("CREATE CONSTRAINT famnode_uid_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.uid IS UNIQUE", NodeLabel),
	fmt.Sprintf("CREATE INDEX famnode_object_id IF NOT EXISTS FOR (n:%s) ON (n.`%s`)", NodeLabel, constants.ObjectIDKey),
}

// Result counts what was written
type Result struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// Exporter writes a graph.Store snapshot to Neo4j
type Exporter struct {
	driver    neo4j.DriverWithContext
	uri       string
	database  string
	workers   int
	batchSize int
	logger    *zap.Logger
}

// Connect opens and verifies a Neo4j driver from the configuration
func Connect(ctx context.Context, cfg *config.Config) (neo4j.DriverWithContext, error) {
	if err := cfg.ValidateExport(); err != nil {
		return nil, err
	}
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, apperrors.NewExportFailed(cfg.Neo4jURI, "connect", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, apperrors.NewExportFailed(cfg.Neo4jURI, "connect", err)
	}
	return driver, nil
}

// NewExporter creates an exporter writing to database with up to workers
// concurrent sessions
func NewExporter(driver neo4j.DriverWithContext, cfg *config.Config) *Exporter {
	workers := cfg.ExportWorkers
	if workers < 1 {
		workers = 1
	}
	return &Exporter{
		driver:    driver,
		uri:       cfg.Neo4jURI,
		database:  cfg.Neo4jDatabase,
		workers:   workers,
		batchSize: DefaultBatchSize,
		logger:    logger.Named("export"),
	}
}

// Export replaces the previously exported graph with the current contents
// of store. Nodes are written before edges so that every MATCH succeeds.
func (e *Exporter) Export(ctx context.Context, store *graph.Store) (Result, error) {
	nodes := store.Nodes()
	edges := store.Edges()

	e.ensureSchema(ctx)
	if err := e.run(ctx, fmt.Sprintf("MATCH (n:%s) DETACH DELETE n", NodeLabel), nil); err != nil {
		return Result{}, apperrors.NewExportFailed(e.uri, "clear", err)
	}
	if err := e.writeBatches(ctx, nodeBatches(nodes, e.batchSize)); err != nil {
		return Result{}, apperrors.NewExportFailed(e.uri, "nodes", err)
	}
	if err := e.writeBatches(ctx, edgeBatches(edges, e.batchSize)); err != nil {
		return Result{}, apperrors.NewExportFailed(e.uri, "edges", err)
	}

	result := Result{Nodes: len(nodes), Edges: len(edges)}
	e.logger.Info("Graph exported to Neo4j",
		zap.String("uri", e.uri),
		zap.Int("nodes", result.Nodes),
		zap.Int("edges", result.Edges),
	)
	return result, nil
}

// ensureSchema creates the uid constraint and the business id index. A
// failure only costs speed, so it is logged and the export continues.
func (e *Exporter) ensureSchema(ctx context.Context) {
	for _, statement := range schema {
		if err := e.run(ctx, statement, nil); err != nil {
			e.logger.Warn("Failed to create schema (may already exist)",
				zap.String("statement", statement),
				zap.Error(err),
			)
		}
	}
}

func (e *Exporter) writeBatches(ctx context.Context, batches []batch) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, b := range batches {
		g.Go(func() error {
			return e.run(ctx, b.query, map[string]interface{}{"rows": b.rows})
		})
	}
	return g.Wait()
}

// run executes one query in its own session; sessions are not safe for
// concurrent use.
func (e *Exporter) run(ctx context.Context, query string, params map[string]interface{}) error {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: e.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return fmt.Errorf("failed to consume result: %w", err)
	}
	return nil
}

// batch is one UNWIND query and its rows
type batch struct {
	query string
	rows  []map[string]interface{}
}

// nodeBatches groups nodes by object.type so each type gets its own label
func nodeBatches(nodes []graph.Node, size int) []batch {
	groups := map[string][]map[string]interface{}{}
	for _, n := range nodes {
		label := n.Attributes.StringOr(constants.ObjectTypeKey, "")
		if !identifier.MatchString(label) {
			label = ""
		}
		groups[label] = append(groups[label], map[string]interface{}{
			"uid":   n.ID.String(),
			"props": properties(n.Attributes),
		})
	}

	var out []batch
	for _, label := range sortedKeys(groups) {
		setLabel := ""
		if label != "" {
			setLabel = ", n:" + label
		}
		query := fmt.Sprintf(`
		UNWIND $rows AS row
		MERGE (n:%s {uid: row.uid})
		SET n += row.props%s
	`, NodeLabel, setLabel)
		out = append(out, chunk(query, groups[label], size)...)
	}
	return out
}

// edgeBatches groups edges by label, which becomes the relationship type
func edgeBatches(edges []graph.Edge, size int) []batch {
	groups := map[string][]map[string]interface{}{}
	for _, e := range edges {
		relType := RelationshipType(e.Label())
		groups[relType] = append(groups[relType], map[string]interface{}{
			"subject": e.Subject.String(),
			"object":  e.Object.String(),
			"props":   properties(e.Attributes),
		})
	}

	var out []batch
	for _, relType := range sortedKeys(groups) {
		query := fmt.Sprintf(`
		UNWIND $rows AS row
		MATCH (a:%[1]s {uid: row.subject})
		MATCH (b:%[1]s {uid: row.object})
		CREATE (a)-[r:%[2]s]->(b)
		SET r += row.props
	`, NodeLabel, relType)
		out = append(out, chunk(query, groups[relType], size)...)
	}
	return out
}

// RelationshipType maps an edge label to a Cypher relationship type
func RelationshipType(label string) string {
	if identifier.MatchString(label) {
		return label
	}
	return FallbackRelType
}

func properties(attrs graph.Attributes) map[string]interface{} {
	props := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		props[k] = v
	}
	return props
}

func chunk(query string, rows []map[string]interface{}, size int) []batch {
	if size < 1 {
		size = DefaultBatchSize
	}
	var out []batch
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, batch{query: query, rows: rows[start:end]})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
