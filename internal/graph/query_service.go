package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
	"github.com/ganesh47/cf-metadata-sys/internal/repos"
)

type QueryFilter struct {
	NodeType         string
	RelationshipType string
	Limit            int
}

type QueryResult struct {
	Nodes    []NodeView  `json:"nodes"`
	Edges    []EdgeView  `json:"edges"`
	Metadata QueryMeta   `json:"metadata"`
}

type QueryMeta struct {
	TotalNodes  int    `json:"total_nodes"`
	TotalEdges  int    `json:"total_edges"`
	QueryTimeMS int64  `json:"query_time_ms"`
	OrgID       string `json:"org_id"`
}

type QueryService struct {
	nodes repos.NodeRepo
	edges repos.EdgeRepo
	log   *logger.Logger
}

func NewQueryService(nodes repos.NodeRepo, edges repos.EdgeRepo, log *logger.Logger) *QueryService {
	return &QueryService{nodes: nodes, edges: edges, log: log.With("service", "QueryService")}
}

// Run implements spec §4.5: nodes LEFT JOIN edges on either endpoint
// within the same org, filtered by the optional predicates, deduplicated
// by id. Expressed here as two org-scoped reads plus in-memory join/dedup
// rather than a literal SQL LEFT JOIN, since the result shape (distinct
// nodes, distinct edges) is the same either way and this keeps both
// sides filterable independently.
func (s *QueryService) Run(ctx context.Context, orgID string, f QueryFilter) (*QueryResult, error) {
	start := time.Now()

	nodeFilter := repos.ListNodesFilter{Type: f.NodeType, Limit: f.Limit}
	nodeRows, _, err := s.nodes.List(ctx, nil, orgID, nodeFilter)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}

	edgeFilter := repos.ListEdgesFilter{Type: f.RelationshipType, Limit: f.Limit}
	edgeRows, err := s.edges.List(ctx, nil, orgID, edgeFilter)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}

	nodeByID := make(map[string]NodeView, len(nodeRows))
	for i := range nodeRows {
		v := nodeToView(&nodeRows[i])
		nodeByID[v.ID] = *v
	}

	edgeByID := make(map[string]EdgeView, len(edgeRows))
	resultNodes := make(map[string]NodeView, len(nodeRows))
	for k, v := range nodeByID {
		resultNodes[k] = v
	}

	for i := range edgeRows {
		e := edgeToView(&edgeRows[i])
		// Keep edges with at least one endpoint inside the node set we
		// already selected; edges touching no selected node are dropped.
		_, fromOK := nodeByID[e.FromNode]
		_, toOK := nodeByID[e.ToNode]
		if !fromOK && !toOK {
			continue
		}
		edgeByID[e.ID] = *e
	}

	nodes := make([]NodeView, 0, len(resultNodes))
	for _, v := range resultNodes {
		nodes = append(nodes, v)
	}
	edges := make([]EdgeView, 0, len(edgeByID))
	for _, v := range edgeByID {
		edges = append(edges, v)
	}

	return &QueryResult{
		Nodes: nodes,
		Edges: edges,
		Metadata: QueryMeta{
			TotalNodes:  len(nodes),
			TotalEdges:  len(edges),
			QueryTimeMS: time.Since(start).Milliseconds(),
			OrgID:       orgID,
		},
	}, nil
}
