package graph

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
	"github.com/ganesh47/cf-metadata-sys/internal/repos"
)

const defaultMaxDepth = 3

type TraverseRequest struct {
	StartNode         string
	MaxDepth          int
	RelationshipTypes []string
}

type TraverseResult struct {
	Nodes    []NodeView    `json:"nodes"`
	Edges    []EdgeView    `json:"edges"`
	Paths    [][]string    `json:"paths"`
	Metadata TraverseMeta  `json:"metadata"`
}

type TraverseMeta struct {
	OrgID             string   `json:"org_id"`
	StartNode         string   `json:"start_node"`
	MaxDepth          int      `json:"max_depth"`
	RelationshipTypes []string `json:"relationship_types"`
	TotalNodes        int      `json:"total_nodes"`
	TotalEdges        int      `json:"total_edges"`
	TotalPaths        int      `json:"total_paths"`
}

type TraverseService struct {
	nodes repos.NodeRepo
	edges repos.EdgeRepo
	log   *logger.Logger
}

func NewTraverseService(nodes repos.NodeRepo, edges repos.EdgeRepo, log *logger.Logger) *TraverseService {
	return &TraverseService{nodes: nodes, edges: edges, log: log.With("service", "TraverseService")}
}

// traversalState is request-local and shared across the fan-out
// goroutines a single Run call spawns; every field is guarded by mu
// (spec §5 — visited/result must be guarded once parallelism crosses
// goroutines).
type traversalState struct {
	mu      sync.Mutex
	visited map[string]bool
	nodes   map[string]NodeView
	edges   map[string]EdgeView
	paths   [][]string
}

// Run implements spec §4.6: outgoing-edge depth-limited DFS rooted at
// StartNode. Per-level edge fetches and next-level recursion fan out
// through errgroup; visited/result are mutex-guarded since more than one
// goroutine touches them once depth > 0 produces siblings.
func (s *TraverseService) Run(ctx context.Context, orgID string, req TraverseRequest) (*TraverseResult, error) {
	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}

	st := &traversalState{
		visited: map[string]bool{},
		nodes:   map[string]NodeView{},
		edges:   map[string]EdgeView{},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.visit(gctx, orgID, req.StartNode, 0, maxDepth, req.RelationshipTypes, []string{req.StartNode}, st)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("traverse: %w", err)
	}

	nodes := make([]NodeView, 0, len(st.nodes))
	for _, v := range st.nodes {
		nodes = append(nodes, v)
	}
	edges := make([]EdgeView, 0, len(st.edges))
	for _, v := range st.edges {
		edges = append(edges, v)
	}

	return &TraverseResult{
		Nodes: nodes,
		Edges: edges,
		Paths: st.paths,
		Metadata: TraverseMeta{
			OrgID:             orgID,
			StartNode:         req.StartNode,
			MaxDepth:          maxDepth,
			RelationshipTypes: req.RelationshipTypes,
			TotalNodes:        len(nodes),
			TotalEdges:        len(edges),
			TotalPaths:        len(st.paths),
		},
	}, nil
}

func (s *TraverseService) visit(ctx context.Context, orgID, nodeID string, depth, maxDepth int, relTypes []string, path []string, st *traversalState) error {
	st.mu.Lock()
	alreadyVisited := st.visited[nodeID]
	if depth >= maxDepth || alreadyVisited {
		if len(path) > 1 {
			st.paths = append(st.paths, append([]string{}, path...))
		}
		st.mu.Unlock()
		return nil
	}
	st.visited[nodeID] = true
	st.mu.Unlock()

	n, err := s.nodes.GetByID(ctx, nil, orgID, nodeID)
	if err != nil {
		return fmt.Errorf("fetch node %s: %w", nodeID, err)
	}
	if n != nil {
		v := nodeToView(n)
		st.mu.Lock()
		st.nodes[v.ID] = *v
		st.mu.Unlock()
	}

	outgoing, err := s.edges.OutgoingFrom(ctx, nil, orgID, nodeID, relTypes)
	if err != nil {
		return fmt.Errorf("fetch outgoing edges for %s: %w", nodeID, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range outgoing {
		edge := outgoing[i]
		ev := edgeToView(&edge)
		st.mu.Lock()
		st.edges[ev.ID] = *ev
		st.mu.Unlock()

		nextPath := append(append([]string{}, path...), edge.ToNode)
		g.Go(func() error {
			return s.visit(gctx, orgID, edge.ToNode, depth+1, maxDepth, relTypes, nextPath, st)
		})
	}
	return g.Wait()
}
