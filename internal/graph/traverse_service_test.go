package graph

import (
	"context"
	"testing"
	"time"

	"github.com/ganesh47/cf-metadata-sys/internal/types"
)

func buildChainGraph(t *testing.T) (*fakeNodeRepo, *fakeEdgeRepo) {
	t.Helper()
	nodes := newFakeNodeRepo()
	edges := newFakeEdgeRepo()
	ctx := context.Background()

	for _, id := range []string{"n1", "n2", "n3", "n4"} {
		must(t, nodes.Upsert(ctx, nil, &types.Node{ID: id, OrgID: "acme", Type: "person"}))
	}
	must(t, edges.Upsert(ctx, nil, &types.Edge{ID: "e1", OrgID: "acme", FromNode: "n1", ToNode: "n2", RelationshipType: "knows"}))
	must(t, edges.Upsert(ctx, nil, &types.Edge{ID: "e2", OrgID: "acme", FromNode: "n2", ToNode: "n3", RelationshipType: "knows"}))
	must(t, edges.Upsert(ctx, nil, &types.Edge{ID: "e3", OrgID: "acme", FromNode: "n3", ToNode: "n4", RelationshipType: "knows"}))
	return nodes, edges
}

func TestTraverseServiceRunStopsAtMaxDepth(t *testing.T) {
	nodes, edges := buildChainGraph(t)
	svc := NewTraverseService(nodes, edges, testLogger(t))

	result, err := svc.Run(context.Background(), "acme", TraverseRequest{StartNode: "n1", MaxDepth: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, ok := nodeByIDInResult(result, "n1"); !ok {
		t.Fatalf("expected start node in result")
	}
	if _, ok := nodeByIDInResult(result, "n2"); !ok {
		t.Fatalf("expected n2 (depth 1) in result, got %+v", result.Nodes)
	}
	if _, ok := nodeByIDInResult(result, "n3"); ok {
		t.Fatalf("expected n3 (depth 2, at max_depth boundary) excluded, got %+v", result.Nodes)
	}
	if _, ok := nodeByIDInResult(result, "n4"); ok {
		t.Fatalf("expected n4 (depth 3) excluded by max_depth=2, got %+v", result.Nodes)
	}
}

func TestTraverseServiceRunDefaultsMaxDepth(t *testing.T) {
	nodes, edges := buildChainGraph(t)
	svc := NewTraverseService(nodes, edges, testLogger(t))

	result, err := svc.Run(context.Background(), "acme", TraverseRequest{StartNode: "n1"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Metadata.MaxDepth != defaultMaxDepth {
		t.Fatalf("expected default max depth %d, got %d", defaultMaxDepth, result.Metadata.MaxDepth)
	}
}

func TestTraverseServiceRunRecordsPaths(t *testing.T) {
	nodes, edges := buildChainGraph(t)
	svc := NewTraverseService(nodes, edges, testLogger(t))

	result, err := svc.Run(context.Background(), "acme", TraverseRequest{StartNode: "n1", MaxDepth: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Paths) == 0 {
		t.Fatalf("expected at least one terminated path recorded")
	}
}

func TestTraverseServiceRunTerminatesOnCycle(t *testing.T) {
	nodes := newFakeNodeRepo()
	edges := newFakeEdgeRepo()
	ctx := context.Background()

	must(t, nodes.Upsert(ctx, nil, &types.Node{ID: "n1", OrgID: "acme", Type: "person"}))
	must(t, nodes.Upsert(ctx, nil, &types.Node{ID: "n2", OrgID: "acme", Type: "person"}))
	must(t, edges.Upsert(ctx, nil, &types.Edge{ID: "e1", OrgID: "acme", FromNode: "n1", ToNode: "n2", RelationshipType: "knows"}))
	must(t, edges.Upsert(ctx, nil, &types.Edge{ID: "e2", OrgID: "acme", FromNode: "n2", ToNode: "n1", RelationshipType: "knows"}))

	svc := NewTraverseService(nodes, edges, testLogger(t))
	done := make(chan struct{})
	var result *TraverseResult
	var err error
	go func() {
		result, err = svc.Run(ctx, "acme", TraverseRequest{StartNode: "n1", MaxDepth: 5})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("traverse did not terminate on a 2-cycle")
	}
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Nodes) != 2 {
		t.Fatalf("expected exactly 2 distinct nodes visited, got %+v", result.Nodes)
	}
}

func TestTraverseServiceRunFiltersByRelationshipType(t *testing.T) {
	nodes := newFakeNodeRepo()
	edges := newFakeEdgeRepo()
	ctx := context.Background()

	must(t, nodes.Upsert(ctx, nil, &types.Node{ID: "n1", OrgID: "acme", Type: "person"}))
	must(t, nodes.Upsert(ctx, nil, &types.Node{ID: "n2", OrgID: "acme", Type: "person"}))
	must(t, nodes.Upsert(ctx, nil, &types.Node{ID: "n3", OrgID: "acme", Type: "person"}))
	must(t, edges.Upsert(ctx, nil, &types.Edge{ID: "e1", OrgID: "acme", FromNode: "n1", ToNode: "n2", RelationshipType: "knows"}))
	must(t, edges.Upsert(ctx, nil, &types.Edge{ID: "e2", OrgID: "acme", FromNode: "n1", ToNode: "n3", RelationshipType: "manages"}))

	svc := NewTraverseService(nodes, edges, testLogger(t))
	result, err := svc.Run(ctx, "acme", TraverseRequest{StartNode: "n1", MaxDepth: 3, RelationshipTypes: []string{"manages"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, ok := nodeByIDInResult(result, "n3"); !ok {
		t.Fatalf("expected n3 reached via manages edge, got %+v", result.Nodes)
	}
	if _, ok := nodeByIDInResult(result, "n2"); ok {
		t.Fatalf("expected n2 excluded by relationship type filter, got %+v", result.Nodes)
	}
}

func nodeByIDInResult(result *TraverseResult, id string) (NodeView, bool) {
	for _, n := range result.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeView{}, false
}
