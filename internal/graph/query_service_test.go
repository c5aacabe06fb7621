package graph

import (
	"context"
	"testing"

	"github.com/ganesh47/cf-metadata-sys/internal/types"
)

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueryServiceRunJoinsEdgesTouchingSelectedNodes(t *testing.T) {
	nodes := newFakeNodeRepo()
	edges := newFakeEdgeRepo()
	ctx := context.Background()

	must(t, nodes.Upsert(ctx, nil, &types.Node{ID: "n1", OrgID: "acme", Type: "person"}))
	must(t, nodes.Upsert(ctx, nil, &types.Node{ID: "n2", OrgID: "acme", Type: "device"}))
	must(t, edges.Upsert(ctx, nil, &types.Edge{ID: "e1", OrgID: "acme", FromNode: "n1", ToNode: "n2", RelationshipType: "owns"}))
	must(t, edges.Upsert(ctx, nil, &types.Edge{ID: "e2", OrgID: "acme", FromNode: "n1", ToNode: "n3", RelationshipType: "owns"}))

	svc := NewQueryService(nodes, edges, testLogger(t))
	result, err := svc.Run(ctx, "acme", QueryFilter{NodeType: "person"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.Nodes) != 1 || result.Nodes[0].ID != "n1" {
		t.Fatalf("expected only n1 selected by type filter, got %+v", result.Nodes)
	}
	gotEdges := map[string]bool{}
	for _, e := range result.Edges {
		gotEdges[e.ID] = true
	}
	if len(result.Edges) != 2 || !gotEdges["e1"] || !gotEdges["e2"] {
		t.Fatalf("expected e1 and e2 (both touch n1), got %+v", result.Edges)
	}
}
