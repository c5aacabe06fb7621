package repos

import (
	"context"
	"testing"

	"github.com/ganesh47/cf-metadata-sys/internal/types"
)

func TestEdgeRepoUpsertPreservesEndpointsOnConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewEdgeRepo(db, newTestLogger(t))
	ctx := context.Background()

	must(t, repo.Upsert(ctx, nil, &types.Edge{ID: "e1", OrgID: "acme", FromNode: "n1", ToNode: "n2", RelationshipType: "knows", CreatedBy: "alice"}))
	must(t, repo.Upsert(ctx, nil, &types.Edge{ID: "e1", OrgID: "acme", FromNode: "n1", ToNode: "n2", RelationshipType: "manages", UpdatedBy: "bob"}))

	got, err := repo.GetByID(ctx, nil, "acme", "e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RelationshipType != "manages" {
		t.Fatalf("expected relationship_type to update, got %q", got.RelationshipType)
	}
	if got.FromNode != "n1" || got.ToNode != "n2" {
		t.Fatalf("expected endpoints unchanged, got from=%q to=%q", got.FromNode, got.ToNode)
	}
}

func TestEdgeRepoOutgoingFromFiltersByRelationshipType(t *testing.T) {
	db := newTestDB(t)
	repo := NewEdgeRepo(db, newTestLogger(t))
	ctx := context.Background()

	must(t, repo.Upsert(ctx, nil, &types.Edge{ID: "e1", OrgID: "acme", FromNode: "n1", ToNode: "n2", RelationshipType: "knows"}))
	must(t, repo.Upsert(ctx, nil, &types.Edge{ID: "e2", OrgID: "acme", FromNode: "n1", ToNode: "n3", RelationshipType: "manages"}))

	edges, err := repo.OutgoingFrom(ctx, nil, "acme", "n1", []string{"manages"})
	if err != nil {
		t.Fatalf("outgoing from: %v", err)
	}
	if len(edges) != 1 || edges[0].ID != "e2" {
		t.Fatalf("expected only e2, got %+v", edges)
	}
}

func TestEdgeRepoOutgoingFromNoTypesReturnsAll(t *testing.T) {
	db := newTestDB(t)
	repo := NewEdgeRepo(db, newTestLogger(t))
	ctx := context.Background()

	must(t, repo.Upsert(ctx, nil, &types.Edge{ID: "e1", OrgID: "acme", FromNode: "n1", ToNode: "n2", RelationshipType: "knows"}))
	must(t, repo.Upsert(ctx, nil, &types.Edge{ID: "e2", OrgID: "acme", FromNode: "n1", ToNode: "n3", RelationshipType: "manages"}))

	edges, err := repo.OutgoingFrom(ctx, nil, "acme", "n1", nil)
	if err != nil {
		t.Fatalf("outgoing from: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
}

func TestEdgeRepoListRespectsOrgIsolation(t *testing.T) {
	db := newTestDB(t)
	repo := NewEdgeRepo(db, newTestLogger(t))
	ctx := context.Background()

	must(t, repo.Upsert(ctx, nil, &types.Edge{ID: "e1", OrgID: "acme", FromNode: "n1", ToNode: "n2", RelationshipType: "knows"}))
	must(t, repo.Upsert(ctx, nil, &types.Edge{ID: "e1", OrgID: "other", FromNode: "n1", ToNode: "n2", RelationshipType: "knows"}))

	edges, err := repo.List(ctx, nil, "acme", ListEdgesFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge scoped to acme, got %d", len(edges))
	}
}
