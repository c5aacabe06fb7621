package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/vectorindex"
	"github.com/ganesh47/cf-metadata-sys/internal/repos"
	"github.com/ganesh47/cf-metadata-sys/internal/types"
)

type fakeEdgeRepo struct {
	mu    sync.Mutex
	byKey map[string]*types.Edge
}

func newFakeEdgeRepo() *fakeEdgeRepo {
	return &fakeEdgeRepo{byKey: map[string]*types.Edge{}}
}

func edgeKey(orgID, id string) string { return orgID + "/" + id }

func (f *fakeEdgeRepo) Upsert(_ context.Context, _ *gorm.DB, e *types.Edge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.byKey[edgeKey(e.OrgID, e.ID)] = &cp
	return nil
}

func (f *fakeEdgeRepo) GetByID(_ context.Context, _ *gorm.DB, orgID, id string) (*types.Edge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byKey[edgeKey(orgID, id)]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEdgeRepo) List(_ context.Context, _ *gorm.DB, orgID string, _ repos.ListEdgesFilter) ([]types.Edge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Edge
	for _, e := range f.byKey {
		if e.OrgID == orgID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeEdgeRepo) Delete(_ context.Context, _ *gorm.DB, orgID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byKey, edgeKey(orgID, id))
	return nil
}

func (f *fakeEdgeRepo) ListByOrg(_ context.Context, _ *gorm.DB, orgID string) ([]types.Edge, error) {
	return f.List(context.Background(), nil, orgID, repos.ListEdgesFilter{})
}

func (f *fakeEdgeRepo) OutgoingFrom(_ context.Context, _ *gorm.DB, orgID, nodeID string, relTypes []string) ([]types.Edge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Edge
	for _, e := range f.byKey {
		if e.OrgID != orgID || e.FromNode != nodeID {
			continue
		}
		if len(relTypes) > 0 && !contains(relTypes, e.RelationshipType) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

type fakeVectorIndex struct {
	mu     sync.Mutex
	points []vectorindex.Point
	err    error
}

func (f *fakeVectorIndex) Upsert(_ context.Context, points []vectorindex.Point) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, points...)
	return nil
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func TestEdgeServiceCreateRequiresEndpoints(t *testing.T) {
	svc := NewEdgeService(newFakeEdgeRepo(), nil, nil, testLogger(t))

	_, err := svc.Create(context.Background(), "acme", "", "", "n2", "knows", nil, RequestMeta{})
	if !errors.Is(err, ErrMissingRequiredField) {
		t.Fatalf("expected ErrMissingRequiredField, got %v", err)
	}
}

func TestEdgeServiceCreateVectorizesWhenRequested(t *testing.T) {
	vx := &fakeVectorIndex{}
	emb := &fakeEmbedder{vec: []float32{0.1, 0.2, 0.3}}
	svc := NewEdgeService(newFakeEdgeRepo(), vx, emb, testLogger(t))

	props := map[string]any{
		"summary":    "Ada manages the platform team",
		"vectorize":  []any{"summary"},
	}
	v, err := svc.Create(context.Background(), "acme", "e1", "n1", "n2", "manages", props, RequestMeta{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.ID != "e1" {
		t.Fatalf("expected id e1, got %q", v.ID)
	}

	vx.mu.Lock()
	defer vx.mu.Unlock()
	if len(vx.points) != 1 || vx.points[0].ID != "e1" {
		t.Fatalf("expected one vector point for e1, got %+v", vx.points)
	}
}

func TestEdgeServiceCreateFailsOpenWhenEmbeddingFails(t *testing.T) {
	vx := &fakeVectorIndex{}
	emb := &fakeEmbedder{err: errors.New("boom")}
	svc := NewEdgeService(newFakeEdgeRepo(), vx, emb, testLogger(t))

	props := map[string]any{"summary": "x", "vectorize": []any{"summary"}}
	v, err := svc.Create(context.Background(), "acme", "e1", "n1", "n2", "manages", props, RequestMeta{})
	if err != nil {
		t.Fatalf("expected create to succeed despite embedding failure, got %v", err)
	}
	if v == nil {
		t.Fatalf("expected edge view")
	}

	vx.mu.Lock()
	defer vx.mu.Unlock()
	if len(vx.points) != 0 {
		t.Fatalf("expected no vector points written, got %+v", vx.points)
	}
}

func TestEdgeServiceCreateSkipsVectorizeWithoutRequestedKeys(t *testing.T) {
	vx := &fakeVectorIndex{}
	emb := &fakeEmbedder{vec: []float32{1}}
	svc := NewEdgeService(newFakeEdgeRepo(), vx, emb, testLogger(t))

	_, err := svc.Create(context.Background(), "acme", "e1", "n1", "n2", "manages", map[string]any{"summary": "x"}, RequestMeta{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	vx.mu.Lock()
	defer vx.mu.Unlock()
	if len(vx.points) != 0 {
		t.Fatalf("expected no vectorize call without vectorize key, got %+v", vx.points)
	}
}

func TestEdgeServiceUpdatePreservesEndpointsAndCreatedBy(t *testing.T) {
	repo := newFakeEdgeRepo()
	svc := NewEdgeService(repo, nil, nil, testLogger(t))
	ctx := context.Background()

	_, err := svc.Create(ctx, "acme", "e1", "n1", "n2", "knows", map[string]any{"weight": 1.0}, RequestMeta{PrincipalID: "alice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newType := "manages"
	updated, err := svc.Update(ctx, "acme", "e1", &newType, map[string]any{"weight": 2.0}, RequestMeta{PrincipalID: "bob"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FromNode != "n1" || updated.ToNode != "n2" {
		t.Fatalf("expected endpoints preserved, got from=%q to=%q", updated.FromNode, updated.ToNode)
	}
	if updated.RelationshipType != "manages" {
		t.Fatalf("expected relationship_type updated, got %q", updated.RelationshipType)
	}
	if updated.CreatedBy != "alice" {
		t.Fatalf("expected created_by preserved, got %q", updated.CreatedBy)
	}
}

func TestEdgeServiceDeleteMissingReturnsErrNotFound(t *testing.T) {
	svc := NewEdgeService(newFakeEdgeRepo(), nil, nil, testLogger(t))
	_, err := svc.Delete(context.Background(), "acme", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildVectorizationTextJoinsNormalizedKeys(t *testing.T) {
	text := buildVectorizationText([]string{"job_title"}, map[string]any{"job_title": "Senior Engineer"})
	if text != "job title: senior engineer" {
		t.Fatalf("unexpected vectorization text: %q", text)
	}
}
