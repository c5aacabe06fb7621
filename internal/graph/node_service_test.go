package graph

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
	"github.com/ganesh47/cf-metadata-sys/internal/repos"
	"github.com/ganesh47/cf-metadata-sys/internal/types"
)

type fakeNodeRepo struct {
	mu    sync.Mutex
	byKey map[string]*types.Node
}

func newFakeNodeRepo() *fakeNodeRepo {
	return &fakeNodeRepo{byKey: map[string]*types.Node{}}
}

func nodeKey(orgID, id string) string { return orgID + "/" + id }

func (f *fakeNodeRepo) Upsert(_ context.Context, _ *gorm.DB, n *types.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *n
	f.byKey[nodeKey(n.OrgID, n.ID)] = &cp
	return nil
}

func (f *fakeNodeRepo) GetByID(_ context.Context, _ *gorm.DB, orgID, id string) (*types.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.byKey[nodeKey(orgID, id)]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (f *fakeNodeRepo) List(_ context.Context, _ *gorm.DB, orgID string, filter repos.ListNodesFilter) ([]types.Node, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Node
	for _, n := range f.byKey {
		if n.OrgID == orgID && (filter.Type == "" || n.Type == filter.Type) {
			out = append(out, *n)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeNodeRepo) Delete(_ context.Context, _ *gorm.DB, orgID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byKey, nodeKey(orgID, id))
	return nil
}

func (f *fakeNodeRepo) DeleteIncidentEdges(_ context.Context, _ *gorm.DB, _, _ string) (int64, error) {
	return 0, nil
}

type fakeKV struct {
	mu    sync.Mutex
	store map[string]string
}

func newFakeKV() *fakeKV { return &fakeKV{store: map[string]string{}} }

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.store[key]
	return v, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = value
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.store, key)
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	return log
}

func TestNodeServiceCreateThenGetByIDIsCacheHitSecondTime(t *testing.T) {
	nodes := newFakeNodeRepo()
	kv := newFakeKV()
	svc := NewNodeService(nodes, kv, testLogger(t))
	ctx := context.Background()

	v, err := svc.Create(ctx, "acme", "", "person", map[string]any{"name": "Ada"}, RequestMeta{PrincipalID: "alice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.ID == "" {
		t.Fatalf("expected generated id")
	}

	_, hit, err := svc.GetByID(ctx, "acme", v.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !hit {
		t.Fatalf("expected cache hit after create populated KV")
	}
}

func TestNodeServiceGetByIDMissingReturnsErrNotFound(t *testing.T) {
	svc := NewNodeService(newFakeNodeRepo(), newFakeKV(), testLogger(t))

	_, _, err := svc.GetByID(context.Background(), "acme", "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNodeServiceUpdateShallowMergesPropertiesAndKeepsCreatedAt(t *testing.T) {
	nodes := newFakeNodeRepo()
	svc := NewNodeService(nodes, newFakeKV(), testLogger(t))
	ctx := context.Background()

	created, err := svc.Create(ctx, "acme", "n1", "person", map[string]any{"name": "Ada", "age": 30.0}, RequestMeta{PrincipalID: "alice"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, "acme", "n1", nil, map[string]any{"age": 31.0}, RequestMeta{PrincipalID: "bob"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Properties["name"] != "Ada" {
		t.Fatalf("expected unmentioned key to survive shallow merge, got %+v", updated.Properties)
	}
	if updated.Properties["age"] != 31.0 {
		t.Fatalf("expected age updated, got %+v", updated.Properties)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected created_at preserved, got %v vs %v", updated.CreatedAt, created.CreatedAt)
	}
	if updated.CreatedBy != "alice" {
		t.Fatalf("expected created_by preserved, got %q", updated.CreatedBy)
	}
	if updated.UpdatedBy != "bob" {
		t.Fatalf("expected updated_by to change, got %q", updated.UpdatedBy)
	}
}

func TestNodeServiceUpdateMissingReturnsErrNotFound(t *testing.T) {
	svc := NewNodeService(newFakeNodeRepo(), newFakeKV(), testLogger(t))

	_, err := svc.Update(context.Background(), "acme", "nope", nil, nil, RequestMeta{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNodeServiceDeleteRemovesCacheEntry(t *testing.T) {
	nodes := newFakeNodeRepo()
	kv := newFakeKV()
	svc := NewNodeService(nodes, kv, testLogger(t))
	ctx := context.Background()

	v, err := svc.Create(ctx, "acme", "n1", "person", nil, RequestMeta{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Delete(ctx, "acme", v.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, hit, err := kvHasKey(kv, "acme", v.ID)
	if err != nil {
		t.Fatalf("kv get: %v", err)
	}
	if hit {
		t.Fatalf("expected cache entry removed after delete")
	}
}

func kvHasKey(kv *fakeKV, orgID, id string) (string, bool, error) {
	return kv.Get(context.Background(), "node:"+orgID+":"+id)
}

func TestShallowMergePropertiesOverlaysExisting(t *testing.T) {
	existing, _ := json.Marshal(map[string]any{"a": 1.0, "b": 2.0})
	merged, err := shallowMergeProperties(datatypes.JSON(existing), map[string]any{"b": 3.0, "c": 4.0})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(merged, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["a"] != 1.0 || out["b"] != 3.0 || out["c"] != 4.0 {
		t.Fatalf("unexpected merge result: %+v", out)
	}
}
