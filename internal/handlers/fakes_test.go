package handlers

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ganesh47/cf-metadata-sys/internal/repos"
	"github.com/ganesh47/cf-metadata-sys/internal/types"
)

type fakeNodeRepo struct {
	mu    sync.Mutex
	byKey map[string]*types.Node
}

func newFakeNodeRepo() *fakeNodeRepo { return &fakeNodeRepo{byKey: map[string]*types.Node{}} }

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

type fakeEdgeRepo struct {
	mu    sync.Mutex
	byKey map[string]*types.Edge
}

func newFakeEdgeRepo() *fakeEdgeRepo { return &fakeEdgeRepo{byKey: map[string]*types.Edge{}} }

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
	return f.ListByOrg(context.Background(), nil, orgID)
}

func (f *fakeEdgeRepo) Delete(_ context.Context, _ *gorm.DB, orgID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byKey, edgeKey(orgID, id))
	return nil
}

func (f *fakeEdgeRepo) ListByOrg(_ context.Context, _ *gorm.DB, orgID string) ([]types.Edge, error) {
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

func (f *fakeEdgeRepo) OutgoingFrom(_ context.Context, _ *gorm.DB, orgID, nodeID string, relTypes []string) ([]types.Edge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Edge
	for _, e := range f.byKey {
		if e.OrgID != orgID || e.FromNode != nodeID {
			continue
		}
		if len(relTypes) > 0 {
			match := false
			for _, rt := range relTypes {
				if rt == e.RelationshipType {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *e)
	}
	return out, nil
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
