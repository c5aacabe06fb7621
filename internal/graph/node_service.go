package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/cache"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/metrics"
	"github.com/ganesh47/cf-metadata-sys/internal/repos"
	"github.com/ganesh47/cf-metadata-sys/internal/types"
)

var ErrNotFound = errors.New("not found")

type NodeView struct {
	ID         string         `json:"id"`
	OrgID      string         `json:"org_id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	CreatedBy  string         `json:"created_by"`
	UpdatedBy  string         `json:"updated_by"`
	UserAgent  string         `json:"user_agent"`
	ClientIP   string         `json:"client_ip"`
}

type Pagination struct {
	Page         int  `json:"page"`
	Limit        int  `json:"limit"`
	TotalRecords int  `json:"total_records"`
	TotalPages   int  `json:"total_pages"`
	HasNextPage  bool `json:"has_next_page"`
	HasPrevPage  bool `json:"has_prev_page"`
	NextPage     *int `json:"next_page"`
	PrevPage     *int `json:"prev_page"`
}

type NodeListResult struct {
	Data       []NodeView `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type NodeDeleteResult struct {
	Deleted      string    `json:"deleted"`
	DeletedEdges int64     `json:"deleted_edges"`
	Timestamp    time.Time `json:"timestamp"`
}

type NodeService struct {
	nodes repos.NodeRepo
	kv    cache.KV
	log   *logger.Logger
}

func NewNodeService(nodes repos.NodeRepo, kv cache.KV, log *logger.Logger) *NodeService {
	return &NodeService{nodes: nodes, kv: kv, log: log.With("service", "NodeService")}
}

// GetByID implements spec §4.3 Read: KV first, DS on miss, repopulate KV.
// cacheHit reports which header the handler should set.
func (s *NodeService) GetByID(ctx context.Context, orgID, id string) (*NodeView, bool, error) {
	key := cache.NodeCacheKey(orgID, id)

	if raw, hit, err := s.kv.Get(ctx, key); err != nil {
		s.log.Warn("kv get failed, falling back to DS", "error", err, "key", key)
	} else if hit {
		var v NodeView
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			metrics.CacheResultsTotal.WithLabelValues("hit").Inc()
			return &v, true, nil
		}
	}
	metrics.CacheResultsTotal.WithLabelValues("miss").Inc()

	n, err := s.nodes.GetByID(ctx, nil, orgID, id)
	if err != nil {
		return nil, false, fmt.Errorf("get node: %w", err)
	}
	if n == nil {
		return nil, false, ErrNotFound
	}

	v := nodeToView(n)
	s.refreshCache(ctx, key, v)
	return v, false, nil
}

func (s *NodeService) List(ctx context.Context, orgID string, f repos.ListNodesFilter) (*NodeListResult, error) {
	rows, total, err := s.nodes.List(ctx, nil, orgID, f)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	var nextPage, prevPage *int
	if page < totalPages {
		n := page + 1
		nextPage = &n
	}
	if page > 1 {
		p := page - 1
		prevPage = &p
	}

	data := make([]NodeView, 0, len(rows))
	for i := range rows {
		data = append(data, *nodeToView(&rows[i]))
	}

	return &NodeListResult{
		Data: data,
		Pagination: Pagination{
			Page:         page,
			Limit:        limit,
			TotalRecords: int(total),
			TotalPages:   totalPages,
			HasNextPage:  nextPage != nil,
			HasPrevPage:  prevPage != nil,
			NextPage:     nextPage,
			PrevPage:     prevPage,
		},
	}, nil
}

// Create implements spec §4.3 Create: UPSERT as create, idempotent under
// retry with a client-supplied id.
func (s *NodeService) Create(ctx context.Context, orgID string, id, nodeType string, properties map[string]any, meta RequestMeta) (*NodeView, error) {
	if id == "" {
		id = uuid.New().String()
	}
	if nodeType == "" {
		nodeType = "default"
	}
	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("marshal properties: %w", err)
	}

	now := time.Now().UTC()
	n := &types.Node{
		ID:         id,
		OrgID:      orgID,
		Type:       nodeType,
		Properties: datatypes.JSON(propsJSON),
		CreatedAt:  now,
		UpdatedAt:  now,
		CreatedBy:  meta.PrincipalID,
		UpdatedBy:  meta.PrincipalID,
		UserAgent:  meta.UserAgent,
		ClientIP:   meta.ClientIP,
	}

	if err := s.nodes.Upsert(ctx, nil, n); err != nil {
		return nil, fmt.Errorf("upsert node: %w", err)
	}

	v := nodeToView(n)
	s.refreshCache(ctx, cache.NodeCacheKey(orgID, id), v)
	return v, nil
}

// Update implements spec §4.3 Update: shallow-merge properties, preserve
// created_at/created_by.
func (s *NodeService) Update(ctx context.Context, orgID, id string, nodeType *string, properties map[string]any, meta RequestMeta) (*NodeView, error) {
	existing, err := s.nodes.GetByID(ctx, nil, orgID, id)
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	merged, err := shallowMergeProperties(existing.Properties, properties)
	if err != nil {
		return nil, fmt.Errorf("merge properties: %w", err)
	}

	newType := existing.Type
	if nodeType != nil && *nodeType != "" {
		newType = *nodeType
	}

	existing.Type = newType
	existing.Properties = merged
	existing.UpdatedAt = time.Now().UTC()
	existing.UpdatedBy = meta.PrincipalID
	existing.UserAgent = meta.UserAgent
	existing.ClientIP = meta.ClientIP

	if err := s.nodes.Upsert(ctx, nil, existing); err != nil {
		return nil, fmt.Errorf("upsert node: %w", err)
	}

	v := nodeToView(existing)
	s.refreshCache(ctx, cache.NodeCacheKey(orgID, id), v)
	return v, nil
}

// Delete implements spec §4.3 Delete: cascade incident edges, drop the
// node row and its KV entry.
func (s *NodeService) Delete(ctx context.Context, orgID, id string) (*NodeDeleteResult, error) {
	existing, err := s.nodes.GetByID(ctx, nil, orgID, id)
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	deletedEdges, err := s.nodes.DeleteIncidentEdges(ctx, nil, orgID, id)
	if err != nil {
		return nil, fmt.Errorf("delete incident edges: %w", err)
	}
	if err := s.nodes.Delete(ctx, nil, orgID, id); err != nil {
		return nil, fmt.Errorf("delete node: %w", err)
	}
	if err := s.kv.Delete(ctx, cache.NodeCacheKey(orgID, id)); err != nil {
		s.log.Warn("kv delete failed", "error", err)
	}

	return &NodeDeleteResult{Deleted: id, DeletedEdges: deletedEdges, Timestamp: time.Now().UTC()}, nil
}

func (s *NodeService) refreshCache(ctx context.Context, key string, v *NodeView) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("marshal node for cache failed", "error", err)
		return
	}
	if err := s.kv.Set(ctx, key, string(raw), 0); err != nil {
		s.log.Warn("kv set failed", "error", err, "key", key)
	}
}

func shallowMergeProperties(existing datatypes.JSON, incoming map[string]any) (datatypes.JSON, error) {
	base := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &base); err != nil {
			return nil, err
		}
	}
	for k, v := range incoming {
		base[k] = v
	}
	out, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}

func nodeToView(n *types.Node) *NodeView {
	props := map[string]any{}
	if len(n.Properties) > 0 {
		_ = json.Unmarshal(n.Properties, &props)
	}
	return &NodeView{
		ID:         n.ID,
		OrgID:      n.OrgID,
		Type:       n.Type,
		Properties: props,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
		CreatedBy:  n.CreatedBy,
		UpdatedBy:  n.UpdatedBy,
		UserAgent:  n.UserAgent,
		ClientIP:   n.ClientIP,
	}
}
