package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/metrics"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/vectorindex"
	"github.com/ganesh47/cf-metadata-sys/internal/repos"
	"github.com/ganesh47/cf-metadata-sys/internal/types"
)

var ErrMissingRequiredField = fmt.Errorf("missing required field")

type EdgeView struct {
	ID               string         `json:"id"`
	OrgID            string         `json:"org_id"`
	FromNode         string         `json:"from_node"`
	ToNode           string         `json:"to_node"`
	RelationshipType string         `json:"relationship_type"`
	Properties       map[string]any `json:"properties"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	CreatedBy        string         `json:"created_by"`
	UpdatedBy        string         `json:"updated_by"`
	UserAgent        string         `json:"user_agent"`
	ClientIP         string         `json:"client_ip"`
}

type EdgeListResult struct {
	Edges    []EdgeView     `json:"edges"`
	Metadata EdgeListMeta   `json:"metadata"`
}

type EdgeListMeta struct {
	OrgID   string            `json:"org_id"`
	Total   int               `json:"total"`
	Filters map[string]string `json:"filters"`
}

type EdgeDeleteResult struct {
	Deleted string `json:"deleted"`
	OrgID   string `json:"org_id"`
}

// Embedder is the EP component dependency (spec §2): text in, vector out.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type EdgeService struct {
	edges     repos.EdgeRepo
	vx        vectorindex.VectorIndex
	embedder  Embedder
	log       *logger.Logger
}

func NewEdgeService(edges repos.EdgeRepo, vx vectorindex.VectorIndex, embedder Embedder, log *logger.Logger) *EdgeService {
	return &EdgeService{edges: edges, vx: vx, embedder: embedder, log: log.With("service", "EdgeService")}
}

// Create implements spec §4.4 Create, including the best-effort
// vectorization side channel: EP + VX failures are logged and counted,
// never surfaced as an error, and never roll back the DS write.
func (s *EdgeService) Create(ctx context.Context, orgID string, id, fromNode, toNode, relationshipType string, properties map[string]any, meta RequestMeta) (*EdgeView, error) {
	if fromNode == "" || toNode == "" {
		return nil, fmt.Errorf("from_node and to_node are required: %w", ErrMissingRequiredField)
	}
	if id == "" {
		id = uuid.New().String()
	}
	if relationshipType == "" {
		relationshipType = "related"
	}

	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("marshal properties: %w", err)
	}

	now := time.Now().UTC()
	e := &types.Edge{
		ID:               id,
		OrgID:            orgID,
		FromNode:         fromNode,
		ToNode:           toNode,
		RelationshipType: relationshipType,
		Properties:       datatypes.JSON(propsJSON),
		CreatedAt:        now,
		UpdatedAt:        now,
		CreatedBy:        meta.PrincipalID,
		UpdatedBy:        meta.PrincipalID,
		UserAgent:        meta.UserAgent,
		ClientIP:         meta.ClientIP,
	}

	if err := s.edges.Upsert(ctx, nil, e); err != nil {
		return nil, fmt.Errorf("upsert edge: %w", err)
	}

	s.vectorize(ctx, e, properties)

	return edgeToView(e), nil
}

// vectorize embeds the keys named by properties["vectorize"] and upserts
// the resulting point into VX, keyed by edge id (spec §4.4). Best-effort:
// any failure is logged and counted, never returned to the caller.
func (s *EdgeService) vectorize(ctx context.Context, e *types.Edge, properties map[string]any) {
	keys, ok := vectorizeKeys(properties)
	if !ok || len(keys) == 0 {
		return
	}
	if s.embedder == nil || s.vx == nil {
		s.log.Warn("vectorize requested but EP/VX not configured", "edge_id", e.ID)
		metrics.VectorizationFailuresTotal.WithLabelValues("unconfigured").Inc()
		return
	}

	text := buildVectorizationText(keys, properties)
	if text == "" {
		return
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.log.Warn("embedding call failed, edge persisted without vector", "error", err, "edge_id", e.ID)
		metrics.VectorizationFailuresTotal.WithLabelValues("embed").Inc()
		return
	}

	err = s.vx.Upsert(ctx, []vectorindex.Point{{
		ID:     e.ID,
		Vector: vec,
		Payload: map[string]any{
			"edge_id":           e.ID,
			"from_node":         e.FromNode,
			"to_node":           e.ToNode,
			"org_id":            e.OrgID,
			"relationship_type": e.RelationshipType,
		},
	}})
	if err != nil {
		s.log.Warn("vector index upsert failed, edge persisted without vector", "error", err, "edge_id", e.ID)
		metrics.VectorizationFailuresTotal.WithLabelValues("vx_upsert").Inc()
	}
}

func vectorizeKeys(properties map[string]any) ([]string, bool) {
	raw, ok := properties["vectorize"]
	if !ok {
		return nil, false
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

// buildVectorizationText renders "<key-normalized>: <value>" lines,
// separated by a blank line, for each vectorize key present in
// properties (spec §4.4).
func buildVectorizationText(keys []string, properties map[string]any) string {
	var parts []string
	for _, key := range keys {
		val, ok := properties[key]
		if !ok {
			continue
		}
		normalizedKey := strings.ReplaceAll(strings.ToLower(key), "_", " ")
		parts = append(parts, fmt.Sprintf("%s: %s", normalizedKey, describeValue(val)))
	}
	return strings.Join(parts, "\n\n")
}

func describeValue(v any) string {
	switch s := v.(type) {
	case string:
		return strings.ToLower(s)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func (s *EdgeService) GetByID(ctx context.Context, orgID, id string) (*EdgeView, error) {
	e, err := s.edges.GetByID(ctx, nil, orgID, id)
	if err != nil {
		return nil, fmt.Errorf("get edge: %w", err)
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return edgeToView(e), nil
}

func (s *EdgeService) List(ctx context.Context, orgID string, f repos.ListEdgesFilter) (*EdgeListResult, error) {
	rows, err := s.edges.List(ctx, nil, orgID, f)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	views := make([]EdgeView, 0, len(rows))
	for i := range rows {
		views = append(views, *edgeToView(&rows[i]))
	}
	filters := map[string]string{}
	if f.Type != "" {
		filters["type"] = f.Type
	}
	if f.From != "" {
		filters["from"] = f.From
	}
	if f.To != "" {
		filters["to"] = f.To
	}
	return &EdgeListResult{
		Edges: views,
		Metadata: EdgeListMeta{
			OrgID:   orgID,
			Total:   len(views),
			Filters: filters,
		},
	}, nil
}

// Update implements spec §4.4 Update: replace relationship_type if
// supplied, shallow-merge properties if supplied, preserve endpoints and
// creation metadata.
func (s *EdgeService) Update(ctx context.Context, orgID, id string, relationshipType *string, properties map[string]any, meta RequestMeta) (*EdgeView, error) {
	existing, err := s.edges.GetByID(ctx, nil, orgID, id)
	if err != nil {
		return nil, fmt.Errorf("get edge: %w", err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	if relationshipType != nil && *relationshipType != "" {
		existing.RelationshipType = *relationshipType
	}
	if properties != nil {
		merged, err := shallowMergeProperties(existing.Properties, properties)
		if err != nil {
			return nil, fmt.Errorf("merge properties: %w", err)
		}
		existing.Properties = merged
	}
	existing.UpdatedAt = time.Now().UTC()
	existing.UpdatedBy = meta.PrincipalID
	existing.UserAgent = meta.UserAgent
	existing.ClientIP = meta.ClientIP

	if err := s.edges.Upsert(ctx, nil, existing); err != nil {
		return nil, fmt.Errorf("upsert edge: %w", err)
	}
	return edgeToView(existing), nil
}

func (s *EdgeService) Delete(ctx context.Context, orgID, id string) (*EdgeDeleteResult, error) {
	existing, err := s.edges.GetByID(ctx, nil, orgID, id)
	if err != nil {
		return nil, fmt.Errorf("get edge: %w", err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	if err := s.edges.Delete(ctx, nil, orgID, id); err != nil {
		return nil, fmt.Errorf("delete edge: %w", err)
	}
	return &EdgeDeleteResult{Deleted: id, OrgID: orgID}, nil
}

func edgeToView(e *types.Edge) *EdgeView {
	props := map[string]any{}
	if len(e.Properties) > 0 {
		_ = json.Unmarshal(e.Properties, &props)
	}
	return &EdgeView{
		ID:               e.ID,
		OrgID:            e.OrgID,
		FromNode:         e.FromNode,
		ToNode:           e.ToNode,
		RelationshipType: e.RelationshipType,
		Properties:       props,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
		CreatedBy:        e.CreatedBy,
		UpdatedBy:        e.UpdatedBy,
		UserAgent:        e.UserAgent,
		ClientIP:         e.ClientIP,
	}
}
