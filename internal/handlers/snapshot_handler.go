package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ganesh47/cf-metadata-sys/internal/graph"
)

type SnapshotHandler struct {
	snapshots *graph.SnapshotService
}

func NewSnapshotHandler(snapshots *graph.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshots: snapshots}
}

func (h *SnapshotHandler) Export(c *gin.Context) {
	org := c.Param("org")

	snap, err := h.snapshots.Export(c.Request.Context(), org)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, snap)
}

type importRequest struct {
	Nodes []importNodeRequest `json:"nodes"`
	Edges []importEdgeRequest `json:"edges"`
}

type importNodeRequest struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
	CreatedBy  string         `json:"created_by"`
	UpdatedBy  string         `json:"updated_by"`
	UserAgent  string         `json:"user_agent"`
	ClientIP   string         `json:"client_ip"`
}

type importEdgeRequest struct {
	ID               string         `json:"id"`
	FromNode         string         `json:"from_node"`
	ToNode           string         `json:"to_node"`
	RelationshipType string         `json:"relationship_type"`
	Properties       map[string]any `json:"properties"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
	CreatedBy        string         `json:"created_by"`
	UpdatedBy        string         `json:"updated_by"`
	UserAgent        string         `json:"user_agent"`
	ClientIP         string         `json:"client_ip"`
}

func (h *SnapshotHandler) Import(c *gin.Context) {
	org := c.Param("org")
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "malformed_body", "malformed request body")
		return
	}

	nodes := make([]graph.ImportNode, 0, len(req.Nodes))
	for _, n := range req.Nodes {
		nodes = append(nodes, graph.ImportNode{
			ID:         n.ID,
			Type:       n.Type,
			Properties: n.Properties,
			CreatedAt:  n.CreatedAt,
			UpdatedAt:  n.UpdatedAt,
			CreatedBy:  n.CreatedBy,
			UpdatedBy:  n.UpdatedBy,
			UserAgent:  n.UserAgent,
			ClientIP:   n.ClientIP,
		})
	}
	edges := make([]graph.ImportEdge, 0, len(req.Edges))
	for _, e := range req.Edges {
		edges = append(edges, graph.ImportEdge{
			ID:               e.ID,
			FromNode:         e.FromNode,
			ToNode:           e.ToNode,
			RelationshipType: e.RelationshipType,
			Properties:       e.Properties,
			CreatedAt:        e.CreatedAt,
			UpdatedAt:        e.UpdatedAt,
			CreatedBy:        e.CreatedBy,
			UpdatedBy:        e.UpdatedBy,
			UserAgent:        e.UserAgent,
			ClientIP:         e.ClientIP,
		})
	}

	result, err := h.snapshots.Import(c.Request.Context(), org, nodes, edges, requestMeta(c))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, result)
}
