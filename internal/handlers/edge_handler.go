package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ganesh47/cf-metadata-sys/internal/graph"
	"github.com/ganesh47/cf-metadata-sys/internal/repos"
)

type EdgeHandler struct {
	edges *graph.EdgeService
}

func NewEdgeHandler(edges *graph.EdgeService) *EdgeHandler {
	return &EdgeHandler{edges: edges}
}

type createEdgeRequest struct {
	ID               string         `json:"id"`
	FromNode         string         `json:"from_node"`
	ToNode           string         `json:"to_node"`
	RelationshipType string         `json:"relationship_type"`
	Properties       map[string]any `json:"properties"`
}

type updateEdgeRequest struct {
	RelationshipType *string        `json:"relationship_type"`
	Properties       map[string]any `json:"properties"`
}

func (h *EdgeHandler) Create(c *gin.Context) {
	org := c.Param("org")
	var req createEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "malformed_body", "malformed request body")
		return
	}

	v, err := h.edges.Create(c.Request.Context(), org, req.ID, req.FromNode, req.ToNode, req.RelationshipType, req.Properties, requestMeta(c))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *EdgeHandler) Get(c *gin.Context) {
	org := c.Param("org")
	id := c.Param("id")

	v, err := h.edges.GetByID(c.Request.Context(), org, id)
	if err != nil {
		respondError(c, err, "Edge not found")
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *EdgeHandler) List(c *gin.Context) {
	org := c.Param("org")
	f := repos.ListEdgesFilter{
		Type: c.Query("type"),
		From: c.Query("from"),
		To:   c.Query("to"),
	}
	if limit, ok := queryInt(c, "limit"); ok {
		f.Limit = limit
	}

	result, err := h.edges.List(c.Request.Context(), org, f)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *EdgeHandler) Update(c *gin.Context) {
	org := c.Param("org")
	id := c.Param("id")
	var req updateEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "malformed_body", "malformed request body")
		return
	}

	v, err := h.edges.Update(c.Request.Context(), org, id, req.RelationshipType, req.Properties, requestMeta(c))
	if err != nil {
		respondError(c, err, "Edge not found")
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *EdgeHandler) Delete(c *gin.Context) {
	org := c.Param("org")
	id := c.Param("id")

	result, err := h.edges.Delete(c.Request.Context(), org, id)
	if err != nil {
		respondError(c, err, "Edge not found")
		return
	}
	c.JSON(http.StatusOK, result)
}
