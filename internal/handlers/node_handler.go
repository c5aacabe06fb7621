package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ganesh47/cf-metadata-sys/internal/graph"
	"github.com/ganesh47/cf-metadata-sys/internal/repos"
)

type NodeHandler struct {
	nodes *graph.NodeService
}

func NewNodeHandler(nodes *graph.NodeService) *NodeHandler {
	return &NodeHandler{nodes: nodes}
}

type createNodeRequest struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

type updateNodeRequest struct {
	Type       *string        `json:"type"`
	Properties map[string]any `json:"properties"`
}

func (h *NodeHandler) Get(c *gin.Context) {
	org := c.Param("org")
	id := c.Param("id")

	v, hit, err := h.nodes.GetByID(c.Request.Context(), org, id)
	if err != nil {
		respondError(c, err, "Node not found")
		return
	}
	if hit {
		c.Header("X-Node-Cache", "HIT")
	} else {
		c.Header("X-Node-Cache", "MISS")
	}
	c.JSON(http.StatusOK, v)
}

func (h *NodeHandler) List(c *gin.Context) {
	org := c.Param("org")
	f := repos.ListNodesFilter{
		Type:      c.Query("type"),
		CreatedBy: c.Query("created_by"),
		UpdatedBy: c.Query("updated_by"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if page, ok := queryInt(c, "page"); ok {
		f.Page = page
	}
	if limit, ok := queryInt(c, "limit"); ok {
		f.Limit = limit
	}

	result, err := h.nodes.List(c.Request.Context(), org, f)
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *NodeHandler) Create(c *gin.Context) {
	org := c.Param("org")
	var req createNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "malformed_body", "malformed request body")
		return
	}

	v, err := h.nodes.Create(c.Request.Context(), org, req.ID, req.Type, req.Properties, requestMeta(c))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *NodeHandler) Update(c *gin.Context) {
	org := c.Param("org")
	id := c.Param("id")
	var req updateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "malformed_body", "malformed request body")
		return
	}

	v, err := h.nodes.Update(c.Request.Context(), org, id, req.Type, req.Properties, requestMeta(c))
	if err != nil {
		respondError(c, err, "Node not found")
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *NodeHandler) Delete(c *gin.Context) {
	org := c.Param("org")
	id := c.Param("id")

	result, err := h.nodes.Delete(c.Request.Context(), org, id)
	if err != nil {
		respondError(c, err, "Node not found")
		return
	}
	c.JSON(http.StatusOK, result)
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
