package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ganesh47/cf-metadata-sys/internal/graph"
)

type TraverseHandler struct {
	traverse *graph.TraverseService
}

func NewTraverseHandler(traverse *graph.TraverseService) *TraverseHandler {
	return &TraverseHandler{traverse: traverse}
}

type traverseRequest struct {
	StartNode         string   `json:"start_node"`
	MaxDepth          int      `json:"max_depth"`
	RelationshipTypes []string `json:"relationship_types"`
}

func (h *TraverseHandler) Run(c *gin.Context) {
	org := c.Param("org")
	var req traverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "malformed_body", "malformed request body")
		return
	}
	if req.StartNode == "" {
		respondBadRequest(c, "missing_start_node", "start_node is required")
		return
	}

	result, err := h.traverse.Run(c.Request.Context(), org, graph.TraverseRequest{
		StartNode:         req.StartNode,
		MaxDepth:          req.MaxDepth,
		RelationshipTypes: req.RelationshipTypes,
	})
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, result)
}
