package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ganesh47/cf-metadata-sys/internal/graph"
)

type QueryHandler struct {
	query *graph.QueryService
}

func NewQueryHandler(query *graph.QueryService) *QueryHandler {
	return &QueryHandler{query: query}
}

type queryRequest struct {
	NodeType         string `json:"node_type"`
	RelationshipType string `json:"relationship_type"`
	Limit            int    `json:"limit"`
}

func (h *QueryHandler) Run(c *gin.Context) {
	org := c.Param("org")
	var req queryRequest
	// An empty body is a valid query with no filters.
	_ = c.ShouldBindJSON(&req)

	result, err := h.query.Run(c.Request.Context(), org, graph.QueryFilter{
		NodeType:         req.NodeType,
		RelationshipType: req.RelationshipType,
		Limit:            req.Limit,
	})
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, result)
}
