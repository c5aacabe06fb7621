package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ganesh47/cf-metadata-sys/internal/authz"
)

type OrgsResponse struct {
	Orgs []string `json:"orgs"`
}

// Orgs implements spec §6.1 `/orgs`: the distinct org scopes named by the
// caller's own permission claims, wildcard scopes excluded since "*" does
// not name a concrete org.
func Orgs(c *gin.Context) {
	p := principalOf(c)

	seen := map[string]bool{}
	var orgs []string
	for _, scope := range p.Permissions {
		org, _, ok := authz.ParseScope(scope)
		if !ok || org == "*" || seen[org] {
			continue
		}
		seen[org] = true
		orgs = append(orgs, org)
	}

	c.JSON(http.StatusOK, OrgsResponse{Orgs: orgs})
}
