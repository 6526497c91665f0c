package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/codeready-toolchain/logmask/pkg/masking"
)

// catalogHandler handles GET /api/v1/catalog.
func (s *Server) catalogHandler(c *gin.Context) {
	entries := lo.Map(s.catalog.Rules(), func(r *masking.Rule, _ int) CatalogEntry {
		return CatalogEntry{
			Name:        r.Name,
			Pattern:     r.Pattern(),
			Replacement: r.Replacement,
			Description: r.Description,
		}
	})
	groups := make(map[string][]string)
	for _, g := range s.catalog.GroupNames() {
		groups[g] = s.catalog.GroupMembers(g)
	}
	c.JSON(http.StatusOK, &CatalogResponse{Entries: entries, Groups: groups})
}
