package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/logmask/pkg/version"
)

const healthStatusHealthy = "healthy"

// healthHandler handles GET /health.
// The engine holds no external connections, so a running process is healthy.
// Transport failures are reported through diagnostics and metrics instead.
func (s *Server) healthHandler(c *gin.Context) {
	p := s.logger.Pipeline().Policy()
	c.JSON(http.StatusOK, &HealthResponse{
		Status:  healthStatusHealthy,
		Version: version.Full(),
		Logger:  s.logger.Name(),
		Policy: PolicyStats{
			Rules:          len(p.Rules()),
			SensitivePaths: p.SensitivePaths(),
			MaskValue:      p.MaskValue(),
			DeepScan:       p.DeepScan(),
		},
	})
}
