package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ingestHandler handles POST /api/v1/logs.
// Accepts one record or an array of them, masks each and hands it to the
// logger's backend and transports. Records below the logger's level are
// accepted but not written.
func (s *Server) ingestHandler(c *gin.Context) {
	body, err := s.readBody(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	recs, err := decodeRecords(body, true)
	if err != nil {
		abortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	written := 0
	for _, rec := range recs {
		if s.logger.Enabled(rec.Level) {
			written++
		}
		s.logger.Write(ctx, rec)
	}
	c.JSON(http.StatusAccepted, &IngestResponse{Accepted: len(recs), Written: written})
}
