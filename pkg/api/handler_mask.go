package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/logmask/pkg/record"
	"github.com/codeready-toolchain/logmask/pkg/value"
)

// maskHandler handles POST /api/v1/mask.
// Masks a single record with the server's policy and returns it. Nothing is
// written to the logger.
func (s *Server) maskHandler(c *gin.Context) {
	body, err := s.readBody(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	rec, err := decodeRecord(body)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.logger.Pipeline().Mask(rec))
}

// maskBatchHandler handles POST /api/v1/mask/batch.
// The body is a JSON array of records; any invalid record rejects the batch.
func (s *Server) maskBatchHandler(c *gin.Context) {
	body, err := s.readBody(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	recs, err := decodeRecords(body, false)
	if err != nil {
		abortWithError(c, err)
		return
	}

	pipeline := s.logger.Pipeline()
	masked := make([]record.Record, len(recs))
	for i, rec := range recs {
		masked[i] = pipeline.Mask(rec)
	}
	c.JSON(http.StatusOK, &MaskBatchResponse{Records: masked, Count: len(masked)})
}

func (s *Server) readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return body, nil
}

func decodeRecord(body []byte) (record.Record, error) {
	v, err := value.ParseJSON(body)
	if err != nil {
		return record.Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	rec, err := record.FromValue(v)
	if err != nil {
		return record.Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return rec, nil
}

// decodeRecords parses a JSON array of records. With single set, a lone
// object is accepted as a batch of one.
func decodeRecords(body []byte, single bool) ([]record.Record, error) {
	v, err := value.ParseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if single && v.Kind() == value.KindMap {
		rec, err := record.FromValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		return []record.Record{rec}, nil
	}
	items, ok := v.AsList()
	if !ok {
		return nil, fmt.Errorf("%w: expected an array of records, got %s", ErrInvalidRecord, v.Kind())
	}
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	recs := make([]record.Record, len(items))
	for i, item := range items {
		if recs[i], err = record.FromValue(item); err != nil {
			return nil, fmt.Errorf("%w: records[%d]: %v", ErrInvalidRecord, i, err)
		}
	}
	return recs, nil
}
