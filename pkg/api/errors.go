package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	// ErrInvalidRecord indicates a request body that is not a valid log record
	ErrInvalidRecord = errors.New("invalid log record")

	// ErrEmptyBatch indicates a batch request without records
	ErrEmptyBatch = errors.New("batch contains no records")
)

// mapRequestError maps request decoding errors to an HTTP status and a
// client-facing message.
func mapRequestError(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds maximum size of %d bytes", tooLarge.Limit)
	}
	if errors.Is(err, ErrInvalidRecord) || errors.Is(err, ErrEmptyBatch) {
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// abortWithError writes err as an ErrorResponse and stops the handler chain.
func abortWithError(c *gin.Context, err error) {
	code, msg := mapRequestError(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(code, &ErrorResponse{Error: msg})
}
