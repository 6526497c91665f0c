// Package transport delivers masked records to remote sinks. Transports
// only ever receive records that have already passed through a redaction
// pipeline.
package transport

import (
	"context"
	"errors"
	"log/slog"

	"github.com/codeready-toolchain/logmask/pkg/record"
)

var (
	// ErrClosed indicates the transport was closed
	ErrClosed = errors.New("transport closed")

	// ErrQueueFull indicates a record was dropped because the send queue is full
	ErrQueueFull = errors.New("transport queue full")
)

// Transport is a destination for masked records. Implementations must be
// safe for concurrent use. Delivery is best effort.
type Transport interface {
	// Name identifies the transport in diagnostics.
	Name() string
	// Send hands one masked record to the transport. It may return before
	// the record is delivered.
	Send(ctx context.Context, rec record.Record) error
	// Flush delivers everything accepted so far.
	Flush(ctx context.Context) error
	// Close flushes and releases resources. Send fails after Close.
	Close(ctx context.Context) error
}

func diagnostics(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
