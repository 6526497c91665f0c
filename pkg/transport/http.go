package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/sony/gobreaker/v2"

	"github.com/codeready-toolchain/logmask/pkg/record"
	"github.com/codeready-toolchain/logmask/pkg/version"
)

// HTTP defaults.
const (
	DefaultBatchSize       = 32
	DefaultFlushInterval   = 16 * time.Millisecond
	DefaultHTTPTimeout     = 5 * time.Second
	DefaultQueueSize       = 10000
	DefaultBreakerFailures = 5
	DefaultBreakerTimeout  = 30 * time.Second
)

// HTTPOptions configures an HTTP transport.
type HTTPOptions struct {
	URL     string
	Headers map[string]string
	// BatchSize is the number of records that triggers an immediate POST.
	BatchSize int
	// FlushInterval bounds how long a record waits in a partial batch.
	FlushInterval time.Duration
	Timeout       time.Duration
	QueueSize     int
	// BreakerFailures consecutive failed POSTs open the circuit breaker for
	// BreakerTimeout, during which batches are dropped without a request.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	Client          *http.Client
	Diagnostics     *slog.Logger
}

func (o *HTTPOptions) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultHTTPTimeout
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = DefaultBreakerFailures
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = DefaultBreakerTimeout
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: o.Timeout}
	}
}

// HTTP batches records and POSTs them as JSON:
//
//	{"logs":[...],"timestamp":"...","count":n}
//
// Records are queued by Send and delivered by a background goroutine when a
// batch fills up, when the flush interval elapses, or on Flush.
type HTTP struct {
	opts       HTTPOptions
	instanceID string
	log        *slog.Logger
	breaker    *gobreaker.CircuitBreaker[int]

	queue    chan record.Record
	flushReq chan chan error
	done     chan struct{}
	wg       sync.WaitGroup

	// mu orders Send against Close so that nothing is queued after the
	// final drain.
	mu        sync.RWMutex
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewHTTP starts an HTTP transport.
func NewHTTP(opts HTTPOptions) (*HTTP, error) {
	u, err := url.Parse(opts.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid HTTP transport URL %q", opts.URL)
	}
	opts.applyDefaults()

	h := &HTTP{
		opts:       opts,
		instanceID: uuid.NewString(),
		log:        diagnostics(opts.Diagnostics),
		queue:      make(chan record.Record, opts.QueueSize),
		flushReq:   make(chan chan error),
		done:       make(chan struct{}),
	}
	h.breaker = gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:    "http-transport",
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			h.log.Warn("HTTP transport circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	h.wg.Add(1)
	go h.runLoop()
	return h, nil
}

// Name implements Transport.
func (h *HTTP) Name() string { return "http" }

// InstanceID is sent as X-Instance-ID with every batch.
func (h *HTTP) InstanceID() string { return h.instanceID }

// Send queues rec. A full queue drops the record and returns ErrQueueFull.
func (h *HTTP) Send(_ context.Context, rec record.Record) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed.Load() {
		return ErrClosed
	}
	select {
	case h.queue <- rec:
		return nil
	default:
		h.log.Warn("HTTP transport queue full, dropping record", "url", h.opts.URL)
		return ErrQueueFull
	}
}

// Flush delivers every queued record and returns the first delivery error.
func (h *HTTP) Flush(ctx context.Context) error {
	if h.closed.Load() {
		return ErrClosed
	}
	reply := make(chan error, 1)
	select {
	case h.flushReq <- reply:
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting records, delivers what is queued and waits for the
// background goroutine to exit or ctx to expire.
func (h *HTTP) Close(ctx context.Context) error {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed.Store(true)
		h.mu.Unlock()
		close(h.done)
	})
	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *HTTP) runLoop() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.opts.FlushInterval)
	defer ticker.Stop()

	var batch []record.Record

	send := func() error {
		if len(batch) == 0 {
			return nil
		}
		var errs []error
		for start := 0; start < len(batch); start += h.opts.BatchSize {
			end := min(start+h.opts.BatchSize, len(batch))
			errs = append(errs, h.post(batch[start:end]))
		}
		batch = nil
		return errors.Join(errs...)
	}

	drain := func() {
		for {
			select {
			case rec := <-h.queue:
				batch = append(batch, rec)
			default:
				return
			}
		}
	}

	for {
		select {
		case rec := <-h.queue:
			batch = append(batch, rec)
			if len(batch) >= h.opts.BatchSize {
				_ = send()
			}
		case <-ticker.C:
			_ = send()
		case reply := <-h.flushReq:
			drain()
			reply <- send()
		case <-h.done:
			drain()
			_ = send()
			return
		}
	}
}

func (h *HTTP) post(logs []record.Record) error {
	body, err := encodeBatch(logs, time.Now())
	if err != nil {
		h.log.Warn("HTTP transport failed to encode batch", "count", len(logs), "error", err)
		return err
	}

	_, err = h.breaker.Execute(func() (int, error) {
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.opts.URL, bytes.NewReader(body))
		if err != nil {
			return 0, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Instance-ID", h.instanceID)
		req.Header.Set("User-Agent", version.Full())
		for k, v := range h.opts.Headers {
			req.Header.Set(k, v)
		}

		resp, err := h.opts.Client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return resp.StatusCode, fmt.Errorf("unexpected status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return resp.StatusCode, nil
	})
	if err != nil {
		h.log.Warn("HTTP transport delivery failed",
			"url", h.opts.URL, "count", len(logs), "error", err)
		return err
	}
	return nil
}

// encodeBatch renders the POST body for logs.
func encodeBatch(logs []record.Record, now time.Time) ([]byte, error) {
	stream := jsoniter.ConfigDefault.BorrowStream(nil)
	defer jsoniter.ConfigDefault.ReturnStream(stream)

	stream.WriteObjectStart()
	stream.WriteObjectField("logs")
	stream.WriteArrayStart()
	for i, rec := range logs {
		if i > 0 {
			stream.WriteMore()
		}
		rec.WriteJSON(stream)
	}
	stream.WriteArrayEnd()
	stream.WriteMore()
	stream.WriteObjectField("timestamp")
	stream.WriteString(now.UTC().Format(record.TimeFormat))
	stream.WriteMore()
	stream.WriteObjectField("count")
	stream.WriteInt(len(logs))
	stream.WriteObjectEnd()

	if stream.Error != nil {
		return nil, stream.Error
	}
	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}
