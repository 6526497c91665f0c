package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/logmask/pkg/record"
	"github.com/codeready-toolchain/logmask/pkg/value"
	"github.com/codeready-toolchain/logmask/pkg/version"
)

type batchPayload struct {
	Logs      []record.Record `json:"logs"`
	Timestamp string          `json:"timestamp"`
	Count     int             `json:"count"`
}

type collector struct {
	mu       sync.Mutex
	batches  []batchPayload
	headers  []http.Header
	status   int
	requests int
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	var p batchPayload
	if err := jsoniter.Unmarshal(body, &p); err == nil {
		c.batches = append(c.batches, p)
	}
	c.headers = append(c.headers, r.Header.Clone())
	if c.status != 0 {
		w.WriteHeader(c.status)
	}
}

func (c *collector) snapshot() ([]batchPayload, []http.Header, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]batchPayload(nil), c.batches...), append([]http.Header(nil), c.headers...), c.requests
}

func testRecord(msg string) record.Record {
	rec := record.New(record.LevelInfo, "svc", msg)
	rec.Attributes = value.FromPairs("email", "***@***.***")
	return rec
}

func newTestHTTP(t *testing.T, url string, opts HTTPOptions) (*HTTP, *bytes.Buffer) {
	t.Helper()
	var diag bytes.Buffer
	opts.URL = url
	if opts.FlushInterval == 0 {
		opts.FlushInterval = time.Hour
	}
	opts.Diagnostics = slog.New(slog.NewTextHandler(&diag, nil))
	h, err := NewHTTP(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close(context.Background()) })
	return h, &diag
}

func TestHTTP_FlushPostsBatch(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c)
	defer srv.Close()

	h, _ := newTestHTTP(t, srv.URL, HTTPOptions{Headers: map[string]string{"Authorization": "Bearer t"}})
	ctx := context.Background()
	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, h.Send(ctx, testRecord(msg)))
	}
	require.NoError(t, h.Flush(ctx))

	batches, headers, _ := c.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, 3, batches[0].Count)
	assert.NotEmpty(t, batches[0].Timestamp)
	require.Len(t, batches[0].Logs, 3)
	assert.Equal(t, "a", batches[0].Logs[0].Message)
	assert.Equal(t, `{"email":"***@***.***"}`, batches[0].Logs[0].Attributes.String())

	assert.Equal(t, "application/json", headers[0].Get("Content-Type"))
	assert.Equal(t, "Bearer t", headers[0].Get("Authorization"))
	assert.Equal(t, h.InstanceID(), headers[0].Get("X-Instance-ID"))
	assert.Equal(t, version.Full(), headers[0].Get("User-Agent"))
}

func TestHTTP_SplitsIntoBatches(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c)
	defer srv.Close()

	h, _ := newTestHTTP(t, srv.URL, HTTPOptions{BatchSize: 2})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, h.Send(ctx, testRecord("m")))
	}
	require.NoError(t, h.Flush(ctx))

	batches, _, _ := c.snapshot()
	total := 0
	for _, b := range batches {
		assert.LessOrEqual(t, b.Count, 2)
		assert.Len(t, b.Logs, b.Count)
		total += b.Count
	}
	assert.Equal(t, 5, total)
}

func TestHTTP_IntervalFlush(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c)
	defer srv.Close()

	h, _ := newTestHTTP(t, srv.URL, HTTPOptions{FlushInterval: 5 * time.Millisecond})
	require.NoError(t, h.Send(context.Background(), testRecord("tick")))

	assert.Eventually(t, func() bool {
		batches, _, _ := c.snapshot()
		return len(batches) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHTTP_Non2xxIsReported(t *testing.T) {
	c := &collector{status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(c)
	defer srv.Close()

	h, diag := newTestHTTP(t, srv.URL, HTTPOptions{})
	ctx := context.Background()
	require.NoError(t, h.Send(ctx, testRecord("m")))

	err := h.Flush(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, diag.String(), "HTTP transport delivery failed")
}

func TestHTTP_BreakerOpensAfterFailures(t *testing.T) {
	c := &collector{status: http.StatusInternalServerError}
	srv := httptest.NewServer(c)
	defer srv.Close()

	h, _ := newTestHTTP(t, srv.URL, HTTPOptions{BreakerFailures: 1, BreakerTimeout: time.Hour})
	ctx := context.Background()

	require.NoError(t, h.Send(ctx, testRecord("first")))
	require.Error(t, h.Flush(ctx))

	require.NoError(t, h.Send(ctx, testRecord("second")))
	err := h.Flush(ctx)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	_, _, requests := c.snapshot()
	assert.Equal(t, 1, requests)
}

func TestHTTP_QueueFullDropsRecord(t *testing.T) {
	entered := make(chan struct{}, 10)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
	}))
	defer srv.Close()

	h, diag := newTestHTTP(t, srv.URL, HTTPOptions{BatchSize: 1, QueueSize: 1})
	ctx := context.Background()

	require.NoError(t, h.Send(ctx, testRecord("in flight")))
	<-entered
	require.NoError(t, h.Send(ctx, testRecord("queued")))
	assert.ErrorIs(t, h.Send(ctx, testRecord("dropped")), ErrQueueFull)

	close(release)
	require.NoError(t, h.Close(ctx))
	assert.Contains(t, diag.String(), "dropping record")
}

func TestHTTP_CloseDeliversPendingRecords(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c)
	defer srv.Close()

	h, _ := newTestHTTP(t, srv.URL, HTTPOptions{})
	ctx := context.Background()
	require.NoError(t, h.Send(ctx, testRecord("a")))
	require.NoError(t, h.Send(ctx, testRecord("b")))
	require.NoError(t, h.Close(ctx))

	batches, _, _ := c.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, 2, batches[0].Count)

	assert.ErrorIs(t, h.Send(ctx, testRecord("late")), ErrClosed)
	assert.ErrorIs(t, h.Flush(ctx), ErrClosed)
	assert.NoError(t, h.Close(ctx), "second close is a no-op")
}

func TestHTTP_CloseRacingSendLosesNothing(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c)
	defer srv.Close()

	h, _ := newTestHTTP(t, srv.URL, HTTPOptions{BatchSize: 50, QueueSize: 5000})
	ctx := context.Background()

	var accepted atomic.Int64
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				if err := h.Send(ctx, testRecord("r")); err != nil {
					assert.ErrorIs(t, err, ErrClosed)
					return
				}
				accepted.Add(1)
			}
		}()
	}
	time.Sleep(time.Millisecond)
	require.NoError(t, h.Close(ctx))
	wg.Wait()

	batches, _, _ := c.snapshot()
	delivered := 0
	for _, b := range batches {
		delivered += b.Count
	}
	assert.Equal(t, int(accepted.Load()), delivered)
}

func TestNewHTTP_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "ftp://host/x", "http://"} {
		_, err := NewHTTP(HTTPOptions{URL: u})
		assert.Error(t, err, u)
	}
}

func TestEncodeBatch(t *testing.T) {
	rec := record.New(record.LevelWarn, "svc", "hello")
	rec.Timestamp = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	now := time.Date(2024, 1, 2, 3, 4, 6, 0, time.UTC)

	body, err := encodeBatch([]record.Record{rec}, now)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"logs":[{"timestamp":"2024-01-02T03:04:05.000Z","level":"warn","message":"hello","loggerName":"svc","context":{},"attributes":{}}],
		"timestamp":"2024-01-02T03:04:06.000Z",
		"count":1
	}`, string(body))
}
