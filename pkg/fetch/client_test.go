package fetch_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertextoedge/wget-fetch/internal/domain"
	"github.com/vertextoedge/wget-fetch/pkg/fetch"
)

const body = "0123456789abcdefghijklmnopqrstuvwxyz"

func newClient(t *testing.T, opts ...fetch.Option) *fetch.Client {
	t.Helper()
	opts = append([]fetch.Option{fetch.WithBackoff(time.Millisecond, 5*time.Millisecond)}, opts...)
	c, err := fetch.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestFetch_DryRunResolvesDirectory(t *testing.T) {
	c := newClient(t)

	res, err := c.Fetch(context.Background(), "https://host/a/b/report.csv?v=2",
		fetch.Path("./downloads/"), fetch.RequestOptions{DryRun: true})
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, "./downloads/report.csv", res.Path)
	assert.Equal(t, fetch.SinkFile, res.Target.Kind)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		action fetch.Action
		want   fetch.Target
	}{
		{
			name:   "explicit file",
			url:    "https://host/x.bin",
			action: fetch.Path("/tmp/y.bin"),
			want:   fetch.Target{Kind: fetch.SinkFile, Path: "/tmp/y.bin"},
		},
		{
			name:   "empty path is current directory",
			url:    "https://host/dir/x.bin#frag",
			action: fetch.Path(""),
			want:   fetch.Target{Kind: fetch.SinkFile, Path: "./x.bin"},
		},
		{
			name:   "sink name",
			url:    "https://host/x.json",
			action: fetch.ParseAction("json"),
			want:   fetch.Target{Kind: fetch.SinkStructured},
		},
		{
			name:   "options default to stream",
			url:    "https://host/x",
			action: fetch.Options(fetch.RequestOptions{}),
			want:   fetch.Target{Kind: fetch.SinkStream},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fetch.Resolve(tt.url, tt.action, fetch.RequestOptions{}))
		})
	}
}

func TestFetch_Structured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"a":1}`)
	}))
	defer srv.Close()

	c := newClient(t)
	res, err := c.Fetch(context.Background(), srv.URL, fetch.ParseAction("json"), fetch.DefaultRequestOptions())
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"a": float64(1)}, res.Payload.Data)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1, res.Attempts)
}

func TestFetch_OptionsActionReplacesOptions(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, body)
	}))
	defer srv.Close()

	c := newClient(t)
	kind := fetch.SinkText
	// DryRun in the third argument is discarded in favour of the action's options
	res, err := c.Fetch(context.Background(), srv.URL,
		fetch.Options(fetch.RequestOptions{Action: &kind, MaxRetries: 1}),
		fetch.RequestOptions{DryRun: true})
	require.NoError(t, err)

	assert.False(t, res.DryRun)
	assert.Equal(t, body, res.Payload.Text)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetch_StreamChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	}))
	defer srv.Close()

	c := newClient(t, fetch.WithHTTPClient(srv.Client()))
	res, err := c.Fetch(context.Background(), srv.URL, fetch.Sink(fetch.SinkStream), fetch.RequestOptions{})
	require.NoError(t, err)
	defer res.Payload.Stream.Close()

	var sb strings.Builder
	for chunk, err := range fetch.Chunks(res.Payload.Stream) {
		require.NoError(t, err)
		sb.Write(chunk)
	}
	assert.Equal(t, body, sb.String())
}

func TestFetch_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := newClient(t)
	_, err := c.Fetch(context.Background(), srv.URL, fetch.Sink(fetch.SinkBytes), fetch.DefaultRequestOptions())
	require.Error(t, err)

	assert.True(t, errors.Is(err, fetch.ErrHTTPStatus))
	var te *fetch.TransferError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Equal(t, 1, te.Attempt)
}

// cutOnce aborts the first response after cut bytes, then serves ranges
func cutOnce(t *testing.T, cut int) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var ranges []string
	var served atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ranges = append(ranges, r.Header.Get("Range"))
		mu.Unlock()

		w.Header().Set("ETag", `"rev-1"`)
		if served.Add(1) == 1 {
			w.Header().Set("Content-Length", fmt.Sprint(len(body)))
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, body[:cut])
			w.(http.Flusher).Flush()
			panic(http.ErrAbortHandler)
		}
		http.ServeContent(w, r, "", time.Time{}, strings.NewReader(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &ranges
}

func TestFetch_JournalResumesAcrossClients(t *testing.T) {
	srv, ranges := cutOnce(t, 12)
	dir := t.TempDir()
	journal := filepath.Join(dir, "state", "journal.db")
	dest := filepath.Join(dir, "out.bin")
	opts := fetch.RequestOptions{MaxRetries: 1, RangeResume: true}

	first := newClient(t, fetch.WithJournal(journal))
	_, err := first.Fetch(context.Background(), srv.URL, fetch.Path(dest), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetch.ErrNetwork))
	require.NoError(t, first.Close())

	second := newClient(t, fetch.WithJournal(journal))
	res, err := second.Fetch(context.Background(), srv.URL, fetch.Path(dest), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "bytes=12-"}, *ranges)
	assert.Equal(t, int64(12), res.ResumedFrom)
	assert.Equal(t, int64(len(body)), res.BytesWritten)
	assert.True(t, res.SizeMatch)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestNew_StoreAndJournalConflict(t *testing.T) {
	_, err := fetch.New(fetch.WithJournal("a.db"), fetch.WithStore(nopStore{}))
	assert.Error(t, err)
}

func TestNew_ThrottleDefaultsBurst(t *testing.T) {
	_, err := fetch.New(fetch.WithThrottle(5, 0))
	assert.NoError(t, err)
}

type nopStore struct{}

func (nopStore) Get(context.Context, string, string) (*domain.ResumeRecord, error) {
	return nil, domain.ErrNotFound
}
func (nopStore) Save(context.Context, *domain.ResumeRecord) error { return nil }
func (nopStore) Delete(context.Context, string, string) error     { return nil }
func (nopStore) ListOlderThan(context.Context, time.Duration) ([]*domain.ResumeRecord, error) {
	return nil, nil
}
func (nopStore) Close() error { return nil }
