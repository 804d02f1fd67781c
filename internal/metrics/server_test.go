package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer starts a server on a free port and waits until it answers.
func startServer(t *testing.T, gatherer prometheus.Gatherer) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()
	server := NewServer("localhost:0", gatherer)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx) }()

	require.Eventually(t, func() bool {
		if server.Addr() == "localhost:0" {
			return false
		}
		resp, err := http.Get("http://" + server.Addr() + "/metrics")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	return server, cancel, errCh
}

func TestServer_Addr(t *testing.T) {
	server := NewServer(":9100", prometheus.NewRegistry())
	assert.Equal(t, ":9100", server.Addr())
}

func TestServer_Handler(t *testing.T) {
	c := newCollector(prometheus.NewRegistry())
	c.ListenersChanged(7)
	h := NewServer(":0", c.Registry()).Handler()

	tests := []struct {
		path        string
		status      int
		contains    string
		contentType string
	}{
		{"/metrics", http.StatusOK, "sledge_listeners 7", ""},
		{"/", http.StatusOK, `<a href="/metrics">`, "text/html; charset=utf-8"},
		{"/nonexistent", http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			if tt.contains != "" {
				assert.Contains(t, rec.Body.String(), tt.contains)
			}
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	c := newCollector(prometheus.NewRegistry())
	c.EventPosted("ScheduledEvent", 1)

	server, cancel, errCh := startServer(t, c.Registry())
	addr := server.Addr()

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `sledge_events_posted_total{event="ScheduledEvent"} 1`)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down in time")
	}

	_, err = http.Get("http://" + addr + "/metrics")
	assert.Error(t, err)
}

func TestServer_ListenError(t *testing.T) {
	server := NewServer("256.0.0.1:bad", prometheus.NewRegistry())
	err := server.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics listen")
}
