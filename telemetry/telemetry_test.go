package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestEmitPlaylistRequestSendsTag(t *testing.T) {
	is := is.New(t)

	var mu sync.Mutex
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotQuery = r.URL.RawQuery
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	c := NewClient(zerolog.Nop(), host, 0, time.Second)
	c.EmitPlaylistRequest(4)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		q := gotQuery
		mu.Unlock()
		if q != "" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	is.True(strings.Contains(gotQuery, "ios_playlist"))
	is.True(strings.Contains(gotQuery, "segments%3D4") || strings.Contains(gotQuery, "segments=4"))
}

func TestEmitIsNoOpWithoutHost(t *testing.T) {
	c := NewClient(zerolog.Nop(), "", 0, time.Second)
	c.EmitSegmentView() // must not panic or block
}

func TestNilClientEmitIsSafe(t *testing.T) {
	var c *Client
	c.EmitSegmentView()
}
