// Package telemetry sends best-effort, fire-and-forget usage pings to an
// external collector: one per playlist request (tagged with the segment
// count it served) and one per segment request. A failed or rate-limited
// send never affects the response the client is waiting on.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client emits events to a telemetry collector over HTTP. The zero value is
// disabled: Emit* calls become no-ops.
type Client struct {
	Log zerolog.Logger

	host       string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient returns a Client posting to host. An empty host disables
// telemetry entirely. ratePerSecond caps outgoing events per second; zero
// means unlimited.
func NewClient(log zerolog.Logger, host string, ratePerSecond float64, timeout time.Duration) *Client {
	c := &Client{
		Log:  log,
		host: host,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	if ratePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return c
}

// EmitPlaylistRequest reports that a playlist was served for a source that
// resolved to segmentCount segments.
func (c *Client) EmitPlaylistRequest(segmentCount int) {
	c.emit(fmt.Sprintf("ios_playlist&segments=%d", segmentCount))
}

// EmitSegmentView reports that a segment was served.
func (c *Client) EmitSegmentView() {
	c.emit("ios_view")
}

func (c *Client) emit(tag string) {
	if c == nil || c.host == "" {
		return
	}
	if c.limiter != nil && !c.limiter.Allow() {
		c.Log.Debug().Str("tag", tag).Msg("telemetry event dropped by rate limiter")
		return
	}

	go func() {
		timeout := c.httpClient.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		target := fmt.Sprintf("http://%s/?event=%s", c.host, url.QueryEscape(tag))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.Log.Debug().Err(err).Str("tag", tag).Msg("telemetry emit failed")
			return
		}
		resp.Body.Close()
	}()
}
