// Package metrics defines the Prometheus instrumentation the server exposes
// at /metrics: request counts by outcome, bytes emitted, and a moov-parse
// latency histogram. The dispatch handler records request counts and bytes
// emitted; it does not observe the moov-parse histogram.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the server updates while handling
// requests. Register it with a prometheus.Registerer once at startup.
type Metrics struct {
	PlaylistRequests *prometheus.CounterVec
	SegmentRequests  *prometheus.CounterVec
	BytesEmitted     prometheus.Counter
	MoovParseSeconds prometheus.Histogram
}

// New constructs an unregistered Metrics.
func New() *Metrics {
	return &Metrics{
		PlaylistRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "m4hls",
			Name:      "playlist_requests_total",
			Help:      "Playlist requests by outcome.",
		}, []string{"outcome"}),
		SegmentRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "m4hls",
			Name:      "segment_requests_total",
			Help:      "Segment requests by outcome.",
		}, []string{"outcome"}),
		BytesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "m4hls",
			Name:      "bytes_emitted_total",
			Help:      "Total response bytes written to clients.",
		}),
		MoovParseSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "m4hls",
			Name:      "moov_parse_seconds",
			Help:      "Time spent parsing a source file's moov box.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// MustRegister registers every collector against reg, panicking on
// duplicate registration the way main() is expected to call it once.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.PlaylistRequests, m.SegmentRequests, m.BytesEmitted, m.MoovParseSeconds)
}

// Outcome labels used across both request counters.
const (
	OutcomeOK         = "ok"
	OutcomeBadRequest = "bad_request"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"
)
