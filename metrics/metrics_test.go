package metrics

import (
	"testing"

	"github.com/matryer/is"
	"github.com/prometheus/client_golang/prometheus"
)

func TestNewProducesUsableCollectors(t *testing.T) {
	is := is.New(t)
	m := New()

	reg := prometheus.NewRegistry()
	m.MustRegister(reg)

	m.PlaylistRequests.WithLabelValues(OutcomeOK).Inc()
	m.SegmentRequests.WithLabelValues(OutcomeNotFound).Inc()
	m.BytesEmitted.Add(1024)
	m.MoovParseSeconds.Observe(0.05)

	families, err := reg.Gather()
	is.NoErr(err)
	is.True(len(families) > 0)

	var sawPlaylist, sawBytes bool
	for _, f := range families {
		switch f.GetName() {
		case "m4hls_playlist_requests_total":
			sawPlaylist = true
			is.Equal(len(f.GetMetric()), 1)
		case "m4hls_bytes_emitted_total":
			sawBytes = true
			is.Equal(f.GetMetric()[0].GetCounter().GetValue(), float64(1024))
		}
	}
	is.True(sawPlaylist)
	is.True(sawBytes)
}

func TestMustRegisterPanicsOnDuplicateRegistration(t *testing.T) {
	is := is.New(t)
	reg := prometheus.NewRegistry()
	m := New()
	m.MustRegister(reg)

	defer func() {
		is.True(recover() != nil)
	}()
	m.MustRegister(reg)
}
