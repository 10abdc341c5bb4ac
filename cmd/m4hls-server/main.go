// Command m4hls-server serves HLS playlists and segments remuxed on the fly
// from MP4 files under a configured source root.
package main

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/snapetech/m4hls/config"
	"github.com/snapetech/m4hls/dispatch"
	"github.com/snapetech/m4hls/metrics"
	"github.com/snapetech/m4hls/telemetry"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	reg := prometheus.NewRegistry()
	met := metrics.New()
	met.MustRegister(reg)

	tel := telemetry.NewClient(log, cfg.TelemetryHost, cfg.TelemetryRate, cfg.TelemetryTimeout)

	handler := dispatch.NewHandler(cfg, log, tel, met)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", handler)

	log.Info().Str("addr", cfg.ListenAddr).Str("source_root", cfg.SourceRoot).Msg("starting m4hls-server")
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
