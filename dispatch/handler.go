// Package dispatch routes HTTP requests for a source MP4's HLS playlist and
// segments, parsing the source on demand and handing off to the moov,
// sample, segment, playlist, and ts packages to build each response.
package dispatch

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/snapetech/m4hls/config"
	"github.com/snapetech/m4hls/errs"
	"github.com/snapetech/m4hls/metrics"
	"github.com/snapetech/m4hls/moov"
	"github.com/snapetech/m4hls/playlist"
	"github.com/snapetech/m4hls/sample"
	"github.com/snapetech/m4hls/segment"
	"github.com/snapetech/m4hls/sink"
	"github.com/snapetech/m4hls/telemetry"
	"github.com/snapetech/m4hls/ts"
)

// sourceExtension is appended to a request's stem to locate the backing
// ISO BMFF file under the configured source root.
const sourceExtension = ".mp4"

// Handler serves playlist and segment requests for files under Config's
// source root. Every request reparses the source from disk; there is no
// cross-request moov cache, matching the pipeline's stateless,
// one-file-at-a-time scope.
type Handler struct {
	Config    config.Config
	Log       zerolog.Logger
	Telemetry *telemetry.Client
	Metrics   *metrics.Metrics
}

// NewHandler builds a Handler.
func NewHandler(cfg config.Config, log zerolog.Logger, tel *telemetry.Client, met *metrics.Metrics) *Handler {
	return &Handler{Config: cfg, Log: log, Telemetry: tel, Metrics: met}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Mod-HLS-Version", h.Config.VersionString)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.fail(w, nil, errs.At(errs.BadRequest, "method", 0, nil))
		return
	}

	stem, ext, ok := splitRequestPath(r.URL.Path)
	if !ok {
		h.fail(w, nil, errs.At(errs.BadRequest, "path", 0, nil))
		return
	}

	opts, err := ParseOptions(r.URL.Query())
	if err != nil {
		h.fail(w, nil, err)
		return
	}

	fullPath := filepath.Join(h.Config.SourceRoot, filepath.FromSlash(stem)+sourceExtension)

	switch ext {
	case ".m3u8":
		h.servePlaylist(w, r, fullPath, stem, opts)
	case ".hls":
		if !opts.HasVideoSampleIndex {
			h.fail(w, nil, errs.At(errs.BadRequest, "video", 0, nil))
			return
		}
		h.serveSegment(w, r, fullPath, opts.VideoSampleIndex, opts)
	default:
		h.fail(w, nil, errs.At(errs.BadRequest, "path", 0, nil))
	}
}

func (h *Handler) servePlaylist(w http.ResponseWriter, r *http.Request, fullPath, stem string, opts Options) {
	counter := h.counterFor(h.Metrics, true)

	movie, f, err := openSource(fullPath, h.Log)
	if err != nil {
		h.fail(w, counter, err)
		return
	}
	defer f.Close()

	sel, video, _, err := h.buildSelector(movie, opts)
	if err != nil {
		h.fail(w, counter, err)
		return
	}

	count := sel.SegmentCount()
	entries := make([]playlist.SegmentEntry, count)
	for i := 0; i < count; i++ {
		s, err := sel.BySegmentOrdinal(i)
		if err != nil {
			h.fail(w, counter, err)
			return
		}
		entries[i] = playlist.SegmentEntry{
			Duration: s.Duration(video.TimeScale),
			URI:      segmentURI(stem, s.Video.First, r.URL.RawQuery),
		}
	}

	body := playlist.Write(entries, playlist.Options{})

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Header().Set("Accept-Ranges", "none")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(body)))
	if r.Method == http.MethodGet {
		w.Write(body)
	}

	h.succeed(counter)
	h.Telemetry.EmitPlaylistRequest(count)
}

func (h *Handler) serveSegment(w http.ResponseWriter, r *http.Request, fullPath string, videoSampleIndex uint64, opts Options) {
	counter := h.counterFor(h.Metrics, false)

	movie, f, err := openSource(fullPath, h.Log)
	if err != nil {
		h.fail(w, counter, err)
		return
	}
	defer f.Close()

	sel, video, audio, err := h.buildSelector(movie, opts)
	if err != nil {
		h.fail(w, counter, err)
		return
	}

	ordinal, err := sampleIndexToOrdinal(sel, videoSampleIndex)
	if err != nil {
		h.fail(w, counter, err)
		return
	}
	selection, err := sel.BySegmentOrdinal(ordinal)
	if err != nil {
		h.fail(w, counter, err)
		return
	}

	bucket := sink.New()
	mux := ts.NewMuxer(h.Log)
	if err := mux.WriteSegment(bucket, video, audio, selection, f); err != nil {
		h.fail(w, counter, err)
		return
	}
	bucket.Finish()

	w.Header().Set("Content-Type", "video/MP2T")
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", bucket.Len()))
	if r.Method == http.MethodGet {
		bucket.WriteTo(w)
	}
	if h.Metrics != nil {
		h.Metrics.BytesEmitted.Add(float64(bucket.Len()))
	}

	h.succeed(counter)
	h.Telemetry.EmitSegmentView()
}

// sampleIndexToOrdinal maps a video= sample index to its segment ordinal:
// the boundary whose first sample index equals n, per spec §4.9's
// "segment selector addressed by sample" semantics.
func sampleIndexToOrdinal(sel segment.Selector, n uint64) (int, error) {
	for i, b := range sel.Video.BoundaryIndices() {
		if uint64(b) == n {
			return i, nil
		}
	}
	return 0, errs.At(errs.SegmentNotFound, "video", int64(n), nil)
}

// buildSelector parses the movie's video and (optional) audio tracks into
// sample.Track and returns a ready segment.Selector. When opts names an
// audio track id, only that track is considered; a source with no
// matching audio track is served video-only rather than rejected.
func (h *Handler) buildSelector(movie *moov.Movie, opts Options) (segment.Selector, *sample.Track, *sample.Track, error) {
	videoTrak := movie.FirstOfKind(moov.KindVideo)
	if videoTrak == nil {
		return segment.Selector{}, nil, nil, errs.At(errs.NoMovieOrMedia, "video track", 0, nil)
	}

	target := h.Config.TargetSeconds
	if opts.LengthSeconds > 0 {
		target = opts.LengthSeconds
	}

	builder := sample.NewBuilder(h.Log)
	video, err := builder.Build(videoTrak, target)
	if err != nil {
		return segment.Selector{}, nil, nil, err
	}

	audioTrak := h.selectAudioTrack(movie, opts)
	var audio *sample.Track
	if audioTrak != nil {
		audio, err = builder.Build(audioTrak, 0)
		if err != nil {
			return segment.Selector{}, nil, nil, err
		}
	}

	return segment.Selector{Video: video, Audio: audio}, video, audio, nil
}

// selectAudioTrack resolves the audio track a request should use: the
// track named by opts.AudioTrackID when present, else the source's first
// audio track.
func (h *Handler) selectAudioTrack(movie *moov.Movie, opts Options) *moov.Track {
	if !opts.HasAudioTrackID {
		return movie.FirstOfKind(moov.KindAudio)
	}
	t := movie.TrackByID(opts.AudioTrackID)
	if t == nil || t.Kind != moov.KindAudio {
		return nil
	}
	return t
}

// segmentURI builds the relative URI for the segment beginning at
// videoSampleIndex, per spec §4.6: "name.hls?video=<first_sample_index>&
// <opaque_args>", where opaque_args is the verbatim, already-validated
// request query string.
func segmentURI(stem string, videoSampleIndex int, rawQuery string) string {
	uri := fmt.Sprintf("%s.hls?video=%d", stem, videoSampleIndex)
	if rawQuery != "" {
		uri += "&" + rawQuery
	}
	return uri
}

// counterFor picks the playlist or segment request counter, or nil when
// metrics are disabled.
func (h *Handler) counterFor(m *metrics.Metrics, playlistRequest bool) *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	if playlistRequest {
		return m.PlaylistRequests
	}
	return m.SegmentRequests
}

func (h *Handler) fail(w http.ResponseWriter, counter *prometheus.CounterVec, err error) {
	status := errs.StatusCode(err)
	outcome := metrics.OutcomeError
	if status == 404 {
		outcome = metrics.OutcomeNotFound
	}
	var asErr *errs.Error
	if errs.As(err, &asErr) && asErr.Kind == errs.BadRequest {
		outcome = metrics.OutcomeBadRequest
	}
	if counter != nil {
		counter.WithLabelValues(outcome).Inc()
	}
	h.Log.Warn().Err(err).Int("status", status).Msg("request failed")
	http.Error(w, err.Error(), status)
}

func (h *Handler) succeed(counter *prometheus.CounterVec) {
	if counter != nil {
		counter.WithLabelValues(metrics.OutcomeOK).Inc()
	}
}
