package dispatch

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/snapetech/m4hls/config"
)

func TestSplitRequestPath(t *testing.T) {
	is := is.New(t)

	stem, ext, ok := splitRequestPath("/movies/foo.m3u8")
	is.True(ok)
	is.Equal(stem, "movies/foo")
	is.Equal(ext, ".m3u8")

	stem, ext, ok = splitRequestPath("/movies/foo.hls")
	is.True(ok)
	is.Equal(stem, "movies/foo")
	is.Equal(ext, ".hls")

	_, _, ok = splitRequestPath("/movies/foo.mp4")
	is.True(!ok)

	_, _, ok = splitRequestPath("/trailing/slash/.m3u8")
	is.True(!ok)

	_, _, ok = splitRequestPath("/")
	is.True(!ok)

	_, _, ok = splitRequestPath("noext")
	is.True(!ok)

	_, _, ok = splitRequestPath("/../../etc/passwd.m3u8")
	is.True(!ok)
}

func TestParseOptionsRejectsAbsoluteURL(t *testing.T) {
	is := is.New(t)
	q := url.Values{"video": {"http://evil.example/x"}}
	_, err := ParseOptions(q)
	is.True(err != nil)
}

func TestParseOptionsRejectsNonNumericVideo(t *testing.T) {
	is := is.New(t)
	q := url.Values{"video": {"not-a-number"}}
	_, err := ParseOptions(q)
	is.True(err != nil)
}

func TestParseOptionsAcceptsValidValues(t *testing.T) {
	is := is.New(t)
	q := url.Values{
		"video":  {"60"},
		"audio":  {"2"},
		"length": {"6"},
		"hash":   {"abc123"},
	}
	opts, err := ParseOptions(q)
	is.NoErr(err)
	is.True(opts.HasVideoSampleIndex)
	is.Equal(opts.VideoSampleIndex, uint64(60))
	is.True(opts.HasAudioTrackID)
	is.Equal(opts.AudioTrackID, uint32(2))
	is.Equal(opts.LengthSeconds, 6)
	is.Equal(opts.Hash, "abc123")
}

func TestParseOptionsRejectsNonPositiveLength(t *testing.T) {
	is := is.New(t)
	q := url.Values{"length": {"0"}}
	_, err := ParseOptions(q)
	is.True(err != nil)
}

func TestParseOptionsLeavesUnsetOptionsAbsent(t *testing.T) {
	is := is.New(t)
	opts, err := ParseOptions(url.Values{})
	is.NoErr(err)
	is.True(!opts.HasVideoSampleIndex)
	is.True(!opts.HasAudioTrackID)
}

func TestHandlerRejectsPostMethod(t *testing.T) {
	is := is.New(t)
	h := NewHandler(config.Config{}, zerolog.Nop(), nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/movie.m3u8", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	is.Equal(rr.Code, 404)
}

func TestHandlerRejectsUnrecognizedExtension(t *testing.T) {
	is := is.New(t)
	h := NewHandler(config.Config{}, zerolog.Nop(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/movie.mp4", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	is.Equal(rr.Code, 404)
}

func TestHandlerRejectsSegmentRequestMissingVideoOption(t *testing.T) {
	is := is.New(t)
	h := NewHandler(config.Config{SourceRoot: t.TempDir()}, zerolog.Nop(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/movie.hls", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	is.Equal(rr.Code, 404)
}

func TestHandlerSetsVersionHeaderEvenOnFailure(t *testing.T) {
	is := is.New(t)
	h := NewHandler(config.Config{VersionString: "9.9"}, zerolog.Nop(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/movie.mp4", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	is.Equal(rr.Header().Get("X-Mod-HLS-Version"), "9.9")
}

func TestHandlerMissingSourceReturns404(t *testing.T) {
	is := is.New(t)
	h := NewHandler(config.Config{SourceRoot: t.TempDir()}, zerolog.Nop(), nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/missing.m3u8", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	is.Equal(rr.Code, 404)
}

func TestSegmentURIUsesStemAndForwardsRawQuery(t *testing.T) {
	is := is.New(t)
	is.Equal(segmentURI("movies/foo", 60, ""), "movies/foo.hls?video=60")
	is.Equal(segmentURI("movies/foo", 60, "hash=abc"), "movies/foo.hls?video=60&hash=abc")
}
