package dispatch

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/snapetech/m4hls/errs"
)

// Options are the recognized query parameters a request may carry, per
// spec §4.9 (exhaustive): video, audio, length, hash. Unknown options are
// ignored.
type Options struct {
	// VideoSampleIndex is the first sample index to emit, addressing the
	// segment selector by sample. Only meaningful when HasVideoSampleIndex
	// is set; required on a .hls (segment) request, unused on .m3u8.
	VideoSampleIndex    uint64
	HasVideoSampleIndex bool

	// AudioTrackID restricts output to the named audio track id. Only
	// meaningful when HasAudioTrackID is set; a source with no matching
	// audio track is served video-only rather than rejected.
	AudioTrackID    uint32
	HasAudioTrackID bool

	// LengthSeconds overrides the server's configured segment target
	// duration for this request. Zero means "use the default".
	LengthSeconds int

	// Hash is an opaque client-supplied tracking token, kept verbatim. The
	// handler does not pass it to telemetry; it reaches generated segment
	// URIs only as part of the forwarded raw query string.
	Hash string
}

// ParseOptions validates and extracts video/audio/length/hash from a
// request's query values. Absolute-URL-shaped values and anything failing
// numeric parse are rejected as BadRequest, matching spec §4.9.
func ParseOptions(q url.Values) (Options, error) {
	var o Options

	if v := q.Get("video"); v != "" {
		if err := rejectAbsoluteURL(v); err != nil {
			return Options{}, errs.At(errs.BadRequest, "video", 0, err)
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Options{}, errs.At(errs.BadRequest, "video", 0, err)
		}
		o.VideoSampleIndex = n
		o.HasVideoSampleIndex = true
	}
	if v := q.Get("audio"); v != "" {
		if err := rejectAbsoluteURL(v); err != nil {
			return Options{}, errs.At(errs.BadRequest, "audio", 0, err)
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return Options{}, errs.At(errs.BadRequest, "audio", 0, err)
		}
		o.AudioTrackID = uint32(n)
		o.HasAudioTrackID = true
	}
	if v := q.Get("length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Options{}, errs.At(errs.BadRequest, "length", 0, nil)
		}
		o.LengthSeconds = n
	}
	o.Hash = q.Get("hash")

	return o, nil
}

// rejectAbsoluteURL rejects a query value shaped like an absolute URL or a
// host reference, matching the dispatcher's refusal to proxy arbitrary
// hosts via a query parameter.
func rejectAbsoluteURL(v string) error {
	u, err := url.Parse(v)
	if err != nil || u.IsAbs() || u.Host != "" {
		return errs.New(errs.BadRequest, nil)
	}
	return nil
}

// recognizedExtensions maps a request path's trailing extension to the
// action it names: playlist or segment.
var recognizedExtensions = []string{".m3u8", ".hls"}

// splitRequestPath separates a request path into the source's stem (the
// path with its recognized extension removed, used to resolve the backing
// file) and that extension. Requests with any other extension, or no
// extension at all, are rejected.
func splitRequestPath(p string) (stem, ext string, ok bool) {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", "", false
	}
	for _, e := range recognizedExtensions {
		if strings.HasSuffix(p, e) {
			stem = strings.TrimSuffix(p, e)
			if stem == "" || strings.HasSuffix(stem, "/") || strings.Contains(stem, "..") {
				return "", "", false
			}
			return stem, e, true
		}
	}
	return "", "", false
}
