// Package playlist builds the HLS media playlist (.m3u8) for a parsed
// source: one #EXTINF/URI pair per segment, bracketed by the VOD tag set
// since this module serves a fixed, already-complete file.
package playlist

import (
	"bytes"
	"fmt"
	"math"
)

// SegmentEntry is one segment's duration and request URI.
type SegmentEntry struct {
	Duration float64 // seconds
	URI      string
}

// Options configures playlist generation. The zero value picks version 4
// and an auto-computed target duration.
type Options struct {
	Version        int // 0 defaults to 4
	TargetDuration int // 0 computes ceil(max segment duration)
}

// Write renders a complete VOD media playlist.
func Write(segments []SegmentEntry, opts Options) []byte {
	version := opts.Version
	if version == 0 {
		version = 4
	}
	target := opts.TargetDuration
	if target == 0 {
		target = ComputeTargetDuration(segments)
	}

	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")
	fmt.Fprintf(&buf, "#EXT-X-VERSION:%d\n", version)
	fmt.Fprintf(&buf, "#EXT-X-TARGETDURATION:%d\n", target)
	buf.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	for _, seg := range segments {
		fmt.Fprintf(&buf, "#EXTINF:%.3f,\n%s\n", seg.Duration, seg.URI)
	}
	buf.WriteString("#EXT-X-ENDLIST\n")
	return buf.Bytes()
}

// ComputeTargetDuration returns ceil(max segment duration), at least 1.
// This is the spec-correct resolution of the original implementation's
// ambiguous seconds+3-or-4 heuristic (see LegacyTargetDuration).
func ComputeTargetDuration(segments []SegmentEntry) int {
	var max float64
	for _, s := range segments {
		if s.Duration > max {
			max = s.Duration
		}
	}
	d := int(math.Ceil(max))
	if d < 1 {
		d = 1
	}
	return d
}

// LegacyTargetDuration reproduces output_m3u8.c's
// `options->seconds ? options->seconds + 3 : 4` heuristic, for a host that
// has already shipped HLS clients tuned to that exact number.
func LegacyTargetDuration(requestedSeconds int) int {
	if requestedSeconds != 0 {
		return requestedSeconds + 3
	}
	return 4
}
