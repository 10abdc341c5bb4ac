package playlist

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestWriteProducesValidVODPlaylist(t *testing.T) {
	is := is.New(t)
	segs := []SegmentEntry{
		{Duration: 9.984, URI: "seg0.ts"},
		{Duration: 10.016, URI: "seg1.ts"},
	}
	out := string(Write(segs, Options{}))

	is.True(strings.HasPrefix(out, "#EXTM3U\n"))
	is.True(strings.Contains(out, "#EXT-X-VERSION:4\n"))
	is.True(strings.Contains(out, "#EXT-X-TARGETDURATION:11\n"))
	is.True(strings.Contains(out, "#EXT-X-MEDIA-SEQUENCE:0\n"))
	is.True(strings.Contains(out, "#EXTINF:9.984,\nseg0.ts\n"))
	is.True(strings.Contains(out, "#EXTINF:10.016,\nseg1.ts\n"))
	is.True(strings.HasSuffix(out, "#EXT-X-ENDLIST\n"))
}

func TestWriteHonorsExplicitOptions(t *testing.T) {
	is := is.New(t)
	out := string(Write(nil, Options{Version: 3, TargetDuration: 6}))
	is.True(strings.Contains(out, "#EXT-X-VERSION:3\n"))
	is.True(strings.Contains(out, "#EXT-X-TARGETDURATION:6\n"))
}

func TestComputeTargetDurationRoundsUp(t *testing.T) {
	is := is.New(t)
	is.Equal(ComputeTargetDuration([]SegmentEntry{{Duration: 9.1}, {Duration: 9.9}}), 10)
}

func TestComputeTargetDurationFloorsAtOne(t *testing.T) {
	is := is.New(t)
	is.Equal(ComputeTargetDuration(nil), 1)
	is.Equal(ComputeTargetDuration([]SegmentEntry{{Duration: 0}}), 1)
}

func TestLegacyTargetDuration(t *testing.T) {
	is := is.New(t)
	is.Equal(LegacyTargetDuration(0), 4)
	is.Equal(LegacyTargetDuration(8), 11)
}
