package segment

import (
	"testing"

	"github.com/matryer/is"

	"github.com/snapetech/m4hls/sample"
)

func videoTrack(boundaries ...int) *sample.Track {
	samples := make([]sample.Sample, 10)
	for i := range samples {
		samples[i] = sample.Sample{DTS: uint64(i * 1000), IsSync: true}
	}
	set := make(map[int]bool, len(boundaries))
	for _, b := range boundaries {
		set[b] = true
	}
	for i := range samples {
		samples[i].IsSegmentBoundary = set[i]
	}
	return &sample.Track{TimeScale: 1000, Samples: samples}
}

func audioTrack(dts ...uint64) *sample.Track {
	samples := make([]sample.Sample, len(dts))
	for i, d := range dts {
		samples[i] = sample.Sample{DTS: d, IsSync: true}
	}
	return &sample.Track{TimeScale: 1000, Samples: samples}
}

func TestSegmentCountMatchesBoundaries(t *testing.T) {
	is := is.New(t)
	sel := Selector{Video: videoTrack(0, 3, 6)}
	is.Equal(sel.SegmentCount(), 3)
}

func TestBySegmentOrdinalMiddleSegment(t *testing.T) {
	is := is.New(t)
	sel := Selector{Video: videoTrack(0, 3, 6)}

	s, err := sel.BySegmentOrdinal(1)
	is.NoErr(err)
	is.Equal(s.Video, Range{First: 3, Last: 6})
	is.Equal(s.StartDTS, uint64(3000))
	is.Equal(s.EndDTS, uint64(6000))
}

func TestBySegmentOrdinalLastSegmentExtrapolates(t *testing.T) {
	is := is.New(t)
	sel := Selector{Video: videoTrack(0, 3, 6)}

	s, err := sel.BySegmentOrdinal(2)
	is.NoErr(err)
	is.Equal(s.Video, Range{First: 6, Last: 10})
	is.Equal(s.StartDTS, uint64(6000))
	// Last two samples are at DTS 8000, 9000: gap 1000, extrapolated end 10000.
	is.Equal(s.EndDTS, uint64(10000))
}

func TestBySegmentOrdinalOutOfRange(t *testing.T) {
	is := is.New(t)
	sel := Selector{Video: videoTrack(0, 3, 6)}

	_, err := sel.BySegmentOrdinal(-1)
	is.True(err != nil)
	_, err = sel.BySegmentOrdinal(3)
	is.True(err != nil)
}

func TestDurationUsesTimescale(t *testing.T) {
	is := is.New(t)
	s := Selection{StartDTS: 1000, EndDTS: 4000}
	is.Equal(s.Duration(1000), 3.0)
	is.Equal(s.Duration(0), 0.0)
}

func TestByMediaTimeFindsContainingSegment(t *testing.T) {
	is := is.New(t)
	sel := Selector{Video: videoTrack(0, 3, 6)}

	s, err := sel.ByMediaTime(4.0)
	is.NoErr(err)
	is.Equal(s.Ordinal, 1)

	s, err = sel.ByMediaTime(0.0)
	is.NoErr(err)
	is.Equal(s.Ordinal, 0)
}

func TestByMediaTimeZeroTimescaleErrors(t *testing.T) {
	is := is.New(t)
	sel := Selector{Video: &sample.Track{TimeScale: 0}}
	_, err := sel.ByMediaTime(1.0)
	is.True(err != nil)
}

func TestAudioRangeOverlapsVideoSegmentBoundary(t *testing.T) {
	is := is.New(t)
	sel := Selector{
		Video: videoTrack(0, 3, 6),
		Audio: audioTrack(500, 1500, 2500, 3500, 4500, 5500, 6500, 7500),
	}

	s, err := sel.BySegmentOrdinal(1) // [3000, 6000)
	is.NoErr(err)
	// First audio sample with DTS >= 3000 is index 3 (3500); back up one to
	// pick up the sample that started before the boundary (index 2, 2500).
	is.Equal(s.Audio.First, 2)
	// First audio sample with DTS >= 6000 is index 6 (6500); exclusive end.
	is.Equal(s.Audio.Last, 6)
}

func TestAudioRangeOnLastSegmentRunsToEnd(t *testing.T) {
	is := is.New(t)
	sel := Selector{
		Video: videoTrack(0, 3, 6),
		Audio: audioTrack(500, 1500, 2500, 3500, 6500, 9500),
	}

	s, err := sel.BySegmentOrdinal(2) // [6000, extrapolated)
	is.NoErr(err)
	is.Equal(s.Audio.Last, 6)
}

func TestAudioRangeConvertsCrossTrackTimescale(t *testing.T) {
	is := is.New(t)
	// Video at 1000Hz (boundary at DTS 3000 = 3.0s); audio at 500Hz, so the
	// equivalent audio-timescale boundary is DTS 1500, not 3000.
	audio := &sample.Track{
		TimeScale: 500,
		Samples: []sample.Sample{
			{DTS: 250, IsSync: true},  // 0.5s
			{DTS: 750, IsSync: true},  // 1.5s
			{DTS: 1250, IsSync: true}, // 2.5s
			{DTS: 1750, IsSync: true}, // 3.5s
			{DTS: 2750, IsSync: true}, // 5.5s
			{DTS: 3250, IsSync: true}, // 6.5s (past segment 1's end at 6.0s)
		},
	}
	sel := Selector{Video: videoTrack(0, 3, 6), Audio: audio}

	s, err := sel.BySegmentOrdinal(1) // video [3000, 6000) -> audio [1500, 3000)
	is.NoErr(err)
	// First audio sample with DTS >= 1500 is index 3 (1750); back up one to
	// pick up the sample that started before the boundary.
	is.Equal(s.Audio.First, 2)
	// Last audio sample with DTS >= 3000 is index 5 (3250); exclusive end.
	is.Equal(s.Audio.Last, 5)
}

func TestConvertTimescaleIdentityWhenEqual(t *testing.T) {
	is := is.New(t)
	is.Equal(convertTimescale(12345, 1000, 1000), uint64(12345))
	is.Equal(convertTimescale(3000, 1000, 500), uint64(1500))
	is.Equal(convertTimescale(100, 0, 500), uint64(100))
}

func TestAudioRangeEmptyWhenNoAudioSamples(t *testing.T) {
	is := is.New(t)
	sel := Selector{
		Video: videoTrack(0, 3, 6),
		Audio: &sample.Track{TimeScale: 1000},
	}

	s, err := sel.BySegmentOrdinal(0)
	is.NoErr(err)
	is.Equal(s.Audio, Range{})
}
