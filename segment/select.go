// Package segment selects the per-track sample ranges that make up one
// HLS segment, driven by the video track's precomputed segment boundaries.
package segment

import (
	"sort"

	"github.com/snapetech/m4hls/errs"
	"github.com/snapetech/m4hls/sample"
)

// Range is a half-open sample index range [First, Last) into a
// sample.Track's Samples slice.
type Range struct {
	First, Last int
}

// Empty reports whether the range contains no samples.
func (r Range) Empty() bool { return r.Last <= r.First }

// Selection is one segment's sample ranges across tracks, plus the video
// decode-time span used to compute its playlist duration.
type Selection struct {
	Ordinal  int
	Video    Range
	Audio    Range // zero value when there is no audio track
	StartDTS uint64
	EndDTS   uint64 // exclusive upper bound; equal to StartDTS of the next segment
}

// Duration returns the segment's duration in seconds, using the video
// track's timescale.
func (s Selection) Duration(videoTimescale uint32) float64 {
	if videoTimescale == 0 {
		return 0
	}
	return float64(s.EndDTS-s.StartDTS) / float64(videoTimescale)
}

// Selector picks sample ranges out of a parsed video track and an optional
// audio track. Audio is nil for video-only sources.
type Selector struct {
	Video *sample.Track
	Audio *sample.Track
}

// SegmentCount returns the number of segments the video track's boundaries
// define.
func (s Selector) SegmentCount() int {
	return len(s.Video.BoundaryIndices())
}

// BySegmentOrdinal returns the sample ranges for the ordinal-th segment
// (0-based). Returns SegmentNotFound if ordinal is out of range.
func (s Selector) BySegmentOrdinal(ordinal int) (Selection, error) {
	bounds := s.Video.BoundaryIndices()
	if ordinal < 0 || ordinal >= len(bounds) {
		return Selection{}, errs.At(errs.SegmentNotFound, "", int64(ordinal), nil)
	}

	first := bounds[ordinal]
	isLast := ordinal+1 >= len(bounds)
	var last int
	if isLast {
		last = len(s.Video.Samples)
	} else {
		last = bounds[ordinal+1]
	}

	videoSamples := s.Video.Samples
	startDTS := videoSamples[first].DTS
	endDTS := s.videoEndDTS(videoSamples, last)

	sel := Selection{
		Ordinal:  ordinal,
		Video:    Range{First: first, Last: last},
		StartDTS: startDTS,
		EndDTS:   endDTS,
	}
	if s.Audio != nil {
		audioStart := convertTimescale(startDTS, s.Video.TimeScale, s.Audio.TimeScale)
		audioEnd := convertTimescale(endDTS, s.Video.TimeScale, s.Audio.TimeScale)
		sel.Audio = s.overlapAudioRange(audioStart, audioEnd, isLast)
	}
	return sel, nil
}

// ByMediaTime returns the segment containing the given media time in
// seconds, measured against the video track's timescale.
func (s Selector) ByMediaTime(seconds float64) (Selection, error) {
	if s.Video.TimeScale == 0 {
		return Selection{}, errs.At(errs.SegmentNotFound, "", 0, nil)
	}
	targetTicks := uint64(seconds * float64(s.Video.TimeScale))
	bounds := s.Video.BoundaryIndices()
	videoSamples := s.Video.Samples

	idx := sort.Search(len(bounds), func(i int) bool {
		return videoSamples[bounds[i]].DTS > targetTicks
	}) - 1
	if idx < 0 {
		idx = 0
	}
	return s.BySegmentOrdinal(idx)
}

// videoEndDTS returns the DTS one past the segment's last sample: the next
// boundary's DTS, or, for the final segment, an extrapolation from the last
// inter-sample gap (falling back to StartDTS when there is only one sample).
func (s Selector) videoEndDTS(videoSamples []sample.Sample, last int) uint64 {
	if last < len(videoSamples) {
		return videoSamples[last].DTS
	}
	if last < 2 {
		if last == 1 {
			return videoSamples[0].DTS
		}
		return 0
	}
	gap := videoSamples[last-1].DTS - videoSamples[last-2].DTS
	return videoSamples[last-1].DTS + gap
}

// convertTimescale rescales a timestamp from one track's timescale to
// another's, per spec §4.5's "after timescale conversion" requirement for
// matching a non-video track's samples against the video segment bounds.
func convertTimescale(ticks uint64, from, to uint32) uint64 {
	if from == 0 || from == to {
		return ticks
	}
	return ticks * uint64(to) / uint64(from)
}

// overlapAudioRange includes every audio sample that overlaps
// [startDTS, endDTS), both already converted into the audio track's own
// timescale: the audio sample search uses DTS >= start as the lower bound,
// then walks one sample earlier to pick up a frame that began before the
// video boundary but still sounds during this segment. A sample whose DTS
// lands exactly on a boundary is assigned to the segment that starts
// there, never the one that ends there.
func (s Selector) overlapAudioRange(startDTS, endDTS uint64, isLast bool) Range {
	samples := s.Audio.Samples
	if len(samples) == 0 {
		return Range{}
	}

	first := sort.Search(len(samples), func(i int) bool {
		return samples[i].DTS >= startDTS
	})
	if first > 0 {
		first--
	}

	var last int
	if isLast {
		last = len(samples)
	} else {
		last = sort.Search(len(samples), func(i int) bool {
			return samples[i].DTS >= endDTS
		})
	}
	if last < first {
		last = first
	}
	return Range{First: first, Last: last}
}
