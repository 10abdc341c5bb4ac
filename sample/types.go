// Package sample builds the per-sample index (decode time, composition
// offset, size, file offset, sync flag, segment-boundary flag) that the
// segment selector and TS packetiser read from.
package sample

import "github.com/snapetech/m4hls/moov"

// Sample is one row of the per-track sample table.
type Sample struct {
	DTS               uint64 // decode timestamp, in the track's media timescale
	CTSOffset         int64  // composition time offset added to DTS for presentation time
	Size              uint32
	FileOffset        uint64
	IsSync            bool
	IsSegmentBoundary bool // only ever set on video tracks
}

// PTS returns the sample's presentation timestamp.
func (s Sample) PTS() uint64 {
	v := int64(s.DTS) + s.CTSOffset
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// Track is a moov.Track plus its built sample index.
type Track struct {
	ID        uint32
	Kind      moov.Kind
	TimeScale uint32
	Samples   []Sample

	// SampleDescription is the description every sample in Samples uses.
	// This module does not support a track switching descriptions
	// mid-stream, matching the single-variant scope of the pipeline.
	SampleDescription moov.SampleDescription
}

// BoundaryIndices returns the indices into Samples marked as segment
// boundaries, in ascending order. Always includes index 0 for a non-empty
// video track built by Builder; empty for other tracks.
func (t *Track) BoundaryIndices() []int {
	var out []int
	for i, s := range t.Samples {
		if s.IsSegmentBoundary {
			out = append(out, i)
		}
	}
	return out
}
