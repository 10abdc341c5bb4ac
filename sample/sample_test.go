package sample

import (
	"encoding/binary"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/snapetech/m4hls/moov"
)

func u32s(vs ...uint32) []byte {
	buf := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.BigEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// videoTableTrack builds a moov.Track with raw sample tables for a video
// track of n fixed-duration samples, one chunk per sample, alternating
// 100/50-byte sizes, and sync samples at 1-based indices given by syncIdx.
func videoTableTrack(n int, duration uint32, syncIdx []uint32) moov.Track {
	stts := append(u32s(1), u32s(uint32(n), duration)...)

	stsc := append(u32s(uint32(n)), []byte{}...)
	for i := 1; i <= n; i++ {
		stsc = append(stsc, u32s(uint32(i), 1, 1)...)
	}

	sizes := make([]uint32, n)
	for i := range sizes {
		if i%2 == 0 {
			sizes[i] = 100
		} else {
			sizes[i] = 50
		}
	}
	stsz := append(u32s(0, uint32(n)), u32s(sizes...)...)

	stco := make([]uint32, n)
	var off uint32 = 1000
	for i := range stco {
		stco[i] = off
		off += sizes[i]
	}
	stcoData := append(u32s(uint32(n)), u32s(stco...)...)

	var stssData []byte
	if syncIdx != nil {
		stssData = append(u32s(uint32(len(syncIdx))), u32s(syncIdx...)...)
	}

	return moov.Track{
		ID:        1,
		Kind:      moov.KindVideo,
		TimeScale: 30000,
		SampleDescriptions: []moov.SampleDescription{
			{Kind: moov.KindVideo, Codec: "avc1.64001f", Width: 1280, Height: 720},
		},
		Tables: moov.SampleTables{
			SttsData: stts,
			StscData: stsc,
			StszData: stsz,
			StcoData: stcoData,
			StssData: stssData,
		},
	}
}

func TestBuildProducesDTSSizeAndOffset(t *testing.T) {
	is := is.New(t)
	tr := videoTableTrack(5, 1000, nil)

	built, err := NewBuilder(zerolog.Nop()).Build(&tr, 0)
	is.NoErr(err)
	is.Equal(len(built.Samples), 5)

	wantDTS := []uint64{0, 1000, 2000, 3000, 4000}
	wantSize := []uint32{100, 50, 100, 50, 100}
	wantOffset := []uint64{1000, 1100, 1150, 1250, 1300}
	for i, s := range built.Samples {
		is.Equal(s.DTS, wantDTS[i])
		is.Equal(s.Size, wantSize[i])
		is.Equal(s.FileOffset, wantOffset[i])
		is.Equal(s.PTS(), wantDTS[i])
	}
}

func TestBuildDefaultsEverySampleSyncWithoutStss(t *testing.T) {
	is := is.New(t)
	tr := videoTableTrack(3, 1000, nil)

	built, err := NewBuilder(zerolog.Nop()).Build(&tr, 0)
	is.NoErr(err)
	for _, s := range built.Samples {
		is.True(s.IsSync)
	}
}

func TestBuildHonorsStssSyncFlags(t *testing.T) {
	is := is.New(t)
	tr := videoTableTrack(5, 1000, []uint32{1, 4})

	built, err := NewBuilder(zerolog.Nop()).Build(&tr, 0)
	is.NoErr(err)
	is.True(built.Samples[0].IsSync)
	is.True(!built.Samples[1].IsSync)
	is.True(!built.Samples[2].IsSync)
	is.True(built.Samples[3].IsSync)
	is.True(!built.Samples[4].IsSync)
}

func TestBuildMarksSegmentBoundariesAtSyncSamplesPastTarget(t *testing.T) {
	is := is.New(t)
	// 10 samples, 30000 timescale, 1000-tick (1/30s) duration each: one
	// second of media spans 30 samples, so with a 1-sample-per-second
	// synthetic duration of 3000 ticks/sample, a 1-second target boundary
	// falls every sample after the first.
	tr := videoTableTrack(5, 30000, []uint32{1, 2, 3, 4, 5})

	built, err := NewBuilder(zerolog.Nop()).Build(&tr, 1)
	is.NoErr(err)

	bounds := built.BoundaryIndices()
	is.Equal(bounds[0], 0)
	is.True(len(bounds) >= 2)
}

func TestBuildSkipsBoundaryAtNonSyncSample(t *testing.T) {
	is := is.New(t)
	// Only sample 1 and 5 are sync; a 1-second target would want a boundary
	// at sample index 1 (DTS=30000) but it isn't sync, so the boundary must
	// wait for the next sync sample.
	tr := videoTableTrack(5, 30000, []uint32{1, 5})

	built, err := NewBuilder(zerolog.Nop()).Build(&tr, 1)
	is.NoErr(err)

	is.True(built.Samples[0].IsSegmentBoundary)
	is.True(!built.Samples[1].IsSegmentBoundary)
	is.True(!built.Samples[2].IsSegmentBoundary)
	is.True(!built.Samples[3].IsSegmentBoundary)
	is.True(built.Samples[4].IsSegmentBoundary)
}

func TestBuildRejectsTrackWithNoSampleDescription(t *testing.T) {
	is := is.New(t)
	tr := videoTableTrack(1, 1000, nil)
	tr.SampleDescriptions = nil

	_, err := NewBuilder(zerolog.Nop()).Build(&tr, 0)
	is.True(err != nil)
}

func TestBoundaryIndicesAlwaysIncludesZero(t *testing.T) {
	is := is.New(t)
	tr := videoTableTrack(1, 1000, nil)

	built, err := NewBuilder(zerolog.Nop()).Build(&tr, 0)
	is.NoErr(err)
	is.Equal(built.BoundaryIndices(), []int{0})
}
