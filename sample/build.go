package sample

import (
	"github.com/rs/zerolog"

	"github.com/snapetech/m4hls/bmff"
	"github.com/snapetech/m4hls/errs"
	"github.com/snapetech/m4hls/moov"
)

// Builder constructs a sample.Track from a moov.Track's raw sample tables.
// The zero value is ready to use; Log defaults to a no-op logger.
type Builder struct {
	Log zerolog.Logger
}

// NewBuilder builds a Builder that logs diagnostics through log.
func NewBuilder(log zerolog.Logger) Builder {
	return Builder{Log: log}
}

// Build walks a track's stsz/stsc/stco-or-co64/stts/ctts/stss tables in
// lockstep to produce the per-sample index, then, for video tracks, marks
// segment boundaries at the first sync sample at or after each multiple of
// targetSeconds past the previous boundary.
func (b Builder) Build(t *moov.Track, targetSeconds int) (*Track, error) {
	if len(t.SampleDescriptions) == 0 {
		return nil, errs.At(errs.UnsupportedCodec, "stsd", 0, nil)
	}

	sizes, err := readSizes(t.Tables)
	if err != nil {
		return nil, err
	}
	n := len(sizes)

	offsets, err := readFileOffsets(t.Tables, sizes)
	if err != nil {
		return nil, err
	}
	if len(offsets) != n {
		return nil, errs.At(errs.MalformedBox, "stsc", 0, nil)
	}

	dts := readDTS(t.Tables, n)
	ctsOffsets := readCTSOffsets(t.Tables, n)
	sync := readSync(t.Tables, n)

	samples := make([]Sample, n)
	for i := 0; i < n; i++ {
		samples[i] = Sample{
			DTS:        dts[i],
			CTSOffset:  ctsOffsets[i],
			Size:       sizes[i],
			FileOffset: offsets[i],
			IsSync:     sync[i],
		}
	}

	out := &Track{
		ID:                t.ID,
		Kind:              t.Kind,
		TimeScale:         t.TimeScale,
		Samples:           samples,
		SampleDescription: t.SampleDescriptions[0],
	}

	if t.Kind == moov.KindVideo {
		markSegmentBoundaries(out.Samples, t.TimeScale, targetSeconds)
	}

	return out, nil
}

func readSizes(tab moov.SampleTables) ([]uint32, error) {
	if tab.StszSampleSize != 0 {
		it := bmff.NewStszIter(tab.StszData)
		n := int(it.Count())
		sizes := make([]uint32, n)
		for i := range sizes {
			sizes[i] = tab.StszSampleSize
		}
		return sizes, nil
	}
	it := bmff.NewStszIter(tab.StszData)
	sizes := make([]uint32, 0, it.Count())
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		sizes = append(sizes, v)
	}
	if uint32(len(sizes)) != it.Count() {
		return nil, errs.At(errs.TruncatedBox, "stsz", 0, nil)
	}
	return sizes, nil
}

func readFileOffsets(tab moov.SampleTables, sizes []uint32) ([]uint64, error) {
	chunkOffsets, err := readChunkOffsets(tab)
	if err != nil {
		return nil, err
	}

	stscEntries, err := readStscEntries(tab)
	if err != nil {
		return nil, err
	}
	if len(stscEntries) == 0 {
		if len(sizes) == 0 {
			return nil, nil
		}
		return nil, errs.At(errs.MalformedBox, "stsc", 0, nil)
	}

	offsets := make([]uint64, 0, len(sizes))
	sampleIdx := 0
	stscIdx := 0

	for chunkIdx := 0; chunkIdx < len(chunkOffsets) && sampleIdx < len(sizes); chunkIdx++ {
		chunkNum := uint32(chunkIdx + 1)
		for stscIdx+1 < len(stscEntries) && chunkNum >= stscEntries[stscIdx+1].FirstChunk {
			stscIdx++
		}
		samplesPerChunk := stscEntries[stscIdx].SamplesPerChunk

		offset := chunkOffsets[chunkIdx]
		for i := uint32(0); i < samplesPerChunk && sampleIdx < len(sizes); i++ {
			offsets = append(offsets, offset)
			offset += uint64(sizes[sampleIdx])
			sampleIdx++
		}
	}

	return offsets, nil
}

func readChunkOffsets(tab moov.SampleTables) ([]uint64, error) {
	if tab.Co64Data != nil {
		it := bmff.NewCo64Iter(tab.Co64Data)
		out := make([]uint64, 0, it.Count())
		for {
			v, ok := it.Next()
			if !ok {
				break
			}
			out = append(out, v)
		}
		return out, nil
	}
	if tab.StcoData != nil {
		it := bmff.NewUint32Iter(tab.StcoData)
		out := make([]uint64, 0, it.Count())
		for {
			v, ok := it.Next()
			if !ok {
				break
			}
			out = append(out, uint64(v))
		}
		return out, nil
	}
	return nil, errs.At(errs.NoMovieOrMedia, "stco", 0, nil)
}

func readStscEntries(tab moov.SampleTables) ([]bmff.StscEntry, error) {
	if tab.StscData == nil {
		return nil, errs.At(errs.NoMovieOrMedia, "stsc", 0, nil)
	}
	it := bmff.NewStscIter(tab.StscData)
	out := make([]bmff.StscEntry, 0, it.Count())
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func readDTS(tab moov.SampleTables, n int) []uint64 {
	out := make([]uint64, n)
	if tab.SttsData == nil {
		return out
	}
	it := bmff.NewSttsIter(tab.SttsData)
	idx := 0
	var cur uint64
	for idx < n {
		e, ok := it.Next()
		if !ok {
			break
		}
		for i := uint32(0); i < e.Count && idx < n; i++ {
			out[idx] = cur
			cur += uint64(e.Duration)
			idx++
		}
	}
	return out
}

func readCTSOffsets(tab moov.SampleTables, n int) []int64 {
	out := make([]int64, n)
	if tab.CttsData == nil {
		return out
	}
	it := bmff.NewCttsIter(tab.CttsData, tab.CttsVersion)
	idx := 0
	for idx < n {
		e, ok := it.Next()
		if !ok {
			break
		}
		for i := uint32(0); i < e.Count && idx < n; i++ {
			out[idx] = int64(e.Offset)
			idx++
		}
	}
	return out
}

func readSync(tab moov.SampleTables, n int) []bool {
	out := make([]bool, n)
	if tab.StssData == nil {
		// No stss box means every sample is a sync sample (e.g. all-I-frame
		// video, or any audio track).
		for i := range out {
			out[i] = true
		}
		return out
	}
	it := bmff.NewUint32Iter(tab.StssData)
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		idx := int(v) - 1 // stss entries are 1-based sample numbers
		if idx >= 0 && idx < n {
			out[idx] = true
		}
	}
	return out
}

func markSegmentBoundaries(samples []Sample, timescale uint32, targetSeconds int) {
	if len(samples) == 0 {
		return
	}
	samples[0].IsSegmentBoundary = true
	if targetSeconds <= 0 || timescale == 0 {
		return
	}
	thresholdTicks := uint64(targetSeconds) * uint64(timescale)
	nextBoundary := samples[0].DTS + thresholdTicks

	for i := 1; i < len(samples); i++ {
		if !samples[i].IsSync {
			continue
		}
		if samples[i].DTS >= nextBoundary {
			samples[i].IsSegmentBoundary = true
			nextBoundary = samples[i].DTS + thresholdTicks
		}
	}
}
