// Package moov parses the moov box subtree of an MP4 file into the
// movie/track/sample-description data model, recognizing the box paths
// the pipeline acts on and retaining everything else as opaque atoms.
package moov

import "github.com/snapetech/m4hls/bmff"

// Kind distinguishes the handler type of a track.
type Kind int

const (
	KindVideo Kind = iota
	KindAudio
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "other"
	}
}

// MaxTracks bounds the number of trak boxes a single moov may contribute;
// trak boxes beyond it are kept as opaque atoms.
const MaxTracks = 8

// OpaqueAtom preserves a box this module does not interpret, so that a
// byte-identical moov could in principle be reassembled from the parsed
// model (spec's "unknown atom list" requirement).
type OpaqueAtom struct {
	Type bmff.BoxType
	Raw  []byte // full box bytes including header, sliced from the source buffer
}

// SampleDescription is one entry of an stsd box: the codec configuration
// shared by every sample that references it.
type SampleDescription struct {
	Kind  Kind
	Codec string // short codec string, e.g. "avc1.64001f" or "mp4a.40.2"

	// Video fields
	Width, Height uint16
	Avc           *bmff.AvcDecoderConfig

	// Audio fields
	ChannelCount, SampleSize uint16
	SampleRate               uint32 // 16.16 fixed point, per ReadAudioSampleEntry
	Aac                      *bmff.AacAudioConfig
}

// SampleTables holds the raw stbl sub-box bytes needed by the sample
// indexer, retained rather than eagerly expanded so a track with no
// requested segments never pays for sample-table construction.
type SampleTables struct {
	SttsData []byte

	CttsData    []byte // nil if the track has no ctts box
	CttsVersion uint8

	StscData []byte

	StszSampleSize uint32 // nonzero means every sample has this fixed size
	StszData       []byte // raw stsz data, valid when StszSampleSize == 0

	StcoData []byte // raw stco data; nil if the track uses co64 instead
	Co64Data []byte // raw co64 data; nil if the track uses stco instead

	StssData []byte // nil means every sample is a sync sample (no stss box)
}

// Track is one trak box: header fields, the handler-derived kind, its
// sample description(s), raw sample tables, and any atoms this module
// does not interpret.
type Track struct {
	ID        uint32
	Kind      Kind
	TimeScale uint32
	Duration  uint64

	SampleDescriptions []SampleDescription
	Tables             SampleTables

	Unknown []OpaqueAtom
}

// Movie is the parsed moov box: header fields, tracks, and unrecognized
// top-level moov children (udta, mvex and similar are retained opaque
// since fragmented-MP4 boxes are out of scope for this module's output).
type Movie struct {
	TimeScale uint32
	Duration  uint64
	Tracks    []Track

	Unknown []OpaqueAtom
}

// TrackByID returns the track with the given ID, or nil if not found.
func (m *Movie) TrackByID(id uint32) *Track {
	for i := range m.Tracks {
		if m.Tracks[i].ID == id {
			return &m.Tracks[i]
		}
	}
	return nil
}

// FirstOfKind returns the first track with the given kind, or nil.
func (m *Movie) FirstOfKind(k Kind) *Track {
	for i := range m.Tracks {
		if m.Tracks[i].Kind == k {
			return &m.Tracks[i]
		}
	}
	return nil
}
