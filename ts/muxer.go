package ts

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/snapetech/m4hls/errs"
	"github.com/snapetech/m4hls/sample"
	"github.com/snapetech/m4hls/segment"
)

// clockRate90k is the MPEG-TS system clock rate that every PTS, DTS, and
// PCR is expressed in, regardless of the source track's media timescale.
const clockRate90k = 90000

// pcrIntervalFraction sets the minimum gap between PCR insertions as a
// fraction of the 90kHz system clock: clockRate90k/pcrIntervalFraction
// ticks between PCRs, i.e. 100ms.
const pcrIntervalFraction = 10

// pidVideo and pidAudio are the elementary stream PIDs this package assigns.
const (
	pidVideo = 0x0100
	pidAudio = 0x0101
)

// Muxer packetises one segment's selected samples into an MPEG-TS byte
// stream. A new Muxer is created per segment; continuity counters and PCR
// state do not carry across segments, matching how independently
// addressable .ts segments are normally produced.
type Muxer struct {
	Log zerolog.Logger

	videoCC, audioCC, patCC, pmtCC uint8
	lastPCR                        int64 // -1 until the first PCR is emitted
	pcrInterval                    uint64
}

// NewMuxer returns a Muxer ready to write one segment.
func NewMuxer(log zerolog.Logger) *Muxer {
	return &Muxer{Log: log, lastPCR: -1}
}

// WriteSegment emits the PAT, PMT, and the interleaved, PES-framed video and
// audio samples named by sel, reading raw sample bytes from src at each
// sample's file offset.
func (m *Muxer) WriteSegment(w io.Writer, video, audio *sample.Track, sel segment.Selection, src io.ReaderAt) error {
	if video == nil || video.SampleDescription.Avc == nil {
		return errs.At(errs.UnsupportedCodec, "avcC", 0, nil)
	}
	hasAudio := audio != nil && !sel.Audio.Empty() && audio.SampleDescription.Aac != nil

	m.pcrInterval = clockRate90k / pcrIntervalFraction

	streams := []pmtStream{{StreamType: streamTypeH264, PID: pidVideo}}
	if hasAudio {
		streams = append(streams, pmtStream{StreamType: streamTypeAACADTS, PID: pidAudio})
	}
	if err := writePSIPacket(w, pidPAT, &m.patCC, buildPAT(1, pidPMT)); err != nil {
		return err
	}
	if err := writePSIPacket(w, pidPMT, &m.pmtCC, buildPMT(1, pidVideo, streams)); err != nil {
		return err
	}

	vi, ai := sel.Video.First, sel.Audio.First
	for vi < sel.Video.Last || (hasAudio && ai < sel.Audio.Last) {
		writeVideo := vi < sel.Video.Last
		writeAudio := hasAudio && ai < sel.Audio.Last
		if writeVideo && writeAudio {
			// Interleave by DTS so the muxed stream's PES order tracks decode
			// order across both elementary streams. Both timescales are
			// converted to the 90kHz system clock before comparing; they are
			// rarely equal (e.g. 44100Hz audio against 90000Hz video).
			videoDTS90k := scaleTo90k(video.Samples[vi].DTS, video.TimeScale)
			audioDTS90k := scaleTo90k(audio.Samples[ai].DTS, audio.TimeScale)
			if audioDTS90k > videoDTS90k {
				writeAudio = false
			} else {
				writeVideo = false
			}
		}

		if writeVideo {
			if err := m.writeVideoSample(w, video, vi, src); err != nil {
				return err
			}
			vi++
		} else {
			if err := m.writeAudioSample(w, audio, ai, src); err != nil {
				return err
			}
			ai++
		}
	}
	return nil
}

func (m *Muxer) writeVideoSample(w io.Writer, video *sample.Track, idx int, src io.ReaderAt) error {
	s := video.Samples[idx]
	raw := make([]byte, s.Size)
	if _, err := src.ReadAt(raw, int64(s.FileOffset)); err != nil {
		return errs.At(errs.IoFailure, "mdat", int64(s.FileOffset), err)
	}

	avc := video.SampleDescription.Avc
	payload, err := annexBAccessUnit(raw, avc.NalLengthSize, s.IsSync, avc.SPS, avc.PPS)
	if err != nil {
		return err
	}

	pts90k := scaleTo90k(s.PTS(), video.TimeScale)
	dts90k := scaleTo90k(s.DTS, video.TimeScale)

	header := buildPESHeader(streamIDVideo, pts90k, dts90k, s.CTSOffset != 0, len(payload))
	frame := append(header, payload...)

	return writePES(w, pidVideo, &m.videoCC, m.maybePCR(dts90k), frame)
}

func (m *Muxer) writeAudioSample(w io.Writer, audio *sample.Track, idx int, src io.ReaderAt) error {
	s := audio.Samples[idx]
	raw := make([]byte, s.Size)
	if _, err := src.ReadAt(raw, int64(s.FileOffset)); err != nil {
		return errs.At(errs.IoFailure, "mdat", int64(s.FileOffset), err)
	}

	adts := buildADTSHeader(*audio.SampleDescription.Aac, len(raw))
	payload := append(adts, raw...)

	pts90k := scaleTo90k(s.PTS(), audio.TimeScale)

	header := buildPESHeader(streamIDAudio, pts90k, 0, false, len(payload))
	frame := append(header, payload...)

	return writePES(w, pidAudio, &m.audioCC, nil, frame)
}

// scaleTo90k converts a timestamp expressed in a track's media timescale
// to the MPEG-TS 90kHz system clock.
func scaleTo90k(ticks uint64, timescale uint32) uint64 {
	if timescale == 0 {
		return ticks
	}
	return ticks * clockRate90k / uint64(timescale)
}

// maybePCR returns a PCR value (in 27MHz units) for ticks90k if at least
// pcrInterval ticks have passed since the last one emitted, else nil. The
// video track's own clock doubles as the program clock reference, which is
// standard practice for a single-program, video-anchored TS.
func (m *Muxer) maybePCR(ticks90k uint64) *uint64 {
	if m.lastPCR >= 0 && ticks90k < uint64(m.lastPCR)+m.pcrInterval && ticks90k >= uint64(m.lastPCR) {
		return nil
	}
	m.lastPCR = int64(ticks90k)
	val := ticks90k * 300
	return &val
}
