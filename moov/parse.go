package moov

import (
	"github.com/rs/zerolog"

	"github.com/snapetech/m4hls/bmff"
	"github.com/snapetech/m4hls/errs"
)

// Parser walks a moov box's bytes into a Movie. The zero value is ready to
// use; Log defaults to a no-op logger.
type Parser struct {
	Log zerolog.Logger
}

// NewParser builds a Parser that logs diagnostics through log.
func NewParser(log zerolog.Logger) Parser {
	return Parser{Log: log}
}

// Parse walks the moov box's data (the box's content, not including the
// moov header itself) per the recognized-path table: moov -> mvhd|trak,
// trak -> tkhd|mdia, mdia -> mdhd|hdlr|minf, minf -> vmhd|smhd|dinf|stbl,
// stbl -> stsd|stts|stss|stsc|stsz|stco|co64|ctts. Anything outside this
// table, including mvex and edts, is kept as an opaque atom rather than
// rejected; edit lists are not parsed.
func (p Parser) Parse(data []byte) (*Movie, error) {
	m := &Movie{}
	r := bmff.NewReader(data)

	for r.Next() {
		switch r.Type() {
		case bmff.TypeMvhd:
			ts, dur, _ := r.ReadMvhd()
			m.TimeScale = ts
			m.Duration = dur
		case bmff.TypeTrak:
			if len(m.Tracks) >= MaxTracks {
				p.Log.Warn().Int("limit", MaxTracks).Msg("dropping trak beyond track cap")
				m.Unknown = append(m.Unknown, opaqueAtom(&r))
				continue
			}
			t, err := p.parseTrak(&r)
			if err != nil {
				return nil, err
			}
			m.Tracks = append(m.Tracks, t)
		default:
			m.Unknown = append(m.Unknown, opaqueAtom(&r))
		}
	}
	if err := r.Err(); err != nil {
		p.Log.Error().Str("box", err.Box).Int64("offset", err.Offset).Err(err).Msg("moov parse failed")
		return nil, err
	}

	if m.TimeScale == 0 || len(m.Tracks) == 0 {
		return nil, errs.At(errs.NoMovieOrMedia, "moov", 0, nil)
	}

	return m, nil
}

func (p Parser) parseTrak(r *bmff.Reader) (Track, error) {
	t := Track{Kind: KindOther}
	r.Enter()
	for r.Next() {
		switch r.Type() {
		case bmff.TypeTkhd:
			id, _, _, _ := r.ReadTkhd()
			t.ID = id
		case bmff.TypeMdia:
			if err := p.parseMdia(r, &t); err != nil {
				return t, err
			}
		default:
			t.Unknown = append(t.Unknown, opaqueAtom(r))
		}
	}
	if err := r.Err(); err != nil {
		return t, err
	}
	r.Exit()
	return t, nil
}

func (p Parser) parseMdia(r *bmff.Reader, t *Track) error {
	r.Enter()
	for r.Next() {
		switch r.Type() {
		case bmff.TypeMdhd:
			ts, dur, _ := r.ReadMdhd()
			t.TimeScale = ts
			t.Duration = dur
		case bmff.TypeHdlr:
			h := r.ReadHdlr()
			switch string(h[:]) {
			case "vide":
				t.Kind = KindVideo
			case "soun":
				t.Kind = KindAudio
			default:
				t.Kind = KindOther
			}
		case bmff.TypeMinf:
			if err := p.parseMinf(r, t); err != nil {
				return err
			}
		default:
			t.Unknown = append(t.Unknown, opaqueAtom(r))
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	r.Exit()
	return nil
}

func (p Parser) parseMinf(r *bmff.Reader, t *Track) error {
	r.Enter()
	for r.Next() {
		switch r.Type() {
		case bmff.TypeVmhd, bmff.TypeSmhd, bmff.TypeDinf:
			// Recognized media-header/data-info boxes; nothing here affects
			// the sample/segment pipeline, which never rewrites the moov.
		case bmff.TypeStbl:
			if err := p.parseStbl(r, t); err != nil {
				return err
			}
		default:
			t.Unknown = append(t.Unknown, opaqueAtom(r))
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	r.Exit()
	return nil
}

func (p Parser) parseStbl(r *bmff.Reader, t *Track) error {
	r.Enter()
	for r.Next() {
		switch r.Type() {
		case bmff.TypeStsd:
			sds, err := p.parseStsd(r)
			if err != nil {
				return err
			}
			t.SampleDescriptions = sds
		case bmff.TypeStts:
			if !bmff.CheckTableEntryCount(r.EntryCount(), 8, len(r.Data())-4) {
				return errs.At(errs.MalformedBox, "stts", int64(r.Offset()), nil)
			}
			t.Tables.SttsData = r.Data()
		case bmff.TypeCtts:
			if !bmff.CheckTableEntryCount(r.EntryCount(), 8, len(r.Data())-4) {
				return errs.At(errs.MalformedBox, "ctts", int64(r.Offset()), nil)
			}
			t.Tables.CttsData = r.Data()
			t.Tables.CttsVersion = r.Version()
		case bmff.TypeStsc:
			if !bmff.CheckTableEntryCount(r.EntryCount(), 12, len(r.Data())-4) {
				return errs.At(errs.MalformedBox, "stsc", int64(r.Offset()), nil)
			}
			t.Tables.StscData = r.Data()
		case bmff.TypeStsz:
			data := r.Data()
			if len(data) < 8 {
				return errs.At(errs.TruncatedBox, "stsz", int64(r.Offset()), nil)
			}
			it := bmff.NewStszIter(data)
			t.Tables.StszSampleSize = it.SampleSize()
			t.Tables.StszData = data
		case bmff.TypeStco:
			if !bmff.CheckTableEntryCount(r.EntryCount(), 4, len(r.Data())-4) {
				return errs.At(errs.MalformedBox, "stco", int64(r.Offset()), nil)
			}
			t.Tables.StcoData = r.Data()
		case bmff.TypeCo64:
			if !bmff.CheckTableEntryCount(r.EntryCount(), 8, len(r.Data())-4) {
				return errs.At(errs.MalformedBox, "co64", int64(r.Offset()), nil)
			}
			t.Tables.Co64Data = r.Data()
		case bmff.TypeStss:
			if !bmff.CheckTableEntryCount(r.EntryCount(), 4, len(r.Data())-4) {
				return errs.At(errs.MalformedBox, "stss", int64(r.Offset()), nil)
			}
			t.Tables.StssData = r.Data()
		default:
			t.Unknown = append(t.Unknown, opaqueAtom(r))
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	r.Exit()
	return nil
}

func (p Parser) parseStsd(r *bmff.Reader) ([]SampleDescription, error) {
	var out []SampleDescription
	r.Enter()
	r.Skip(4) // entry count
	for r.Next() {
		switch r.Type() {
		case bmff.TypeAvc1:
			sd, err := parseAvc1(r)
			if err != nil {
				return nil, err
			}
			out = append(out, sd)
		case bmff.TypeMp4a:
			sd, err := parseMp4a(r)
			if err != nil {
				return nil, err
			}
			out = append(out, sd)
		default:
			return nil, errs.At(errs.UnsupportedCodec, r.Type().String(), int64(r.Offset()), nil)
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	r.Exit()
	return out, nil
}

func parseAvc1(r *bmff.Reader) (SampleDescription, error) {
	data := r.Data()
	if len(data) < 78 {
		return SampleDescription{}, errs.At(errs.TruncatedBox, "avc1", int64(r.Offset()), nil)
	}
	ve := bmff.ReadVisualSampleEntry(data)
	sd := SampleDescription{Kind: KindVideo, Width: ve.Width, Height: ve.Height, Codec: "avc1"}

	r.Enter()
	r.Skip(ve.ChildOffset)
	for r.Next() {
		if r.Type() == bmff.TypeAvcC {
			profile := bmff.ReadAvcC(r.Data())
			if profile != "" {
				sd.Codec = "avc1." + profile
			}
			if cfg, ok := bmff.ParseAvcC(r.Data()); ok {
				sd.Avc = &cfg
			}
		}
	}
	if err := r.Err(); err != nil {
		return sd, err
	}
	r.Exit()

	if sd.Avc == nil {
		return sd, errs.At(errs.UnsupportedCodec, "avc1", int64(r.Offset()), nil)
	}
	return sd, nil
}

func parseMp4a(r *bmff.Reader) (SampleDescription, error) {
	data := r.Data()
	if len(data) < 28 {
		return SampleDescription{}, errs.At(errs.TruncatedBox, "mp4a", int64(r.Offset()), nil)
	}
	ae := bmff.ReadAudioSampleEntry(data)
	sd := SampleDescription{
		Kind:         KindAudio,
		ChannelCount: ae.ChannelCount,
		SampleSize:   ae.SampleSize,
		SampleRate:   ae.SampleRate,
		Codec:        "mp4a",
	}

	r.Enter()
	r.Skip(ae.ChildOffset)
	for r.Next() {
		if r.Type() == bmff.TypeEsds {
			codec := bmff.ReadEsdsCodec(r.Data())
			if codec != "" {
				sd.Codec = "mp4a." + codec
			}
			if cfg, ok := bmff.ParseEsdsAudioConfig(r.Data()); ok {
				sd.Aac = &cfg
			}
		}
	}
	if err := r.Err(); err != nil {
		return sd, err
	}
	r.Exit()

	if sd.Aac == nil {
		return sd, errs.At(errs.UnsupportedCodec, "mp4a", int64(r.Offset()), nil)
	}
	return sd, nil
}

func opaqueAtom(r *bmff.Reader) OpaqueAtom {
	return OpaqueAtom{Type: r.Type(), Raw: r.RawBox()}
}
