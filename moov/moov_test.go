package moov

import (
	"encoding/binary"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/snapetech/m4hls/bmff"
)

func TestKindString(t *testing.T) {
	is := is.New(t)
	is.Equal(KindVideo.String(), "video")
	is.Equal(KindAudio.String(), "audio")
	is.Equal(KindOther.String(), "other")
}

func TestParseSingleVideoTrack(t *testing.T) {
	is := is.New(t)
	data := buildTestMoov()

	m, err := NewParser(zerolog.Nop()).Parse(data)
	is.NoErr(err)
	is.Equal(m.TimeScale, uint32(30000))
	is.Equal(len(m.Tracks), 1)

	tr := m.TrackByID(1)
	is.True(tr != nil)
	is.Equal(tr.Kind, KindVideo)
	is.Equal(tr.TimeScale, uint32(30000))
	is.Equal(len(tr.SampleDescriptions), 1)
	is.Equal(tr.SampleDescriptions[0].Codec[:5], "avc1.")
	is.True(tr.SampleDescriptions[0].Avc != nil)
	is.Equal(tr.Tables.StszSampleSize, uint32(0))

	is.True(m.FirstOfKind(KindVideo) != nil)
	is.True(m.FirstOfKind(KindAudio) == nil)
}

func TestParseRejectsMissingMvhd(t *testing.T) {
	is := is.New(t)
	_, err := NewParser(zerolog.Nop()).Parse([]byte{})
	is.True(err != nil)
}

// buildTestMoov constructs a minimal moov payload (box content, no moov
// header) for one H.264 video track with 5 samples, using the bmff.Writer
// the same way a real encoder's muxer output would be framed.
func buildTestMoov() []byte {
	avcC := []byte{
		0x01, 0x64, 0x00, 0x1F,
		0xFF,
		0xE1, 0x00, 0x02, 0x67, 0x42,
		0x01, 0x00, 0x02, 0x68, 0xCE,
	}

	buf := make([]byte, 4096)
	w := bmff.NewWriter(buf)

	w.StartBox(bmff.TypeMoov)
	w.WriteMvhd(30000, 5000, 2)

	w.StartBox(bmff.TypeTrak)
	w.WriteTkhd(7, 1, 5000, 1280, 720)

	w.StartBox(bmff.TypeMdia)
	w.WriteMdhd(30000, 5000, 0)
	w.WriteHdlr([4]byte{'v', 'i', 'd', 'e'}, "VideoHandler")

	w.StartBox(bmff.TypeMinf)
	w.WriteVmhd()
	w.StartBox(bmff.TypeDinf)
	w.WriteDref()
	w.EndBox() // dinf

	w.StartBox(bmff.TypeStbl)

	w.StartFullBox(bmff.TypeStsd, 0, 0)
	var entryCount [4]byte
	binary.BigEndian.PutUint32(entryCount[:], 1)
	w.Write(entryCount[:])
	w.StartBox(bmff.TypeAvc1)
	w.WriteVisualSampleEntry(1, 1280, 720, 1, 24, "")
	w.StartBox(bmff.TypeAvcC)
	w.Write(avcC)
	w.EndBox() // avcC
	w.EndBox() // avc1
	w.EndBox() // stsd

	w.WriteStts([]bmff.SttsEntry{{Count: 5, Duration: 1000}})
	w.WriteStsc([]bmff.StscEntry{{FirstChunk: 1, SamplesPerChunk: 5, SampleDescriptionId: 1}})
	w.WriteStsz(0, []uint32{100, 50, 50, 50, 100})
	w.WriteStco([]uint32{1000})
	w.WriteStss([]uint32{1, 5})

	w.EndBox() // stbl
	w.EndBox() // minf
	w.EndBox() // mdia
	w.EndBox() // trak
	w.EndBox() // moov

	return w.Bytes()[8:]
}
