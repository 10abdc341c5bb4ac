package bmff

import (
	"testing"

	"github.com/matryer/is"
)

func TestParseAvcCExtractsParameterSets(t *testing.T) {
	is := is.New(t)
	data := []byte{
		0x01, 0x64, 0x00, 0x1F, // version, profile, compat, level
		0xFF,       // reserved(6)+lengthSizeMinusOne(2)=11 -> 4-byte lengths
		0xE1,       // reserved(3)+numSPS(5)=1
		0x00, 0x02, 0x67, 0x42, // SPS length 2, SPS bytes
		0x01,       // numPPS=1
		0x00, 0x02, 0x68, 0xCE, // PPS length 2, PPS bytes
	}
	cfg, ok := ParseAvcC(data)
	is.True(ok)
	is.Equal(cfg.NalLengthSize, 4)
	is.Equal(len(cfg.SPS), 1)
	is.Equal(cfg.SPS[0], []byte{0x67, 0x42})
	is.Equal(len(cfg.PPS), 1)
	is.Equal(cfg.PPS[0], []byte{0x68, 0xCE})
}

func TestParseAvcCRejectsTruncated(t *testing.T) {
	is := is.New(t)
	_, ok := ParseAvcC([]byte{0x01, 0x64, 0x00})
	is.True(!ok)
}

func TestParseAvcCRejectsTruncatedSPS(t *testing.T) {
	is := is.New(t)
	data := []byte{0x01, 0x64, 0x00, 0x1F, 0xFF, 0xE1, 0x00, 0x10, 0x67}
	_, ok := ParseAvcC(data)
	is.True(!ok)
}

func aacTestVector() []byte {
	return []byte{
		0x03, 22,
		0x00, 0x00, 0x00,
		0x04, 17,
		0x40, 0x15, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x05, 2,
		0x12, 0x10,
	}
}

func TestParseEsdsAudioConfigDecodesAACLC(t *testing.T) {
	is := is.New(t)
	cfg, ok := ParseEsdsAudioConfig(aacTestVector())
	is.True(ok)
	is.Equal(cfg.ObjectType, uint8(2))
	is.Equal(cfg.SamplingFrequencyIndex, uint8(4))
	is.Equal(cfg.SampleRate, uint32(44100))
	is.Equal(cfg.ChannelConfig, uint8(2))
}

func TestParseEsdsAudioConfigRejectsExplicitFrequency(t *testing.T) {
	is := is.New(t)
	data := aacTestVector()
	// Force sampling_frequency_index to 0xF (explicit frequency, unsupported):
	// low 3 bits of b0 plus the top bit of b1 together form the 4-bit index.
	data[len(data)-2] = 0x17
	data[len(data)-1] = 0x80
	_, ok := ParseEsdsAudioConfig(data)
	is.True(!ok)
}

func TestCheckTableEntryCount(t *testing.T) {
	is := is.New(t)
	is.True(CheckTableEntryCount(10, 4, 40))
	is.True(!CheckTableEntryCount(11, 4, 40))
	is.True(CheckTableEntryCount(0, 4, 0))
}
