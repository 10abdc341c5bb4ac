package ts

import "github.com/snapetech/m4hls/bmff"

// buildADTSHeader returns the 7-byte CRC-less ADTS header framing an AAC
// raw data block of frameLen bytes, carrying cfg's object type, sampling
// frequency index, and channel configuration.
func buildADTSHeader(cfg bmff.AacAudioConfig, frameLen int) []byte {
	profile := cfg.ObjectType - 1
	if cfg.ObjectType == 0 {
		profile = 1 // AAC LC
	}
	frameLength := 7 + frameLen

	buf := make([]byte, 7)
	buf[0] = 0xFF
	buf[1] = 0xF1 // MPEG-4, layer 0, protection_absent=1
	buf[2] = profile<<6 | cfg.SamplingFrequencyIndex<<2 | cfg.ChannelConfig>>2
	buf[3] = byte(cfg.ChannelConfig&0x03)<<6 | byte(frameLength>>11&0x03)
	buf[4] = byte(frameLength >> 3)
	buf[5] = byte(frameLength&0x07)<<5 | 0x1F // top 5 bits of buffer_fullness (0x7FF, VBR)
	buf[6] = 0xFC                             // low 6 bits of buffer_fullness + 2 raw-data-block count bits
	return buf
}
