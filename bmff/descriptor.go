package bmff

import "strconv"

// ReadEsdsCodec extracts the MIME codec string from esds box data.
// It parses the MPEG-4 descriptor chain to find the OTI (Object Type Indication)
// and audio configuration. Returns a string like "40.2" for AAC-LC.
func ReadEsdsCodec(data []byte) string {
	if len(data) < 2 {
		return ""
	}

	// Expect ESDescriptor (tag 0x03)
	ptr, end := 0, len(data)
	if data[ptr] != 0x03 {
		return ""
	}
	ptr++

	// Skip length bytes (variable-length encoding)
	ptr = skipDescriptorLength(data, ptr, end)
	if ptr < 0 || ptr+3 > end {
		return ""
	}

	// ES_ID (2 bytes) + stream dependency flags (1 byte)
	flags := data[ptr+2]
	ptr += 3

	// Skip optional fields based on flags
	if flags&0x80 != 0 { // streamDependenceFlag
		ptr += 2
	}
	if flags&0x40 != 0 { // URL_Flag
		if ptr >= end {
			return ""
		}
		urlLen := int(data[ptr])
		ptr += 1 + urlLen
	}
	if flags&0x20 != 0 { // OCRstreamFlag
		ptr += 2
	}

	if ptr >= end {
		return ""
	}

	// Expect DecoderConfigDescriptor (tag 0x04)
	if data[ptr] != 0x04 {
		return ""
	}
	ptr++
	ptr = skipDescriptorLength(data, ptr, end)
	if ptr < 0 || ptr+13 > end {
		return ""
	}

	oti := data[ptr]
	if oti == 0 {
		return ""
	}

	// Format OTI as hex
	otiStr := hexByte(oti)

	// Skip to DecoderSpecificInfo: OTI(1)+streamType(1)+bufferSizeDB(3)+maxBitrate(4)+avgBitrate(4) = 13
	ptr += 13

	if ptr >= end || data[ptr] != 0x05 {
		// No DecoderSpecificInfo, return just OTI
		return otiStr
	}
	ptr++
	ptr = skipDescriptorLength(data, ptr, end)
	if ptr < 0 || ptr >= end {
		return otiStr
	}

	// Extract audio object type from first byte
	audioConfig := (data[ptr] & 0xf8) >> 3
	if audioConfig == 0 {
		return otiStr
	}
	return otiStr + "." + strconv.Itoa(int(audioConfig))
}

// AacAudioConfig holds the fields of an AudioSpecificConfig needed to build
// an ADTS header: ReadEsdsCodec only surfaces a MIME profile string, but the
// TS packetiser needs the raw object type, sampling frequency index, and
// channel configuration.
type AacAudioConfig struct {
	ObjectType            uint8
	SamplingFrequencyIndex uint8
	SampleRate            uint32
	ChannelConfig         uint8
}

var aacSampleRates = [13]uint32{
	96000, 88200, 64000, 48000, 44100, 32000, 24000,
	22050, 16000, 12000, 11025, 8000, 7350,
}

// ParseEsdsAudioConfig walks the same MPEG-4 descriptor chain as
// ReadEsdsCodec but decodes the DecoderSpecificInfo's AudioSpecificConfig
// bitfield in full, rather than just its top 5 bits.
func ParseEsdsAudioConfig(data []byte) (AacAudioConfig, bool) {
	var cfg AacAudioConfig
	if len(data) < 2 {
		return cfg, false
	}

	ptr, end := 0, len(data)
	if data[ptr] != 0x03 {
		return cfg, false
	}
	ptr++
	ptr = skipDescriptorLength(data, ptr, end)
	if ptr < 0 || ptr+3 > end {
		return cfg, false
	}

	flags := data[ptr+2]
	ptr += 3
	if flags&0x80 != 0 {
		ptr += 2
	}
	if flags&0x40 != 0 {
		if ptr >= end {
			return cfg, false
		}
		urlLen := int(data[ptr])
		ptr += 1 + urlLen
	}
	if flags&0x20 != 0 {
		ptr += 2
	}
	if ptr >= end || data[ptr] != 0x04 {
		return cfg, false
	}
	ptr++
	ptr = skipDescriptorLength(data, ptr, end)
	if ptr < 0 || ptr+13 > end {
		return cfg, false
	}
	ptr += 13
	if ptr >= end || data[ptr] != 0x05 {
		return cfg, false
	}
	ptr++
	ptr = skipDescriptorLength(data, ptr, end)
	if ptr < 0 || ptr+2 > end {
		return cfg, false
	}

	// AudioSpecificConfig: 5 bits object type, 4 bits sampling frequency
	// index (0xf = 24-bit explicit frequency follows), 4 bits channel
	// configuration.
	b0, b1 := data[ptr], data[ptr+1]
	cfg.ObjectType = b0 >> 3
	cfg.SamplingFrequencyIndex = (b0&0x07)<<1 | b1>>7
	if cfg.SamplingFrequencyIndex == 0x0f {
		// Explicit frequency: not supported by ADTS, which only carries
		// the 4-bit index. Reject rather than emit a bogus header.
		return cfg, false
	}
	if int(cfg.SamplingFrequencyIndex) >= len(aacSampleRates) {
		return cfg, false
	}
	cfg.SampleRate = aacSampleRates[cfg.SamplingFrequencyIndex]
	cfg.ChannelConfig = (b1 >> 3) & 0x0f
	return cfg, true
}

// hexByte formats a byte as a lowercase hex string without leading zeros beyond one digit.
func hexByte(b byte) string {
	if b < 16 {
		return string(hexDigit(b))
	}
	var buf [2]byte
	buf[0] = hexDigit(b >> 4)
	buf[1] = hexDigit(b & 0x0f)
	return string(buf[:])
}

// skipDescriptorLength skips the variable-length descriptor length field.
// Returns the new position, or -1 on error.
func skipDescriptorLength(data []byte, ptr, end int) int {
	for ptr < end {
		b := data[ptr]
		ptr++
		if b&0x80 == 0 {
			return ptr
		}
	}
	return -1
}
