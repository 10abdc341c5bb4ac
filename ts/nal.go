package ts

import (
	"encoding/binary"

	"github.com/snapetech/m4hls/errs"
)

var annexBStartCode = []byte{0x00, 0x00, 0x00, 0x01}

// audNAL is a conventional Annex-B access unit delimiter (nal_unit_type 9,
// primary_pic_type "any"), prepended to every video access unit so players
// that rely on it to find frame boundaries see one.
var audNAL = []byte{0x09, 0xF0}

// splitAvcNALUs walks an AVCC-framed sample (length-prefixed NAL units, as
// stored in mdat) and returns the individual NAL payloads, length prefixes
// stripped.
func splitAvcNALUs(data []byte, nalLengthSize int) ([][]byte, error) {
	var out [][]byte
	i := 0
	for i < len(data) {
		if i+nalLengthSize > len(data) {
			return nil, errs.At(errs.TruncatedBox, "mdat", int64(i), nil)
		}
		var length int
		switch nalLengthSize {
		case 1:
			length = int(data[i])
		case 2:
			length = int(binary.BigEndian.Uint16(data[i : i+2]))
		case 4:
			length = int(binary.BigEndian.Uint32(data[i : i+4]))
		default:
			return nil, errs.At(errs.MalformedBox, "avcC", int64(i), nil)
		}
		i += nalLengthSize
		if length < 0 || i+length > len(data) {
			return nil, errs.At(errs.TruncatedBox, "mdat", int64(i), nil)
		}
		out = append(out, data[i:i+length])
		i += length
	}
	return out, nil
}

// annexBAccessUnit converts one AVCC sample into an Annex-B byte stream: an
// access unit delimiter, the track's SPS/PPS when keyframe is set, then each
// NAL unit with its own start code.
func annexBAccessUnit(data []byte, nalLengthSize int, keyframe bool, sps, pps [][]byte) ([]byte, error) {
	nalus, err := splitAvcNALUs(data, nalLengthSize)
	if err != nil {
		return nil, err
	}

	var out []byte
	out = append(out, annexBStartCode...)
	out = append(out, audNAL...)
	if keyframe {
		for _, s := range sps {
			out = append(out, annexBStartCode...)
			out = append(out, s...)
		}
		for _, p := range pps {
			out = append(out, annexBStartCode...)
			out = append(out, p...)
		}
	}
	for _, n := range nalus {
		out = append(out, annexBStartCode...)
		out = append(out, n...)
	}
	return out, nil
}
