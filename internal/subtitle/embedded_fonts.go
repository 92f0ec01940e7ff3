package subtitle

import "strings"

// decodeEmbeddedFont reverses the SSA uuencoding used in [Fonts]: every
// character carries six bits offset by 33, four characters form three bytes
// and a trailing group of two or three characters forms one or two bytes.
func decodeEmbeddedFont(encoded string) []byte {
	encoded = strings.Map(func(r rune) rune {
		if r < 33 || r > 96 {
			return -1
		}
		return r
	}, encoded)

	src := []byte(encoded)
	out := make([]byte, 0, len(src)*3/4+2)

	for len(src) >= 4 {
		v := uint32(src[0]-33)<<18 |
			uint32(src[1]-33)<<12 |
			uint32(src[2]-33)<<6 |
			uint32(src[3]-33)
		out = append(out, byte(v>>16), byte(v>>8), byte(v))
		src = src[4:]
	}

	switch len(src) {
	case 2:
		v := uint32(src[0]-33)<<18 | uint32(src[1]-33)<<12
		out = append(out, byte(v>>16))
	case 3:
		v := uint32(src[0]-33)<<18 | uint32(src[1]-33)<<12 | uint32(src[2]-33)<<6
		out = append(out, byte(v>>16), byte(v>>8))
	}

	return out
}

// encodeEmbeddedFont is the inverse of decodeEmbeddedFont, wrapped at 80
// columns as authoring tools write it.
func encodeEmbeddedFont(data []byte) []string {
	var sb strings.Builder
	for len(data) >= 3 {
		v := uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
		sb.WriteByte(byte(v>>18&0x3F) + 33)
		sb.WriteByte(byte(v>>12&0x3F) + 33)
		sb.WriteByte(byte(v>>6&0x3F) + 33)
		sb.WriteByte(byte(v&0x3F) + 33)
		data = data[3:]
	}
	switch len(data) {
	case 1:
		v := uint32(data[0]) << 16
		sb.WriteByte(byte(v>>18&0x3F) + 33)
		sb.WriteByte(byte(v>>12&0x3F) + 33)
	case 2:
		v := uint32(data[0])<<16 | uint32(data[1])<<8
		sb.WriteByte(byte(v>>18&0x3F) + 33)
		sb.WriteByte(byte(v>>12&0x3F) + 33)
		sb.WriteByte(byte(v>>6&0x3F) + 33)
	}

	encoded := sb.String()
	lines := make([]string, 0, len(encoded)/80+1)
	for len(encoded) > 80 {
		lines = append(lines, encoded[:80])
		encoded = encoded[80:]
	}
	if encoded != "" {
		lines = append(lines, encoded)
	}
	return lines
}
