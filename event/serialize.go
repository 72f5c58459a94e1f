package event

import "strconv"

// serializeInto appends the canonical form of the signable fields to
// dst: a six element JSON array [0,pubkey,created_at,kind,tags,content]
// with no whitespace. This exact byte sequence is what gets hashed to
// form the event id, so it must never depend on encoder settings.
func serializeInto(dst []byte, pubkey string, createdAt int64, kind int, tags [][]string, content string) []byte {
	dst = append(dst, `[0,"`...)
	dst = append(dst, pubkey...)
	dst = append(dst, `",`...)
	dst = strconv.AppendInt(dst, createdAt, 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(kind), 10)
	dst = append(dst, ",["...)
	for i, tag := range tags {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, '[')
		for j, item := range tag {
			if j > 0 {
				dst = append(dst, ',')
			}
			dst = appendEscapedString(dst, item)
		}
		dst = append(dst, ']')
	}
	dst = append(dst, "],"...)
	dst = appendEscapedString(dst, content)
	dst = append(dst, ']')
	return dst
}

// appendEscapedString appends s as a quoted JSON string using the
// minimal escaping the protocol mandates for the canonical form:
// backslash, double quote, and the control characters. HTML-safe
// escaping (as encoding/json does by default) would change the hash.
func appendEscapedString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			dst = append(dst, '\\', '"')
		case c == '\\':
			dst = append(dst, '\\', '\\')
		case c == '\b':
			dst = append(dst, '\\', 'b')
		case c == '\f':
			dst = append(dst, '\\', 'f')
		case c == '\n':
			dst = append(dst, '\\', 'n')
		case c == '\r':
			dst = append(dst, '\\', 'r')
		case c == '\t':
			dst = append(dst, '\\', 't')
		case c < 0x20:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

const hexDigits = "0123456789abcdef"
