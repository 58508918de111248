package filters

import (
	"bytes"
	"fmt"
)

// ASCIIHexDecode decodes hexadecimal pairs up to the > end marker.
// Whitespace is ignored and a lone final digit is padded with 0.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	half := false
	for _, c := range data {
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		v, ok := hexNibble(c)
		if !ok {
			return nil, fmt.Errorf("invalid hex digit %q", c)
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out, nil
}

// ASCII85Decode decodes base-85 data up to the ~> end marker. 'z' stands
// for four zero bytes; a final partial group is padded with 'u'.
func ASCII85Decode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	var group [5]byte
	n := 0

	flush := func(count int) {
		var v uint32
		for _, d := range group {
			v = v*85 + uint32(d)
		}
		for j := 0; j < count; j++ {
			out.WriteByte(byte(v >> (24 - 8*j)))
		}
	}

	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case isWhitespace(c):
			continue
		case c == '~':
			i = len(data)
			continue
		case c == 'z' && n == 0:
			out.Write([]byte{0, 0, 0, 0})
			continue
		case c < '!' || c > 'u':
			return nil, fmt.Errorf("invalid ASCII85 character %q", c)
		}
		group[n] = c - '!'
		n++
		if n == 5 {
			flush(4)
			n = 0
		}
	}

	if n == 1 {
		return nil, fmt.Errorf("ASCII85 data ends with a single character")
	}
	if n > 1 {
		for j := n; j < 5; j++ {
			group[j] = 84
		}
		flush(n - 1)
	}
	return out.Bytes(), nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
