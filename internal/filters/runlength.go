package filters

import "fmt"

// RunLengthDecode expands PackBits-style run-length data. A length byte n
// below 128 copies the next n+1 bytes; above 128 repeats the next byte
// 257-n times; 128 ends the data.
func RunLengthDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)*2)
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out, nil
		case n < 128:
			if i+n+1 > len(data) {
				return nil, fmt.Errorf("run length: literal run of %d bytes past end", n+1)
			}
			out = append(out, data[i:i+n+1]...)
			i += n + 1
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("run length: repeat run past end")
			}
			for j := 0; j < 257-n; j++ {
				out = append(out, data[i])
			}
			i++
		}
	}
	return out, nil
}
