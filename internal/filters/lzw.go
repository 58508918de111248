package filters

import (
	"bytes"
	"compress/lzw"
	"fmt"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"
)

// LZWDecode decompresses LZW data. PDF defaults to EarlyChange 1, the
// code-width timing TIFF uses; EarlyChange 0 is the GIF timing.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	var r io.ReadCloser
	if getIntParam(params, "EarlyChange", 1) == 0 {
		r = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	} else {
		r = tifflzw.NewReader(bytes.NewReader(data), tifflzw.MSB, 8)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("lzw: %w", err)
	}
	return unpredict(out, params)
}
