package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// FlateDecode inflates zlib data and undoes any predictor. A truncated
// stream returns what could be inflated, as viewers do.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib header: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil && (len(out) == 0 || err != io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	return unpredict(out, params)
}
