package filters

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/image/ccitt"
)

// CCITTFaxDecode decodes CCITT Group 3 or Group 4 fax data, the usual
// encoding of scanned bi-level pages. The output is one bit per pixel, rows
// padded to a byte, 1 meaning white unless BlackIs1 is set.
//
// Parameters:
//   - K: <0 selects Group 4, otherwise Group 3
//   - Columns: width in pixels (default 1728)
//   - Rows: height in pixels (default: detect from the data)
//   - BlackIs1: invert the output bits
//   - EncodedByteAlign: rows start on byte boundaries
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1728)
	if columns <= 0 {
		return nil, fmt.Errorf("ccitt: invalid Columns %d", columns)
	}
	rows := getIntParam(params, "Rows", 0)
	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}

	sf := ccitt.Group3
	if getIntParam(params, "K", 0) < 0 {
		sf = ccitt.Group4
	}
	opts := &ccitt.Options{
		Align:  getBoolParam(params, "EncodedByteAlign", false),
		Invert: getBoolParam(params, "BlackIs1", false),
	}

	out, err := io.ReadAll(ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, columns, rows, opts))
	if err != nil {
		return nil, fmt.Errorf("ccitt: %w", err)
	}
	return out, nil
}
