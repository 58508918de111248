package filters

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFilter is returned for filters this package cannot decode.
var ErrUnsupportedFilter = errors.New("unsupported filter")

// Params holds decode parameters converted from a /DecodeParms dictionary.
// Values are Go primitives: int, float64, bool or string.
type Params map[string]interface{}

// Passthrough reports whether a filter is an image codec whose output is
// left for an image decoder rather than decoded here.
func Passthrough(name string) bool {
	switch name {
	case "DCTDecode", "DCT", "JPXDecode":
		return true
	}
	return false
}

// Decode applies one filter. Image codecs listed by Passthrough return the
// data unchanged.
func Decode(name string, data []byte, params Params) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return FlateDecode(data, params)
	case "LZWDecode", "LZW":
		return LZWDecode(data, params)
	case "ASCIIHexDecode", "AHx":
		return ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return ASCII85Decode(data)
	case "RunLengthDecode", "RL":
		return RunLengthDecode(data)
	case "CCITTFaxDecode", "CCF":
		return CCITTFaxDecode(data, params)
	}
	if Passthrough(name) {
		return data, nil
	}
	return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFilter)
}

// getIntParam returns an integer parameter or def.
func getIntParam(params Params, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// getBoolParam returns a boolean parameter or def.
func getBoolParam(params Params, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}
