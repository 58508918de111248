// Package filters decodes PDF stream filters.
//
// Decode dispatches on the filter name:
//
//	data, err := filters.Decode("FlateDecode", raw, filters.Params{"Predictor": 12, "Columns": 5})
//
// FlateDecode and LZWDecode honor the TIFF (2) and PNG (10-15) predictors.
// CCITTFaxDecode uses golang.org/x/image/ccitt and LZWDecode with the
// default EarlyChange uses golang.org/x/image/tiff/lzw. DCTDecode and
// JPXDecode data is returned unchanged for an image decoder to handle.
package filters
