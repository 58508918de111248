package filters

import "fmt"

// unpredict undoes the /Predictor named in params. 1 or absent is the
// identity, 2 is TIFF predictor 2 and 10-15 are PNG predictors, where every
// row carries its own filter type byte.
func unpredict(data []byte, params Params) ([]byte, error) {
	predictor := getIntParam(params, "Predictor", 1)
	if predictor == 1 {
		return data, nil
	}

	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)
	columns := getIntParam(params, "Columns", 1)
	if colors < 1 || columns < 1 || (bpc != 1 && bpc != 2 && bpc != 4 && bpc != 8 && bpc != 16) {
		return nil, fmt.Errorf("predictor: invalid parameters colors=%d bpc=%d columns=%d", colors, bpc, columns)
	}

	bpp := max(1, colors*bpc/8) // bytes per pixel, at least one
	rowLen := (columns*colors*bpc + 7) / 8

	switch {
	case predictor == 2:
		if bpc != 8 {
			return nil, fmt.Errorf("predictor 2: %d bits per component not supported", bpc)
		}
		return tiffPredictor(data, rowLen, colors), nil
	case predictor >= 10 && predictor <= 15:
		return pngPredictor(data, rowLen, bpp)
	}
	return nil, fmt.Errorf("unsupported predictor %d", predictor)
}

func tiffPredictor(data []byte, rowLen, colors int) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	for start := 0; start < len(out); start += rowLen {
		end := min(start+rowLen, len(out))
		for i := start + colors; i < end; i++ {
			out[i] += out[i-colors]
		}
	}
	return out
}

func pngPredictor(data []byte, rowLen, bpp int) ([]byte, error) {
	stride := rowLen + 1
	rows := len(data) / stride
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)

	for r := 0; r < rows; r++ {
		in := data[r*stride : (r+1)*stride]
		cur := out[r*rowLen : (r+1)*rowLen]
		copy(cur, in[1:])

		switch in[0] {
		case 0:
		case 1:
			for i := bpp; i < rowLen; i++ {
				cur[i] += cur[i-bpp]
			}
		case 2:
			for i := range cur {
				cur[i] += prev[i]
			}
		case 3:
			for i := range cur {
				var left byte
				if i >= bpp {
					left = cur[i-bpp]
				}
				cur[i] += byte((int(left) + int(prev[i])) / 2)
			}
		case 4:
			for i := range cur {
				var left, upLeft byte
				if i >= bpp {
					left, upLeft = cur[i-bpp], prev[i-bpp]
				}
				cur[i] += paeth(left, prev[i], upLeft)
			}
		default:
			return nil, fmt.Errorf("row %d: unknown PNG filter type %d", r, in[0])
		}
		prev = cur
	}
	return out, nil
}

// paeth picks whichever of left, up and upper-left is closest to
// left + up - upLeft.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
