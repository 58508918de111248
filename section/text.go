package section

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var utf16BOM = []byte{0xFE, 0xFF}

// DecodeText turns the raw bytes of a text-showing operator into a readable
// string. Strings starting with a UTF-16BE byte order mark are decoded as
// UTF-16; everything else is read as WinAnsi (Windows-1252), which is what
// simple fonts without a custom encoding use. Font encodings and ToUnicode
// maps are not consulted, so the result is for display only.
func DecodeText(raw []byte) string {
	if bytes.HasPrefix(raw, utf16BOM) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if out, err := dec.Bytes(raw); err == nil {
			return string(out)
		}
	}

	if isASCII(raw) {
		return string(raw)
	}

	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(bytes.ToValidUTF8(raw, []byte("�")))
	}
	return string(out)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
