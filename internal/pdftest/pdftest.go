// Package pdftest builds small PDF files in memory for tests.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"sort"
)

// Builder assembles numbered objects into a file with a classic
// cross-reference table.
type Builder struct {
	version    string
	objects    map[int][]byte
	compressed map[int]bool
}

// New creates a builder for a PDF 1.7 file.
func New() *Builder {
	return &Builder{version: "1.7", objects: make(map[int][]byte), compressed: make(map[int]bool)}
}

// Version sets the header version, such as "1.4".
func (b *Builder) Version(v string) *Builder {
	b.version = v
	return b
}

// Object adds an object; body is the text between "obj" and "endobj".
func (b *Builder) Object(num int, body string) *Builder {
	b.objects[num] = []byte(body)
	return b
}

// Stream adds a stream object. dict holds the dictionary entries without
// the brackets; /Length is added.
func (b *Builder) Stream(num int, dict string, data []byte) *Builder {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< %s /Length %d >>\nstream\n", dict, len(data))
	buf.Write(data)
	buf.WriteString("\nendstream")
	b.objects[num] = buf.Bytes()
	return b
}

// Compress marks objects to be stored in an object stream by
// BytesXRefStream. Streams cannot be compressed.
func (b *Builder) Compress(nums ...int) *Builder {
	for _, n := range nums {
		b.compressed[n] = true
	}
	return b
}

func (b *Builder) sorted() []int {
	nums := make([]int, 0, len(b.objects))
	for n := range b.objects {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Bytes writes the file. trailer holds the trailer entries other than
// /Size, for example "/Root 1 0 R".
func (b *Builder) Bytes(trailer string) []byte {
	nums := b.sorted()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", b.version)
	offsets := make(map[int]int, len(nums))
	for _, n := range nums {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", n)
		buf.Write(b.objects[n])
		buf.WriteString("\nendobj\n")
	}

	size := 1
	if len(nums) > 0 {
		size = nums[len(nums)-1] + 1
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	for n := 0; n < size; n++ {
		if off, ok := offsets[n]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", size, trailer, xref)
	return buf.Bytes()
}

// BytesXRefStream writes the file with a cross-reference stream. Objects
// marked with Compress go into one object stream. The object stream and the
// cross-reference stream take the two numbers after the highest object.
func (b *Builder) BytesXRefStream(trailer string) []byte {
	nums := b.sorted()
	last := 0
	if len(nums) > 0 {
		last = nums[len(nums)-1]
	}
	stmNum, xrefNum := last+1, last+2

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", b.version)

	type location struct{ kind, f2, f3 int }
	locs := make(map[int]location)

	var header, body bytes.Buffer
	index := 0
	for _, n := range nums {
		if !b.compressed[n] {
			locs[n] = location{1, buf.Len(), 0}
			fmt.Fprintf(&buf, "%d 0 obj\n", n)
			buf.Write(b.objects[n])
			buf.WriteString("\nendobj\n")
			continue
		}
		fmt.Fprintf(&header, "%d %d ", n, body.Len())
		body.Write(b.objects[n])
		body.WriteByte(' ')
		locs[n] = location{2, stmNum, index}
		index++
	}

	if index > 0 {
		data := Deflate(append(header.Bytes(), body.Bytes()...))
		locs[stmNum] = location{1, buf.Len(), 0}
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /ObjStm /N %d /First %d /Filter /FlateDecode /Length %d >>\nstream\n",
			stmNum, index, header.Len(), len(data))
		buf.Write(data)
		buf.WriteString("\nendstream\nendobj\n")
	}

	xref := buf.Len()
	locs[xrefNum] = location{1, xref, 0}
	var rows []byte
	for n := 0; n <= xrefNum; n++ {
		l, ok := locs[n]
		if !ok {
			l = location{0, 0, 65535}
		}
		rows = append(rows, byte(l.kind),
			byte(l.f2>>24), byte(l.f2>>16), byte(l.f2>>8), byte(l.f2),
			byte(l.f3>>8), byte(l.f3))
	}
	data := Deflate(rows)
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 2] %s /Filter /FlateDecode /Length %d >>\nstream\n",
		xrefNum, xrefNum+1, trailer, len(data))
	buf.Write(data)
	fmt.Fprintf(&buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

// Deflate compresses data with zlib for /FlateDecode streams.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// Object numbers used by Document.
const (
	CatalogObj = 1
	PagesObj   = 2
	FontObj    = 3
	ImageObj   = 4
	FirstPage  = 10
)

// Document builds a file with one page per content stream. Pages are
// objects FirstPage+2i with their contents at FirstPage+2i+1, compressed
// with Flate. Resources live on the page tree root and are inherited: font
// /F1 is object FontObj and image /Im1 is object ImageObj, a 2x2 gray image.
func Document(contents ...string) []byte {
	b := New()
	kids := new(bytes.Buffer)
	for i, content := range contents {
		page := FirstPage + 2*i
		fmt.Fprintf(kids, " %d 0 R", page)
		b.Object(page, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /Contents %d 0 R >>", PagesObj, page+1))
		b.Stream(page+1, "/Filter /FlateDecode", Deflate([]byte(content)))
	}
	b.Object(CatalogObj, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", PagesObj))
	b.Object(PagesObj, fmt.Sprintf(
		"<< /Type /Pages /Kids [%s ] /Count %d /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> /XObject << /Im1 %d 0 R >> >> >>",
		kids.String(), len(contents), FontObj, ImageObj))
	b.Object(FontObj, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	b.Stream(ImageObj, "/Type /XObject /Subtype /Image /Width 2 /Height 2 /ColorSpace /DeviceGray /BitsPerComponent 8",
		[]byte{0x00, 0xFF, 0xFF, 0x00})
	return b.Bytes(fmt.Sprintf("/Root %d 0 R", CatalogObj))
}
