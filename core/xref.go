package core

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// ErrNoXRef is returned when a file has no usable cross-reference data.
var ErrNoXRef = errors.New("no cross-reference data")

// EntryKind is the type of a cross-reference entry.
type EntryKind int

const (
	EntryFree       EntryKind = iota
	EntryInUse                // stored at Offset in the file body
	EntryCompressed           // stored inside an object stream
)

// XRefEntry locates one object.
type XRefEntry struct {
	Kind       EntryKind
	Offset     int64 // byte offset, EntryInUse only
	Generation int
	Stream     int // object number of the containing object stream, EntryCompressed only
	Index      int // index within that object stream, EntryCompressed only
}

// XRefTable maps object numbers to their locations. After ReadXRef it holds
// the merged view of every incremental update, newest first.
type XRefTable struct {
	Entries map[int]*XRefEntry
	Trailer Dict
}

// NewXRefTable creates an empty table.
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get returns the entry for an object number.
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or replaces an entry.
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries.
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// mergeOlder adds the entries and trailer keys of an older section that this
// table does not already define.
func (x *XRefTable) mergeOlder(older *XRefTable) {
	for num, e := range older.Entries {
		if _, ok := x.Entries[num]; !ok {
			x.Entries[num] = e
		}
	}
	for k, v := range older.Trailer {
		if _, ok := x.Trailer[k]; !ok {
			x.Trailer[k] = v
		}
	}
}

// FindStartXRef returns the offset recorded after the last startxref
// keyword.
func FindStartXRef(data []byte) (int64, error) {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref: %w", ErrNoXRef)
	}
	s := NewScanner(data)
	s.Seek(idx + len("startxref"))
	offset, err := s.ReadUint()
	if err != nil {
		return 0, fmt.Errorf("startxref offset: %w", err)
	}
	if offset >= int64(len(data)) {
		return 0, fmt.Errorf("startxref offset %d beyond end of file", offset)
	}
	return offset, nil
}

// ReadXRef reads the cross-reference data of a whole file: classic tables,
// cross-reference streams and hybrid files, following /Prev through every
// incremental update.
func ReadXRef(data []byte) (*XRefTable, error) {
	offset, err := FindStartXRef(data)
	if err != nil {
		return nil, err
	}

	table := NewXRefTable()
	seen := make(map[int64]bool)
	for {
		if seen[offset] {
			break
		}
		seen[offset] = true

		section, err := readXRefSection(data, offset)
		if err != nil {
			return nil, fmt.Errorf("xref at offset %d: %w", offset, err)
		}
		table.mergeOlder(section)

		// Hybrid files keep compressed entries in a separate stream.
		if stm, ok := section.Trailer.GetInt("XRefStm"); ok && !seen[int64(stm)] {
			seen[int64(stm)] = true
			if extra, err := readXRefSection(data, int64(stm)); err == nil {
				table.mergeOlder(extra)
			}
		}

		prev, ok := section.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}

	delete(table.Trailer, "Prev")
	delete(table.Trailer, "XRefStm")
	return table, nil
}

func readXRefSection(data []byte, offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(data)) {
		return nil, fmt.Errorf("offset outside file")
	}

	s := NewScanner(data)
	s.Seek(int(offset))
	s.SkipSpace()
	if s.ExpectKeyword("xref") == nil {
		return readXRefTable(s)
	}

	obj, err := NewParser(data).ParseIndirectObjectAt(offset)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("expected xref table or stream, got %s", obj.Object.Type())
	}
	return readXRefStream(stream)
}

// readXRefTable reads the subsections and trailer of a classic table. The
// xref keyword has been consumed.
func readXRefTable(s *Scanner) (*XRefTable, error) {
	table := NewXRefTable()
	for {
		if s.ExpectKeyword("trailer") == nil {
			obj, err := s.ReadObject()
			if err != nil {
				return nil, fmt.Errorf("trailer: %w", err)
			}
			trailer, ok := obj.(Dict)
			if !ok {
				return nil, fmt.Errorf("trailer is %s, not a dictionary", obj.Type())
			}
			table.Trailer = trailer
			return table, nil
		}

		first, err := s.ReadUint()
		if err != nil {
			return nil, fmt.Errorf("subsection start: %w", err)
		}
		count, err := s.ReadUint()
		if err != nil {
			return nil, fmt.Errorf("subsection count: %w", err)
		}

		for i := int64(0); i < count; i++ {
			offset, err := s.ReadUint()
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", first+i, err)
			}
			gen, err := s.ReadUint()
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", first+i, err)
			}
			s.SkipSpace()
			entry := &XRefEntry{Offset: offset, Generation: int(gen)}
			switch kw := s.ReadKeyword(); kw {
			case "n":
				entry.Kind = EntryInUse
			case "f":
				entry.Kind = EntryFree
			default:
				return nil, fmt.Errorf("entry %d: invalid type %q", first+i, kw)
			}
			if _, dup := table.Entries[int(first+i)]; !dup {
				table.Set(int(first+i), entry)
			}
		}
	}
}

// readXRefStream decodes a /Type /XRef stream.
func readXRefStream(stream *Stream) (*XRefTable, error) {
	if t, _ := stream.Dict.GetName("Type"); t != "XRef" {
		return nil, fmt.Errorf("stream type is %q, not XRef", t)
	}

	wArr, ok := stream.Dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return nil, fmt.Errorf("invalid /W")
	}
	var w [3]int
	for i, v := range wArr {
		n, ok := v.(Int)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("invalid /W entry %v", v)
		}
		w[i] = int(n)
	}
	rowLen := w[0] + w[1] + w[2]
	if rowLen == 0 {
		return nil, fmt.Errorf("empty /W")
	}

	size, _ := stream.Dict.GetInt("Size")
	index := []int64{0, int64(size)}
	if arr, ok := stream.Dict.GetArray("Index"); ok {
		index = index[:0]
		for _, v := range arr {
			n, ok := v.(Int)
			if !ok {
				return nil, fmt.Errorf("invalid /Index entry %v", v)
			}
			index = append(index, int64(n))
		}
		if len(index)%2 != 0 {
			return nil, fmt.Errorf("odd /Index length %d", len(index))
		}
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	table := NewXRefTable()
	table.Trailer = stream.Dict
	pos := 0
	for i := 0; i < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := int64(0); j < count; j++ {
			if pos+rowLen > len(data) {
				return table, nil
			}
			row := data[pos : pos+rowLen]
			pos += rowLen

			kind := readField(row[:w[0]], 1)
			f2 := readField(row[w[0]:w[0]+w[1]], 0)
			f3 := readField(row[w[0]+w[1]:], 0)

			var entry *XRefEntry
			switch kind {
			case 0:
				entry = &XRefEntry{Kind: EntryFree, Generation: int(f3)}
			case 1:
				entry = &XRefEntry{Kind: EntryInUse, Offset: f2, Generation: int(f3)}
			case 2:
				entry = &XRefEntry{Kind: EntryCompressed, Stream: int(f2), Index: int(f3)}
			default:
				// Unknown types are references to the null object.
				continue
			}
			if _, dup := table.Entries[int(first+j)]; !dup {
				table.Set(int(first+j), entry)
			}
		}
	}
	return table, nil
}

// readField decodes a big-endian field; an absent field takes its default.
func readField(b []byte, def int64) int64 {
	if len(b) == 0 {
		return def
	}
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

var objHeader = regexp.MustCompile(`(\d+)[\x00\t\n\f\r ]+(\d+)[\x00\t\n\f\r ]+obj\b`)

// RepairXRef rebuilds a table by scanning the file for object headers. It
// is the fallback for files whose cross-reference data is missing or
// damaged. Later definitions win, as in an incremental update.
func RepairXRef(data []byte) (*XRefTable, error) {
	table := NewXRefTable()
	for _, m := range objHeader.FindAllSubmatchIndex(data, -1) {
		if m[0] > 0 && IsRegular(data[m[0]-1]) {
			continue
		}
		num, err1 := strconv.Atoi(string(data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(data[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			continue
		}
		table.Set(num, &XRefEntry{Kind: EntryInUse, Offset: int64(m[0]), Generation: gen})
	}
	if table.Size() == 0 {
		return nil, fmt.Errorf("repair: %w", ErrNoXRef)
	}

	if idx := bytes.LastIndex(data, []byte("trailer")); idx >= 0 {
		s := NewScanner(data)
		s.Seek(idx + len("trailer"))
		if obj, err := s.ReadObject(); err == nil {
			if trailer, ok := obj.(Dict); ok {
				table.Trailer = trailer
			}
		}
	}
	if _, ok := table.Trailer["Root"]; !ok {
		if root, ok := findCatalog(data, table); ok {
			table.Trailer["Root"] = root
		}
	}
	return table, nil
}

// findCatalog returns the last object whose /Type is /Catalog.
func findCatalog(data []byte, table *XRefTable) (IndirectRef, bool) {
	nums := make([]int, 0, table.Size())
	for n := range table.Entries {
		nums = append(nums, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(nums)))

	p := NewParser(data)
	for _, n := range nums {
		e := table.Entries[n]
		obj, err := p.ParseIndirectObjectAt(e.Offset)
		if err != nil {
			continue
		}
		if d, ok := obj.Object.(Dict); ok {
			if t, _ := d.GetName("Type"); t == "Catalog" {
				return IndirectRef{Number: n, Generation: e.Generation}, true
			}
		}
	}
	return IndirectRef{}, false
}
