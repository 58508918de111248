package core

import (
	"fmt"
)

// ObjectStream is a decoded /Type /ObjStm stream holding compressed
// objects.
type ObjectStream struct {
	data    []byte
	first   int
	numbers []int // object number per index
	offsets []int // offset per index, relative to first
}

// NewObjectStream decodes an object stream and reads its header.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("object stream is nil")
	}
	if t, _ := stream.Dict.GetName("Type"); t != "ObjStm" {
		return nil, fmt.Errorf("stream type is %q, not ObjStm", t)
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First")
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode object stream: %w", err)
	}
	if int(first) > len(data) {
		return nil, fmt.Errorf("/First %d beyond decoded length %d", first, len(data))
	}

	os := &ObjectStream{
		data:    data,
		first:   int(first),
		numbers: make([]int, 0, n),
		offsets: make([]int, 0, n),
	}

	s := NewScanner(data[:first])
	for i := 0; i < int(n); i++ {
		num, err := s.ReadUint()
		if err != nil {
			return nil, fmt.Errorf("header pair %d: %w", i, err)
		}
		off, err := s.ReadUint()
		if err != nil {
			return nil, fmt.Errorf("header pair %d: %w", i, err)
		}
		os.numbers = append(os.numbers, int(num))
		os.offsets = append(os.offsets, int(off))
	}
	return os, nil
}

// Len returns the number of objects in the stream.
func (os *ObjectStream) Len() int {
	return len(os.numbers)
}

// ObjectAt returns the object number and object stored at index.
func (os *ObjectStream) ObjectAt(index int) (int, Object, error) {
	if index < 0 || index >= len(os.numbers) {
		return 0, nil, fmt.Errorf("index %d out of range [0, %d)", index, len(os.numbers))
	}
	s := NewScanner(os.data)
	s.Seek(os.first + os.offsets[index])
	obj, err := s.ReadObject()
	if err != nil {
		return 0, nil, fmt.Errorf("object %d: %w", os.numbers[index], err)
	}
	return os.numbers[index], obj, nil
}

// Object returns the object with the given number. The hint is the index
// from the cross-reference entry and is checked first.
func (os *ObjectStream) Object(objNum, hint int) (Object, error) {
	if hint >= 0 && hint < len(os.numbers) && os.numbers[hint] == objNum {
		_, obj, err := os.ObjectAt(hint)
		return obj, err
	}
	for i, n := range os.numbers {
		if n == objNum {
			_, obj, err := os.ObjectAt(i)
			return obj, err
		}
	}
	return nil, fmt.Errorf("object %d not in object stream", objNum)
}
