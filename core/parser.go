package core

import (
	"bytes"
	"fmt"
)

// ReferenceResolver resolves indirect references. The parser needs one for
// streams whose /Length is itself an indirect object.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser reads indirect objects out of a PDF file body.
type Parser struct {
	scanner  *Scanner
	resolver ReferenceResolver
}

// NewParser creates a parser over the whole file.
func NewParser(data []byte) *Parser {
	return &Parser{scanner: NewScanner(data)}
}

// SetReferenceResolver sets the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// ParseIndirectObjectAt parses "num gen obj ... endobj" starting at offset.
// A missing endobj is tolerated.
func (p *Parser) ParseIndirectObjectAt(offset int64) (*IndirectObject, error) {
	if offset < 0 || offset >= int64(len(p.scanner.data)) {
		return nil, fmt.Errorf("offset %d outside file of %d bytes", offset, len(p.scanner.data))
	}
	s := p.scanner
	s.Seek(int(offset))

	num, err := s.ReadUint()
	if err != nil {
		return nil, fmt.Errorf("object number: %w", err)
	}
	gen, err := s.ReadUint()
	if err != nil {
		return nil, fmt.Errorf("generation: %w", err)
	}
	if err := s.ExpectKeyword("obj"); err != nil {
		return nil, err
	}

	obj, err := s.ReadObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
	}

	if dict, ok := obj.(Dict); ok {
		s.SkipSpace()
		mark := s.Pos()
		if s.ReadKeyword() == "stream" {
			stream, err := p.readStreamBody(dict)
			if err != nil {
				return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
			}
			obj = stream
		} else {
			s.Seek(mark)
		}
	}

	_ = s.ExpectKeyword("endobj")

	return &IndirectObject{
		Ref:    IndirectRef{Number: int(num), Generation: int(gen)},
		Object: obj,
	}, nil
}

// readStreamBody reads the data after the stream keyword. A /Length that is
// missing or wrong falls back to searching for endstream.
func (p *Parser) readStreamBody(dict Dict) (*Stream, error) {
	s := p.scanner
	data := s.data

	start := s.Pos()
	if start < len(data) && data[start] == '\r' {
		start++
	}
	if start < len(data) && data[start] == '\n' {
		start++
	}

	if length, ok := p.streamLength(dict); ok && length >= 0 && start+length <= len(data) {
		end := start + length
		s.Seek(end)
		if s.ExpectKeyword("endstream") == nil {
			return &Stream{Dict: dict, Data: data[start:end:end]}, nil
		}
	}

	idx := bytes.Index(data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("stream at offset %d has no endstream", start)
	}
	end := start + idx
	s.Seek(end + len("endstream"))
	if end > start && data[end-1] == '\n' {
		end--
	}
	if end > start && data[end-1] == '\r' {
		end--
	}
	return &Stream{Dict: dict, Data: data[start:end:end]}, nil
}

func (p *Parser) streamLength(dict Dict) (int, bool) {
	switch v := dict.Get("Length").(type) {
	case Int:
		return int(v), true
	case IndirectRef:
		if p.resolver == nil {
			return 0, false
		}
		obj, err := p.resolver.ResolveReference(v)
		if err != nil {
			return 0, false
		}
		n, ok := obj.(Int)
		return int(n), ok
	}
	return 0, false
}
