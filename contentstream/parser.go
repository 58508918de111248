package contentstream

import (
	"fmt"

	"github.com/tsawler/pagesect/core"
)

// Operation is a single content stream instruction: an operator and the
// operands that precede it. Inline images are collapsed into one "BI"
// operation whose only operand is the image dictionary and whose Data holds
// the raw bytes between ID and EI.
//
// An Operation with an empty Operator is raw: Data holds stream bytes that
// could not be tokenized and Encode writes them back unchanged.
type Operation struct {
	Operator string        // The operator (e.g., "Tj", "Tm", "q")
	Operands []core.Object // The operands
	Data     []byte        // Inline image data for "BI", stream bytes for raw
}

// IsRaw reports whether the operation holds untokenized bytes.
func (op Operation) IsRaw() bool {
	return op.Operator == ""
}

// Parser tokenizes PDF content streams into a sequence of operations.
// Operands are read by core.Scanner with indirect references disabled.
// A Parser is single-use and not safe for concurrent use.
type Parser struct {
	scanner  *core.Scanner
	ops      []Operation
	operands []core.Object
	mark     int // end of the last complete operation
}

// NewParser creates a new content stream parser for the given data.
func NewParser(data []byte) *Parser {
	return &Parser{
		scanner: core.NewScanner(data, core.WithoutRefs()),
		ops:     make([]Operation, 0),
	}
}

// Parse is shorthand for NewParser(data).Parse().
func Parse(data []byte) ([]Operation, error) {
	return NewParser(data).Parse()
}

// ParseLenient parses like Parse but does not give up on a malformed token.
// The operations before it are returned, followed by one raw Operation
// holding everything after the last complete operation, so encoding the
// result still reproduces the whole stream. The error describes the
// malformed token; the operations are usable either way.
func ParseLenient(data []byte) ([]Operation, error) {
	p := NewParser(data)
	if err := p.run(); err != nil {
		tail := make([]byte, len(data)-p.mark)
		copy(tail, data[p.mark:])
		return append(p.ops, Operation{Data: tail}), err
	}
	return p.ops, nil
}

// Parse parses the content stream and returns all operations in order.
// Operands left over at the end of the stream without an operator are
// dropped, as a PDF consumer would.
func (p *Parser) Parse() ([]Operation, error) {
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.ops, nil
}

func (p *Parser) run() error {
	s := p.scanner
	for {
		s.SkipSpace()
		if s.EOF() {
			return nil
		}
		if err := p.parseNext(); err != nil {
			return err
		}
		if len(p.operands) == 0 {
			p.mark = s.Pos()
		}
	}
}

// parseNext parses the next token, which is either an operand (pushed onto the
// stack) or an operator (which consumes the operand stack and creates an Operation).
func (p *Parser) parseNext() error {
	s := p.scanner
	start := s.Pos()
	c, _ := s.Peek()

	if isOperatorStart(c) {
		keyword := s.ReadKeyword()
		if obj, ok := core.KeywordObject(keyword); ok {
			p.operands = append(p.operands, obj)
			return nil
		}
		if keyword == "BI" {
			return p.parseInlineImage(start)
		}
		p.emit(keyword)
		return nil
	}

	operand, err := s.ReadObject()
	if err != nil {
		return fmt.Errorf("operand at position %d: %w", start, err)
	}
	p.operands = append(p.operands, operand)
	return nil
}

// emit creates an operation with the current operand stack, then clears the stack.
func (p *Parser) emit(operator string) {
	operation := Operation{
		Operator: operator,
		Operands: make([]core.Object, len(p.operands)),
	}
	copy(operation.Operands, p.operands)

	p.ops = append(p.ops, operation)
	p.operands = p.operands[:0]
}

// parseInlineImage reads "BI <key value>... ID <data> EI". The BI keyword has
// already been consumed.
func (p *Parser) parseInlineImage(start int) error {
	s := p.scanner
	dict := make(core.Dict)

	for {
		s.SkipSpace()
		c, ok := s.Peek()
		if !ok {
			return fmt.Errorf("at position %d: inline image without ID", start)
		}

		if c != '/' {
			at := s.Pos()
			keyword := s.ReadKeyword()
			if keyword == "ID" {
				break
			}
			return fmt.Errorf("at position %d: unexpected %q in inline image dictionary", at, keyword)
		}

		key := s.ReadName()
		value, err := s.ReadObject()
		if err != nil {
			return fmt.Errorf("inline image /%s: %w", key, err)
		}
		dict[string(key)] = value
	}

	// A single whitespace character separates ID from the data.
	data := s.Data()
	pos := s.Pos()
	if pos < len(data) && core.IsWhitespace(data[pos]) {
		pos++
	}
	dataStart := pos

	end := findInlineImageEnd(data, dataStart)
	if end < 0 {
		return fmt.Errorf("at position %d: inline image without EI", start)
	}

	dataEnd := max(end-1, dataStart)
	imageData := make([]byte, dataEnd-dataStart)
	copy(imageData, data[dataStart:dataEnd])

	p.operands = append(p.operands, dict)
	p.emit("BI")
	p.ops[len(p.ops)-1].Data = imageData
	s.Seek(end + 2)

	return nil
}

// findInlineImageEnd returns the index of the "EI" that closes inline image
// data starting at from, or -1. EI must be preceded by whitespace and followed
// by whitespace, a delimiter or the end of the stream.
func findInlineImageEnd(data []byte, from int) int {
	for i := from; i+1 < len(data); i++ {
		if data[i] != 'E' || data[i+1] != 'I' {
			continue
		}
		if i == 0 || !core.IsWhitespace(data[i-1]) {
			continue
		}
		if i+2 < len(data) && core.IsRegular(data[i+2]) {
			continue
		}
		return i
	}
	return -1
}

// isOperatorStart reports whether c can begin an operator or keyword.
func isOperatorStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '\'' || c == '"'
}
