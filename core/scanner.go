package core

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// ErrUnexpectedEOF is returned when data ends inside an object.
var ErrUnexpectedEOF = errors.New("unexpected end of data")

// Scanner reads PDF objects from an in-memory buffer. The same scanner
// serves file bodies, object streams and content streams; only the first two
// contain indirect references.
type Scanner struct {
	data []byte
	pos  int
	refs bool
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithoutRefs makes the scanner read "1 0 R" as three separate tokens, as
// content streams require.
func WithoutRefs() ScannerOption {
	return func(s *Scanner) {
		s.refs = false
	}
}

// NewScanner creates a scanner positioned at the start of data.
func NewScanner(data []byte, opts ...ScannerOption) *Scanner {
	s := &Scanner{data: data, refs: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Data returns the underlying buffer.
func (s *Scanner) Data() []byte { return s.data }

// Pos returns the current offset.
func (s *Scanner) Pos() int { return s.pos }

// Seek moves to an absolute offset, clamped to the buffer.
func (s *Scanner) Seek(pos int) {
	s.pos = max(0, min(pos, len(s.data)))
}

// EOF reports whether the scanner is at the end of the buffer.
func (s *Scanner) EOF() bool { return s.pos >= len(s.data) }

// Peek returns the next byte without consuming it.
func (s *Scanner) Peek() (byte, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	return s.data[s.pos], true
}

// SkipSpace advances past whitespace and comments.
func (s *Scanner) SkipSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case IsWhitespace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		default:
			return
		}
	}
}

// ReadKeyword reads a run of regular characters, such as an operator or
// "obj".
func (s *Scanner) ReadKeyword() string {
	start := s.pos
	for s.pos < len(s.data) && IsRegular(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// ExpectKeyword skips space and consumes keyword, or fails without moving.
func (s *Scanner) ExpectKeyword(keyword string) error {
	s.SkipSpace()
	start := s.pos
	if got := s.ReadKeyword(); got != keyword {
		s.pos = start
		return fmt.Errorf("at offset %d: expected %q, got %q", start, keyword, got)
	}
	return nil
}

// ReadUint skips space and reads an unsigned decimal integer.
func (s *Scanner) ReadUint() (int64, error) {
	s.SkipSpace()
	start := s.pos
	var n int64
	for s.pos < len(s.data) && isDigit(s.data[s.pos]) {
		n = n*10 + int64(s.data[s.pos]-'0')
		s.pos++
	}
	if s.pos == start || (s.pos < len(s.data) && IsRegular(s.data[s.pos])) {
		s.pos = start
		return 0, fmt.Errorf("at offset %d: expected unsigned integer", start)
	}
	return n, nil
}

// ReadObject reads the next object. The keywords true, false and null are
// objects; any other keyword is an error.
func (s *Scanner) ReadObject() (Object, error) {
	s.SkipSpace()
	if s.pos >= len(s.data) {
		return nil, ErrUnexpectedEOF
	}

	start := s.pos
	c := s.data[s.pos]
	switch {
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return s.readNumberOrRef()
	case c == '(':
		return s.readLiteralString()
	case c == '<' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '<':
		return s.readDict()
	case c == '<':
		return s.readHexString()
	case c == '/':
		return s.ReadName(), nil
	case c == '[':
		return s.readArray()
	case IsRegular(c):
		keyword := s.ReadKeyword()
		if obj, ok := KeywordObject(keyword); ok {
			return obj, nil
		}
		return nil, fmt.Errorf("at offset %d: unexpected keyword %q", start, keyword)
	}
	return nil, fmt.Errorf("at offset %d: unexpected character %q", start, c)
}

// KeywordObject maps the object keywords true, false and null.
func KeywordObject(keyword string) (Object, bool) {
	switch keyword {
	case "true":
		return Bool(true), true
	case "false":
		return Bool(false), true
	case "null":
		return Null{}, true
	}
	return nil, false
}

func (s *Scanner) readNumberOrRef() (Object, error) {
	num, err := s.readNumber()
	if err != nil || !s.refs {
		return num, err
	}
	n, ok := num.(Int)
	if !ok || n < 0 {
		return num, nil
	}

	// "num gen R"
	save := s.pos
	s.SkipSpace()
	genStart := s.pos
	for s.pos < len(s.data) && isDigit(s.data[s.pos]) {
		s.pos++
	}
	if s.pos > genStart {
		gen, _ := strconv.Atoi(string(s.data[genStart:s.pos]))
		s.SkipSpace()
		if s.pos < len(s.data) && s.data[s.pos] == 'R' &&
			(s.pos+1 == len(s.data) || !IsRegular(s.data[s.pos+1])) {
			s.pos++
			return IndirectRef{Number: int(n), Generation: gen}, nil
		}
	}
	s.pos = save
	return num, nil
}

func (s *Scanner) readNumber() (Object, error) {
	start := s.pos
	if c := s.data[s.pos]; c == '+' || c == '-' {
		s.pos++
	}
	isReal := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '.' && !isReal {
			isReal = true
		} else if !isDigit(c) {
			break
		}
		s.pos++
	}

	text := string(s.data[start:s.pos])
	switch text {
	case "+", "-", ".", "+.", "-.":
		// Seen in the wild; readers take these as zero.
		return Int(0), nil
	}

	if isReal {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("at offset %d: invalid real %q: %w", start, text, err)
		}
		return Real(v), nil
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("at offset %d: invalid integer %q: %w", start, text, err)
	}
	return Int(v), nil
}

func (s *Scanner) readLiteralString() (Object, error) {
	start := s.pos
	s.pos++ // (

	var buf bytes.Buffer
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '\\':
			if s.pos < len(s.data) {
				s.readEscape(&buf)
			}
		case '(':
			depth++
			buf.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return String(buf.String()), nil
			}
			buf.WriteByte(c)
		default:
			buf.WriteByte(c)
		}
	}
	return nil, fmt.Errorf("at offset %d: unclosed string", start)
}

// readEscape decodes the escape after a backslash.
func (s *Scanner) readEscape(buf *bytes.Buffer) {
	c := s.data[s.pos]
	s.pos++
	switch c {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '\r':
		if s.pos < len(s.data) && s.data[s.pos] == '\n' {
			s.pos++
		}
	case '\n':
		// line continuation
	case '0', '1', '2', '3', '4', '5', '6', '7':
		v := int(c - '0')
		for i := 0; i < 2 && s.pos < len(s.data) && isOctal(s.data[s.pos]); i++ {
			v = v*8 + int(s.data[s.pos]-'0')
			s.pos++
		}
		buf.WriteByte(byte(v))
	default:
		// \( \) \\ and unknown escapes drop the backslash
		buf.WriteByte(c)
	}
}

func (s *Scanner) readHexString() (Object, error) {
	start := s.pos
	s.pos++ // <

	var buf bytes.Buffer
	var hi byte
	half := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch {
		case c == '>':
			if half {
				buf.WriteByte(hi << 4)
			}
			return String(buf.String()), nil
		case IsWhitespace(c):
		case isHex(c):
			if half {
				buf.WriteByte(hi<<4 | hexValue(c))
			} else {
				hi = hexValue(c)
			}
			half = !half
		default:
			return nil, fmt.Errorf("at offset %d: invalid hex digit %q", s.pos-1, c)
		}
	}
	return nil, fmt.Errorf("at offset %d: unclosed hex string", start)
}

// ReadName reads a name starting at the slash, decoding #XX escapes.
func (s *Scanner) ReadName() Name {
	s.pos++ // /

	var buf bytes.Buffer
	for s.pos < len(s.data) && IsRegular(s.data[s.pos]) {
		c := s.data[s.pos]
		if c == '#' && s.pos+2 < len(s.data) && isHex(s.data[s.pos+1]) && isHex(s.data[s.pos+2]) {
			buf.WriteByte(hexValue(s.data[s.pos+1])<<4 | hexValue(s.data[s.pos+2]))
			s.pos += 3
			continue
		}
		buf.WriteByte(c)
		s.pos++
	}
	return Name(buf.String())
}

func (s *Scanner) readArray() (Object, error) {
	start := s.pos
	s.pos++ // [

	arr := Array{}
	for {
		s.SkipSpace()
		if s.pos >= len(s.data) {
			return nil, fmt.Errorf("at offset %d: unclosed array", start)
		}
		if s.data[s.pos] == ']' {
			s.pos++
			return arr, nil
		}
		obj, err := s.ReadObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (s *Scanner) readDict() (Object, error) {
	start := s.pos
	s.pos += 2 // <<

	dict := make(Dict)
	for {
		s.SkipSpace()
		if s.pos >= len(s.data) {
			return nil, fmt.Errorf("at offset %d: unclosed dictionary", start)
		}
		if s.data[s.pos] == '>' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '>' {
			s.pos += 2
			return dict, nil
		}
		if s.data[s.pos] != '/' {
			return nil, fmt.Errorf("at offset %d: dictionary key must be a name", s.pos)
		}
		key := s.ReadName()
		value, err := s.ReadObject()
		if err != nil {
			return nil, fmt.Errorf("key /%s: %w", key, err)
		}
		// A null value is the same as a missing entry.
		if _, isNull := value.(Null); !isNull {
			dict[string(key)] = value
		}
	}
}

// IsWhitespace reports whether c is a PDF whitespace character.
func IsWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}

// IsDelimiter reports whether c is a PDF delimiter character.
func IsDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// IsRegular reports whether c is neither whitespace nor a delimiter.
func IsRegular(c byte) bool {
	return !IsWhitespace(c) && !IsDelimiter(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isOctal(c byte) bool { return c >= '0' && c <= '7' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) byte {
	switch {
	case isDigit(c):
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
