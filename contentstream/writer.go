package contentstream

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/tsawler/pagesect/core"
)

// Encode serializes operations back into content stream syntax, one
// operation per line. Parsing the result yields the same operations.
func Encode(ops []Operation) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, ops); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes operations to w.
func Write(w io.Writer, ops []Operation) error {
	bw := bufio.NewWriter(w)
	for i, op := range ops {
		if err := writeOperation(bw, op); err != nil {
			return fmt.Errorf("operation %d (%s): %w", i, op.Operator, err)
		}
	}
	return bw.Flush()
}

func writeOperation(w *bufio.Writer, op Operation) error {
	if op.IsRaw() {
		w.Write(op.Data)
		if n := len(op.Data); n > 0 && !core.IsWhitespace(op.Data[n-1]) {
			w.WriteByte('\n')
		}
		return nil
	}
	if op.Operator == "BI" {
		return writeInlineImage(w, op)
	}
	for _, operand := range op.Operands {
		if err := writeObject(w, operand); err != nil {
			return err
		}
		w.WriteByte(' ')
	}
	w.WriteString(op.Operator)
	w.WriteByte('\n')
	return nil
}

func writeInlineImage(w *bufio.Writer, op Operation) error {
	w.WriteString("BI")
	for _, operand := range op.Operands {
		dict, ok := operand.(core.Dict)
		if !ok {
			return fmt.Errorf("inline image operand must be a dictionary, got %s", operand.Type())
		}
		for _, key := range sortedKeys(dict) {
			w.WriteByte(' ')
			writeName(w, key)
			w.WriteByte(' ')
			if err := writeObject(w, dict[key]); err != nil {
				return err
			}
		}
	}
	w.WriteString(" ID ")
	w.Write(op.Data)
	w.WriteString("\nEI\n")
	return nil
}

// FormatObject returns the content stream syntax for a single operand.
func FormatObject(obj core.Object) (string, error) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	if err := writeObject(bw, obj); err != nil {
		return "", err
	}
	bw.Flush()
	return buf.String(), nil
}

func writeObject(w *bufio.Writer, obj core.Object) error {
	switch v := obj.(type) {
	case nil, core.Null:
		w.WriteString("null")
	case core.Bool:
		w.WriteString(strconv.FormatBool(bool(v)))
	case core.Int:
		w.WriteString(strconv.FormatInt(int64(v), 10))
	case core.Real:
		w.WriteString(formatReal(float64(v)))
	case core.String:
		writeString(w, string(v))
	case core.Name:
		writeName(w, string(v))
	case core.Array:
		w.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				w.WriteByte(' ')
			}
			if err := writeObject(w, elem); err != nil {
				return err
			}
		}
		w.WriteByte(']')
	case core.Dict:
		w.WriteString("<<")
		for _, key := range sortedKeys(v) {
			writeName(w, key)
			w.WriteByte(' ')
			if err := writeObject(w, v[key]); err != nil {
				return err
			}
			w.WriteByte(' ')
		}
		w.WriteString(">>")
	default:
		return fmt.Errorf("%s cannot appear in a content stream", obj.Type())
	}
	return nil
}

// formatReal prints a real without exponent notation, which PDF forbids,
// and always with a decimal point so it reads back as a real.
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if s == "-0" {
		s = "0"
	}
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// writeString writes a literal string, escaping delimiters and
// non-printable bytes.
func writeString(w *bufio.Writer, s string) {
	w.WriteByte('(')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '(', ')', '\\':
			w.WriteByte('\\')
			w.WriteByte(c)
		case '\n':
			w.WriteString(`\n`)
		case '\r':
			w.WriteString(`\r`)
		case '\t':
			w.WriteString(`\t`)
		default:
			if c < 0x20 || c > 0x7e {
				fmt.Fprintf(w, "\\%03o", c)
			} else {
				w.WriteByte(c)
			}
		}
	}
	w.WriteByte(')')
}

// writeName writes a name, #-escaping bytes that are not regular characters.
func writeName(w *bufio.Writer, name string) {
	w.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x21 || c > 0x7e || c == '#' || core.IsDelimiter(c) {
			fmt.Fprintf(w, "#%02X", c)
			continue
		}
		w.WriteByte(c)
	}
}

func sortedKeys(d core.Dict) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
