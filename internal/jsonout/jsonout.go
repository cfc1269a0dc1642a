// Package jsonout serializes records in the layout of Python's json.dumps
// with default arguments: one line, ", " between items, ": " after keys, and
// only ASCII characters in the output.
package jsonout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf16"
)

const hex = "0123456789abcdef"

// Marshal encodes v with encoding/json and re-emits the token stream in the
// fixture layout. Object keys keep the order encoding/json produced, which
// is struct field order for structs and source order for json.RawMessage.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return Reformat(raw)
}

type frame struct {
	object bool
	n      int
}

// Reformat rewrites a JSON document into the fixture layout. Numbers are
// printed the way Python prints the value it parsed: 1.50 becomes 1.5 and
// 1E2 becomes 100.0. A literal without fraction or exponent is an integer,
// so a whole float64 that encoding/json wrote as 2 stays 2.
func Reformat(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var (
		buf   bytes.Buffer
		stack []frame
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reformat record: %w", err)
		}

		if d, ok := tok.(json.Delim); ok && (d == '}' || d == ']') {
			buf.WriteByte(byte(d))
			stack = stack[:len(stack)-1]
			continue
		}

		if len(stack) > 0 {
			top := &stack[len(stack)-1]
			switch {
			case top.object && top.n%2 == 1:
				buf.WriteString(": ")
			case top.n > 0:
				buf.WriteString(", ")
			}
			top.n++
		}

		switch t := tok.(type) {
		case json.Delim:
			buf.WriteByte(byte(t))
			stack = append(stack, frame{object: t == '{'})
		case string:
			writeString(&buf, t)
		case json.Number:
			if err := writeNumber(&buf, t); err != nil {
				return nil, fmt.Errorf("reformat record: %w", err)
			}
		case bool:
			buf.WriteString(strconv.FormatBool(t))
		case nil:
			buf.WriteString("null")
		default:
			return nil, fmt.Errorf("reformat record: unexpected token %T", tok)
		}
	}

	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r >= 0x20 && r <= 0x7e:
			buf.WriteByte(byte(r))
		case r > 0xffff:
			r1, r2 := utf16.EncodeRune(r)
			writeEscape(buf, r1)
			writeEscape(buf, r2)
		default:
			writeEscape(buf, r)
		}
	}
	buf.WriteByte('"')
}

func writeEscape(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hex[r>>12&0xf])
	buf.WriteByte(hex[r>>8&0xf])
	buf.WriteByte(hex[r>>4&0xf])
	buf.WriteByte(hex[r&0xf])
}

// writeNumber prints an integer literal in canonical base 10 and any other
// number like Python's float repr.
func writeNumber(buf *bytes.Buffer, n json.Number) error {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return fmt.Errorf("invalid number %q", s)
		}
		buf.WriteString(i.String())
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	buf.WriteString(formatFloat(f))
	return nil
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}

	fixed := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(fixed, ".") {
		fixed += ".0"
	}
	return fixed
}
