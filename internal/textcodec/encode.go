package textcodec

import (
	"bytes"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	indent   = "    "
	hexDigit = "0123456789abcdef"
)

// encoder writes normalized trees in the layout encoding/json produces with
// SetIndent("", "    ") and SetEscapeHTML(false).
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) value(v any, depth int) {
	switch t := v.(type) {
	case nil:
		e.buf.WriteString("null")
	case bool:
		e.buf.WriteString(strconv.FormatBool(t))
	case int64:
		e.buf.WriteString(strconv.FormatInt(t, 10))
	case uint64:
		e.buf.WriteString(strconv.FormatUint(t, 10))
	case float64:
		e.buf.WriteString(formatReal(t))
	case string:
		e.str(t)
	case []any:
		if len(t) == 0 {
			e.buf.WriteString("[]")
			return
		}
		e.buf.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.newline(depth + 1)
			e.value(el, depth+1)
		}
		e.newline(depth)
		e.buf.WriteByte(']')
	case map[string]any:
		if len(t) == 0 {
			e.buf.WriteString("{}")
			return
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.newline(depth + 1)
			e.str(k)
			e.buf.WriteString(": ")
			e.value(t[k], depth+1)
		}
		e.newline(depth)
		e.buf.WriteByte('}')
	}
}

func (e *encoder) newline(depth int) {
	e.buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		e.buf.WriteString(indent)
	}
}

// str quotes s. Bytes that do not start a valid UTF-8 sequence become
// \udcXX escapes.
func (e *encoder) str(s string) {
	e.buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				e.buf.WriteByte('\\')
				e.buf.WriteByte(c)
			case c == '\n':
				e.buf.WriteString(`\n`)
			case c == '\r':
				e.buf.WriteString(`\r`)
			case c == '\t':
				e.buf.WriteString(`\t`)
			case c == '\b':
				e.buf.WriteString(`\b`)
			case c == '\f':
				e.buf.WriteString(`\f`)
			case c < 0x20:
				e.buf.WriteString(`\u00`)
				e.buf.WriteByte(hexDigit[c>>4])
				e.buf.WriteByte(hexDigit[c&0xf])
			default:
				e.buf.WriteByte(c)
			}
			i++
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			e.buf.WriteString(`\udc`)
			e.buf.WriteByte(hexDigit[c>>4])
			e.buf.WriteByte(hexDigit[c&0xf])
		case r == '\u2028' || r == '\u2029':
			e.buf.WriteString(`\u202`)
			e.buf.WriteByte(hexDigit[r&0xf])
		default:
			e.buf.WriteString(s[i : i+size])
		}
		i += size
	}
	e.buf.WriteByte('"')
}

// formatReal spells f so that it reads back as a real.
func formatReal(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
