// SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type writer struct {
	b      strings.Builder
	unit   string
	depth  int
	frames []frame
}

// frame counts the statements written into one open block.
type frame struct {
	emitted int
	levels  int
}

func newWriter(unit string) *writer {
	return &writer{unit: unit, frames: []frame{{}}}
}

func (w *writer) line(s string) {
	if s == "" {
		w.b.WriteByte('\n')
		return
	}
	w.b.WriteString(strings.Repeat(w.unit, w.depth))
	w.b.WriteString(s)
	w.b.WriteByte('\n')
	w.frames[len(w.frames)-1].emitted++
}

func (w *writer) lines(ls []string) {
	for _, l := range ls {
		w.line(l)
	}
}

// open writes the opening lines of a block and indents what follows by
// levels.
func (w *writer) open(ls []string, levels int) {
	w.lines(ls)
	w.depth += levels
	w.frames = append(w.frames, frame{levels: levels})
}

// close dedents and writes the closing lines. An empty block body gets the
// empty lines first, for languages that need a statement there.
func (w *writer) close(ls []string, empty []string) {
	top := w.frames[len(w.frames)-1]
	if top.emitted == 0 {
		w.lines(empty)
	}
	w.frames = w.frames[:len(w.frames)-1]
	w.depth -= top.levels
	w.lines(ls)
}

func (w *writer) String() string { return w.b.String() }

// quote renders s as a string literal that is valid in JavaScript, Java and
// Python with the given quote character.
func quote(s string, q rune) string {
	var b strings.Builder
	b.WriteRune(q)
	for _, r := range s {
		switch {
		case r == q || r == '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x2028 || r == 0x2029:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(q)
	return b.String()
}

// words splits s on punctuation, spaces and camel-case boundaries.
func words(s string) []string {
	var out []string
	for _, field := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		rs := []rune(field)
		start := 0
		for i := 1; i < len(rs); i++ {
			lowerToUpper := unicode.IsUpper(rs[i]) && !unicode.IsUpper(rs[i-1])
			acronymEnd := unicode.IsUpper(rs[i]) && unicode.IsUpper(rs[i-1]) &&
				i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if lowerToUpper || acronymEnd {
				out = append(out, string(rs[start:i]))
				start = i
			}
		}
		out = append(out, string(rs[start:]))
	}
	return out
}

func camel(s string) string {
	var b strings.Builder
	for i, w := range words(s) {
		w = strings.ToLower(w)
		if i > 0 {
			w = upperFirst(w)
		}
		b.WriteString(w)
	}
	return leadingLetter(b.String(), "step")
}

func pascal(s string) string { return upperFirst(camel(s)) }

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func snake(s string) string {
	ws := words(s)
	for i := range ws {
		ws[i] = strings.ToLower(ws[i])
	}
	return leadingLetter(strings.Join(ws, "_"), "step")
}

func kebab(s string) string {
	ws := words(s)
	for i := range ws {
		ws[i] = strings.ToLower(ws[i])
	}
	out := strings.Join(ws, "-")
	if out == "" {
		return "recorded-session"
	}
	return out
}

func upperSnake(s string) string { return strings.ToUpper(snake(s)) }

func leadingLetter(s, fallback string) string {
	if s == "" {
		return fallback
	}
	if r, _ := utf8.DecodeRuneInString(s); !unicode.IsLetter(r) && r != '_' {
		return "_" + s
	}
	return s
}
