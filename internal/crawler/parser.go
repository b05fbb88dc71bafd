package crawler

import (
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// hrefPattern matches href="..." and href='...' attribute values.
// Empty values are not links and are not matched.
var hrefPattern = regexp.MustCompile(`href\s*=\s*(?:"([^"]+)"|'([^']+)')`)

// uriReserved are the characters decodeURI leaves percent-encoded, so that
// decoding never changes how a URL splits into components.
const uriReserved = ";/?:@&=+$,#"

// ExtractLinks yields every href attribute value in document order.
// Character references are unescaped and percent escapes decoded except for
// reserved characters. Values that do not decode cleanly are yielded as
// written. Duplicates are not removed.
//
// This is a text scan, not an HTML parse: hrefs inside comments or scripts
// are reported too.
func ExtractLinks(doc string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, m := range hrefPattern.FindAllStringSubmatch(doc, -1) {
			raw := m[1]
			if raw == "" {
				raw = m[2]
			}
			href := html.UnescapeString(raw)
			if decoded, ok := decodeURI(href); ok {
				href = decoded
			}
			if !yield(href) {
				return
			}
		}
	}
}

// decodeURI decodes percent escapes that form valid UTF-8, keeping reserved
// characters escaped. It reports false for malformed input.
func decodeURI(s string) (string, bool) {
	if !strings.Contains(s, "%") {
		return s, true
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] != '%' {
			b.WriteByte(s[i])
			i++
			continue
		}

		lead, ok := unhexAt(s, i)
		if !ok {
			return s, false
		}

		if lead < utf8.RuneSelf {
			if strings.IndexByte(uriReserved, lead) >= 0 {
				b.WriteString(s[i : i+3])
			} else {
				b.WriteByte(lead)
			}
			i += 3
			continue
		}

		n := utf8SequenceLength(lead)
		if n == 0 {
			return s, false
		}
		seq := make([]byte, 0, n)
		seq = append(seq, lead)
		for k := 1; k < n; k++ {
			cont, ok := unhexAt(s, i+3*k)
			if !ok || cont&0xC0 != 0x80 {
				return s, false
			}
			seq = append(seq, cont)
		}
		if !utf8.Valid(seq) {
			return s, false
		}
		b.Write(seq)
		i += 3 * n
	}

	return b.String(), true
}

// unhexAt decodes the "%XX" escape starting at s[i].
func unhexAt(s string, i int) (byte, bool) {
	if i+2 >= len(s) || s[i] != '%' {
		return 0, false
	}
	hi, ok1 := unhex(s[i+1])
	lo, ok2 := unhex(s[i+2])
	if !ok1 || !ok2 {
		return 0, false
	}
	return hi<<4 | lo, true
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// utf8SequenceLength returns the encoded length implied by a UTF-8 leading
// byte, or 0 if b cannot start a multi-byte sequence.
func utf8SequenceLength(b byte) int {
	switch {
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	}
	return 0
}
