package env

import "strings"

// segment is either literal text or the trimmed expression of a {{ }} tag.
type segment struct {
	text  string
	isTag bool
	raw   string
}

// scan splits input into literal and tag segments. Quotes inside a tag may
// contain "}}". An unterminated tag is kept as literal text.
func scan(input string) []segment {
	var out []segment
	for {
		start := strings.Index(input, "{{")
		if start < 0 {
			break
		}
		end := tagEnd(input[start+2:])
		if end < 0 {
			break
		}
		if start > 0 {
			out = append(out, segment{text: input[:start]})
		}
		raw := input[start : start+2+end+2]
		out = append(out, segment{text: strings.TrimSpace(input[start+2 : start+2+end]), isTag: true, raw: raw})
		input = input[start+2+end+2:]
	}
	if input != "" {
		out = append(out, segment{text: input})
	}
	return out
}

// tagEnd returns the offset of the closing "}}" in s, or -1.
func tagEnd(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0 && ch == '\\':
			i++
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
		case quote == 0 && ch == '}' && i+1 < len(s) && s[i+1] == '}':
			return i
		}
	}
	return -1
}

// HasTags reports whether input contains at least one template tag.
func HasTags(input string) bool {
	for _, seg := range scan(input) {
		if seg.isTag {
			return true
		}
	}
	return false
}
