package denpa

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is a run of source text with its position. Line is 1-based,
// Col is the 0-based rune offset within the line.
type Token struct {
	Text string
	Line int
	Col  int
}

// Len returns the length of the token in runes.
func (t Token) Len() int {
	return utf8.RuneCountInString(t.Text)
}

func (t Token) String() string {
	return t.Text
}

// slice returns the sub-token covering runes [i, j).
func (t Token) slice(i, j int) Token {
	r := []rune(t.Text)
	return Token{Text: string(r[i:j]), Line: t.Line, Col: t.Col + i}
}

// lex splits one source line into tokens. Whitespace separates tokens,
// the operators = :: > / _ are tokens of their own and % starts a comment.
func lex(line string, ln int) []Token {
	var (
		result []Token
		runes  = []rune(line)
		start  = -1
	)
	flush := func(i int) {
		if start >= 0 {
			result = append(result, Token{Text: string(runes[start:i]), Line: ln, Col: start})
			start = -1
		}
	}
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '%':
			flush(i)
			return result
		case unicode.IsSpace(c):
			flush(i)
		case c == '=' || c == '>' || c == '/' || c == '_':
			flush(i)
			result = append(result, Token{Text: string(c), Line: ln, Col: i})
		case c == ':' && i+1 < len(runes) && runes[i+1] == ':':
			flush(i)
			result = append(result, Token{Text: "::", Line: ln, Col: i})
			i++
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(runes))
	return result
}

// fields splits one source line on whitespace only, stopping at a % comment.
// Import paths are read this way so that / and _ stay part of a path.
func fields(line string, ln int) []Token {
	var (
		result []Token
		runes  = []rune(line)
		start  = -1
	)
	for i := 0; i <= len(runes); i++ {
		if i < len(runes) && runes[i] != '%' && !unicode.IsSpace(runes[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			result = append(result, Token{Text: string(runes[start:i]), Line: ln, Col: start})
			start = -1
		}
		if i < len(runes) && runes[i] == '%' {
			break
		}
	}
	return result
}

// partition splits tokens around the first occurrence of sep.
// ok is false and tail is empty when sep does not occur.
func partition(tokens []Token, sep string) (head []Token, op Token, tail []Token, ok bool) {
	for i, t := range tokens {
		if t.Text == sep {
			return tokens[:i], t, tokens[i+1:], true
		}
	}
	return tokens, Token{}, nil, false
}

// split cuts tokens at every occurrence of sep, keeping empty groups.
func split(tokens []Token, sep string) [][]Token {
	groups := [][]Token{}
	for {
		head, _, tail, ok := partition(tokens, sep)
		groups = append(groups, head)
		if !ok {
			return groups
		}
		tokens = tail
	}
}

// find returns the first token whose text is sep.
func find(tokens []Token, sep string) (Token, bool) {
	for _, t := range tokens {
		if t.Text == sep {
			return t, true
		}
	}
	return Token{}, false
}

// expandTabs replaces tabs with spaces up to the next multiple of eight columns.
func expandTabs(s string) string {
	if !strings.ContainsRune(s, '\t') {
		return s
	}
	var (
		b   strings.Builder
		col int
	)
	for _, r := range s {
		if r == '\t' {
			n := 8 - col%8
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}
