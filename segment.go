package denpa

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// segment cuts a token into letters, longest registered spelling first.
// "$" and the character after it always form one backreference token.
// Unregistered multi-character runs fall back to single characters.
func (l *Language) segment(tok Token) []Token {
	runes := []rune(tok.Text)
	var result []Token
	for i := 0; i < len(runes); {
		if runes[i] == '$' {
			j := min(i+2, len(runes))
			result = append(result, tok.slice(i, j))
			i = j
			continue
		}
		for j := min(l.longest, len(runes)-i); j >= 1; j-- {
			if j == 1 || l.isSegment(string(runes[i:i+j])) {
				result = append(result, tok.slice(i, i+j))
				i += j
				break
			}
		}
	}
	return result
}

func (l *Language) isSegment(s string) bool {
	_, ok := l.segments[s]
	return ok
}

// Normalize segments free text into the language's letters. The text is
// NFC-normalised and trimmed first; it never fails, unknown spellings
// become single-character letters.
func (l *Language) Normalize(text string) Word {
	text = strings.TrimSpace(norm.NFC.String(text))
	segs := l.segment(Token{Text: text})
	w := make(Word, len(segs))
	for i, s := range segs {
		w[i] = s.Text
	}
	return w
}
