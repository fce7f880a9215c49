package denpa

import (
	"strings"
	"unicode"

	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

// DefaultWidth is the column width Textify wraps to when width is not positive.
const DefaultWidth = 70

var punctuation = &Choices[string]{
	Values:  []string{".", "?", "!"},
	Weights: []float64{8, 1, 1},
}

// Textify builds n pseudo-sentences of 4 to 12 generated words each and
// wraps the result to width columns.
func (l *Language) Textify(n, width int) (string, error) {
	if n < 0 {
		return "", ErrNegativeCount
	}
	if width <= 0 {
		width = DefaultWidth
	}
	sentences := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, err := l.sentence()
		if err != nil {
			return "", err
		}
		sentences = append(sentences, s)
	}
	return fill(strings.Join(sentences, " "), width), nil
}

func (l *Language) sentence() (string, error) {
	generated, err := l.Generate(4+l.rng.Intn(9), false)
	if err != nil {
		return "", err
	}
	words := make([]string, len(generated))
	for i, w := range generated {
		words[i] = w.String()
	}
	if len(words) > 6 {
		words[1+l.rng.Intn(len(words)-2)] += ","
	}
	words[len(words)-1] += punctuation.Choose(l.rng)
	return capitalize(strings.Join(words, " ")), nil
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) > 0 {
		r[0] = unicode.ToUpper(r[0])
	}
	return string(r)
}

// fill wraps text greedily into lines of at most width columns. Words
// longer than width are split across lines.
func fill(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	return wrap.String(wordwrap.String(text, width), width)
}
