package denpa

import (
	"slices"
	"strings"
)

// Rank returns the collation rank of letter, or -1 when it was not
// declared with "letters".
func (l *Language) Rank(letter string) int {
	if r, ok := l.letters[letter]; ok {
		return r
	}
	return -1
}

// Sort returns words ordered by the declared letter ranks. The sort is
// stable; reverse inverts the comparison.
func (l *Language) Sort(words []Word, reverse bool) []Word {
	type keyed struct {
		word Word
		key  []int
	}
	items := make([]keyed, len(words))
	for i, w := range words {
		key := make([]int, len(w))
		for j, letter := range w {
			key[j] = l.Rank(letter)
		}
		items[i] = keyed{word: w, key: key}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		c := slices.Compare(a.key, b.key)
		if reverse {
			return -c
		}
		return c
	})
	out := make([]Word, len(items))
	for i, it := range items {
		out[i] = it.word
	}
	return out
}

// Dedup removes repeated words, keeping the first occurrence of each.
func Dedup(words []Word) []Word {
	seen := make(map[string]bool, len(words))
	var out []Word
	for _, w := range words {
		key := strings.Join(w, "\x00")
		if !seen[key] {
			seen[key] = true
			out = append(out, w)
		}
	}
	return out
}
