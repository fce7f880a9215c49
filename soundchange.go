package denpa

import (
	"fmt"
	"strings"
)

// SymbolKind classifies one element of a sound-change pattern.
type SymbolKind int

const (
	// SymLetter matches or produces exactly one letter.
	SymLetter SymbolKind = iota
	// SymVariable matches any member of a variable, or produces the member
	// at the index matched by the source symbol in the same position.
	SymVariable
	// SymSelf (@) stands for all letters matched by the source.
	SymSelf
	// SymBoundary (#) is the word edge; only valid in contexts.
	SymBoundary
	// SymBackref ($n) stands for the n-th matched letter, 1-based;
	// $0 is the whole match. In a source it matches any single letter.
	SymBackref
)

// Symbol is one element of a Pattern.
type Symbol struct {
	Kind SymbolKind
	Text string
	// Index is the backreference number for SymBackref.
	Index int
	// Var is the referenced variable for SymVariable.
	Var *Choices[string]
}

// Pattern is a sequence of symbols.
type Pattern []Symbol

func (p Pattern) String() string {
	if len(p) == 0 {
		return "∅"
	}
	var b strings.Builder
	for _, s := range p {
		b.WriteString(s.Text)
	}
	return b.String()
}

// SoundChange is one ordered rewrite step "sources > targets / before _ after".
// With no sources the single target is inserted wherever the context
// matches. Otherwise Targets has either one pattern, shared by every
// source, or one pattern per source.
type SoundChange struct {
	Sources []Pattern
	Targets []Pattern
	Before  Pattern
	After   Pattern

	span   Span
	source string
}

// Match records the letters consumed by a source pattern and, for each
// letter matched through a variable, its index in that variable (-1 otherwise).
type Match struct {
	Letters []string
	Indices []int
}

// Span returns the location of the declaring line.
func (sc *SoundChange) Span() Span {
	return sc.span
}

func (sc *SoundChange) String() string {
	src := make([]string, len(sc.Sources))
	for i, p := range sc.Sources {
		src[i] = p.String()
	}
	if len(src) == 0 {
		src = []string{"∅"}
	}
	tgt := make([]string, len(sc.Targets))
	for i, p := range sc.Targets {
		tgt[i] = p.String()
	}
	s := strings.Join(src, " ") + " > " + strings.Join(tgt, " ")
	if len(sc.Before) > 0 || len(sc.After) > 0 {
		s += " / " + sc.Before.String() + " _ " + sc.After.String()
	}
	return s
}

func (sc *SoundChange) errorf(format string, args ...any) error {
	return &SoundChangeError{Span: sc.span, Source: sc.source, Msg: fmt.Sprintf(format, args...)}
}

func (sc *SoundChange) target(i int) Pattern {
	if len(sc.Targets) == 1 {
		return sc.Targets[0]
	}
	return sc.Targets[i]
}

// Apply rewrites w. Each source/target pair runs over the output of the
// previous pair, scanning left to right with non-overlapping matches.
func (sc *SoundChange) Apply(w Word) (Word, error) {
	if len(sc.Sources) == 0 {
		return sc.insert(w)
	}
	for i, src := range sc.Sources {
		var err error
		if w, err = sc.replace(w, src, sc.target(i)); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// insert splices the target in at every boundary whose context matches.
// Contexts are always read from the original word.
func (sc *SoundChange) insert(w Word) (Word, error) {
	var (
		out   = make(Word, 0, len(w))
		empty Match
	)
	for pos := 0; pos <= len(w); pos++ {
		ok, err := sc.contextMatches(w, pos, pos, empty)
		if err != nil {
			return nil, err
		}
		if ok {
			built, err := sc.build(sc.Targets[0], nil, empty)
			if err != nil {
				return nil, err
			}
			out = append(out, built...)
		}
		if pos < len(w) {
			out = append(out, w[pos])
		}
	}
	return out, nil
}

func (sc *SoundChange) replace(w Word, src, tgt Pattern) (Word, error) {
	out := make(Word, 0, len(w))
	for pos := 0; pos < len(w); {
		if m, ok := matchSource(src, w[pos:]); ok {
			end := pos + len(src)
			ctx, err := sc.contextMatches(w, pos, end, m)
			if err != nil {
				return nil, err
			}
			if ctx {
				built, err := sc.build(tgt, src, m)
				if err != nil {
					return nil, err
				}
				out = append(out, built...)
				pos = end
				continue
			}
		}
		out = append(out, w[pos])
		pos++
	}
	return out, nil
}

// matchSource matches src against the start of rest. Every source symbol
// consumes exactly one letter.
func matchSource(src Pattern, rest Word) (Match, bool) {
	if len(src) > len(rest) {
		return Match{}, false
	}
	m := Match{Letters: make([]string, len(src)), Indices: make([]int, len(src))}
	for i, sym := range src {
		letter := rest[i]
		m.Letters[i] = letter
		m.Indices[i] = -1
		switch sym.Kind {
		case SymLetter:
			if letter != sym.Text {
				return Match{}, false
			}
		case SymVariable:
			idx := IndexOf(sym.Var, letter)
			if idx < 0 {
				return Match{}, false
			}
			m.Indices[i] = idx
		case SymBackref:
		default:
			return Match{}, false
		}
	}
	return m, true
}

// unit is a context symbol with its references resolved against a match.
type unit struct {
	boundary bool
	letter   string
	set      *Choices[string]
}

func (u unit) accepts(letter string) bool {
	if u.set != nil {
		return IndexOf(u.set, letter) >= 0
	}
	return !u.boundary && u.letter == letter
}

func (sc *SoundChange) resolve(p Pattern, m Match) ([]unit, error) {
	var units []unit
	for _, sym := range p {
		switch sym.Kind {
		case SymLetter:
			units = append(units, unit{letter: sym.Text})
		case SymVariable:
			units = append(units, unit{set: sym.Var})
		case SymBoundary:
			units = append(units, unit{boundary: true})
		case SymSelf:
			for _, letter := range m.Letters {
				units = append(units, unit{letter: letter})
			}
		case SymBackref:
			letters, err := sc.backref(sym, m)
			if err != nil {
				return nil, err
			}
			for _, letter := range letters {
				units = append(units, unit{letter: letter})
			}
		}
	}
	return units, nil
}

// contextMatches checks Before against the letters left of start, read
// right to left, and After against the letters from end onwards.
func (sc *SoundChange) contextMatches(w Word, start, end int, m Match) (bool, error) {
	before, err := sc.resolve(sc.Before, m)
	if err != nil {
		return false, err
	}
	after, err := sc.resolve(sc.After, m)
	if err != nil {
		return false, err
	}
	for k := range before {
		u := before[len(before)-1-k]
		i := start - 1 - k
		if i < 0 {
			if u.boundary {
				break
			}
			return false, nil
		}
		if !u.accepts(w[i]) {
			return false, nil
		}
	}
	for k, u := range after {
		i := end + k
		if i >= len(w) {
			if u.boundary {
				break
			}
			return false, nil
		}
		if !u.accepts(w[i]) {
			return false, nil
		}
	}
	return true, nil
}

func (sc *SoundChange) backref(sym Symbol, m Match) ([]string, error) {
	if sym.Index == 0 {
		return m.Letters, nil
	}
	if sym.Index > len(m.Letters) {
		return nil, sc.errorf("backreference '%s' out of range: %d letter(s) matched", sym.Text, len(m.Letters))
	}
	return []string{m.Letters[sym.Index-1]}, nil
}

// build produces the letters for tgt given the source pattern and its match.
func (sc *SoundChange) build(tgt, src Pattern, m Match) ([]string, error) {
	var out []string
	for j, sym := range tgt {
		switch sym.Kind {
		case SymLetter:
			out = append(out, sym.Text)
		case SymSelf:
			out = append(out, m.Letters...)
		case SymBackref:
			letters, err := sc.backref(sym, m)
			if err != nil {
				return nil, err
			}
			out = append(out, letters...)
		case SymVariable:
			if j >= len(src) || src[j].Kind != SymVariable || m.Indices[j] < 0 {
				return nil, sc.errorf("no matching source variable for '%s'", sym.Text)
			}
			if src[j].Var.Len() != sym.Var.Len() {
				return nil, sc.errorf("variable length mismatch: '%s' has %d letters, '%s' has %d",
					src[j].Text, src[j].Var.Len(), sym.Text, sym.Var.Len())
			}
			out = append(out, sym.Var.Values[m.Indices[j]])
		default:
			return nil, sc.errorf("'%s' cannot appear in a target", sym.Text)
		}
	}
	return out, nil
}

// Evolve applies every sound change to w in declaration order.
func (l *Language) Evolve(w Word) (Word, error) {
	for _, sc := range l.changes {
		var err error
		if w, err = sc.Apply(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}
