// Package denpa generates word forms for constructed languages from a
// declarative rule file and evolves them through ordered sound changes.
//
// A language file declares letters, variables (weighted letter classes),
// grammar rules and sound changes:
//
//	import common.dn
//	letters a e i o u p t k s n
//	C = p t k s n
//	V = a#3 e#2 i o u
//	syl :: CV :: CVn#0.5
//	word :: syl :: syl syl :: syl syl syl
//	k > s / _ i
package denpa

import (
	"log/slog"
	"math/rand"
	"strings"
	"time"
)

// MaxDepth bounds grammar recursion during generation.
const MaxDepth = 10

// startRule is the rule used as the grammar entry point when no start
// rule was set explicitly.
const startRule = "word"

// Word is an ordered sequence of letters.
type Word []string

func (w Word) String() string {
	return strings.Join(w, "")
}

// Language holds everything parsed from a language file and its imports.
// It is built once by Load or Parse and is not safe for concurrent use.
type Language struct {
	// letters maps each declared letter to its collation rank.
	letters     map[string]int
	letterOrder []string

	variables map[string]*Choices[string]

	// rules maps rule name → alternatives; ruleNames keeps first-declaration order.
	rules     map[string]*Choices[Word]
	ruleNames []string

	changes []*SoundChange

	// segments holds every multi-character spelling the segmenter must
	// recognise; longest is the length in runes of the longest one.
	segments map[string]struct{}
	longest  int

	start string
	files []string

	rng    *rand.Rand
	logger *slog.Logger
}

// Option configures a Language.
type Option func(*Language)

// WithSeed seeds the random source used for every weighted draw.
func WithSeed(seed int64) Option {
	return func(l *Language) {
		l.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRand sets the random source used for every weighted draw.
func WithRand(rng *rand.Rand) Option {
	return func(l *Language) {
		l.rng = rng
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Language) {
		l.logger = logger
	}
}

// New returns an empty Language.
func New(opts ...Option) *Language {
	l := &Language{
		letters:   make(map[string]int),
		variables: make(map[string]*Choices[string]),
		rules:     make(map[string]*Choices[Word]),
		segments:  make(map[string]struct{}),
		longest:   1,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.rng == nil {
		l.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Load parses the language file at path together with everything it imports.
func Load(path string, opts ...Option) (*Language, error) {
	l := New(opts...)
	p := newParser(l)
	if err := p.parseFile(path); err != nil {
		return nil, err
	}
	l.logger.Debug("language loaded",
		"path", path,
		"files", len(l.files),
		"variables", len(l.variables),
		"rules", len(l.rules),
		"sound_changes", len(l.changes))
	return l, nil
}

// Parse parses language source text. name is used in diagnostics and as
// the base for resolving relative imports.
func Parse(name, text string, opts ...Option) (*Language, error) {
	l := New(opts...)
	p := newParser(l)
	if err := p.parseText(name, text); err != nil {
		return nil, err
	}
	return l, nil
}

// SetStartRule selects the rule Generate expands. An empty name restores
// the default: the rule named "word", else the last declared rule.
func (l *Language) SetStartRule(name string) {
	l.start = name
}

// StartRule returns the rule Generate would expand, or "" when no rules exist.
func (l *Language) StartRule() string {
	if l.start != "" {
		return l.start
	}
	if _, ok := l.rules[startRule]; ok {
		return startRule
	}
	if len(l.ruleNames) == 0 {
		return ""
	}
	return l.ruleNames[len(l.ruleNames)-1]
}

// Letters returns the declared letters in collation order.
func (l *Language) Letters() []string {
	out := make([]string, len(l.letterOrder))
	copy(out, l.letterOrder)
	return out
}

// Variable returns the named variable, or nil.
func (l *Language) Variable(name string) *Choices[string] {
	return l.variables[name]
}

// Rule returns the named rule, or nil.
func (l *Language) Rule(name string) *Choices[Word] {
	return l.rules[name]
}

// RuleNames returns rule names in declaration order.
func (l *Language) RuleNames() []string {
	out := make([]string, len(l.ruleNames))
	copy(out, l.ruleNames)
	return out
}

// SoundChanges returns the sound changes in application order.
func (l *Language) SoundChanges() []*SoundChange {
	out := make([]*SoundChange, len(l.changes))
	copy(out, l.changes)
	return out
}

// Files returns every file read while loading, the root file first.
func (l *Language) Files() []string {
	out := make([]string, len(l.files))
	copy(out, l.files)
	return out
}

// register makes s known to the segmenter.
func (l *Language) register(s string) {
	n := len([]rune(s))
	if n < 2 {
		return
	}
	l.segments[s] = struct{}{}
	if n > l.longest {
		l.longest = n
	}
}

func (l *Language) setLetters(letters []string) {
	l.letters = make(map[string]int, len(letters))
	l.letterOrder = l.letterOrder[:0]
	for i, letter := range letters {
		l.letters[letter] = i
		l.letterOrder = append(l.letterOrder, letter)
		l.register(letter)
	}
}

func (l *Language) setVariable(name string, v *Choices[string]) {
	l.variables[name] = v
	l.register(name)
	for _, member := range v.Values {
		l.register(member)
	}
}

func (l *Language) setRule(name string, r *Choices[Word]) {
	if _, ok := l.rules[name]; !ok {
		l.ruleNames = append(l.ruleNames, name)
	}
	l.rules[name] = r
	if name != startRule {
		l.register(name)
	}
}
