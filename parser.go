package denpa

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"
)

// emptyPattern spells the empty pattern in sound changes.
const emptyPattern = "∅"

var operators = []string{"=", "::", ">", "/", "_"}

// parser is one loading session. It owns the source lines of every file
// it reads so that diagnostics can quote them.
type parser struct {
	lang    *Language
	sources map[string][]string
	// loading holds the absolute paths of the files currently being parsed.
	loading []string
}

func newParser(l *Language) *parser {
	return &parser{lang: l, sources: make(map[string][]string)}
}

func (p *parser) parseFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read language file: %w", err)
	}
	p.lang.files = append(p.lang.files, path)
	return p.parseText(path, string(data))
}

func (p *parser) parseText(file, text string) error {
	p.loading = append(p.loading, absPath(file))
	defer func() { p.loading = p.loading[:len(p.loading)-1] }()

	raw := strings.Split(text, "\n")
	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = expandTabs(strings.TrimSpace(norm.NFC.String(line)))
	}
	p.sources[file] = lines

	for i, line := range lines {
		toks := lex(line, i+1)
		if len(toks) > 0 && toks[0].Text == "import" {
			toks = fields(line, i+1)
		}
		if err := p.parseLine(file, toks); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseLine(file string, line []Token) error {
	if len(line) == 0 {
		return nil
	}
	switch {
	case line[0].Text == "import":
		return p.parseImport(file, line)
	case line[0].Text == "letters":
		return p.parseLetters(file, line)
	case hasOp(line, "="):
		return p.parseVariable(file, line)
	case hasOp(line, "::"):
		return p.parseRule(file, line)
	case hasOp(line, ">"):
		return p.parseSoundChange(file, line)
	}
	return p.errorf(file, line[0], "unknown keyword '%s'", line[0].Text)
}

func hasOp(line []Token, op string) bool {
	_, ok := find(line, op)
	return ok
}

func (p *parser) errorf(file string, tok Token, format string, args ...any) *ParseError {
	return &ParseError{
		Span:   spanOf(file, tok),
		Source: p.line(file, tok.Line),
		Msg:    fmt.Sprintf(format, args...),
	}
}

func (p *parser) line(file string, ln int) string {
	lines := p.sources[file]
	if ln < 1 || ln > len(lines) {
		return ""
	}
	return lines[ln-1]
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func (p *parser) parseImport(file string, line []Token) error {
	if len(line) < 2 {
		return p.errorf(file, line[0], "invalid import: no files to import")
	}
	base := filepath.Dir(file)
	for _, tok := range line[1:] {
		paths, err := p.resolveImport(base, tok.Text)
		if err != nil {
			e := p.errorf(file, tok, "cannot import '%s'", tok.Text)
			e.Cause = err
			return e
		}
		for _, path := range paths {
			if slices.Contains(p.loading, absPath(path)) {
				return p.errorf(file, tok, "import cycle: '%s' is already being loaded", path)
			}
			p.lang.logger.Debug("importing language file", "from", file, "path", path)
			if err := p.parseFile(path); err != nil {
				e := p.errorf(file, tok, "cannot import '%s'", tok.Text)
				e.Cause = err
				return e
			}
		}
	}
	return nil
}

// resolveImport resolves an import argument relative to base. Arguments
// containing glob syntax expand to every matching file in lexical order.
func (p *parser) resolveImport(base, name string) ([]string, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, name)
	}
	if !strings.ContainsAny(name, "*?[{") {
		return []string{path}, nil
	}
	matches, err := doublestar.FilepathGlob(path)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", name, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match %s", name)
	}
	slices.Sort(matches)
	return matches, nil
}

func (p *parser) parseLetters(file string, line []Token) error {
	if len(line) < 2 {
		return p.errorf(file, line[0], "invalid statement: no letters after 'letters'")
	}
	toks := line[1:]
	if len(toks) == 1 {
		toks = p.lang.segment(toks[0])
	}
	letters := make([]string, len(toks))
	for i, t := range toks {
		letters[i] = t.Text
	}
	p.lang.setLetters(letters)
	return nil
}

// parseWeight splits "text#weight". explicit reports whether a weight was given.
func (p *parser) parseWeight(file string, tok Token) (body Token, weight float64, explicit bool, err error) {
	parts := strings.Split(tok.Text, "#")
	if len(parts) == 1 {
		return tok, 1, false, nil
	}
	if len(parts) != 2 {
		return tok, 0, false, p.errorf(file, tok, "invalid weight: %d parts, should be 2", len(parts))
	}
	weight, perr := strconv.ParseFloat(parts[1], 64)
	if perr != nil || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return tok, 0, false, p.errorf(file, tok, "invalid weight: '%s' is not a number", parts[1])
	}
	if weight < 0 {
		return tok, 0, false, p.errorf(file, tok, "invalid weight: '%s' is negative", parts[1])
	}
	return tok.slice(0, len([]rune(parts[0]))), weight, true, nil
}

func (p *parser) checkOperators(file, what string, toks []Token) error {
	for _, t := range toks {
		if slices.Contains(operators, t.Text) {
			return p.errorf(file, t, "invalid %s: unexpected '%s'", what, t.Text)
		}
	}
	return nil
}

func (p *parser) parseVariable(file string, line []Token) error {
	head, op, tail, _ := partition(line, "=")
	if len(head) != 1 {
		return p.errorf(file, op, "invalid variable: %d names, should be 1", len(head))
	}
	if len(tail) == 0 {
		return p.errorf(file, op, "invalid variable: no letters in variable")
	}
	if err := p.checkOperators(file, "variable", tail); err != nil {
		return err
	}
	if len(tail) == 1 && !strings.Contains(tail[0].Text, "#") {
		tail = p.lang.segment(tail[0])
	}

	v := &Choices[string]{}
	explicit := false
	for _, tok := range tail {
		body, weight, exp, err := p.parseWeight(file, tok)
		if err != nil {
			return err
		}
		if body.Text == "" {
			return p.errorf(file, tok, "invalid variable: empty letter")
		}
		v.Append(body.Text, weight)
		explicit = explicit || exp
	}
	if !explicit {
		v.NaturalWeights()
	}
	p.lang.setVariable(head[0].Text, v)
	return nil
}

func (p *parser) parseRule(file string, line []Token) error {
	head, op, tail, _ := partition(line, "::")
	if len(head) != 1 {
		return p.errorf(file, op, "invalid rule: %d names, should be 1", len(head))
	}
	if len(tail) == 0 {
		return p.errorf(file, op, "invalid rule: no expressions in rule")
	}
	// The name segments as a unit inside its own alternatives.
	name := head[0].Text
	if name != startRule {
		p.lang.register(name)
	}
	if err := p.checkOperators(file, "rule", slices.DeleteFunc(slices.Clone(tail), func(t Token) bool {
		return t.Text == "::"
	})); err != nil {
		return err
	}

	r := &Choices[Word]{}
	explicit := false
	for _, alt := range split(tail, "::") {
		if len(alt) == 0 {
			return p.errorf(file, op, "invalid rule: empty expression")
		}
		for _, t := range alt[:len(alt)-1] {
			if strings.Contains(t.Text, "#") {
				return p.errorf(file, t, "invalid weight: must follow the whole expression")
			}
		}
		last, weight, exp, err := p.parseWeight(file, alt[len(alt)-1])
		if err != nil {
			return err
		}
		var expr Word
		for _, t := range append(slices.Clone(alt[:len(alt)-1]), last) {
			for _, seg := range p.lang.segment(t) {
				expr = append(expr, seg.Text)
			}
		}
		if len(expr) == 0 {
			return p.errorf(file, alt[len(alt)-1], "invalid rule: empty expression")
		}
		r.Append(expr, weight)
		explicit = explicit || exp
	}
	if !explicit {
		r.NaturalWeights()
	}
	p.lang.setRule(name, r)
	return nil
}

type patternRole int

const (
	roleSource patternRole = iota
	roleTarget
	roleContext
)

func (p *parser) parseSoundChange(file string, line []Token) error {
	src, gt, rest, _ := partition(line, ">")
	tgt, slash, ctx, hasCtx := partition(rest, "/")

	for _, group := range [][]Token{src, tgt} {
		for _, sep := range []string{">", "_", "=", "::"} {
			if t, ok := find(group, sep); ok {
				return p.errorf(file, t, "invalid sound change: unexpected '%s'", t.Text)
			}
		}
	}
	for _, sep := range []string{"/", ">", "=", "::"} {
		if t, ok := find(ctx, sep); ok {
			return p.errorf(file, t, "invalid sound change: unexpected '%s'", t.Text)
		}
	}

	sc := &SoundChange{span: spanOf(file, line...), source: p.line(file, line[0].Line)}

	for _, tok := range src {
		pat, err := p.compilePattern(file, tok, roleSource)
		if err != nil {
			return err
		}
		if len(pat) == 0 && len(src) > 1 {
			return p.errorf(file, tok, "invalid sound change: empty source among several")
		}
		if len(pat) > 0 {
			sc.Sources = append(sc.Sources, pat)
		}
	}

	if len(tgt) == 0 {
		return p.errorf(file, gt, "invalid sound change: no target")
	}
	for _, tok := range tgt {
		pat, err := p.compilePattern(file, tok, roleTarget)
		if err != nil {
			return err
		}
		sc.Targets = append(sc.Targets, pat)
	}
	switch k := len(sc.Sources); {
	case k == 0 && len(sc.Targets) != 1:
		return p.errorf(file, gt, "invalid sound change: insertion takes 1 target, got %d", len(sc.Targets))
	case k > 0 && len(sc.Targets) != 1 && len(sc.Targets) != k:
		return p.errorf(file, gt, "invalid sound change: %d sources but %d targets", k, len(sc.Targets))
	}

	if hasCtx {
		before, us, after, ok := partition(ctx, "_")
		if !ok {
			return p.errorf(file, slash, "invalid sound change: missing '_' in context")
		}
		if t, ok := find(after, "_"); ok {
			return p.errorf(file, t, "invalid sound change: unexpected '_'")
		}
		if len(before) > 1 {
			return p.errorf(file, us, "invalid sound change: %d patterns before '_', should be at most 1", len(before))
		}
		if len(after) > 1 {
			return p.errorf(file, us, "invalid sound change: %d patterns after '_', should be at most 1", len(after))
		}
		var err error
		if len(before) == 1 {
			if sc.Before, err = p.compilePattern(file, before[0], roleContext); err != nil {
				return err
			}
		}
		if len(after) == 1 {
			if sc.After, err = p.compilePattern(file, after[0], roleContext); err != nil {
				return err
			}
		}
	}

	p.lang.changes = append(p.lang.changes, sc)
	return nil
}

func (p *parser) compilePattern(file string, tok Token, role patternRole) (Pattern, error) {
	if tok.Text == emptyPattern {
		if role == roleContext {
			return nil, nil
		}
		return Pattern{}, nil
	}
	var pat Pattern
	for _, seg := range p.lang.segment(tok) {
		switch {
		case seg.Text == "@":
			if role == roleSource {
				return nil, p.errorf(file, seg, "invalid sound change: '@' cannot appear in a source")
			}
			pat = append(pat, Symbol{Kind: SymSelf, Text: seg.Text})
		case seg.Text == "#":
			if role != roleContext {
				return nil, p.errorf(file, seg, "invalid sound change: '#' can only appear in a context")
			}
			pat = append(pat, Symbol{Kind: SymBoundary, Text: seg.Text})
		case strings.HasPrefix(seg.Text, "$"):
			n, err := strconv.Atoi(seg.Text[1:])
			if err != nil || n < 0 {
				return nil, p.errorf(file, seg, "invalid backreference '%s'", seg.Text)
			}
			if n == 0 && role == roleSource {
				return nil, p.errorf(file, seg, "invalid sound change: '$0' cannot appear in a source")
			}
			pat = append(pat, Symbol{Kind: SymBackref, Text: seg.Text, Index: n})
		default:
			if v := p.lang.variables[seg.Text]; v != nil {
				pat = append(pat, Symbol{Kind: SymVariable, Text: seg.Text, Var: v})
			} else {
				pat = append(pat, Symbol{Kind: SymLetter, Text: seg.Text})
			}
		}
	}
	return pat, nil
}
