package denpa

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestParseVariable_ExplicitWeightsRoundTrip(t *testing.T) {
	l := mustParse(t, "V = a#3 e#2.5 i#0 o#1")

	v := l.Variable("V")
	require.NotNil(t, v)
	assert.Equal(t, []string{"a", "e", "i", "o"}, v.Values)
	assert.Equal(t, []float64{3, 2.5, 0, 1}, v.Weights)
}

func TestParseVariable_NaturalWeights(t *testing.T) {
	l := mustParse(t, "V = a e i")

	v := l.Variable("V")
	require.NotNil(t, v)
	for i, w := range v.Weights {
		assert.InDelta(t, (math.Log(4)-math.Log(float64(i+1)))/3, w, 1e-12)
	}
}

func TestParseVariable_PartialWeightsStayExplicit(t *testing.T) {
	l := mustParse(t, "V = a#2 e")
	assert.Equal(t, []float64{2, 1}, l.Variable("V").Weights)
}

func TestParseVariable_SingleTokenIsSegmented(t *testing.T) {
	l := mustParse(t, "letters a e ng\nV = aengi")
	assert.Equal(t, []string{"a", "e", "ng", "i"}, l.Variable("V").Values)
}

func TestParseVariable_RegistersSegments(t *testing.T) {
	l := mustParse(t, "C = p t ts\nword :: tsa")

	assert.True(t, l.isSegment("ts"))
	assert.Equal(t, []Word{{"ts", "a"}}, l.Rule("word").Values)
}

func TestParseRule(t *testing.T) {
	l := mustParse(t, "C = p t\nV = a i\nword :: CV :: CVC#2")

	r := l.Rule("word")
	require.NotNil(t, r)
	assert.Equal(t, []Word{{"C", "V"}, {"C", "V", "C"}}, r.Values)
	assert.Equal(t, []float64{1, 2}, r.Weights)
}

func TestParseRule_TokensOfOneAlternativeConcatenate(t *testing.T) {
	l := mustParse(t, "syl :: ka\nword :: syl syl :: syl")

	r := l.Rule("word")
	require.NotNil(t, r)
	assert.Equal(t, []Word{{"syl", "syl"}, {"syl"}}, r.Values)
	assert.InDelta(t, (math.Log(3)-math.Log(1))/2, r.Weights[0], 1e-12)
}

func TestParseRule_NameRegistration(t *testing.T) {
	l := mustParse(t, "syl :: ka\nword :: sylsyl")

	assert.True(t, l.isSegment("syl"))
	assert.False(t, l.isSegment("word"))
	assert.Equal(t, Word{"syl", "syl"}, l.Rule("word").Values[0])
	assert.Equal(t, []string{"syl", "word"}, l.RuleNames())
}

func TestParseLetters(t *testing.T) {
	l := mustParse(t, "letters a b c")
	assert.Equal(t, []string{"a", "b", "c"}, l.Letters())
	assert.Equal(t, 0, l.Rank("a"))
	assert.Equal(t, 2, l.Rank("c"))
	assert.Equal(t, -1, l.Rank("z"))

	l = mustParse(t, "letters ptka")
	assert.Equal(t, []string{"p", "t", "k", "a"}, l.Letters())
}

func TestParseSoundChange(t *testing.T) {
	l := mustParse(t, "V = a i\nC = p t\np t > b d / V _ #")

	changes := l.SoundChanges()
	require.Len(t, changes, 1)
	sc := changes[0]
	require.Len(t, sc.Sources, 2)
	require.Len(t, sc.Targets, 2)
	assert.Equal(t, SymLetter, sc.Sources[0][0].Kind)
	assert.Equal(t, Pattern{{Kind: SymVariable, Text: "V", Var: l.Variable("V")}}, sc.Before)
	assert.Equal(t, SymBoundary, sc.After[0].Kind)
	assert.Equal(t, "p t > b d / V _ #", sc.String())
	assert.Equal(t, Span{File: "test.dn", Line: 3, Col: 0, Len: 17}, sc.Span())
}

func TestParseSoundChange_EmptyPatterns(t *testing.T) {
	l := mustParse(t, "h > ∅\n∅ > e / _ #\n> a / # _")

	changes := l.SoundChanges()
	require.Len(t, changes, 3)
	assert.Len(t, changes[0].Sources, 1)
	assert.Equal(t, []Pattern{{}}, changes[0].Targets)
	assert.Empty(t, changes[1].Sources)
	assert.Empty(t, changes[2].Sources)
}

func TestParseSoundChange_Backreferences(t *testing.T) {
	l := mustParse(t, "$1 > $1$1")

	sc := l.SoundChanges()[0]
	assert.Equal(t, Pattern{{Kind: SymBackref, Text: "$1", Index: 1}}, sc.Sources[0])
	assert.Equal(t, Pattern{
		{Kind: SymBackref, Text: "$1", Index: 1},
		{Kind: SymBackref, Text: "$1", Index: 1},
	}, sc.Targets[0])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
		line int
		col  int
	}{
		{"unknown keyword", "foo bar", "unknown keyword 'foo'", 1, 0},
		{"two variable names", "a b = c", "invalid variable: 2 names, should be 1", 1, 4},
		{"empty variable", "V =", "invalid variable: no letters in variable", 1, 2},
		{"bad weight", "V = a#b", "invalid weight: 'b' is not a number", 1, 4},
		{"negative weight", "V = a#-1", "invalid weight: '-1' is negative", 1, 4},
		{"NaN weight", "V = a#NaN e#1", "invalid weight: 'NaN' is not a number", 1, 4},
		{"infinite weight", "V = a#Inf", "invalid weight: 'Inf' is not a number", 1, 4},
		{"infinite rule weight", "r :: a#+Inf", "invalid weight: '+Inf' is not a number", 1, 5},
		{"weight parts", "V = a#1#2", "invalid weight: 3 parts, should be 2", 1, 4},
		{"operator in variable", "V = a > b", "invalid variable: unexpected '>'", 1, 6},
		{"two rule names", "a b :: c", "invalid rule: 2 names, should be 1", 1, 4},
		{"empty rule", "r ::", "invalid rule: no expressions in rule", 1, 2},
		{"empty alternative", "r :: a :: :: b", "invalid rule: empty expression", 1, 2},
		{"misplaced rule weight", "r :: a#2 b", "invalid weight: must follow the whole expression", 1, 5},
		{"arity", "a b > c d e", "invalid sound change: 2 sources but 3 targets", 1, 4},
		{"insertion arity", "> a b", "invalid sound change: insertion takes 1 target, got 2", 1, 0},
		{"no target", "a >", "invalid sound change: no target", 1, 2},
		{"missing underscore", "a > b / c", "invalid sound change: missing '_' in context", 1, 6},
		{"two before", "a > b / c d _", "invalid sound change: 2 patterns before '_', should be at most 1", 1, 12},
		{"two after", "a > b / _ c d", "invalid sound change: 2 patterns after '_', should be at most 1", 1, 8},
		{"two underscores", "a > b / _ c _", "invalid sound change: unexpected '_'", 1, 12},
		{"two arrows", "a > b > c", "invalid sound change: unexpected '>'", 1, 6},
		{"boundary in source", "# > a", "invalid sound change: '#' can only appear in a context", 1, 0},
		{"boundary in target", "a > #", "invalid sound change: '#' can only appear in a context", 1, 4},
		{"self in source", "@ > a", "invalid sound change: '@' cannot appear in a source", 1, 0},
		{"whole match in source", "$0 > a", "invalid sound change: '$0' cannot appear in a source", 1, 0},
		{"bad backreference", "a > $x", "invalid backreference '$x'", 1, 4},
		{"empty among sources", "a ∅ > b", "invalid sound change: empty source among several", 1, 2},
		{"letters", "letters", "invalid statement: no letters after 'letters'", 1, 0},
		{"import", "import", "invalid import: no files to import", 1, 0},
		{"later line", "V = a\n\n% comment\nfoo", "unknown keyword 'foo'", 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Parse("test.dn", tt.src)
			require.Error(t, err)
			assert.Nil(t, l)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, tt.msg, pe.Msg)
			assert.Equal(t, "test.dn", pe.File)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, tt.col, pe.Col)
		})
	}
}

func TestDiagnostic_ParseError(t *testing.T) {
	_, err := Parse("t.dn", "  V = a#x")
	require.Error(t, err)

	assert.Equal(t, "invalid weight: 'x' is not a number in \"t.dn\", line 1", err.Error())
	assert.Equal(t,
		"invalid weight: 'x' is not a number in \"t.dn\", line 1\n"+
			"  V = a#x\n"+
			"      ^^^",
		Diagnostic(err))
}

func TestLoad_Import(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"base.dn": "C = p t k\nV = a i",
		"main.dn": "import base.dn\nword :: CV",
	})
	main := filepath.Join(dir, "main.dn")

	l, err := Load(main, WithSeed(1))
	require.NoError(t, err)
	assert.NotNil(t, l.Variable("C"))
	assert.NotNil(t, l.Variable("V"))
	assert.Equal(t, []string{main, filepath.Join(dir, "base.dn")}, l.Files())

	words, err := l.Generate(5, false)
	require.NoError(t, err)
	for _, w := range words {
		require.Len(t, w, 2)
		assert.Contains(t, []string{"p", "t", "k"}, w[0])
		assert.Contains(t, []string{"a", "i"}, w[1])
	}
}

func TestLoad_ImportFromSubdirectory(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"lib/common.dn": "import vowels.dn\nC = p",
		"lib/vowels.dn": "V = a",
		"main.dn":       "import lib/common.dn\nword :: CV",
	})

	l, err := Load(filepath.Join(dir, "main.dn"))
	require.NoError(t, err)
	words, err := l.Generate(1, false)
	require.NoError(t, err)
	assert.Equal(t, "pa", words[0].String())
}

func TestLoad_ImportGlob(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"dialects/y.dn": "Y = b",
		"dialects/x.dn": "X = a",
		"main.dn":       "import dialects/*.dn\nword :: XY",
	})

	l, err := Load(filepath.Join(dir, "main.dn"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "main.dn"),
		filepath.Join(dir, "dialects", "x.dn"),
		filepath.Join(dir, "dialects", "y.dn"),
	}, l.Files())

	words, err := l.Generate(1, false)
	require.NoError(t, err)
	assert.Equal(t, "ab", words[0].String())
}

func TestLoad_ImportPathWithOperatorCharacters(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"my_dialects/base_v2.dn": "V = a",
		"main.dn":                "import my_dialects/base_v2.dn % shared vowels\nword :: V",
	})

	l, err := Load(filepath.Join(dir, "main.dn"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "my_dialects", "base_v2.dn"), l.Files()[1])
}

func TestLoad_ImportRecursiveGlob(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"lib/a.dn":      "A = a",
		"lib/deep/b.dn": "B = b",
		"main.dn":       "import lib/**/*.dn\nword :: AB",
	})

	l, err := Load(filepath.Join(dir, "main.dn"))
	require.NoError(t, err)
	assert.Len(t, l.Files(), 3)
	words, err := l.Generate(1, false)
	require.NoError(t, err)
	assert.Equal(t, "ab", words[0].String())
}

func TestLoad_ImportGlobNoMatch(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.dn": "import none/*.dn"})

	_, err := Load(filepath.Join(dir, "main.dn"))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "cannot import 'none/*.dn'", pe.Msg)
	assert.Contains(t, err.Error(), "no files match")
}

func TestLoad_MissingImport(t *testing.T) {
	dir := writeFiles(t, map[string]string{"main.dn": "V = a\nimport nope.dn"})

	l, err := Load(filepath.Join(dir, "main.dn"))
	require.Error(t, err)
	assert.Nil(t, l)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "cannot import 'nope.dn'", pe.Msg)
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, 7, pe.Col)
}

func TestLoad_ImportChainsParseError(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"sub.dn":  "bogus line",
		"main.dn": "import sub.dn",
	})

	_, err := Load(filepath.Join(dir, "main.dn"))
	var outer *ParseError
	require.True(t, errors.As(err, &outer))
	assert.Equal(t, "cannot import 'sub.dn'", outer.Msg)

	var inner *ParseError
	require.True(t, errors.As(outer.Cause, &inner))
	assert.Equal(t, filepath.Join(dir, "sub.dn"), inner.File)
	assert.Equal(t, "unknown keyword 'bogus'", inner.Msg)

	diag := Diagnostic(err)
	assert.Contains(t, diag, "  import sub.dn\n         ^^^^^^")
	assert.Contains(t, diag, "caused by: unknown keyword 'bogus'")
	assert.Contains(t, diag, "  bogus line\n  ^^^^^")
}

func TestLoad_ImportCycle(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.dn": "import b.dn",
		"b.dn": "import a.dn",
	})

	_, err := Load(filepath.Join(dir, "a.dn"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import cycle")
}

func TestLoad_DiamondImportAllowed(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"base.dn":  "V = a",
		"left.dn":  "import base.dn",
		"right.dn": "import base.dn",
		"main.dn":  "import left.dn right.dn\nword :: V",
	})

	_, err := Load(filepath.Join(dir, "main.dn"))
	require.NoError(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.dn"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
