package denpa

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel causes carried by RuleError.
var (
	ErrNoRules       = errors.New("no rules defined")
	ErrMaxDepth      = errors.New("maximum recursion depth exceeded")
	ErrUndefinedRule = errors.New("rule not defined")
)

// ErrNegativeCount is returned by Generate and Textify for a negative count.
var ErrNegativeCount = errors.New("count must not be negative")

// Span locates a run of characters on one source line.
// Line is 1-based; Col and Len count runes, Col is 0-based.
type Span struct {
	File string
	Line int
	Col  int
	Len  int
}

// spanOf returns the smallest span covering all tokens, which must share a line.
func spanOf(file string, toks ...Token) Span {
	if len(toks) == 0 {
		return Span{File: file}
	}
	start, end := toks[0].Col, toks[0].Col+toks[0].Len()
	for _, t := range toks[1:] {
		start = min(start, t.Col)
		end = max(end, t.Col+t.Len())
	}
	return Span{File: file, Line: toks[0].Line, Col: start, Len: end - start}
}

func (s Span) location() string {
	return fmt.Sprintf("in %q, line %d", s.File, s.Line)
}

// highlight underlines the span beneath line with carets.
func (s Span) highlight(line string) string {
	n := len([]rune(line))
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i >= s.Col && i < s.Col+s.Len {
			b.WriteByte('^')
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// ParseError reports a malformed line. Import failures set Cause to the
// error raised while loading the imported file.
type ParseError struct {
	Span
	// Source is the text of the offending line.
	Source string
	Msg    string
	Cause  error
}

func (e *ParseError) Error() string {
	msg := e.Msg + " " + e.location()
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// SoundChangeError reports a sound change that cannot be applied to the
// letters it matched.
type SoundChangeError struct {
	Span
	Source string
	Msg    string
}

func (e *SoundChangeError) Error() string {
	return e.Msg + " " + e.location()
}

// RuleError reports a grammar failure during generation.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	if e.Rule == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v in rule '%s'", e.Err, e.Rule)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Diagnostic renders err for a terminal: each positioned error in the
// chain contributes its message, the source line and a caret underline.
func Diagnostic(err error) string {
	var b strings.Builder
	for err != nil {
		var (
			span   Span
			source string
			msg    string
			ok     = true
		)
		switch e := err.(type) {
		case *ParseError:
			span, source, msg = e.Span, e.Source, e.Msg
		case *SoundChangeError:
			span, source, msg = e.Span, e.Source, e.Msg
		default:
			ok = false
		}
		if !ok {
			if b.Len() > 0 {
				b.WriteString("caused by: ")
			}
			b.WriteString(err.Error())
			break
		}
		if b.Len() > 0 {
			b.WriteString("caused by: ")
		}
		fmt.Fprintf(&b, "%s %s\n  %s\n", msg, span.location(), source)
		if hl := span.highlight(source); hl != "" {
			fmt.Fprintf(&b, "  %s\n", hl)
		}
		err = errors.Unwrap(err)
	}
	return strings.TrimRight(b.String(), "\n")
}
