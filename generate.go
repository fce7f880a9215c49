package denpa

// Generate draws n words from the start rule and passes each through every
// sound change. With sorted set the result is collated by letter order.
func (l *Language) Generate(n int, sorted bool) ([]Word, error) {
	if n < 0 {
		return nil, ErrNegativeCount
	}
	if len(l.rules) == 0 {
		return nil, &RuleError{Err: ErrNoRules}
	}
	start := l.StartRule()
	words := make([]Word, 0, n)
	for i := 0; i < n; i++ {
		w, err := l.expand(start, 0)
		if err != nil {
			return nil, err
		}
		if w, err = l.Evolve(w); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	if sorted {
		return l.Sort(words, false), nil
	}
	return words, nil
}

// expand picks one alternative of the named rule. Symbols naming a
// variable draw a letter, symbols naming a rule recurse, anything else
// is copied as a letter.
func (l *Language) expand(name string, depth int) (Word, error) {
	if depth > MaxDepth {
		return nil, &RuleError{Rule: name, Err: ErrMaxDepth}
	}
	rule, ok := l.rules[name]
	if !ok {
		return nil, &RuleError{Rule: name, Err: ErrUndefinedRule}
	}
	var w Word
	for _, sym := range rule.Choose(l.rng) {
		if v, ok := l.variables[sym]; ok {
			w = append(w, v.Choose(l.rng))
			continue
		}
		if _, ok := l.rules[sym]; ok {
			sub, err := l.expand(sym, depth+1)
			if err != nil {
				return nil, err
			}
			w = append(w, sub...)
			continue
		}
		w = append(w, sym)
	}
	return w, nil
}
