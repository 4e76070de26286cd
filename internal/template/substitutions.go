package template

// Substitutions maps placeholder names (without braces) to replacement text.
// Tokens keep insertion order.
type Substitutions struct {
	keys  []string
	value map[string]string
}

// NewSubstitutions returns an empty map ready for chained Set calls.
func NewSubstitutions() *Substitutions {
	return &Substitutions{value: make(map[string]string)}
}

// Set adds or replaces a token. Replacing keeps the first position.
func (s *Substitutions) Set(token, value string) *Substitutions {
	if _, ok := s.value[token]; !ok {
		s.keys = append(s.keys, token)
	}
	s.value[token] = value
	return s
}

// Lookup returns the value for token. A nil map has no tokens.
func (s *Substitutions) Lookup(token string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.value[token]
	return v, ok
}

// Tokens returns token names in insertion order.
func (s *Substitutions) Tokens() []string {
	return append([]string(nil), s.keys...)
}

// Len is the number of distinct tokens.
func (s *Substitutions) Len() int { return len(s.keys) }
