// Package moderation censors forbidden words in message content before it is stored.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator matches forbidden words with an Aho-Corasick automaton built once at startup.
// It is safe for concurrent use since the automaton is only read after Build.
type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// folded is the searchable form of a text and, for every kept rune, its index in the original.
type folded struct {
	runes  []rune
	origin []int
}

func NewModerator(censoredWords []string, replacement rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(censoredWords))
	for _, word := range censoredWords {
		if f := fold(word); len(f.runes) > 0 {
			patterns = append(patterns, f.runes)
		}
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, replacement: replacement}, nil
}

// Censor replaces every rune of a forbidden word, including the noise in between, with the replacement rune.
// Spacing outside matches is preserved. It also returns the matched words in their folded form.
func (m *Moderator) Censor(content string) (string, []string) {
	f := fold(content)
	if len(f.runes) == 0 {
		return content, nil
	}
	spans := m.matcher.MultiPatternSearch(f.runes, false)
	if len(spans) == 0 {
		return content, nil
	}

	runes := []rune(content)
	var words []string
	for _, span := range spans {
		start, end := span.Pos, span.Pos+len(span.Word)
		if start < 0 || end > len(f.origin) {
			continue
		}
		for i := f.origin[start]; i <= f.origin[end-1]; i++ {
			runes[i] = m.replacement
		}
		words = append(words, string(span.Word))
	}
	return string(runes), words
}

func fold(input string) folded {
	runes := []rune(input)
	f := folded{runes: make([]rune, 0, len(runes)), origin: make([]int, 0, len(runes))}
	for i, r := range runes {
		clean := unleet(r)
		if isNoise(clean) {
			continue
		}
		f.runes = append(f.runes, unicode.ToLower(clean))
		f.origin = append(f.origin, i)
	}
	return f
}

// unleet maps common leet speak characters back to letters.
func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
