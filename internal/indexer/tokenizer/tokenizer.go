// Package tokenizer splits document text into the distinct words that become
// index keys. Tokenize does not fold case; the posting store folds keys with
// Lower, so the same output can be stored as-is.
package tokenizer

import (
	"strings"
	"unicode"
)

// Set is a set of tokens.
type Set map[string]struct{}

// Tokenize splits text on every maximal run of non-word characters and
// returns the distinct non-empty fragments. Word characters are the Unicode
// \w class: alphabetic (letters, letter numbers, Other_Alphabetic), marks,
// decimal digits, connector punctuation such as '_' and the joiners
// U+200C/U+200D.
func Tokenize(text string) Set {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !IsWordRune(r)
	})
	tokens := make(Set, len(words))
	for _, word := range words {
		tokens[word] = struct{}{}
	}
	return tokens
}

// IsWordRune reports whether r belongs to the word class.
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) ||
		unicode.IsDigit(r) ||
		unicode.IsMark(r) ||
		unicode.Is(unicode.Pc, r) ||
		unicode.Is(unicode.Nl, r) ||
		unicode.Is(unicode.Other_Alphabetic, r) ||
		unicode.Is(unicode.Join_Control, r)
}
