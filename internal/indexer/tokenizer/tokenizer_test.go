package tokenizer

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sorted(s Set) []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"only delimiters", " \t\n--!!", []string{}},
		{"simple", "The quick Fox", []string{"Fox", "The", "quick"}},
		{"leading and trailing runs", "...fox jumps!\n", []string{"fox", "jumps"}},
		{"duplicates collapse", "fox fox FOX", []string{"FOX", "fox"}},
		{"underscore is a word rune", "snake_case and-kebab", []string{"and", "kebab", "snake_case"}},
		{"digits", "v2 2024-10-18", []string{"10", "18", "2024", "v2"}},
		{"unicode letters", "naïve café, Straße", []string{"Straße", "café", "naïve"}},
		{"path separators split", "a/b\\c", []string{"a", "b", "c"}},
		{"letter numbers", "chapter Ⅻ", []string{"chapter", "Ⅻ"}},
		{"other alphabetic symbols", "Ⓐbc", []string{"Ⓐbc"}},
		{"zero width joiner", "a\u200db c", []string{"a\u200db", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sorted(Tokenize(tt.text)))
		})
	}
}

func TestTokenizeNoEmptyNoDelimiters(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"a  b\t\tc",
		"¡¿hola?!",
		strings.Repeat("word, ", 50),
		"line1\r\nline2\x00line3",
		string([]byte{0xff, 0xfe, 'o', 'k'}),
	}
	for _, in := range inputs {
		for tok := range Tokenize(in) {
			assert.NotEmpty(t, tok, "input %q", in)
			for _, r := range tok {
				assert.True(t, IsWordRune(r), "token %q from %q contains delimiter %q", tok, in, r)
			}
		}
	}
}

func TestIsWordRune(t *testing.T) {
	for _, r := range "aZ09_éß́Ⅻⓐ\u200c\u200d" {
		assert.True(t, IsWordRune(r), "%q", r)
	}
	for _, r := range " -./\\\t\n!@#" {
		assert.False(t, IsWordRune(r), "%q", r)
	}
}

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"long": strings.Repeat(`Information retrieval systems form the backbone of modern search
        infrastructure. The inverted index maps each term to the documents containing it. `, 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	baseWord := "persistent inverted index flat file posting "
	for _, size := range []int{10, 100, 1000, 5000} {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Tokenize(text)
			}
		})
	}
}
