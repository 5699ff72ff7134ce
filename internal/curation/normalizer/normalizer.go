package normalizer

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidFormat marks text that cannot become a displayable phrase:
// empty, outside 1-6 words, or containing non-ASCII with no transliteration.
var ErrInvalidFormat = errors.New("invalid format")

const (
	MinWords = 1
	MaxWords = 6
)

// Result is the normalized form of a raw candidate.
type Result struct {
	Text      string
	FirstWord string
	WordCount int
}

// smallWords stay lowercase mid-phrase in Title Case.
var smallWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"and": true, "but": true, "or": true, "nor": true,
	"as": true, "at": true, "by": true, "for": true, "in": true,
	"of": true, "on": true, "to": true, "up": true, "via": true,
	"with": true,
}

// translit maps the non-ASCII runes the generator actually emits (Latin
// diacritics, curly punctuation) to ASCII. Anything else is rejected.
var translit = map[rune]string{
	'á': "a", 'à': "a", 'â': "a", 'ä': "a", 'ã': "a", 'å': "a",
	'é': "e", 'è': "e", 'ê': "e", 'ë': "e",
	'í': "i", 'ì': "i", 'î': "i", 'ï': "i",
	'ó': "o", 'ò': "o", 'ô': "o", 'ö': "o", 'õ': "o", 'ø': "o",
	'ú': "u", 'ù': "u", 'û': "u", 'ü': "u",
	'ý': "y", 'ÿ': "y",
	'ñ': "n", 'ç': "c", 'ß': "ss",
	'Á': "A", 'À': "A", 'Â': "A", 'Ä': "A", 'Ã': "A", 'Å': "A",
	'É': "E", 'È': "E", 'Ê': "E", 'Ë': "E",
	'Í': "I", 'Ì': "I", 'Î': "I", 'Ï': "I",
	'Ó': "O", 'Ò': "O", 'Ô': "O", 'Ö': "O", 'Õ': "O", 'Ø': "O",
	'Ú': "U", 'Ù': "U", 'Û': "U", 'Ü': "U",
	'Ñ': "N", 'Ç': "C",
	'‘': "'", '’': "'", '“': `"`, '”': `"`,
	'–': "-", '—': "-", '…': "...",
	' ': " ",
}

// Normalize is deterministic and idempotent: feeding its own output back
// yields the same result.
func Normalize(raw string) (Result, error) {
	ascii, err := toASCII(raw)
	if err != nil {
		return Result{}, err
	}

	words := strings.Fields(ascii)
	if len(words) < MinWords || len(words) > MaxWords {
		return Result{}, ErrInvalidFormat
	}

	for i, w := range words {
		words[i] = titleWord(w, i == 0)
	}

	text := strings.Join(words, " ")
	first := strings.ToLower(strings.TrimFunc(words[0], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
	if first == "" {
		first = strings.ToLower(words[0])
	}

	return Result{Text: text, FirstWord: first, WordCount: len(words)}, nil
}

func toASCII(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r < 128:
			if r == '\t' || r == '\n' || r == '\r' {
				b.WriteRune(' ')
				continue
			}
			if unicode.IsControl(r) {
				return "", ErrInvalidFormat
			}
			b.WriteRune(r)
		default:
			rep, ok := translit[r]
			if !ok {
				return "", ErrInvalidFormat
			}
			b.WriteString(rep)
		}
	}
	return b.String(), nil
}

func titleWord(w string, first bool) string {
	lower := strings.ToLower(w)
	if !first && smallWords[lower] {
		return lower
	}
	// Short all-caps tokens are acronyms; leave them alone.
	if len(w) <= 4 && w == strings.ToUpper(w) && strings.IndexFunc(w, unicode.IsLetter) >= 0 {
		return w
	}
	return capitalize(lower)
}

func capitalize(w string) string {
	for i, r := range w {
		if unicode.IsLetter(r) {
			return w[:i] + strings.ToUpper(string(r)) + w[i+len(string(r)):]
		}
	}
	return w
}
