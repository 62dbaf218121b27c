package skill

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// englishHints are frequent English function and instruction words.
var englishHints = hintSet(
	"the", "and", "or", "to", "of", "for", "with", "is", "are", "be", "by",
	"in", "on", "at", "from", "into", "this", "that", "these", "it", "as",
	"must", "should", "never", "always", "only", "not", "do", "does", "when",
	"before", "after", "if", "then", "each", "every", "all", "any", "use",
	"read", "write", "keep", "ask", "user", "stage", "draft", "ready",
)

// indonesianHints are frequent Indonesian function and instruction words.
var indonesianHints = hintSet(
	"dan", "yang", "untuk", "dengan", "ini", "itu", "dari", "pada", "ke", "di",
	"tidak", "jangan", "saat", "tahap", "baca", "susun", "bahasa", "setuju",
	"selesai", "wajib", "harus", "sudah", "belum", "akan", "dalam", "atau",
	"juga", "tersedia", "melompat", "oleh", "agar", "supaya", "jika", "kalau",
	"setelah", "sebelum", "semua", "setiap", "hanya", "gunakan", "tulis",
)

func hintSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// LanguagePolicy controls the English-only check.
type LanguagePolicy struct {
	// MinConfidence is the lowest passing English confidence.
	MinConfidence float64

	// RequireHints fails text that contains no hint word at all. When false
	// such text scores 1.0.
	RequireHints bool
}

// DefaultLanguagePolicy passes text with English confidence of at least 0.55
// and treats text without any hint word as English.
var DefaultLanguagePolicy = LanguagePolicy{MinConfidence: 0.55}

// LanguageEstimate is the outcome of a language check.
type LanguageEstimate struct {
	Confidence  float64
	EnglishHits int
	OtherHits   int
	OK          bool
}

// Estimate scores text by counting English and Indonesian hint words among
// its letter-only tokens of at least two characters.
func (p LanguagePolicy) Estimate(text string) LanguageEstimate {
	var est LanguageEstimate
	for _, token := range tokenize(text) {
		switch {
		case englishHints[token]:
			est.EnglishHits++
		case indonesianHints[token]:
			est.OtherHits++
		}
	}

	total := est.EnglishHits + est.OtherHits
	if total == 0 {
		if p.RequireHints {
			return est
		}
		est.Confidence = 1
		est.OK = true
		return est
	}

	est.Confidence = float64(est.EnglishHits) / float64(total)
	est.OK = est.Confidence >= p.MinConfidence
	return est
}

// EstimateEnglishConfidence scores text with DefaultLanguagePolicy.
func EstimateEnglishConfidence(text string) LanguageEstimate {
	return DefaultLanguagePolicy.Estimate(text)
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
