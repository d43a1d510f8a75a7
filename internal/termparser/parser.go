// Package termparser turns free text into indexable terms: Unicode
// word-breaking, case-folding, diacritic stripping via NFD normalization,
// stop-word filtering, length-window admission, optional stemming, and the
// digit-only term admission rule, reproducing the behavior of
// tracker-parser.c's delimit_utf8_string/process_word pipeline.
package termparser

import (
	"strings"
	"unicode"

	"github.com/blevesearch/go-porterstemmer"
	"golang.org/x/text/unicode/norm"

	"github.com/trackerd/core/internal/trackconfig"
)

// Parser holds the configuration and stop-word set used across repeated
// Parse calls; it is safe for concurrent use since it carries no mutable
// state after New returns.
type Parser struct {
	cfg       trackconfig.ParserConfig
	stopWords map[string]struct{}
}

// New constructs a Parser from cfg and an already-loaded stop-word set
// (lower-cased). A nil stopWords disables stop-word filtering.
func New(cfg trackconfig.ParserConfig, stopWords map[string]struct{}) *Parser {
	return &Parser{cfg: cfg, stopWords: stopWords}
}

// Parse breaks text into terms and returns a term→occurrence-count map,
// matching tracker-parser.c's update_word_count accumulation semantics:
// repeated occurrences of the same term in one text simply increment the
// count, they are not deduplicated away.
func (p *Parser) Parse(text string) map[string]int {
	counts := make(map[string]int)
	for _, word := range p.breakWords(text) {
		term, ok := p.process(word)
		if !ok {
			continue
		}
		counts[term]++
	}
	return counts
}

// breakWords performs word-boundary segmentation. When UsePangoBreak is
// set it segments on Unicode letter/digit runs (the Go-native equivalent
// of Pango's pango_get_log_attrs word breaks used by the original
// engine); otherwise it falls back to whitespace-delimited fields, which
// is faster but unaware of CJK text lacking inter-word spaces.
func (p *Parser) breakWords(text string) []string {
	if !p.cfg.UsePangoBreak {
		return strings.Fields(text)
	}
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return words
}

// process implements word_is_valid/numbered_word_is_valid/process_word:
// a digit-only word is admitted only when IndexNumbers is set and it has
// at least 5 digits; an alpha (or underscore-led) word is case-folded and
// NFD-normalized, rejected below MinWordLength, truncated to MaxWordLength,
// then stop-word filtered, and is stemmed only when it is purely alphabetic.
func (p *Parser) process(word string) (string, bool) {
	if word == "" {
		return "", false
	}

	digitsOnly := true
	alphaStart := false
	for i, r := range word {
		if i == 0 {
			alphaStart = unicode.IsLetter(r) || r == '_'
		}
		if !unicode.IsDigit(r) {
			digitsOnly = false
		}
	}

	if digitsOnly {
		if !p.cfg.IndexNumbers || len([]rune(word)) < 5 {
			return "", false
		}
		return word, true
	}
	if !alphaStart {
		return "", false
	}

	folded := strings.ToLower(word)
	normalized := stripDiacritics(folded)

	runeLen := len([]rune(normalized))
	if runeLen < p.cfg.MinWordLength {
		return "", false
	}
	if p.cfg.MaxWordLength > 0 && runeLen > p.cfg.MaxWordLength {
		normalized = truncateRunes(normalized, p.cfg.MaxWordLength)
	}

	if p.stopWords != nil {
		if _, stop := p.stopWords[normalized]; stop {
			return "", false
		}
	}

	if p.cfg.EnableStemming && isAlphabetic(normalized) {
		normalized = porterstemmer.StemString(normalized)
	}

	return normalized, true
}

// stripDiacritics runs NFD decomposition and drops the combining-mark
// runes that fall out of it, the Go-native equivalent of
// g_utf8_normalize(..., G_NORMALIZE_NFD) followed by g_unichar_type
// filtering in tracker-parser.c.
func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
