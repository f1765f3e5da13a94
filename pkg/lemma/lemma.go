// Package lemma reduces inflected search words to the dictionary form the
// etymology graph is keyed on.
package lemma

import (
	"log/slog"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Token is a single analyzed unit of text.
type Token struct {
	Surface  string // as written, e.g. "行っ"
	BaseForm string // dictionary form, e.g. "行く"
	Reading  string // katakana, e.g. "イッ"
	// PartsOfSpeech holds the raw IPA feature columns, e.g. ["動詞", "自立", ...].
	PartsOfSpeech []string
	PrimaryPOS    string
}

// Analyzer segments Japanese text.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer loads the IPA dictionary.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// Analyze breaks text into tokens with readings and base forms. Whitespace
// tokens are dropped.
func (a *Analyzer) Analyze(text string) []Token {
	var result []Token
	for _, tok := range a.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY || strings.TrimSpace(tok.Surface) == "" {
			continue
		}

		// IPA features:
		// 0-3 POS and sub-POS, 4 conjugation type, 5 conjugation form,
		// 6 base form, 7 reading, 8 pronunciation
		features := tok.Features()

		base := tok.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}
		reading := ""
		if len(features) > 7 && features[7] != "*" {
			reading = features[7]
		}
		primary := ""
		if len(features) > 0 {
			primary = features[0]
		}

		result = append(result, Token{
			Surface:       tok.Surface,
			BaseForm:      base,
			Reading:       reading,
			PartsOfSpeech: features,
			PrimaryPOS:    primary,
		})
	}
	return result
}

// LangJapanese is the language code Normalizer rewrites.
const LangJapanese = "jpn"

// Normalizer maps an inflected Japanese word to its dictionary form and
// leaves every other language untouched.
type Normalizer struct {
	analyzer *Analyzer
	logger   *slog.Logger
}

// NewNormalizer creates a Normalizer. A nil logger disables logging.
func NewNormalizer(logger *slog.Logger) (*Normalizer, error) {
	a, err := NewAnalyzer()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Normalizer{analyzer: a, logger: logger}, nil
}

// functional parts of speech that may trail a content word without making
// the input a phrase.
var trailing = map[string]bool{
	"助動詞": true, // auxiliary verb (た, ます)
	"助詞":  true, // particle
	"記号":  true, // symbol
}

// Normalize returns the base form of word when it is a single inflected
// content word, e.g. 行った → 行く, 走りました → 走る. Compounds and
// phrases are returned unchanged.
func (n *Normalizer) Normalize(word, langCode string) string {
	if langCode != LangJapanese || word == "" {
		return word
	}
	tokens := n.analyzer.Analyze(word)
	if len(tokens) == 0 || trailing[tokens[0].PrimaryPOS] {
		return word
	}
	for _, t := range tokens[1:] {
		if !trailing[t.PrimaryPOS] {
			return word
		}
	}
	base := tokens[0].BaseForm
	if base != word {
		n.logger.Debug("normalized search word", "word", word, "lemma", base)
	}
	return base
}
