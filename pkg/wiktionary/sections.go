package wiktionary

import "strings"

// Section is one heading of a page's mobile-sections payload.
type Section struct {
	TocLevel int    `json:"toclevel"`
	Line     string `json:"line"`
	Text     string `json:"text"`
}

// sectionsResponse is the subset of the mobile-sections document we read.
// A missing "remaining" object means the page has no sections.
type sectionsResponse struct {
	Remaining *struct {
		Sections []Section `json:"sections"`
	} `json:"remaining"`
}

func (r sectionsResponse) sections() []Section {
	if r.Remaining == nil || r.Remaining.Sections == nil {
		return []Section{}
	}
	return r.Remaining.Sections
}

// partsOfSpeech lists the lower-cased headings Wiktionary uses for entries
// that carry definitions.
var partsOfSpeech = map[string]struct{}{
	// general
	"adjective": {}, "adverb": {}, "ambiposition": {}, "article": {},
	"circumposition": {}, "classifier": {}, "conjunction": {}, "contraction": {},
	"counter": {}, "determiner": {}, "ideophone": {}, "interjection": {},
	"noun": {}, "numeral": {}, "participle": {}, "particle": {},
	"postposition": {}, "preposition": {}, "pronoun": {}, "proper noun": {},
	"verb": {},
	// morphemes
	"circumfix": {}, "combining form": {}, "infix": {}, "interfix": {},
	"prefix": {}, "root": {}, "suffix": {},
	// symbols and characters
	"diacritical mark": {}, "letter": {}, "ligature": {}, "number": {},
	"punctuation mark": {}, "syllable": {}, "symbol": {},
	// phrases
	"phrase": {}, "proverb": {}, "prepositional phrase": {},
	// Han characters
	"han character": {}, "hanzi": {}, "kanji": {}, "hanja": {},
	// other
	"romanization": {}, "logogram": {},
}

// IsPartOfSpeech reports whether a section heading names a part of speech.
func IsPartOfSpeech(line string) bool {
	_, ok := partsOfSpeech[strings.ToLower(strings.TrimSpace(line))]
	return ok
}

// SelectDefinitionSection finds the top-level heading for language and
// returns the first part-of-speech section before the next top-level
// heading.
func SelectDefinitionSection(sections []Section, language string) (Section, bool) {
	start := -1
	for i, s := range sections {
		if s.TocLevel == 1 && s.Line == language {
			start = i
			break
		}
	}
	if start < 0 {
		return Section{}, false
	}
	for _, s := range sections[start+1:] {
		if s.TocLevel == 1 {
			break
		}
		if IsPartOfSpeech(s.Line) {
			return s, true
		}
	}
	return Section{}, false
}
