// Package cognates resolves cognates of a word by querying an etymological
// knowledge graph and reconstructing the derivation chains that link the word
// and its cognates to their common ancestors.
package cognates

import (
	"errors"
	"fmt"
	"strings"
)

// WordRef identifies a lexical entry. Identity is the (Word, LangCode) pair.
type WordRef struct {
	Word     string `json:"word"`
	LangCode string `json:"langCode"`
}

func (w WordRef) String() string { return w.LangCode + ":" + w.Word }

// CognateEdge is one derivation step: Child derives from Parent.
type CognateEdge struct {
	ChildWord  string `json:"childWord"`
	ChildLang  string `json:"childLang"`
	ParentWord string `json:"parentWord"`
	ParentLang string `json:"parentLang"`
	// Set when the graph flags the endpoint as a bound morpheme (affix, root).
	ChildIsMorpheme  bool `json:"childIsMorpheme,omitempty"`
	ParentIsMorpheme bool `json:"parentIsMorpheme,omitempty"`
}

func (e CognateEdge) Child() WordRef  { return WordRef{Word: e.ChildWord, LangCode: e.ChildLang} }
func (e CognateEdge) Parent() WordRef { return WordRef{Word: e.ParentWord, LangCode: e.ParentLang} }

// SearchParams are the user-facing inputs of a cognate search.
type SearchParams struct {
	Word                     string `json:"word"`
	SrcLang                  string `json:"srcLang"`
	TrgLang                  string `json:"trgLang"`
	AllowPrefixesAndSuffixes bool   `json:"allowPrefixesAndSuffixes"`
}

// Normalized returns a copy with surrounding whitespace removed from every field.
func (p SearchParams) Normalized() SearchParams {
	p.Word = strings.TrimSpace(p.Word)
	p.SrcLang = strings.TrimSpace(p.SrcLang)
	p.TrgLang = strings.TrimSpace(p.TrgLang)
	return p
}

// Key is a stable identity for the parameters, used for memoization.
func (p SearchParams) Key() string {
	return fmt.Sprintf("%s|%s|%s|%t", p.SrcLang, p.TrgLang, p.Word, p.AllowPrefixesAndSuffixes)
}

// CognateRaw is an unprocessed query result together with what produced it.
type CognateRaw struct {
	Params SearchParams  `json:"params"`
	Edges  []CognateEdge `json:"edges"`
	Query  string        `json:"query"`
}

// CognateChain is a hydrated lineage: Src runs from just below Ancestor down to
// the searched word, Trg from just below Ancestor down to a target-language word.
type CognateChain struct {
	Ancestor WordRef   `json:"ancestor"`
	Src      []WordRef `json:"src"`
	Trg      []WordRef `json:"trg"`
}

// Target returns the last element of Trg, the cognate itself.
func (c CognateChain) Target() WordRef {
	if len(c.Trg) == 0 {
		return WordRef{}
	}
	return c.Trg[len(c.Trg)-1]
}

// CognateError is a terminal, non-retryable failure of a single search.
type CognateError struct {
	Message string `json:"error"`
	// Status is the HTTP status returned by the graph store, or 0 for
	// transport failures.
	Status int `json:"status,omitempty"`
}

func (e *CognateError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("cognate query failed (status %d): %s", e.Status, e.Message)
	}
	return "cognate query failed: " + e.Message
}

// AsCognateError reports whether err is (or wraps) a *CognateError.
func AsCognateError(err error) (*CognateError, bool) {
	var ce *CognateError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
