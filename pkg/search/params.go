package search

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/japaniel/cognates/pkg/cognates"
	"github.com/japaniel/cognates/pkg/db"
)

// Query parameter keys of a shareable search.
const (
	KeyWord         = "word"
	KeySrcLang      = "srcLang"
	KeyTrgLang      = "trgLang"
	KeyAllowAffixes = "allowPrefixesAndSuffixes"
	KeyPage         = "page"
)

// InitialWord is searched when a session starts with nothing persisted and
// no request values.
const InitialWord = "dedo"

const (
	defaultSrcLang = "spa"
	defaultTrgLang = "eng"
)

// ErrInvalidParams marks request values that cannot be decoded.
var ErrInvalidParams = errors.New("invalid search parameters")

// Params are the form values of a search plus the page being viewed.
type Params struct {
	Word                     string `json:"word"`
	SrcLang                  string `json:"srcLang"`
	TrgLang                  string `json:"trgLang"`
	AllowPrefixesAndSuffixes bool   `json:"allowPrefixesAndSuffixes"`
	Page                     int    `json:"page,omitempty"`
}

// DefaultParams are used when neither the request nor the persisted session
// supply a value.
func DefaultParams() Params {
	return Params{SrcLang: defaultSrcLang, TrgLang: defaultTrgLang, Page: 1}
}

// Search returns the parameters relevant to the graph query.
func (p Params) Search() cognates.SearchParams {
	return cognates.SearchParams{
		Word:                     p.Word,
		SrcLang:                  p.SrcLang,
		TrgLang:                  p.TrgLang,
		AllowPrefixesAndSuffixes: p.AllowPrefixesAndSuffixes,
	}.Normalized()
}

// SameSearch reports whether p and o would run the same query.
func (p Params) SameSearch(o Params) bool {
	return p.Search() == o.Search()
}

// Values encodes p as URL query parameters.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set(KeyWord, p.Word)
	v.Set(KeySrcLang, p.SrcLang)
	v.Set(KeyTrgLang, p.TrgLang)
	v.Set(KeyAllowAffixes, strconv.FormatBool(p.AllowPrefixesAndSuffixes))
	if p.Page > 0 {
		v.Set(KeyPage, strconv.Itoa(p.Page))
	}
	return v
}

// ParamsFromValues decodes query parameters, filling absent keys from
// DefaultParams.
func ParamsFromValues(v url.Values) (Params, error) {
	return MergeWithPersisted(v, nil)
}

// MergeWithPersisted overlays request values on the persisted parameters.
// A present word always wins, even when empty; the languages only win when
// non-empty; the affix flag and page win when present.
func MergeWithPersisted(v url.Values, persisted *Params) (Params, error) {
	p := DefaultParams()
	if persisted != nil {
		p = *persisted
		if p.Page < 1 {
			p.Page = 1
		}
	}
	if v.Has(KeyWord) {
		p.Word = v.Get(KeyWord)
	}
	if s := strings.TrimSpace(v.Get(KeySrcLang)); s != "" {
		p.SrcLang = s
	}
	if s := strings.TrimSpace(v.Get(KeyTrgLang)); s != "" {
		p.TrgLang = s
	}
	if s := v.Get(KeyAllowAffixes); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Params{}, fmt.Errorf("%w: %s %q is not a boolean", ErrInvalidParams, KeyAllowAffixes, s)
		}
		p.AllowPrefixesAndSuffixes = b
	}
	if s := v.Get(KeyPage); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Params{}, fmt.Errorf("%w: %s %q is not a number", ErrInvalidParams, KeyPage, s)
		}
		p.Page = n
	}
	return p, nil
}

// HasSearchValues reports whether v carries any search parameter.
func HasSearchValues(v url.Values) bool {
	for _, k := range []string{KeyWord, KeySrcLang, KeyTrgLang, KeyAllowAffixes, KeyPage} {
		if v.Has(k) {
			return true
		}
	}
	return false
}

func paramsFromSession(s *db.Session) Params {
	return Params{
		Word:                     s.Word,
		SrcLang:                  s.SrcLang,
		TrgLang:                  s.TrgLang,
		AllowPrefixesAndSuffixes: s.AllowAffixes,
		Page:                     s.Page,
	}
}
