package db

import "time"

// Session is the single persisted search session: the last submitted
// parameters and the last successful result for them.
type Session struct {
	Word         string
	SrcLang      string
	TrgLang      string
	AllowAffixes bool
	Query        string
	// RawResult is the JSON-encoded raw cognate result.
	RawResult string
	Page      int
	UpdatedAt time.Time
}

// SearchRecord is one distinct parameter set in the search history.
type SearchRecord struct {
	ID             int64     `json:"id"`
	Word           string    `json:"word"`
	SrcLang        string    `json:"srcLang"`
	TrgLang        string    `json:"trgLang"`
	AllowAffixes   bool      `json:"allowPrefixesAndSuffixes"`
	Query          string    `json:"query,omitempty"`
	EdgeCount      int       `json:"edgeCount"`
	SearchCount    int       `json:"searchCount"`
	LastSearchedAt time.Time `json:"lastSearchedAt"`
}

// Definition is a cached definition fragment for a word in a language.
type Definition struct {
	Word      string
	Lang      string
	HTML      string
	FetchedAt time.Time
}
