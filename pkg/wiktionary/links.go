package wiktionary

import (
	"net/url"
	"strings"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// Wikify turns a word into a wiki page title path segment.
func Wikify(word string) string {
	return url.PathEscape(strings.ReplaceAll(word, " ", "_"))
}

// Unwikify reverses Wikify. Invalid escapes are kept literally.
func Unwikify(title string) string {
	if s, err := url.PathUnescape(title); err == nil {
		title = s
	}
	return strings.ReplaceAll(title, "_", " ")
}

// FinderURL returns a link builder pointing at a cognate search for a word
// under base, using the same query parameters as a shared search.
func FinderURL(base string) func(word, langCode string) string {
	return func(word, langCode string) string {
		v := url.Values{}
		v.Set("word", word)
		v.Set("srcLang", langCode)
		u, err := url.Parse(base)
		if err != nil {
			return base + "?" + v.Encode()
		}
		q := u.Query()
		for k, vs := range v {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
		return u.String()
	}
}

// RewriteOptions configures RewriteLinks.
type RewriteOptions struct {
	// WebBase is the wiki origin links are resolved against.
	WebBase *url.URL
	// Languages resolves the language anchor of a wiki link.
	Languages *Languages
	// Link builds the in-app URL for a word in a language.
	Link func(word, langCode string) string
}

// RewriteLinks returns a copy of doc prepared for display next to a search
// for word. doc is not modified.
//
// Maintenance notices are dropped. Links off the wiki open in a new tab.
// Links to ordinary entries (and in-page anchors) are pointed at a cognate
// search for that entry. Special pages and entries in languages the table
// does not know are made absolute and open in a new tab.
func RewriteLinks(doc *html.Node, word string, opts RewriteOptions) *html.Node {
	out := dom.Clone(doc, true)

	dom.RemoveNodes(dom.QuerySelectorAll(out, ".maintenance-line"), nil)

	for _, a := range dom.QuerySelectorAll(out, "a[href]") {
		raw := dom.GetAttribute(a, "href")
		u, err := opts.WebBase.Parse(raw)
		if err != nil {
			openInNewTab(a)
			continue
		}

		if u.Scheme != opts.WebBase.Scheme || u.Host != opts.WebBase.Host {
			openInNewTab(a)
			continue
		}

		rawWord := strings.Replace(u.EscapedPath(), "/wiki/", "", 1)
		langCode := "eng"
		if u.Fragment != "" {
			langCode, _ = opts.Languages.Code(u.Fragment)
		}

		hashOnly := strings.HasPrefix(raw, "#")
		if !hashOnly && (langCode == "" || rawWord == "" || strings.ContainsAny(rawWord, ":/")) {
			dom.SetAttribute(a, "href", u.String())
			openInNewTab(a)
			continue
		}

		target := Unwikify(rawWord)
		if hashOnly {
			target = word
		}
		if langCode == "" {
			langCode = "eng"
		}
		dom.SetAttribute(a, "href", opts.Link(target, langCode))
	}
	return out
}

func openInNewTab(a *html.Node) {
	dom.SetAttribute(a, "target", "_blank")
	dom.SetAttribute(a, "rel", "noreferrer noopener")
}
