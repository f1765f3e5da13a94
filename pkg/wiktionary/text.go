package wiktionary

import (
	"fmt"
	"strings"

	"github.com/go-shiori/dom"
)

// Senses returns the plain text of each top-level sense of a definition
// fragment, without nested examples. Ruby annotations are dropped so that
// 漢字 does not read as 漢字かんじ.
func Senses(fragment string) ([]string, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, nil
	}
	doc, err := dom.FastParse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	dom.RemoveNodes(dom.QuerySelectorAll(doc, "rt, rp"), nil)
	// Nested lists hold quotations and usage examples.
	for _, li := range dom.QuerySelectorAll(doc, "ol > li") {
		dom.RemoveNodes(dom.QuerySelectorAll(li, "ul, dl, ol"), nil)
	}

	var senses []string
	for _, li := range dom.QuerySelectorAll(doc, "ol > li") {
		if s := strings.Join(strings.Fields(dom.TextContent(li)), " "); s != "" {
			senses = append(senses, s)
		}
	}
	return senses, nil
}
