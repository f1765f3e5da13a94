package cognates

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyWord   = errors.New("word must be non-empty")
	ErrInvalidLang = errors.New("invalid language code")
)

// Result variables selected by the cognate query.
const (
	VarChildWord   = "childWord"
	VarChildLang   = "childLang"
	VarParentWord  = "parentWord"
	VarParentLang  = "parentLang"
	VarChildAffix  = "childAffix"
	VarParentAffix = "parentAffix"
)

var langCodeRe = regexp.MustCompile(`^[A-Za-z0-9]+(-[A-Za-z0-9]+)*$`)

const queryPrefixes = `PREFIX ety: <http://etytree-virtuoso.wmflabs.org/dbnaryetymology#>
PREFIX dcterms: <http://purl.org/dc/terms/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX lexvo: <http://lexvo.org/id/iso639-3/>
`

// affixPattern matches labels written as bound morphemes ("-itus", "pre-").
const affixPattern = `^-|-$`

// BuildSparqlQuery renders the graph traversal for p. The query selects every
// derivation edge lying on a path from the source word up to a common
// ancestor, and from that ancestor down to a word in the target language.
func BuildSparqlQuery(p SearchParams) (string, error) {
	p = p.Normalized()
	if p.Word == "" {
		return "", ErrEmptyWord
	}
	if !langCodeRe.MatchString(p.SrcLang) {
		return "", fmt.Errorf("%w: source %q", ErrInvalidLang, p.SrcLang)
	}
	if !langCodeRe.MatchString(p.TrgLang) {
		return "", fmt.Errorf("%w: target %q", ErrInvalidLang, p.TrgLang)
	}

	var b strings.Builder
	b.WriteString(queryPrefixes)
	b.WriteString("\n")
	fmt.Fprintf(&b, "SELECT DISTINCT ?%s ?%s ?%s ?%s ?%s ?%s\n",
		VarChildWord, VarChildLang, VarParentWord, VarParentLang, VarChildAffix, VarParentAffix)
	b.WriteString("WHERE {\n")

	// (a) the searched word
	fmt.Fprintf(&b, "  ?source rdfs:label ?sourceLabel ;\n          dcterms:language lexvo:%s .\n", p.SrcLang)
	fmt.Fprintf(&b, "  FILTER (STR(?sourceLabel) = %s)\n\n", quoteLiteral(p.Word))

	// (b) ancestors, the word itself included
	b.WriteString("  ?source ety:etymologicallyDerivesFrom* ?ancestor .\n")

	// (c) descendants of each ancestor in the target language
	b.WriteString("  ?target ety:etymologicallyDerivesFrom+ ?ancestor ;\n")
	fmt.Fprintf(&b, "          dcterms:language lexvo:%s ;\n", p.TrgLang)
	b.WriteString("          rdfs:label ?targetLabel .\n")

	// (d) chains must end on full lexical entries
	if !p.AllowPrefixesAndSuffixes {
		b.WriteString("  FILTER NOT EXISTS { ?target a ety:Morpheme }\n")
		fmt.Fprintf(&b, "  FILTER (!REGEX(STR(?targetLabel), %s))\n", quoteLiteral(affixPattern))
	}
	b.WriteString("\n")

	b.WriteString("  {\n")
	b.WriteString("    ?source ety:etymologicallyDerivesFrom* ?child .\n")
	b.WriteString("    ?child ety:etymologicallyDerivesFrom ?parent .\n")
	b.WriteString("    ?parent ety:etymologicallyDerivesFrom* ?ancestor .\n")
	b.WriteString("  } UNION {\n")
	b.WriteString("    ?target ety:etymologicallyDerivesFrom* ?child .\n")
	b.WriteString("    ?child ety:etymologicallyDerivesFrom ?parent .\n")
	b.WriteString("    ?parent ety:etymologicallyDerivesFrom* ?ancestor .\n")
	b.WriteString("  }\n\n")

	for _, side := range []string{"child", "parent"} {
		fmt.Fprintf(&b, "  ?%[1]s rdfs:label ?%[1]sLabel ;\n         dcterms:language ?%[1]sLangIri .\n", side)
		fmt.Fprintf(&b, "  BIND (STR(?%[1]sLabel) AS ?%[1]sWord)\n", side)
		fmt.Fprintf(&b, "  BIND (STRAFTER(STR(?%[1]sLangIri), STR(lexvo:)) AS ?%[1]sLang)\n", side)
		fmt.Fprintf(&b, "  BIND ((EXISTS { ?%[1]s a ety:Morpheme } || REGEX(?%[1]sWord, %[2]s)) AS ?%[1]sAffix)\n",
			side, quoteLiteral(affixPattern))
	}
	b.WriteString("}\n")

	return b.String(), nil
}

// quoteLiteral renders s as a double-quoted SPARQL string literal.
func quoteLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
