package cognates

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSparqlQueryDedo(t *testing.T) {
	q, err := BuildSparqlQuery(SearchParams{Word: "dedo", SrcLang: "spa", TrgLang: "eng"})
	require.NoError(t, err)
	require.NotEmpty(t, q)

	assert.Contains(t, q, `"dedo"`)
	assert.Contains(t, q, "lexvo:spa")
	assert.Contains(t, q, "lexvo:eng")
	assert.Contains(t, q, "SELECT DISTINCT")
	assert.Equal(t, strings.Count(q, "{"), strings.Count(q, "}"), "unbalanced braces")
	for _, v := range []string{VarChildWord, VarChildLang, VarParentWord, VarParentLang} {
		assert.Contains(t, q, "?"+v)
	}
}

func TestBuildSparqlQueryIsDeterministic(t *testing.T) {
	p := SearchParams{Word: "digit", SrcLang: "eng", TrgLang: "fra"}
	a, err := BuildSparqlQuery(p)
	require.NoError(t, err)
	b, err := BuildSparqlQuery(p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildSparqlQueryTrimsWord(t *testing.T) {
	a, err := BuildSparqlQuery(SearchParams{Word: "  dedo\t", SrcLang: "spa", TrgLang: "eng"})
	require.NoError(t, err)
	b, err := BuildSparqlQuery(SearchParams{Word: "dedo", SrcLang: "spa", TrgLang: "eng"})
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestBuildSparqlQueryRejectsEmptyWord(t *testing.T) {
	_, err := BuildSparqlQuery(SearchParams{Word: "   ", SrcLang: "spa", TrgLang: "eng"})
	assert.ErrorIs(t, err, ErrEmptyWord)
}

func TestBuildSparqlQueryRejectsBadLanguage(t *testing.T) {
	_, err := BuildSparqlQuery(SearchParams{Word: "dedo", SrcLang: "spa> . ?x ?y ?z", TrgLang: "eng"})
	assert.ErrorIs(t, err, ErrInvalidLang)

	_, err = BuildSparqlQuery(SearchParams{Word: "dedo", SrcLang: "spa", TrgLang: ""})
	assert.ErrorIs(t, err, ErrInvalidLang)

	_, err = BuildSparqlQuery(SearchParams{Word: "*deyk-", SrcLang: "ine-pro", TrgLang: "eng"})
	assert.NoError(t, err)
}

func TestBuildSparqlQueryAffixFilter(t *testing.T) {
	strict, err := BuildSparqlQuery(SearchParams{Word: "dedo", SrcLang: "spa", TrgLang: "eng"})
	require.NoError(t, err)
	loose, err := BuildSparqlQuery(SearchParams{Word: "dedo", SrcLang: "spa", TrgLang: "eng", AllowPrefixesAndSuffixes: true})
	require.NoError(t, err)

	assert.Contains(t, strict, "FILTER NOT EXISTS { ?target a ety:Morpheme }")
	assert.NotContains(t, loose, "FILTER NOT EXISTS { ?target a ety:Morpheme }")
}

func TestBuildSparqlQueryEscapesWord(t *testing.T) {
	q, err := BuildSparqlQuery(SearchParams{Word: `a"b\c` + "\n", SrcLang: "eng", TrgLang: "deu"})
	require.NoError(t, err)
	assert.Contains(t, q, `"a\"b\\c"`)
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `"plain"`, quoteLiteral("plain"))
	assert.Equal(t, `"tab\there"`, quoteLiteral("tab\there"))
	assert.Equal(t, `"línea\nnueva"`, quoteLiteral("línea\nnueva"))
}

// checkQueryStructure verifies that brackets outside string literals nest
// correctly and that every projected variable is bound in the WHERE clause.
func checkQueryStructure(q string) error {
	var stack []rune
	pairs := map[rune]rune{'}': '{', ')': '('}
	inString, escaped := false, false
	for i, r := range q {
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
		case r == '"':
			inString = true
		case r == '{' || r == '(':
			stack = append(stack, r)
		case r == '}' || r == ')':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return fmt.Errorf("unexpected %q at offset %d", r, i)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if inString {
		return fmt.Errorf("unterminated string literal")
	}
	if len(stack) > 0 {
		return fmt.Errorf("%d unclosed brackets", len(stack))
	}

	m := regexp.MustCompile(`(?s)SELECT DISTINCT (.*?)\nWHERE \{(.*)\}`).FindStringSubmatch(q)
	if m == nil {
		return fmt.Errorf("no SELECT ... WHERE { } block")
	}
	vars := strings.Fields(m[1])
	if len(vars) == 0 {
		return fmt.Errorf("empty projection")
	}
	for _, v := range vars {
		if !strings.HasPrefix(v, "?") {
			return fmt.Errorf("projection %q is not a variable", v)
		}
		bound := regexp.MustCompile(`(AS ` + regexp.QuoteMeta(v) + `\))|(\s` + regexp.QuoteMeta(v) + `\s)`)
		if !bound.MatchString(m[2]) {
			return fmt.Errorf("variable %s is not bound in WHERE", v)
		}
	}
	return nil
}

func TestBuildSparqlQueryIsWellFormed(t *testing.T) {
	for _, p := range []SearchParams{
		{Word: "dedo", SrcLang: "spa", TrgLang: "eng"},
		{Word: "dedo", SrcLang: "spa", TrgLang: "eng", AllowPrefixesAndSuffixes: true},
		{Word: `a"b}{(\`, SrcLang: "ine-pro", TrgLang: "fra"},
		{Word: "行く", SrcLang: "jpn", TrgLang: "eng"},
	} {
		q, err := BuildSparqlQuery(p)
		require.NoError(t, err, p.Word)
		assert.NoError(t, checkQueryStructure(q), "word %q:\n%s", p.Word, q)
	}
}

func TestCheckQueryStructureCatchesDefects(t *testing.T) {
	assert.Error(t, checkQueryStructure("SELECT DISTINCT ?a\nWHERE { ?a ?b ?c . "))
	assert.Error(t, checkQueryStructure("SELECT DISTINCT ?a\nWHERE { (?a ?b ?c }"))
	assert.Error(t, checkQueryStructure("SELECT DISTINCT ?a ?d\nWHERE { ?a ?b ?c . }"))
	assert.NoError(t, checkQueryStructure("SELECT DISTINCT ?a ?d\nWHERE { ?a ?b \"}\" . BIND (STR(?a) AS ?d) }"))
}
