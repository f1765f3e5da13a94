package sparql

import (
	"strconv"
	"strings"
)

// Results is the application/sparql-results+json document. Fields absent from
// the response decode to their zero values: no variables, no bindings.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
}

// Binding is one result row, keyed by variable name. Unbound variables are
// simply missing from the map.
type Binding map[string]Term

// Term is a single RDF term in a binding.
type Term struct {
	Type     string `json:"type"` // uri, literal, typed-literal or bnode
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Rows returns the bindings, never nil.
func (r *Results) Rows() []Binding {
	if r == nil || r.Results.Bindings == nil {
		return []Binding{}
	}
	return r.Results.Bindings
}

// String returns the trimmed value bound to name and whether it was bound to a
// non-empty value.
func (b Binding) String(name string) (string, bool) {
	t, ok := b[name]
	if !ok {
		return "", false
	}
	v := strings.TrimSpace(t.Value)
	return v, v != ""
}

// Bool interprets the value bound to name as an xsd:boolean. Unbound or
// unparseable values are false.
func (b Binding) Bool(name string) bool {
	t, ok := b[name]
	if !ok {
		return false
	}
	v, err := strconv.ParseBool(strings.TrimSpace(t.Value))
	if err != nil {
		return false
	}
	return v
}
