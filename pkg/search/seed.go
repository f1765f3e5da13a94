package search

import (
	"github.com/japaniel/cognates/pkg/db"
	"github.com/japaniel/cognates/pkg/wiktionary"
)

// DefinitionSeed loads persisted definitions keyed the way the definition
// client memoizes them, for seeding its store.
func DefinitionSeed(exec db.DBExecutor) (map[string]string, error) {
	defs, err := db.AllDefinitions(exec)
	if err != nil {
		return nil, err
	}
	seed := make(map[string]string, len(defs))
	for _, d := range defs {
		seed[wiktionary.DefinitionKey(d.Word, d.Lang)] = d.HTML
	}
	return seed, nil
}
