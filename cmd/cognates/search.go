package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/cognates/pkg/cognates"
	"github.com/japaniel/cognates/pkg/search"
	"github.com/japaniel/cognates/pkg/wiktionary"
)

var searchCmd = &cobra.Command{
	Use:   "search [word]",
	Short: "List the cognates of a word",
	Long: `Search the etymology graph for cognates of word in the target language.

Without a word, the last search is shown again from the session database,
or the initial example search is run when there is none.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

var (
	searchSrc      string
	searchTrg      string
	searchAffixes  bool
	searchPage     int
	searchJSON     bool
	searchQuery    bool
	searchPrefetch bool
	searchRefresh  bool
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchSrc, "src", "s", "spa", "language code of the word")
	searchCmd.Flags().StringVarP(&searchTrg, "trg", "t", "eng", "language code of the cognates")
	searchCmd.Flags().BoolVar(&searchAffixes, "affixes", false, "allow prefixes and suffixes as cognates")
	searchCmd.Flags().IntVarP(&searchPage, "page", "p", 1, "page of results to show")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the result as JSON")
	searchCmd.Flags().BoolVar(&searchQuery, "query", false, "print the SPARQL query that produced the result")
	searchCmd.Flags().BoolVar(&searchPrefetch, "prefetch", false, "fetch and store definitions of the listed cognates")
	searchCmd.Flags().BoolVar(&searchRefresh, "refresh", false, "drop the cached result and query the endpoint again")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, searchPrefetch)
	if err != nil {
		return err
	}
	defer a.Close()

	var st *search.State
	if len(args) == 0 {
		v := url.Values{}
		if cmd.Flags().Changed("page") {
			v.Set(search.KeyPage, strconv.Itoa(searchPage))
		}
		st, err = a.session.Resume(ctx, v)
	} else {
		params := search.Params{
			Word:                     args[0],
			SrcLang:                  searchSrc,
			TrgLang:                  searchTrg,
			AllowPrefixesAndSuffixes: searchAffixes,
		}
		if searchRefresh {
			if err := a.fetcher.Forget(params.Search()); err != nil {
				a.logger.Warn("could not drop cached result", "word", params.Word, "error", err)
			}
		}
		st, err = a.session.Submit(ctx, params)
		if err == nil && searchPage > 1 {
			st, err = a.session.SetPage(searchPage)
		}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	writeState(out, st, a.dict.Languages())
	if searchQuery && st.Query != "" {
		fmt.Fprintf(out, "\n%s\n", st.Query)
	}
	return nil
}

func writeState(w io.Writer, st *search.State, langs *wiktionary.Languages) {
	switch st.Status {
	case search.StatusNeverSearched:
		fmt.Fprintln(w, "No search yet.")
		return
	case search.StatusEmpty:
		fmt.Fprintf(w, "No cognates of %q found.\n", st.Params.Word)
		return
	case search.StatusError:
		fmt.Fprintf(w, "Error: %s\n", st.Error)
		if st.Total == 0 {
			return
		}
	}

	p := st.Params
	fmt.Fprintf(w, "Cognates of %s (%s) in %s: %d results, page %d of %d\n\n",
		p.Word, langs.NameOr(p.SrcLang), langs.NameOr(p.TrgLang), st.Total, st.Page, st.MaxPage)
	for _, c := range st.Chains {
		fmt.Fprintln(w, formatChain(c))
	}
}

// formatChain renders a chain from the searched word up to the ancestor and
// down to the cognate, e.g. "dedo [spa] < digitus [lat] > digit [eng]".
func formatChain(c cognates.CognateChain) string {
	parts := make([]string, 0, len(c.Src)+len(c.Trg)+1)
	for i := len(c.Src) - 1; i >= 0; i-- {
		if c.Src[i] == c.Ancestor {
			continue
		}
		parts = append(parts, formatRef(c.Src[i]))
	}
	var b strings.Builder
	b.WriteString(strings.Join(parts, " < "))
	if len(parts) > 0 {
		b.WriteString(" < ")
	}
	b.WriteString(formatRef(c.Ancestor))
	for _, r := range c.Trg {
		b.WriteString(" > ")
		b.WriteString(formatRef(r))
	}
	return b.String()
}

func formatRef(r cognates.WordRef) string {
	return r.Word + " [" + r.LangCode + "]"
}
