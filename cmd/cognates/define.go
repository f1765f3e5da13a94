package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/japaniel/cognates/pkg/wiktionary"
)

var defineCmd = &cobra.Command{
	Use:   "define <word> <lang>",
	Short: "Print the dictionary definition of a word",
	Args:  cobra.ExactArgs(2),
	RunE:  runDefine,
}

var defineHTML bool

func init() {
	rootCmd.AddCommand(defineCmd)
	defineCmd.Flags().BoolVar(&defineHTML, "html", false, "print the definition fragment as HTML")
}

func runDefine(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	word, lang := args[0], args[1]
	html, err := a.dict.DefinitionHTML(ctx, word, lang)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if html == "" {
		fmt.Fprintf(out, "No %s definition of %q found.\n", a.dict.Languages().NameOr(lang), word)
		return nil
	}
	if defineHTML {
		fmt.Fprintln(out, html)
		return nil
	}
	senses, err := wiktionary.Senses(html)
	if err != nil {
		return err
	}
	for i, s := range senses {
		fmt.Fprintf(out, "%d. %s\n", i+1, s)
	}
	return nil
}
