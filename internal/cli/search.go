package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/leca/scene-archive/internal/model"
	"github.com/leca/scene-archive/internal/search"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [QUERY]",
	Short: "Full-text search over scene descriptions",
	Long: `Search the indexed text of scenes: filenames, descriptions, roll
comments, date notes and index book comments.
Terms are OR-matched. Without a query, scenes are listed by the given
filters only. Facet counts cover the whole filtered result set.`,
	Example: `  scene-archive search "harbour boats"
  scene-archive search boat --batch B --roll-date 1968-05-02 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("batch", "", "Only scenes in this batch")
	searchCmd.Flags().String("roll", "", "Only scenes on this roll number")
	searchCmd.Flags().String("roll-date", "", "Only scenes with this roll date")
	searchCmd.Flags().String("date-source", "", "Only scenes with this date source")
	searchCmd.Flags().Int("limit", 20, "Maximum number of results")
	searchCmd.Flags().Int("offset", 0, "Number of results to skip")
	searchCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	filters := model.SearchFilters{
		BatchName:  mustGetString(cmd, "batch"),
		RollNumber: mustGetString(cmd, "roll"),
		RollDate:   mustGetString(cmd, "roll-date"),
		DateSource: mustGetString(cmd, "date-source"),
	}
	limit, offset := search.Page(mustGetInt(cmd, "limit"), mustGetInt(cmd, "offset"))

	_, db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := db.Search(cmd.Context(), query, filters, limit, offset)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return printJSON(out(cmd), res)
	}
	printSearchResult(out(cmd), res, offset)
	return nil
}

func printSearchResult(w io.Writer, res *model.SearchResult, offset int) {
	fmt.Fprintf(w, "%d matching scene(s)\n", res.Total)
	for i, s := range res.Results {
		desc := model.Deref(s.ShortDescription)
		if desc == "" {
			desc = model.Deref(s.Description)
		}
		fmt.Fprintf(w, "%4d. %-24s %s/%s  %s\n", offset+i+1, s.SceneID, s.BatchName, s.BaseFilename, truncate(desc, 60))
	}
	for _, dim := range search.Dimensions {
		values := res.Facets[dim.Key]
		if len(values) == 0 {
			continue
		}
		parts := make([]string, 0, len(values))
		for _, v := range values {
			parts = append(parts, fmt.Sprintf("%s (%d)", v.Value, v.Count))
		}
		fmt.Fprintf(w, "%s: %s\n", dim.Key, strings.Join(parts, ", "))
	}
}

func truncate(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
