package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/leca/scene-archive/internal/model"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics and the last sync run",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Bool("json", false, "Output as JSON")
}

// statsOutput is the JSON form of the stats command result.
type statsOutput struct {
	Catalog  *model.CatalogStats `json:"catalog"`
	LastSync *model.SyncRun      `json:"last_sync"`
}

func runStats(cmd *cobra.Command, args []string) error {
	_, db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}
	last, err := db.LatestSyncRun(cmd.Context())
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("reading last sync run: %w", err)
	}

	result := statsOutput{Catalog: stats, LastSync: last}
	if mustGetBool(cmd, "json") {
		return printJSON(out(cmd), result)
	}
	printStats(out(cmd), result)
	return nil
}

func printStats(w io.Writer, r statsOutput) {
	c := r.Catalog
	fmt.Fprintf(w, "Scenes:                      %d\n", c.TotalScenes)
	fmt.Fprintf(w, "Versions:                    %d\n", c.TotalVersions)
	fmt.Fprintf(w, "  live:                      %d\n", c.LiveVersions)
	fmt.Fprintf(w, "  with perceptual hash:      %d\n", c.VersionsWithHash)
	fmt.Fprintf(w, "  current:                   %d\n", c.CurrentVersions)
	fmt.Fprintf(w, "  current with hash:         %d\n", c.CurrentVersionsWithHash)

	if r.LastSync == nil {
		fmt.Fprintln(w, "Last sync:                   never")
		return
	}
	s := r.LastSync
	fmt.Fprintf(w, "Last sync:                   %s (%s, %s)\n", s.StartedAt.Format(time.RFC3339), s.SyncType, s.Status)
	fmt.Fprintf(w, "  scenes synced:             %d\n", s.ScenesSynced)
	fmt.Fprintf(w, "  versions marked live:      %d\n", s.VersionsMarkedLive)
	if s.ErrorMessage != nil {
		fmt.Fprintf(w, "  error:                     %s\n", *s.ErrorMessage)
	}
}
