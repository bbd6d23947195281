package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/leca/scene-archive/internal/model"
	"github.com/leca/scene-archive/internal/reconcile"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// cliSyncType labels runs started from the command line.
const cliSyncType = "cli_sync"

var syncCmd = &cobra.Command{
	Use:   "sync FILE",
	Short: "Reconcile the catalog against an exported payload",
	Long: `Reconcile the local catalog against a JSON payload exported by the
management system. FILE holds either {"scenes": [...]} or a bare array of
scenes; use - to read standard input.

With --chunk-size 0 the whole payload is applied as one atomic batch.
A positive chunk size commits each chunk separately, so a failure part way
through leaves earlier chunks applied.`,
	Example: `  scene-archive sync export.json --dry-run
  scene-archive sync export.json --chunk-size 500`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().Bool("dry-run", false, "Compute the outcome without changing the catalog")
	syncCmd.Flags().Int("chunk-size", 0, "Scenes per committed batch (0 = single batch)")
	syncCmd.Flags().Bool("json", false, "Output stats as JSON")
}

// syncOutput is the JSON form of a sync command result.
type syncOutput struct {
	DryRun  bool            `json:"dry_run"`
	Chunks  int             `json:"chunks"`
	SyncIDs []string        `json:"sync_ids,omitempty"`
	Stats   model.SyncStats `json:"stats"`
	Error   string          `json:"error,omitempty"`
}

func runSync(cmd *cobra.Command, args []string) error {
	chunkSize := mustGetInt(cmd, "chunk-size")
	jsonOutput := mustGetBool(cmd, "json")
	if chunkSize < 0 {
		return errors.New("--chunk-size must not be negative")
	}

	payload, err := readPayload(cmd, args[0])
	if err != nil {
		return err
	}
	dryRun := payload.DryRun || mustGetBool(cmd, "dry-run")

	_, db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	rec := reconcile.New(db, reconcile.WithSyncType(cliSyncType))
	chunks := reconcile.Chunks(payload.Scenes, chunkSize)

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(payload.Scenes),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("Reconciling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("scenes"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	result := syncOutput{DryRun: dryRun, Chunks: len(chunks)}
	var runErr error
	for _, chunk := range chunks {
		res, err := rec.Reconcile(cmd.Context(), chunk, dryRun)
		if err != nil {
			// The failed chunk was rolled back; Stats covers committed chunks only.
			runErr = err
			break
		}
		if res.SyncID != "" {
			result.SyncIDs = append(result.SyncIDs, res.SyncID)
		}
		result.Stats.Add(res.Stats)
		if bar != nil {
			_ = bar.Add(len(chunk))
		}
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	if jsonOutput {
		if runErr != nil {
			result.Error = runErr.Error()
		}
		if err := printJSON(out(cmd), result); err != nil {
			return err
		}
		return runErr
	}

	printSyncStats(out(cmd), result)
	if runErr != nil {
		return fmt.Errorf("sync aborted: %w", runErr)
	}
	return nil
}

func readPayload(cmd *cobra.Command, name string) (*reconcile.Payload, error) {
	if name == "-" {
		return reconcile.DecodePayload(cmd.InOrStdin())
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening payload: %w", err)
	}
	defer f.Close()
	return reconcile.DecodePayload(f)
}

func printSyncStats(w io.Writer, r syncOutput) {
	mode := "applied"
	if r.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "Sync %s (%d chunk(s))\n", mode, r.Chunks)
	fmt.Fprintf(w, "  scenes synced:        %d\n", r.Stats.ScenesSynced)
	fmt.Fprintf(w, "  versions marked live: %d\n", r.Stats.VersionsMarkedLive)
	fmt.Fprintf(w, "  skipped:              %d\n", r.Stats.Skipped)
	fmt.Fprintf(w, "  errors:               %d\n", r.Stats.Errors)
	for _, id := range r.SyncIDs {
		fmt.Fprintf(w, "  sync run:             %s\n", id)
	}
}
