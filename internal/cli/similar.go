package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/leca/scene-archive/internal/model"
	"github.com/leca/scene-archive/internal/similarity"
	"github.com/spf13/cobra"
)

var similarCmd = &cobra.Command{
	Use:   "similar [SCENE_ID]",
	Short: "Find scenes whose perceptual hash is close to a scene or hash",
	Long: `Find live versions whose perceptual hash lies within --threshold of the
query. The query is the current live version of SCENE_ID, which is
excluded from its own results, a raw hash given with --hash, or the hash
of a local image file given with --image.`,
	Example: `  scene-archive similar B_0001
  scene-archive similar --hash c3c3e1f0b0b8989c --threshold 4 --json
  scene-archive similar --image ~/scans/unknown.jpg`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().String("hash", "", "Query with a raw perceptual hash instead of a scene")
	similarCmd.Flags().String("image", "", "Query with the perceptual hash of a local image file")
	similarCmd.Flags().Int("threshold", -1, "Maximum Hamming distance (default from config)")
	similarCmd.Flags().Int("limit", 20, "Maximum number of results (0 = all)")
	similarCmd.Flags().Bool("json", false, "Output as JSON")
}

// similarOutput is the JSON form of a similar command result.
type similarOutput struct {
	QuerySceneID string               `json:"query_scene_id,omitempty"`
	QueryHash    string               `json:"query_hash"`
	Threshold    int                  `json:"threshold"`
	Results      []model.SimilarMatch `json:"results"`
	Count        int                  `json:"count"`
}

func runSimilar(cmd *cobra.Command, args []string) error {
	hash := mustGetString(cmd, "hash")
	imagePath := mustGetString(cmd, "image")
	limit := mustGetInt(cmd, "limit")

	queries := 0
	for _, set := range []bool{len(args) == 1, hash != "", imagePath != ""} {
		if set {
			queries++
		}
	}
	if queries != 1 {
		return errors.New("requires exactly one of a SCENE_ID argument, --hash or --image")
	}
	if imagePath != "" {
		fp, err := hashFile(imagePath)
		if err != nil {
			return err
		}
		hash = fp.Hash
	}

	cfg, db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	threshold := mustGetInt(cmd, "threshold")
	if threshold < 0 {
		threshold = cfg.Similarity.Threshold
	}
	if threshold > similarity.MaxThreshold {
		return fmt.Errorf("--threshold must be at most %d", similarity.MaxThreshold)
	}

	engine := similarity.NewEngine(db,
		similarity.WithMaxCandidates(cfg.Similarity.MaxCandidates),
		similarity.WithTimeout(cfg.Similarity.Timeout),
	)

	result := similarOutput{QueryHash: hash, Threshold: threshold}
	if len(args) == 1 {
		result.QuerySceneID = args[0]
		result.QueryHash, result.Results, err = engine.FindSimilarToScene(cmd.Context(), args[0], threshold, limit)
	} else {
		result.Results, err = engine.FindSimilar(cmd.Context(), hash, threshold, limit)
	}
	if err != nil {
		return fmt.Errorf("finding similar scenes: %w", err)
	}
	if result.Results == nil {
		result.Results = []model.SimilarMatch{}
	}
	result.Count = len(result.Results)

	if mustGetBool(cmd, "json") {
		return printJSON(out(cmd), result)
	}
	printSimilar(out(cmd), result)
	return nil
}

func printSimilar(w io.Writer, r similarOutput) {
	if r.QuerySceneID != "" {
		fmt.Fprintf(w, "Scenes similar to %s (hash %s, threshold %d)\n", r.QuerySceneID, r.QueryHash, r.Threshold)
	} else {
		fmt.Fprintf(w, "Scenes similar to hash %s (threshold %d)\n", r.QueryHash, r.Threshold)
	}
	if r.Count == 0 {
		fmt.Fprintln(w, "  no matches")
		return
	}
	for _, m := range r.Results {
		fmt.Fprintf(w, "  %-24s distance %-3d %s/%s\n", m.SceneID, m.Distance, m.BatchName, m.BaseFilename)
	}
}
