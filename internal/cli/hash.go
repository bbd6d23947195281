package cli

import (
	"fmt"
	"os"

	"github.com/leca/scene-archive/internal/imageproc"
	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash FILE...",
	Short: "Print the perceptual hash of image files",
	Long: `Print the 64-bit difference hash of each image file, in the hex form
used by the catalog. Useful for checking a local file against the hash the
management system reported, or as input to "similar --hash".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)

	hashCmd.Flags().Bool("json", false, "Output as JSON")
}

// hashOutput is the JSON form of one hashed file.
type hashOutput struct {
	File string `json:"file"`
	*imageproc.Fingerprint
}

func runHash(cmd *cobra.Command, args []string) error {
	results := make([]hashOutput, 0, len(args))
	for _, name := range args {
		fp, err := hashFile(name)
		if err != nil {
			return err
		}
		results = append(results, hashOutput{File: name, Fingerprint: fp})
	}

	if mustGetBool(cmd, "json") {
		return printJSON(out(cmd), results)
	}
	for _, r := range results {
		fmt.Fprintf(out(cmd), "%s  %s\n", r.Hash, r.File)
	}
	return nil
}

func hashFile(name string) (*imageproc.Fingerprint, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	fp, err := imageproc.HashReader(f)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", name, err)
	}
	return fp, nil
}
