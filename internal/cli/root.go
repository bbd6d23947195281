package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scene-archive",
	Short: "Catalog, search and compare photographic scenes",
	Long: `Scene Archive keeps a catalog of photographic scenes and their image
versions. It serves full-text search, perceptual-hash similarity and a
sync endpoint fed by the external management system.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// out is where commands write their results.
func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
