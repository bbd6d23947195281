package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/leca/scene-archive/internal/config"
	"github.com/leca/scene-archive/internal/database"
)

// openCatalog loads configuration and opens the catalog database it names.
func openCatalog() (*config.Config, *database.SQLiteDB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := database.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database %s: %w", cfg.DBPath, err)
	}
	return cfg, db, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
