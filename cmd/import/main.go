// Command import migrates a legacy SQLite library database into a
// Shelfmark database. Run it with the server stopped; books and series are
// rebuilt by the first refresh after startup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/shelfmark/shelfmark-server/internal/importer"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

func main() {
	legacyPath := flag.String("legacy", "", "Path to the legacy SQLite database")
	dataPath := flag.String("data", os.ExpandEnv("$HOME/Shelfmark/data/db"), "Path to the Shelfmark database")
	rootFolder := flag.String("root", "", "Root folder for authors without a legacy path")
	flag.Parse()

	if *legacyPath == "" || *rootFolder == "" {
		fmt.Fprintln(os.Stderr, "usage: import -legacy <db> -root <folder> [-data <path>]")
		os.Exit(2)
	}

	log := logger.New(logger.Config{Level: slog.LevelInfo, Format: "pretty"})

	st, err := store.New(*dataPath, log.Logger, store.NewNoopEmitter())
	if err != nil {
		log.Error("Failed to open database", "path", *dataPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	imp, err := importer.Open(*legacyPath, *rootFolder, st, log)
	if err != nil {
		log.Error("Failed to open legacy database", "path", *legacyPath, "error", err)
		os.Exit(1)
	}
	defer imp.Close()

	result, err := imp.Run(context.Background())
	if err != nil {
		log.Error("Import failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Imported %d authors and %d exclusions (%d skipped)\n",
		result.Authors, result.Exclusions, result.Skipped)
}
