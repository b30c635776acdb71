// Command dbinspect prints row counts and library summaries from a
// Shelfmark database, read-only. Useful when debugging refresh results
// without starting the server.
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Shelfmark/data/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	for _, prefix := range []string{
		"author:", "authormeta:", "book:", "edition:",
		"series:", "serieslink:", "bookfile:", "history:", "exclusion:",
	} {
		count, err := countRows(db, prefix)
		if err != nil {
			log.Fatalf("Failed to count %s rows: %v", prefix, err)
		}
		fmt.Printf("%-12s %d\n", strings.TrimSuffix(prefix, ":"), count)
	}

	fmt.Println()
	if err := printAuthors(db); err != nil {
		log.Fatalf("Failed to list authors: %v", err)
	}
}

// countRows counts primary rows under a prefix, skipping index and
// sequence keys.
func countRows(db *badger.DB, prefix string) (int, error) {
	count := 0
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), prefix)
			if strings.HasPrefix(rest, "idx:") || rest == "seq" {
				continue
			}
			count++
		}
		return nil
	})
	return count, err
}

func printAuthors(db *badger.DB) error {
	fmt.Println("=== Authors ===")
	return db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("author:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), "author:")
			if strings.HasPrefix(rest, "idx:") || rest == "seq" {
				continue
			}
			err := it.Item().Value(func(val []byte) error {
				var author domain.Author
				if err := json.Unmarshal(val, &author); err != nil {
					return err
				}
				sync := "never"
				if author.LastInfoSync != nil {
					sync = author.LastInfoSync.Format("2006-01-02 15:04")
				}
				fmt.Printf("  [%d] %s  monitored=%v  last_sync=%s\n",
					author.ID, author.Name(), author.Monitored, sync)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
