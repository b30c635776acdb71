// Package importer migrates a legacy SQLite library database into the
// store. It reads tracked authors and import exclusions; books and series
// are not copied because the first refresh rebuilds them from the catalog.
package importer

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// Importer reads a legacy SQLite database and writes its library into the
// store.
type Importer struct {
	db     *sql.DB
	store  *store.Store
	logger *logger.Logger

	// RootFolder is where authors without a usable legacy path are filed.
	rootFolder string
}

// Result summarizes one import run.
type Result struct {
	Authors    int `json:"authors"`
	Exclusions int `json:"exclusions"`
	Skipped    int `json:"skipped"`
}

// Open opens the legacy database read-only and verifies it looks like a
// library database.
func Open(path, rootFolder string, st *store.Store, log *logger.Logger) (*Importer, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open legacy database: %w", err)
	}
	db.SetMaxOpenConns(1)

	var name string
	err = db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'authors'`,
	).Scan(&name)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("not a library database (no authors table): %w", err)
	}

	return &Importer{db: db, store: st, logger: log, rootFolder: rootFolder}, nil
}

// Close releases the legacy database handle.
func (imp *Importer) Close() error {
	return imp.db.Close()
}

// Run copies authors and exclusions into the store. Authors already in the
// library are skipped, so re-running a partially failed import is safe.
func (imp *Importer) Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	if err := imp.importAuthors(ctx, result); err != nil {
		return nil, err
	}
	if err := imp.importExclusions(ctx, result); err != nil {
		return nil, err
	}

	imp.logger.Info("legacy import finished",
		"authors", result.Authors,
		"exclusions", result.Exclusions,
		"skipped", result.Skipped,
	)
	return result, nil
}

type legacyAuthor struct {
	ForeignID string
	Name      string
	Path      string
	Monitored bool
}

func (imp *Importer) importAuthors(ctx context.Context, result *Result) error {
	rows, err := imp.db.QueryContext(ctx, `
		SELECT foreign_author_id, name, COALESCE(path, ''), COALESCE(monitored, 1)
		FROM authors
		WHERE foreign_author_id != ''
		ORDER BY name`)
	if err != nil {
		return fmt.Errorf("query legacy authors: %w", err)
	}
	defer rows.Close()

	var legacy []legacyAuthor
	for rows.Next() {
		var a legacyAuthor
		if err := rows.Scan(&a.ForeignID, &a.Name, &a.Path, &a.Monitored); err != nil {
			return fmt.Errorf("scan legacy author: %w", err)
		}
		legacy = append(legacy, a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read legacy authors: %w", err)
	}

	for _, a := range legacy {
		existing, err := imp.store.FindAuthorByForeignID(ctx, a.ForeignID)
		if err != nil {
			return err
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		metadata := []domain.AuthorMetadata{{
			ForeignAuthorID: a.ForeignID,
			Name:            a.Name,
		}}
		if _, err := imp.store.UpsertAuthorMetadata(ctx, metadata); err != nil {
			return err
		}
		stored, err := imp.store.FindAuthorMetadataByForeignID(ctx, a.ForeignID)
		if err != nil {
			return err
		}

		path := a.Path
		if path == "" {
			path = filepath.Join(imp.rootFolder, a.Name)
		}

		author := &domain.Author{
			MetadataID: stored.ID,
			Path:       path,
			Monitored:  a.Monitored,
			Added:      time.Now(),
			Metadata:   *stored,
		}
		if err := imp.store.InsertAuthor(ctx, author); err != nil {
			return err
		}
		result.Authors++

		imp.logger.Debug("imported legacy author",
			"name", a.Name, "foreignID", a.ForeignID)
	}
	return nil
}

func (imp *Importer) importExclusions(ctx context.Context, result *Result) error {
	// Older databases predate exclusions; their absence is not an error.
	var name string
	err := imp.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'import_list_exclusions'`,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check exclusions table: %w", err)
	}

	rows, err := imp.db.QueryContext(ctx, `
		SELECT foreign_id, COALESCE(name, '')
		FROM import_list_exclusions
		WHERE foreign_id != ''`)
	if err != nil {
		return fmt.Errorf("query legacy exclusions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var foreignID, exclName string
		if err := rows.Scan(&foreignID, &exclName); err != nil {
			return fmt.Errorf("scan legacy exclusion: %w", err)
		}

		existing, err := imp.store.FindExclusionByForeignID(ctx, foreignID)
		if err != nil {
			return err
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		if err := imp.store.AddExclusion(ctx, &domain.ImportListExclusion{
			ForeignID: foreignID,
			Name:      exclName,
		}); err != nil {
			return err
		}
		result.Exclusions++
	}
	return rows.Err()
}
