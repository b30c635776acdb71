package service

import (
	"context"
	"os"

	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// FileRescanner re-checks files already matched to the library. Rows whose
// files vanished from disk are removed so the next refresh can re-evaluate
// the editions they were backing. It never imports new files.
type FileRescanner struct {
	store  *store.Store
	logger *logger.Logger
}

// NewFileRescanner creates a rescan handler backed by the store.
func NewFileRescanner(st *store.Store, log *logger.Logger) *FileRescanner {
	return &FileRescanner{store: st, logger: log}
}

// Rescan implements RescanHandler.
func (r *FileRescanner) Rescan(ctx context.Context, cmd RescanCommand) error {
	for _, authorID := range cmd.AuthorIDs {
		files, err := r.store.GetFilesByAuthor(ctx, authorID)
		if err != nil {
			return err
		}

		var missing []int64
		for _, f := range files {
			if _, err := os.Stat(f.Path); os.IsNotExist(err) {
				missing = append(missing, f.ID)
				r.logger.Info("matched file missing from disk",
					"path", f.Path, "authorID", authorID)
			}
		}
		if len(missing) == 0 {
			continue
		}
		if err := r.store.BookFiles.DeleteMany(ctx, missing); err != nil {
			return err
		}
		r.logger.Info("rescan dropped missing files",
			"authorID", authorID, "count", len(missing))
	}
	return nil
}
