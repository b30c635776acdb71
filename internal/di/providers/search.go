package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Store.DataPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// ProvideSearchIndexer provides the store-to-index bridge and wires it into
// the store so writes keep the index current.
func ProvideSearchIndexer(i do.Injector) (*search.Indexer, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	indexer := search.NewIndexer(indexHandle.SearchIndex, storeHandle.Store)
	storeHandle.SetSearchIndexer(indexer)

	return indexer, nil
}

// ReindexIfEmpty backfills the search index when it is empty but the library
// is not, which happens after a mapping-version rebuild. Runs in the
// background so startup is not blocked.
func ReindexIfEmpty(i do.Injector) {
	indexer := do.MustInvoke[*search.Indexer](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	authors, err := storeHandle.GetAllAuthors(ctx)
	if err != nil || len(authors) == 0 {
		return
	}

	log.Info("Search index is empty but library is not, reindexing",
		"authors", len(authors),
	)

	go func() {
		ctx := context.Background()
		for _, author := range authors {
			if err := indexer.IndexAuthor(ctx, author); err != nil {
				log.Warn("reindex author failed", "authorID", author.ID, "error", err)
			}
			books, err := storeHandle.GetBooksByAuthorMetadataID(ctx, author.MetadataID)
			if err != nil {
				log.Warn("reindex book listing failed", "authorID", author.ID, "error", err)
				continue
			}
			for _, book := range books {
				if err := indexer.IndexBook(ctx, book); err != nil {
					log.Warn("reindex book failed", "bookID", book.ID, "error", err)
				}
			}
		}
		count, _ := indexHandle.DocumentCount()
		log.Info("Search reindex completed", "documents", count)
	}()
}
