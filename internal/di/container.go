// Package di provides dependency injection configuration for the Shelfmark server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/di/providers"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/metadata/bookinfo"
	"github.com/shelfmark/shelfmark-server/internal/search"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchIndexer)

	// Catalog layer
	do.Provide(injector, providers.ProvideCatalogClient)

	// Business services
	do.Provide(injector, providers.ProvideAuthorService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideAddAuthorService)
	do.Provide(injector, providers.ProvideRefreshBookService)
	do.Provide(injector, providers.ProvideRefreshSeriesService)
	do.Provide(injector, providers.ProvideRefreshAuthorService)
	do.Provide(injector, providers.ProvideExclusionService)

	// Workers
	do.Provide(injector, providers.ProvideRescanQueue)
	do.Provide(injector, providers.ProvideRefreshScheduler)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*search.Indexer](injector)
	_ = do.MustInvoke[*bookinfo.Client](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthorService](injector)
	_ = do.MustInvoke[*service.BookService](injector)
	_ = do.MustInvoke[*service.AddAuthorService](injector)
	_ = do.MustInvoke[*service.RefreshBookService](injector)
	_ = do.MustInvoke[*service.RefreshSeriesService](injector)
	_ = do.MustInvoke[*service.RefreshAuthorService](injector)
	_ = do.MustInvoke[*service.ExclusionService](injector)

	// Workers
	_ = do.MustInvoke[*providers.RescanQueueHandle](injector)
	_ = do.MustInvoke[*providers.RefreshSchedulerJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Backfill the index after everything is wired
	providers.ReindexIfEmpty(injector)

	return nil
}
