package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/metadata/bookinfo"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

// ProvideAuthorService provides author reads, deletes, and fuzzy lookups.
func ProvideAuthorService(i do.Injector) (*service.AuthorService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewAuthorService(storeHandle.Store, log), nil
}

// ProvideBookService provides book reads and fuzzy title lookups.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewBookService(storeHandle.Store, log), nil
}

// ProvideAddAuthorService provides the add-author flow.
func ProvideAddAuthorService(i do.Injector) (*service.AddAuthorService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	catalog := do.MustInvoke[*bookinfo.Client](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewAddAuthorService(storeHandle.Store, catalog, log), nil
}

// ProvideRefreshBookService provides per-book refreshes.
func ProvideRefreshBookService(i do.Injector) (*service.RefreshBookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	catalog := do.MustInvoke[*bookinfo.Client](i)
	add := do.MustInvoke[*service.AddAuthorService](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewRefreshBookService(storeHandle.Store, catalog, add, log), nil
}

// ProvideRefreshSeriesService provides series reconciliation.
func ProvideRefreshSeriesService(i do.Injector) (*service.RefreshSeriesService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewRefreshSeriesService(storeHandle.Store, log), nil
}

// ProvideRefreshAuthorService provides author refreshes and the refresh-all
// sweep.
func ProvideRefreshAuthorService(i do.Injector) (*service.RefreshAuthorService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	catalog := do.MustInvoke[*bookinfo.Client](i)
	books := do.MustInvoke[*service.RefreshBookService](i)
	series := do.MustInvoke[*service.RefreshSeriesService](i)
	queueHandle := do.MustInvoke[*RescanQueueHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	policy := service.RescanPolicy(cfg.Library.RescanAfterRefresh)

	return service.NewRefreshAuthorService(storeHandle.Store, catalog, books, series, queueHandle.RescanQueue, policy, log), nil
}

// ProvideExclusionService provides import-list exclusion management.
func ProvideExclusionService(i do.Injector) (*service.ExclusionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewExclusionService(storeHandle.Store, log), nil
}
