package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfmark/shelfmark-server/internal/config"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/metadata/bookinfo"
)

// ProvideCatalogClient provides the book metadata catalog client.
func ProvideCatalogClient(i do.Injector) (*bookinfo.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := bookinfo.NewClient(cfg.Catalog.BaseURL, log)

	log.Info("Catalog client ready", "base_url", cfg.Catalog.BaseURL)

	return client, nil
}
