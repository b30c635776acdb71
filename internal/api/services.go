package api

import (
	"github.com/shelfmark/shelfmark-server/internal/service"
)

// Services groups the service dependencies the HTTP server needs. Passing
// one struct keeps NewServer's signature stable as endpoints grow.
type Services struct {
	Authors     *service.AuthorService
	Books       *service.BookService
	Add         *service.AddAuthorService
	Refresh     *service.RefreshAuthorService
	BookRefresh *service.RefreshBookService
	Exclusions  *service.ExclusionService
}
