// Package bookinfo talks to the book metadata catalog. It exposes a narrow
// Provider interface consumed by the refresh services plus a rate-limited
// HTTP client implementing it.
package bookinfo

import (
	"context"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// Provider is the catalog contract the refresh services depend on. Test
// suites substitute fakes; production wires the Client.
type Provider interface {
	// GetAuthorInfo fetches the canonical author record with its full book
	// and series sets, plus every author metadata record the catalog
	// returned alongside (the author itself and co-authors of its works).
	// Returns ErrNotFound when the catalog has no such author.
	GetAuthorInfo(ctx context.Context, foreignAuthorID string) (*domain.Author, []domain.AuthorMetadata, error)

	// GetBookInfo fetches one book with its editions and series links. The
	// first return value is the foreign id of the author the catalog files
	// the book under, which may differ from the library's current parent.
	GetBookInfo(ctx context.Context, foreignBookID string) (string, *domain.Book, []domain.AuthorMetadata, error)

	// GetChangedAuthors returns the foreign ids of authors the catalog
	// changed since the given time. A nil slice with a nil error means the
	// change list is unavailable (window too large or too many changes) and
	// the caller must fall back to per-entity staleness checks.
	GetChangedAuthors(ctx context.Context, since time.Time) ([]string, error)
}
