package service

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/metadata/bookinfo"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// fakeProvider is an in-memory catalog. Catalog records are cloned on every
// fetch; the refresh engine mutates what it receives.
type fakeProvider struct {
	mu          sync.Mutex
	authors     map[string]*domain.Author
	books       map[string]fakeBookRecord
	failFor     map[string]error
	changed     []string
	authorCalls map[string]int
}

type fakeBookRecord struct {
	authorForeignID string
	book            *domain.Book
	metadata        []domain.AuthorMetadata
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		authors:     make(map[string]*domain.Author),
		books:       make(map[string]fakeBookRecord),
		failFor:     make(map[string]error),
		authorCalls: make(map[string]int),
	}
}

func (p *fakeProvider) GetAuthorInfo(_ context.Context, foreignID string) (*domain.Author, []domain.AuthorMetadata, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.failFor[foreignID]; err != nil {
		return nil, nil, err
	}
	author, ok := p.authors[foreignID]
	if !ok {
		return nil, nil, bookinfo.ErrNotFound
	}
	p.authorCalls[foreignID]++
	clone := cloneValue(author)
	return clone, []domain.AuthorMetadata{clone.Metadata}, nil
}

func (p *fakeProvider) GetBookInfo(_ context.Context, foreignBookID string) (string, *domain.Book, []domain.AuthorMetadata, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.books[foreignBookID]
	if !ok {
		return "", nil, nil, bookinfo.ErrNotFound
	}
	metadata := *cloneValue(&rec.metadata)
	return rec.authorForeignID, cloneValue(rec.book), metadata, nil
}

func (p *fakeProvider) GetChangedAuthors(context.Context, time.Time) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changed, nil
}

func cloneValue[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

// refreshFixture wires a real store against the fake catalog.
type refreshFixture struct {
	store    *store.Store
	provider *fakeProvider
	add      *AddAuthorService
	books    *RefreshBookService
	series   *RefreshSeriesService
	authors  *RefreshAuthorService
	queue    *RescanQueue
}

func newRefreshFixture(t *testing.T, policy RescanPolicy) *refreshFixture {
	t.Helper()

	log := logger.New(logger.Config{Level: slog.LevelError, Format: "json"})

	st, err := store.New(t.TempDir(), nil, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	provider := newFakeProvider()
	add := NewAddAuthorService(st, provider, log)
	books := NewRefreshBookService(st, provider, add, log)
	series := NewRefreshSeriesService(st, log)
	queue := NewRescanQueue(NoopRescanHandler{}, log)
	authors := NewRefreshAuthorService(st, provider, books, series, queue, policy, log)

	return &refreshFixture{
		store:    st,
		provider: provider,
		add:      add,
		books:    books,
		series:   series,
		authors:  authors,
		queue:    queue,
	}
}

// seedAuthor registers catalog data and adds the author to the library.
// Books arrive with the first refresh, not the add.
func (fx *refreshFixture) seedAuthor(t *testing.T, catalog *domain.Author) *domain.Author {
	t.Helper()
	fx.provider.authors[catalog.ForeignAuthorID()] = catalog
	author, err := fx.add.AddAuthor(context.Background(), AddAuthorRequest{
		ForeignAuthorID: catalog.ForeignAuthorID(),
		RootFolder:      "/library",
		Monitored:       true,
	})
	require.NoError(t, err)
	return author
}

// refreshAuthor runs one engine pass for the author and returns whether
// anything changed.
func (fx *refreshFixture) refreshAuthor(t *testing.T, a *domain.Author) bool {
	t.Helper()
	updated, err := fx.authors.engine.RefreshEntityInfo(context.Background(), a, nil, nil, true, false, nil)
	require.NoError(t, err)
	return updated
}

// loadAuthor re-reads the author row.
func (fx *refreshFixture) loadAuthor(t *testing.T, id int64) *domain.Author {
	t.Helper()
	a, err := fx.store.Authors.Get(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (fx *refreshFixture) booksOf(t *testing.T, a *domain.Author) []*domain.Book {
	t.Helper()
	books, err := fx.store.GetBooksByAuthorMetadataID(context.Background(), a.MetadataID)
	require.NoError(t, err)
	return books
}

// Catalog record builders.

func catalogAuthor(foreignID, name string, books ...domain.Book) *domain.Author {
	return &domain.Author{
		Metadata: domain.AuthorMetadata{
			ForeignAuthorID: foreignID,
			Name:            name,
			CleanName:       cleanTestName(name),
			Status:          domain.AuthorStatusContinuing,
		},
		Books: books,
	}
}

func catalogBook(foreignID, title string, editions ...domain.Edition) domain.Book {
	return domain.Book{
		ForeignBookID: foreignID,
		Title:         title,
		CleanTitle:    cleanTestName(title),
		Editions:      editions,
	}
}

func catalogEdition(foreignID, title string) domain.Edition {
	return domain.Edition{
		ForeignEditionID: foreignID,
		Title:            title,
	}
}

func cleanTestName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			out = append(out, r)
		}
		if r >= 'A' && r <= 'Z' {
			out = append(out, r+('a'-'A'))
		}
	}
	return string(out)
}
