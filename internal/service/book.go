package service

import (
	"context"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/match"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// BookService orchestrates book lookups, including title matching scoped to
// one author's shelf.
type BookService struct {
	store  *store.Store
	logger *logger.Logger
}

// NewBookService creates a new book service.
func NewBookService(store *store.Store, logger *logger.Logger) *BookService {
	return &BookService{store: store, logger: logger}
}

// GetBook returns one book by local id.
func (s *BookService) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	book, err := s.store.Books.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFoundf("book %d not found", id)
		}
		return nil, err
	}
	return book, nil
}

// GetBooksByAuthor returns the books filed under an author metadata id.
func (s *BookService) GetBooksByAuthor(ctx context.Context, authorMetadataID int64) ([]*domain.Book, error) {
	return s.store.GetBooksByAuthorMetadataID(ctx, authorMetadataID)
}

// FindByForeignID returns the book owning a catalog id, or nil.
func (s *BookService) FindByForeignID(ctx context.Context, foreignID string) (*domain.Book, error) {
	return s.store.FindBookByForeignID(ctx, foreignID)
}

// bookScoringFuncs builds the ordered scoring functions for a title lookup.
// Book titles carry more noise than author names (edition suffixes,
// bracketed disambiguation, subtitles after a dash), so each variant gets
// its own pass before falling back to substring containment.
func bookScoringFuncs(title string) []match.ScoreFunc[*domain.Book] {
	clean := match.CleanName(title)
	cleanStripped := match.CleanName(match.RemoveBracketsAndContents(title))
	cleanNoSubtitle := match.CleanName(match.RemoveAfterDash(title))

	return []match.ScoreFunc[*domain.Book]{
		func(b *domain.Book) float64 {
			return match.Similarity(b.CleanTitle, clean)
		},
		func(b *domain.Book) float64 {
			return match.Similarity(match.CleanName(match.RemoveBracketsAndContents(b.Title)), cleanStripped)
		},
		func(b *domain.Book) float64 {
			return match.Similarity(match.CleanName(match.RemoveAfterDash(b.Title)), cleanNoSubtitle)
		},
		func(b *domain.Book) float64 {
			return match.ContainsScore(b.CleanTitle, clean)
		},
		func(b *domain.Book) float64 {
			return match.ContainsScore(clean, b.CleanTitle)
		},
	}
}

// FindByTitleInexact resolves a free-text title against one author's books,
// or nil when no scoring function produces an unambiguous match.
func (s *BookService) FindByTitleInexact(ctx context.Context, authorMetadataID int64, title string) (*domain.Book, error) {
	books, err := s.store.GetBooksByAuthorMetadataID(ctx, authorMetadataID)
	if err != nil {
		return nil, err
	}

	found, ok := match.FindInexact(books, bookScoringFuncs(title), match.BookTolerance)
	if !ok {
		s.logger.Debug("no unambiguous book match", "title", title, "candidates", len(books))
		return nil, nil
	}
	return found, nil
}

// GetCandidates returns every plausible book for a free-text title within
// one author's shelf, for interactive disambiguation.
func (s *BookService) GetCandidates(ctx context.Context, authorMetadataID int64, title string) ([]*domain.Book, error) {
	books, err := s.store.GetBooksByAuthorMetadataID(ctx, authorMetadataID)
	if err != nil {
		return nil, err
	}
	return match.Candidates(books, bookScoringFuncs(title), match.BookTolerance,
		func(b *domain.Book) int64 { return b.ID }), nil
}
