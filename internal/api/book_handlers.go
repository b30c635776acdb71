package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "lookupBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/lookup",
		Summary:     "Look up a book by title",
		Description: "Fuzzy-matches one author's books against a title. Returns the unambiguous best match when one exists, plus all candidates.",
		Tags:        []string{"Books"},
	}, s.handleLookupBook)
}

// === DTOs ===

// BookIDInput identifies a book by library id.
type BookIDInput struct {
	ID int64 `path:"id" doc:"Book id"`
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// BookLookupInput contains the title lookup query.
type BookLookupInput struct {
	AuthorMetadataID int64  `query:"author_metadata_id" required:"true" doc:"Author metadata id scoping the search"`
	Title            string `query:"title" required:"true" minLength:"1" maxLength:"500" doc:"Book title to match"`
}

// BookLookupResponse contains the lookup result.
type BookLookupResponse struct {
	Match      *domain.Book   `json:"match,omitempty" doc:"Unambiguous best match, if any"`
	Candidates []*domain.Book `json:"candidates" doc:"All candidate matches"`
}

// BookLookupOutput wraps the lookup response for Huma.
type BookLookupOutput struct {
	Body BookLookupResponse
}

// === Handlers ===

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Books.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleLookupBook(ctx context.Context, input *BookLookupInput) (*BookLookupOutput, error) {
	match, err := s.services.Books.FindByTitleInexact(ctx, input.AuthorMetadataID, input.Title)
	if err != nil {
		return nil, err
	}
	candidates, err := s.services.Books.GetCandidates(ctx, input.AuthorMetadataID, input.Title)
	if err != nil {
		return nil, err
	}
	if candidates == nil {
		candidates = []*domain.Book{}
	}
	return &BookLookupOutput{Body: BookLookupResponse{Match: match, Candidates: candidates}}, nil
}
