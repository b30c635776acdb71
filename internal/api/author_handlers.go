package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/service"
)

func (s *Server) registerAuthorRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listAuthors",
		Method:      http.MethodGet,
		Path:        "/api/v1/authors",
		Summary:     "List authors",
		Description: "Returns every author in the library",
		Tags:        []string{"Authors"},
	}, s.handleListAuthors)

	huma.Register(s.api, huma.Operation{
		OperationID: "getAuthor",
		Method:      http.MethodGet,
		Path:        "/api/v1/authors/{id}",
		Summary:     "Get author",
		Tags:        []string{"Authors"},
	}, s.handleGetAuthor)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addAuthor",
		Method:        http.MethodPost,
		Path:          "/api/v1/authors",
		Summary:       "Add author",
		Description:   "Adds an author to the library by catalog id. Books arrive on the first refresh.",
		Tags:          []string{"Authors"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddAuthor)

	huma.Register(s.api, huma.Operation{
		OperationID: "addAuthors",
		Method:      http.MethodPost,
		Path:        "/api/v1/authors/bulk",
		Summary:     "Add authors in bulk",
		Description: "Adds many authors, reporting per-item failures instead of aborting the batch",
		Tags:        []string{"Authors"},
	}, s.handleAddAuthors)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteAuthor",
		Method:        http.MethodDelete,
		Path:          "/api/v1/authors/{id}",
		Summary:       "Delete author",
		Tags:          []string{"Authors"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteAuthor)

	huma.Register(s.api, huma.Operation{
		OperationID: "getAuthorBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/authors/{id}/books",
		Summary:     "List an author's books",
		Tags:        []string{"Authors"},
	}, s.handleGetAuthorBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "lookupAuthor",
		Method:      http.MethodGet,
		Path:        "/api/v1/authors/lookup",
		Summary:     "Look up an author by name",
		Description: "Fuzzy-matches library authors against a name. Returns the unambiguous best match when one exists, plus all candidates.",
		Tags:        []string{"Authors"},
	}, s.handleLookupAuthor)
}

// === DTOs ===

// AuthorsResponse contains a list of authors.
type AuthorsResponse struct {
	Authors []*domain.Author `json:"authors" doc:"Authors in the library"`
	Total   int              `json:"total" doc:"Number of authors"`
}

// AuthorsOutput wraps the author list for Huma.
type AuthorsOutput struct {
	Body AuthorsResponse
}

// AuthorOutput wraps a single author for Huma.
type AuthorOutput struct {
	Body *domain.Author
}

// AuthorIDInput identifies an author by library id.
type AuthorIDInput struct {
	ID int64 `path:"id" doc:"Author id"`
}

// AddAuthorBody is the add-author payload. Only the catalog id and root
// folder are required; everything else defaults.
type AddAuthorBody struct {
	ForeignAuthorID   string   `json:"foreign_author_id" minLength:"1" doc:"Catalog author id"`
	RootFolder        string   `json:"root_folder" minLength:"1" doc:"Folder the author's directory is created under"`
	Monitored         bool     `json:"monitored,omitempty" doc:"Watch the author for new books"`
	QualityProfileID  int64    `json:"quality_profile_id,omitempty" doc:"Quality profile id"`
	MetadataProfileID int64    `json:"metadata_profile_id,omitempty" doc:"Metadata profile id"`
	Tags              []string `json:"tags,omitempty" maxItems:"50" doc:"Tags applied to the author"`
}

func (b AddAuthorBody) request() service.AddAuthorRequest {
	return service.AddAuthorRequest{
		ForeignAuthorID:   b.ForeignAuthorID,
		RootFolder:        b.RootFolder,
		Monitored:         b.Monitored,
		QualityProfileID:  b.QualityProfileID,
		MetadataProfileID: b.MetadataProfileID,
		Tags:              b.Tags,
	}
}

// AddAuthorInput wraps the add request body.
type AddAuthorInput struct {
	Body AddAuthorBody
}

// AddAuthorsInput wraps the bulk add request body.
type AddAuthorsInput struct {
	Body []AddAuthorBody `maxItems:"100"`
}

// AddAuthorsOutput wraps per-item bulk add results.
type AddAuthorsOutput struct {
	Body []service.AddAuthorResult
}

// BooksResponse contains a list of books.
type BooksResponse struct {
	Books []*domain.Book `json:"books" doc:"Books"`
	Total int            `json:"total" doc:"Number of books"`
}

// BooksOutput wraps the book list for Huma.
type BooksOutput struct {
	Body BooksResponse
}

// AuthorLookupInput contains the lookup query.
type AuthorLookupInput struct {
	Name string `query:"name" required:"true" minLength:"1" maxLength:"200" doc:"Author name to match"`
}

// AuthorLookupResponse contains the lookup result.
type AuthorLookupResponse struct {
	Match      *domain.Author   `json:"match,omitempty" doc:"Unambiguous best match, if any"`
	Candidates []*domain.Author `json:"candidates" doc:"All candidate matches"`
}

// AuthorLookupOutput wraps the lookup response for Huma.
type AuthorLookupOutput struct {
	Body AuthorLookupResponse
}

// === Handlers ===

func (s *Server) handleListAuthors(ctx context.Context, _ *struct{}) (*AuthorsOutput, error) {
	authors, err := s.services.Authors.ListAuthors(ctx)
	if err != nil {
		return nil, err
	}
	return &AuthorsOutput{Body: AuthorsResponse{Authors: authors, Total: len(authors)}}, nil
}

func (s *Server) handleGetAuthor(ctx context.Context, input *AuthorIDInput) (*AuthorOutput, error) {
	author, err := s.services.Authors.GetAuthor(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &AuthorOutput{Body: author}, nil
}

func (s *Server) handleAddAuthor(ctx context.Context, input *AddAuthorInput) (*AuthorOutput, error) {
	author, err := s.services.Add.AddAuthor(ctx, input.Body.request())
	if err != nil {
		return nil, err
	}
	return &AuthorOutput{Body: author}, nil
}

func (s *Server) handleAddAuthors(ctx context.Context, input *AddAuthorsInput) (*AddAuthorsOutput, error) {
	reqs := make([]service.AddAuthorRequest, 0, len(input.Body))
	for _, b := range input.Body {
		reqs = append(reqs, b.request())
	}
	results := s.services.Add.AddAuthors(ctx, reqs)
	return &AddAuthorsOutput{Body: results}, nil
}

func (s *Server) handleDeleteAuthor(ctx context.Context, input *AuthorIDInput) (*struct{}, error) {
	if err := s.services.Authors.DeleteAuthor(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleGetAuthorBooks(ctx context.Context, input *AuthorIDInput) (*BooksOutput, error) {
	author, err := s.services.Authors.GetAuthor(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	books, err := s.services.Books.GetBooksByAuthor(ctx, author.MetadataID)
	if err != nil {
		return nil, err
	}
	return &BooksOutput{Body: BooksResponse{Books: books, Total: len(books)}}, nil
}

func (s *Server) handleLookupAuthor(ctx context.Context, input *AuthorLookupInput) (*AuthorLookupOutput, error) {
	match, err := s.services.Authors.FindByNameInexact(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	candidates, err := s.services.Authors.GetCandidates(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	if candidates == nil {
		candidates = []*domain.Author{}
	}
	return &AuthorLookupOutput{Body: AuthorLookupResponse{Match: match, Candidates: candidates}}, nil
}
