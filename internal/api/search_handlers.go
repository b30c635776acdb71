package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfmark/shelfmark-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search library",
		Description: "Full-text search across authors and books",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching the library.
type SearchInput struct {
	Query    string `query:"q" required:"true" minLength:"1" maxLength:"200" doc:"Search query"`
	Types    string `query:"types" maxLength:"50" doc:"Comma-separated types to search (author,book). Omit for all."`
	Genres   string `query:"genres" maxLength:"200" doc:"Comma-separated genres to filter by"`
	MinYear  int    `query:"min_year" doc:"Minimum release year (books only)"`
	MaxYear  int    `query:"max_year" doc:"Maximum release year (books only)"`
	Limit    int    `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
	Offset   int    `query:"offset" minimum:"0" doc:"Pagination offset"`
	SortBy   string `query:"sort" enum:",relevance,name,author,recent,rating" doc:"Sort order (default relevance)"`
	Facets   bool   `query:"facets" doc:"Include facet counts in response"`
}

// SearchOutput wraps the search result for Huma.
type SearchOutput struct {
	Body search.SearchResult
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.IncludeFacets = input.Facets

	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset
	if input.SortBy != "" {
		params.SortBy = input.SortBy
	}
	params.MinYear = input.MinYear
	params.MaxYear = input.MaxYear

	for t := range strings.SplitSeq(input.Types, ",") {
		switch strings.TrimSpace(t) {
		case "author":
			params.Types = append(params.Types, string(search.DocTypeAuthor))
		case "book":
			params.Types = append(params.Types, string(search.DocTypeBook))
		}
	}
	for g := range strings.SplitSeq(input.Genres, ",") {
		if g = strings.TrimSpace(g); g != "" {
			params.Genres = append(params.Genres, g)
		}
	}

	result, err := s.searchIndex.Search(ctx, params)
	if err != nil {
		s.logger.Error("search failed", "query", input.Query, "error", err)
		return nil, err
	}

	return &SearchOutput{Body: *result}, nil
}
