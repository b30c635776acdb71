package bookinfo

import (
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/match"
)

// Wire types mirroring the catalog's JSON responses. Kept separate from the
// domain structs so catalog schema changes stay contained in the mapper.

type imageResource struct {
	URL       string `json:"url"`
	CoverType string `json:"coverType"`
}

type linkResource struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type ratingResource struct {
	Votes      int     `json:"votes"`
	Value      float64 `json:"value"`
	Popularity float64 `json:"popularity"`
}

// AuthorResource is the catalog's author record. Works and series are only
// present on full author fetches.
type AuthorResource struct {
	ForeignID      string           `json:"foreignId"`
	Name           string           `json:"name"`
	SortName       string           `json:"sortName"`
	Overview       string           `json:"overview"`
	Disambiguation string           `json:"disambiguation"`
	Status         string           `json:"status"`
	Aliases        []string         `json:"aliases"`
	Genres         []string         `json:"genres"`
	Images         []imageResource  `json:"images"`
	Links          []linkResource   `json:"links"`
	Ratings        ratingResource   `json:"ratings"`
	Works          []WorkResource   `json:"works"`
	Series         []SeriesResource `json:"series"`
}

// WorkResource is one book with its editions and series placements.
type WorkResource struct {
	ForeignID       string               `json:"foreignId"`
	ForeignAuthorID string               `json:"foreignAuthorId"`
	Title           string               `json:"title"`
	Overview        string               `json:"overview"`
	Genres          []string             `json:"genres"`
	Links           []linkResource       `json:"links"`
	Ratings         ratingResource       `json:"ratings"`
	ReleaseDate     *time.Time           `json:"releaseDate"`
	Editions        []EditionResource    `json:"editions"`
	Series          []SeriesLinkResource `json:"series"`
}

type EditionResource struct {
	ForeignID   string         `json:"foreignId"`
	Title       string         `json:"title"`
	ISBN13      string         `json:"isbn13"`
	ASIN        string         `json:"asin"`
	Format      string         `json:"format"`
	Publisher   string         `json:"publisher"`
	PageCount   int            `json:"pageCount"`
	ReleaseDate *time.Time     `json:"releaseDate"`
	Ratings     ratingResource `json:"ratings"`
}

type SeriesResource struct {
	ForeignID   string `json:"foreignId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Numbered    bool   `json:"numbered"`
}

type SeriesLinkResource struct {
	ForeignSeriesID string `json:"foreignSeriesId"`
	Position        string `json:"position"`
	Primary         bool   `json:"primary"`
}

// BookResponse is the payload of a single-book fetch: the work plus the
// author metadata records involved.
type BookResponse struct {
	Work    WorkResource     `json:"work"`
	Authors []AuthorResource `json:"authors"`
}

// ChangedResponse lists authors changed since a timestamp. Limited is set
// when the catalog truncated the list, making it useless for incremental
// refresh.
type ChangedResponse struct {
	IDs     []string  `json:"ids"`
	Since   time.Time `json:"since"`
	Limited bool      `json:"limited"`
}

func mapImages(in []imageResource) []domain.Image {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Image, len(in))
	for i, img := range in {
		out[i] = domain.Image{URL: img.URL, CoverType: img.CoverType}
	}
	return out
}

func mapLinks(in []linkResource) []domain.Link {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Link, len(in))
	for i, l := range in {
		out[i] = domain.Link{URL: l.URL, Name: l.Name}
	}
	return out
}

func mapRatings(in ratingResource) domain.Ratings {
	return domain.Ratings{Votes: in.Votes, Value: in.Value, Popularity: in.Popularity}
}

// toMetadata maps the author-level descriptive fields. Works and series are
// mapped separately.
func (r *AuthorResource) toMetadata() domain.AuthorMetadata {
	status := domain.AuthorStatusContinuing
	if r.Status == "ended" || r.Status == "deceased" {
		status = domain.AuthorStatusEnded
	}
	return domain.AuthorMetadata{
		ForeignAuthorID: r.ForeignID,
		Name:            r.Name,
		SortName:        r.SortName,
		CleanName:       match.CleanName(r.Name),
		Overview:        r.Overview,
		Disambiguation:  r.Disambiguation,
		Status:          status,
		Images:          mapImages(r.Images),
		Links:           mapLinks(r.Links),
		Aliases:         r.Aliases,
		Genres:          r.Genres,
		Ratings:         mapRatings(r.Ratings),
	}
}

func (r *AuthorResource) toAuthor() *domain.Author {
	author := &domain.Author{Metadata: r.toMetadata()}
	for i := range r.Series {
		author.Series = append(author.Series, r.Series[i].toSeries())
	}
	for i := range r.Works {
		author.Books = append(author.Books, *r.Works[i].toBook())
	}
	return author
}

func (r *WorkResource) toBook() *domain.Book {
	book := &domain.Book{
		ForeignBookID: r.ForeignID,
		Title:         r.Title,
		CleanTitle:    match.CleanName(r.Title),
		Overview:      r.Overview,
		Genres:        r.Genres,
		Links:         mapLinks(r.Links),
		Ratings:       mapRatings(r.Ratings),
		ReleaseDate:   r.ReleaseDate,
	}
	for _, e := range r.Editions {
		book.Editions = append(book.Editions, domain.Edition{
			ForeignEditionID: e.ForeignID,
			Title:            e.Title,
			ISBN13:           e.ISBN13,
			ASIN:             e.ASIN,
			Format:           e.Format,
			Publisher:        e.Publisher,
			PageCount:        e.PageCount,
			ReleaseDate:      e.ReleaseDate,
			Ratings:          mapRatings(e.Ratings),
		})
	}
	for _, s := range r.Series {
		book.SeriesLinks = append(book.SeriesLinks, domain.SeriesBookLink{
			ForeignBookID:   r.ForeignID,
			ForeignSeriesID: s.ForeignSeriesID,
			Position:        s.Position,
			IsPrimary:       s.Primary,
		})
	}
	return book
}

func (r *SeriesResource) toSeries() domain.Series {
	return domain.Series{
		ForeignSeriesID: r.ForeignID,
		Title:           r.Title,
		Description:     r.Description,
		Numbered:        r.Numbered,
	}
}
