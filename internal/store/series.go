package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func (s *Store) initSeries() error {
	series, err := NewEntity(s, "series:",
		func(sr *domain.Series) int64 { return sr.ID },
		func(sr *domain.Series, id int64) { sr.ID = id },
	)
	if err != nil {
		return err
	}

	s.Series = series.
		WithUniqueIndex("foreign", func(sr *domain.Series) []string {
			return []string{sr.ForeignSeriesID}
		}).
		WithIndex("author", func(sr *domain.Series) []string {
			return []string{strconv.FormatInt(sr.AuthorMetadataID, 10)}
		})

	links, err := NewEntity(s, "serieslink:",
		func(l *domain.SeriesBookLink) int64 { return l.ID },
		func(l *domain.SeriesBookLink, id int64) { l.ID = id },
	)
	if err != nil {
		return err
	}

	s.SeriesLinks = links.
		WithIndex("series", func(l *domain.SeriesBookLink) []string {
			return []string{strconv.FormatInt(l.SeriesID, 10)}
		}).
		WithIndex("book", func(l *domain.SeriesBookLink) []string {
			return []string{strconv.FormatInt(l.BookID, 10)}
		})

	return nil
}

// FindSeriesByForeignID looks up a series by catalog id.
// Returns nil (no error) when none exists.
func (s *Store) FindSeriesByForeignID(ctx context.Context, foreignID string) (*domain.Series, error) {
	series, err := s.Series.GetByIndex(ctx, "foreign", foreignID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return series, nil
}

// GetSeriesByAuthorMetadataID returns all series owned by an author's metadata.
func (s *Store) GetSeriesByAuthorMetadataID(ctx context.Context, metadataID int64) ([]*domain.Series, error) {
	return s.Series.ListByIndex(ctx, "author", strconv.FormatInt(metadataID, 10))
}

// GetSeriesLinks returns all book links of a series.
func (s *Store) GetSeriesLinks(ctx context.Context, seriesID int64) ([]*domain.SeriesBookLink, error) {
	return s.SeriesLinks.ListByIndex(ctx, "series", strconv.FormatInt(seriesID, 10))
}

// ReplaceSeriesLinks swaps a series' book links for a freshly computed set.
func (s *Store) ReplaceSeriesLinks(ctx context.Context, seriesID int64, links []*domain.SeriesBookLink) error {
	existing, err := s.GetSeriesLinks(ctx, seriesID)
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(existing))
	for _, link := range existing {
		ids = append(ids, link.ID)
	}
	if err := s.SeriesLinks.DeleteMany(ctx, ids); err != nil {
		return err
	}

	for _, link := range links {
		link.ID = 0
		link.SeriesID = seriesID
	}
	return s.SeriesLinks.InsertMany(ctx, links)
}

// DeleteSeries removes a series and its links.
func (s *Store) DeleteSeries(ctx context.Context, seriesID int64) error {
	links, err := s.GetSeriesLinks(ctx, seriesID)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.ID)
	}
	if err := s.SeriesLinks.DeleteMany(ctx, ids); err != nil {
		return err
	}
	return s.Series.Delete(ctx, seriesID)
}
