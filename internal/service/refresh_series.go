package service

import (
	"context"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/sse"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// RefreshSeriesService syncs series rows and their book links once an
// author's books are persisted. Series have no children of their own, so
// the reconciliation is a straight diff keyed on the series catalog id.
type RefreshSeriesService struct {
	store  *store.Store
	logger *logger.Logger
}

// NewRefreshSeriesService creates the series refresh service.
func NewRefreshSeriesService(store *store.Store, log *logger.Logger) *RefreshSeriesService {
	return &RefreshSeriesService{store: store, logger: log}
}

// ReconcileSeries brings the stored series for an author in line with the
// catalog's list, rebuilding each series' book links from the persisted
// books. Series the catalog dropped are deleted along with their links.
func (s *RefreshSeriesService) ReconcileSeries(ctx context.Context, authorMetadataID int64, remoteSeries []domain.Series, books []*domain.Book) (bool, error) {
	existing, err := s.store.GetSeriesByAuthorMetadataID(ctx, authorMetadataID)
	if err != nil {
		return false, err
	}
	existingByID := make(map[string]*domain.Series, len(existing))
	for _, row := range existing {
		existingByID[row.ForeignSeriesID] = row
	}

	// Links reported by the persisted books, grouped per series.
	linksBySeries := make(map[string][]*domain.SeriesBookLink)
	for _, book := range books {
		for i := range book.SeriesLinks {
			link := book.SeriesLinks[i]
			link.BookID = book.ID
			link.ForeignBookID = book.ForeignBookID
			linksBySeries[link.ForeignSeriesID] = append(linksBySeries[link.ForeignSeriesID], &link)
		}
	}

	changed := false
	seen := make(map[string]bool, len(remoteSeries))
	for i := range remoteSeries {
		remote := remoteSeries[i]
		if seen[remote.ForeignSeriesID] {
			continue
		}
		seen[remote.ForeignSeriesID] = true
		remote.AuthorMetadataID = authorMetadataID

		row, exists := existingByID[remote.ForeignSeriesID]
		switch {
		case !exists:
			if err := s.store.Series.Insert(ctx, &remote); err != nil {
				return false, err
			}
			row = &remote
			changed = true
		case !row.ContentEquals(&remote):
			remote.ID = row.ID
			if err := s.store.Series.Update(ctx, &remote); err != nil {
				return false, err
			}
			row = &remote
			changed = true
		}

		links := linksBySeries[remote.ForeignSeriesID]
		for _, link := range links {
			link.SeriesID = row.ID
		}
		linksChanged, err := s.replaceLinksIfChanged(ctx, row.ID, links)
		if err != nil {
			return false, err
		}
		if linksChanged {
			changed = true
			s.store.Emit(sse.NewEvent(sse.EventSeriesUpdated, row))
		}
	}

	// Series no longer reported for this author.
	for _, row := range existing {
		if seen[row.ForeignSeriesID] {
			continue
		}
		if err := s.store.DeleteSeries(ctx, row.ID); err != nil {
			return false, err
		}
		s.store.Emit(sse.NewEvent(sse.EventSeriesDeleted, row))
		changed = true
	}

	return changed, nil
}

// replaceLinksIfChanged rewrites a series' links only when they differ from
// what is stored, keeping no-op refreshes write-free.
func (s *RefreshSeriesService) replaceLinksIfChanged(ctx context.Context, seriesID int64, links []*domain.SeriesBookLink) (bool, error) {
	current, err := s.store.GetSeriesLinks(ctx, seriesID)
	if err != nil {
		return false, err
	}
	if linkSetEqual(current, links) {
		return false, nil
	}
	if err := s.store.ReplaceSeriesLinks(ctx, seriesID, links); err != nil {
		return false, err
	}
	return true, nil
}

func linkSetEqual(a, b []*domain.SeriesBookLink) bool {
	if len(a) != len(b) {
		return false
	}
	key := func(l *domain.SeriesBookLink) string {
		return l.ForeignBookID + "\x00" + l.Position
	}
	have := make(map[string]bool, len(a))
	for _, l := range a {
		have[key(l)] = true
	}
	for _, l := range b {
		if !have[key(l)] {
			return false
		}
	}
	return true
}
