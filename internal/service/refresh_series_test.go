package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

// seedSeriesBooks persists an author with two books and returns them, ready
// for direct ReconcileSeries calls.
func seedSeriesBooks(t *testing.T, fx *refreshFixture) (*domain.Author, []*domain.Book) {
	t.Helper()
	author := fx.seedAuthor(t, catalogAuthor("author-1", "Robin Hobb",
		catalogBook("book-1", "Assassin's Apprentice", catalogEdition("edition-1", "Assassin's Apprentice")),
		catalogBook("book-2", "Royal Assassin", catalogEdition("edition-2", "Royal Assassin")),
	))
	require.True(t, fx.refreshAuthor(t, author))
	return author, fx.booksOf(t, author)
}

func withSeriesLinks(books []*domain.Book, foreignSeriesID string, positions map[string]string) []*domain.Book {
	for _, b := range books {
		pos, ok := positions[b.ForeignBookID]
		if !ok {
			continue
		}
		b.SeriesLinks = []domain.SeriesBookLink{{
			ForeignSeriesID: foreignSeriesID,
			Position:        pos,
		}}
	}
	return books
}

func TestReconcileSeries_AddsSeriesAndLinks(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()
	author, books := seedSeriesBooks(t, fx)

	remote := []domain.Series{{
		ForeignSeriesID: "series-1",
		Title:           "The Farseer Trilogy",
		Numbered:        true,
	}}
	withSeriesLinks(books, "series-1", map[string]string{"book-1": "1", "book-2": "2"})

	changed, err := fx.series.ReconcileSeries(ctx, author.MetadataID, remote, books)
	require.NoError(t, err)
	assert.True(t, changed)

	rows, err := fx.store.GetSeriesByAuthorMetadataID(ctx, author.MetadataID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "The Farseer Trilogy", rows[0].Title)

	links, err := fx.store.GetSeriesLinks(ctx, rows[0].ID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	byBook := map[string]string{}
	for _, l := range links {
		byBook[l.ForeignBookID] = l.Position
		assert.NotZero(t, l.BookID, "links are bound to persisted book rows")
	}
	assert.Equal(t, map[string]string{"book-1": "1", "book-2": "2"}, byBook)
}

func TestReconcileSeries_SecondPassIsNoop(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()
	author, books := seedSeriesBooks(t, fx)

	remote := []domain.Series{{ForeignSeriesID: "series-1", Title: "The Farseer Trilogy"}}
	withSeriesLinks(books, "series-1", map[string]string{"book-1": "1"})

	changed, err := fx.series.ReconcileSeries(ctx, author.MetadataID, remote, books)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = fx.series.ReconcileSeries(ctx, author.MetadataID, remote, books)
	require.NoError(t, err)
	assert.False(t, changed, "identical catalog state writes nothing")
}

func TestReconcileSeries_PositionChangeRewritesLinks(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()
	author, books := seedSeriesBooks(t, fx)

	remote := []domain.Series{{ForeignSeriesID: "series-1", Title: "The Farseer Trilogy"}}
	withSeriesLinks(books, "series-1", map[string]string{"book-1": "1", "book-2": "2"})
	_, err := fx.series.ReconcileSeries(ctx, author.MetadataID, remote, books)
	require.NoError(t, err)

	withSeriesLinks(books, "series-1", map[string]string{"book-1": "1", "book-2": "2.5"})
	changed, err := fx.series.ReconcileSeries(ctx, author.MetadataID, remote, books)
	require.NoError(t, err)
	assert.True(t, changed)

	rows, err := fx.store.GetSeriesByAuthorMetadataID(ctx, author.MetadataID)
	require.NoError(t, err)
	links, err := fx.store.GetSeriesLinks(ctx, rows[0].ID)
	require.NoError(t, err)
	positions := map[string]string{}
	for _, l := range links {
		positions[l.ForeignBookID] = l.Position
	}
	assert.Equal(t, "2.5", positions["book-2"])
}

func TestReconcileSeries_DroppedSeriesDeleted(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()
	author, books := seedSeriesBooks(t, fx)

	remote := []domain.Series{
		{ForeignSeriesID: "series-1", Title: "The Farseer Trilogy"},
		{ForeignSeriesID: "series-2", Title: "Realm of the Elderlings"},
	}
	_, err := fx.series.ReconcileSeries(ctx, author.MetadataID, remote, books)
	require.NoError(t, err)

	changed, err := fx.series.ReconcileSeries(ctx, author.MetadataID, remote[:1], books)
	require.NoError(t, err)
	assert.True(t, changed)

	rows, err := fx.store.GetSeriesByAuthorMetadataID(ctx, author.MetadataID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "series-1", rows[0].ForeignSeriesID)
}

func TestReconcileSeries_RetitleUpdatesRow(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()
	author, books := seedSeriesBooks(t, fx)

	remote := []domain.Series{{ForeignSeriesID: "series-1", Title: "Farseer"}}
	_, err := fx.series.ReconcileSeries(ctx, author.MetadataID, remote, books)
	require.NoError(t, err)

	remote[0].Title = "The Farseer Trilogy"
	changed, err := fx.series.ReconcileSeries(ctx, author.MetadataID, remote, books)
	require.NoError(t, err)
	assert.True(t, changed)

	rows, err := fx.store.GetSeriesByAuthorMetadataID(ctx, author.MetadataID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "The Farseer Trilogy", rows[0].Title)
}
