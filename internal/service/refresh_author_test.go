package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/metadata/bookinfo"
)

func TestRefreshAuthor_FirstRefreshAddsEverything(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()

	catalog := catalogAuthor("author-1", "Frank Herbert",
		catalogBook("book-1", "Dune", catalogEdition("edition-1", "Dune")),
		catalogBook("book-2", "Dune Messiah", catalogEdition("edition-2", "Dune Messiah")),
	)
	catalog.Series = []domain.Series{{ForeignSeriesID: "series-1", Title: "Dune Saga", Numbered: true}}
	catalog.Books[0].SeriesLinks = []domain.SeriesBookLink{{ForeignSeriesID: "series-1", Position: "1"}}
	catalog.Books[1].SeriesLinks = []domain.SeriesBookLink{{ForeignSeriesID: "series-1", Position: "2"}}

	author := fx.seedAuthor(t, catalog)
	assert.True(t, fx.refreshAuthor(t, author))

	books := fx.booksOf(t, author)
	require.Len(t, books, 2)
	for _, b := range books {
		assert.True(t, b.Monitored, "new books inherit the author's monitoring")
		assert.NotZero(t, b.Added)

		editions, err := fx.store.GetEditionsByBook(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, editions, 1)
		assert.Equal(t, b.ID, editions[0].BookID)
	}

	series, err := fx.store.GetSeriesByAuthorMetadataID(ctx, author.MetadataID)
	require.NoError(t, err)
	require.Len(t, series, 1)
	links, err := fx.store.GetSeriesLinks(ctx, series[0].ID)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestRefreshAuthor_SecondRefreshIsNoop(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)

	author := fx.seedAuthor(t, catalogAuthor("author-1", "Frank Herbert",
		catalogBook("book-1", "Dune", catalogEdition("edition-1", "Dune"))))
	require.True(t, fx.refreshAuthor(t, author))

	again := fx.loadAuthor(t, author.ID)
	assert.False(t, fx.refreshAuthor(t, again), "refresh with identical remote data must report no change")
	assert.Len(t, fx.booksOf(t, again), 1)
}

func TestRefreshAuthor_UpdatePreservesLocalBookFields(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()

	catalog := catalogAuthor("author-1", "Frank Herbert",
		catalogBook("book-1", "Dune", catalogEdition("edition-1", "Dune")))
	author := fx.seedAuthor(t, catalog)
	require.True(t, fx.refreshAuthor(t, author))

	// User unmonitors the book locally; catalog then retitles it.
	books := fx.booksOf(t, author)
	require.Len(t, books, 1)
	books[0].Monitored = false
	require.NoError(t, fx.store.UpdateBooks(ctx, books))
	fx.provider.authors["author-1"].Books[0].Title = "Dune (Revised)"

	assert.True(t, fx.refreshAuthor(t, fx.loadAuthor(t, author.ID)))

	books = fx.booksOf(t, author)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune (Revised)", books[0].Title)
	assert.False(t, books[0].Monitored, "local monitoring flag survives remote updates")
}

func TestRefreshAuthor_DeletionGuardedByOwnedFiles(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()

	author := fx.seedAuthor(t, catalogAuthor("author-1", "Frank Herbert",
		catalogBook("book-1", "Dune"),
		catalogBook("book-2", "Dune Messiah")))
	require.True(t, fx.refreshAuthor(t, author))
	books := fx.booksOf(t, author)
	require.Len(t, books, 2)

	// book-2 gains a file, then the catalog drops both books.
	var kept, dropped *domain.Book
	for _, b := range books {
		if b.ForeignBookID == "book-2" {
			kept = b
		} else {
			dropped = b
		}
	}
	require.NoError(t, fx.store.BookFiles.Insert(ctx, &domain.BookFile{
		AuthorID: author.ID, BookID: kept.ID, Path: "/library/f/dune-messiah.epub",
	}))
	fx.provider.authors["author-1"].Books = nil

	assert.True(t, fx.refreshAuthor(t, fx.loadAuthor(t, author.ID)))

	remaining := fx.booksOf(t, author)
	require.Len(t, remaining, 1)
	assert.Equal(t, "book-2", remaining[0].ForeignBookID, "file-backed book survives")
	_, err := fx.store.Books.Get(ctx, dropped.ID)
	assert.Error(t, err, "fileless book is deleted")
}

func TestRefreshAuthor_ExcludedBooksNeverAdded(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()

	_, err := fx.store.FindExclusionByForeignID(ctx, "book-2")
	require.NoError(t, err)
	require.NoError(t, fx.store.AddExclusion(ctx, &domain.ImportListExclusion{ForeignID: "book-2", Name: "Dune Messiah"}))

	author := fx.seedAuthor(t, catalogAuthor("author-1", "Frank Herbert",
		catalogBook("book-1", "Dune"),
		catalogBook("book-2", "Dune Messiah")))
	require.True(t, fx.refreshAuthor(t, author))

	books := fx.booksOf(t, author)
	require.Len(t, books, 1)
	assert.Equal(t, "book-1", books[0].ForeignBookID)
}

func TestRefreshAuthor_NotFoundRemotely(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()

	author := fx.seedAuthor(t, catalogAuthor("author-1", "Frank Herbert",
		catalogBook("book-1", "Dune")))
	require.True(t, fx.refreshAuthor(t, author))

	delete(fx.provider.authors, "author-1")

	// With no owned files the author is removed.
	updated := fx.refreshAuthor(t, fx.loadAuthor(t, author.ID))
	assert.True(t, updated)
	_, err := fx.store.Authors.Get(ctx, author.ID)
	assert.Error(t, err)
}

func TestRefreshAuthor_NotFoundKeepsFileOwners(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()

	author := fx.seedAuthor(t, catalogAuthor("author-1", "Frank Herbert",
		catalogBook("book-1", "Dune")))
	require.True(t, fx.refreshAuthor(t, author))
	books := fx.booksOf(t, author)
	require.NoError(t, fx.store.BookFiles.Insert(ctx, &domain.BookFile{
		AuthorID: author.ID, BookID: books[0].ID, Path: "/library/f/dune.epub",
	}))

	delete(fx.provider.authors, "author-1")

	updated := fx.refreshAuthor(t, fx.loadAuthor(t, author.ID))
	assert.False(t, updated)
	_, err := fx.store.Authors.Get(ctx, author.ID)
	assert.NoError(t, err, "author with files survives a missing remote record")
}

func TestRefreshAuthor_MoveToNewForeignID(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()

	author := fx.seedAuthor(t, catalogAuthor("author-1", "Frank Herbert",
		catalogBook("book-1", "Dune")))
	require.True(t, fx.refreshAuthor(t, author))
	require.NoError(t, fx.store.AddExclusion(ctx, &domain.ImportListExclusion{ForeignID: "author-1", Name: "Frank Herbert"}))

	// Catalog re-files the author under a new id.
	moved := catalogAuthor("author-1-v2", "Frank Herbert", catalogBook("book-1", "Dune"))
	fx.provider.authors["author-1"] = moved

	assert.True(t, fx.refreshAuthor(t, fx.loadAuthor(t, author.ID)))

	after := fx.loadAuthor(t, author.ID)
	assert.Equal(t, "author-1-v2", after.ForeignAuthorID(), "row keeps its id, identity moves")
	assert.True(t, after.Monitored, "local fields survive the move")

	rePointed, err := fx.store.FindExclusionByForeignID(ctx, "author-1-v2")
	require.NoError(t, err)
	assert.NotNil(t, rePointed, "exclusion follows the moved id")
	stale, err := fx.store.FindExclusionByForeignID(ctx, "author-1")
	require.NoError(t, err)
	assert.Nil(t, stale)

	books := fx.booksOf(t, after)
	require.Len(t, books, 1)
	assert.Equal(t, after.MetadataID, books[0].AuthorMetadataID, "books re-point to the new metadata row")
}

func TestRefreshAuthor_MergeIntoExistingOwner(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()

	keeper := fx.seedAuthor(t, catalogAuthor("author-1", "Frank Herbert",
		catalogBook("book-1", "Dune")))
	require.True(t, fx.refreshAuthor(t, keeper))

	dup := fx.seedAuthor(t, catalogAuthor("author-1-dup", "Frank Herbert (dup)",
		catalogBook("book-9", "Dune Again")))
	require.True(t, fx.refreshAuthor(t, dup))
	require.NoError(t, fx.store.BookFiles.Insert(ctx, &domain.BookFile{
		AuthorID: dup.ID, Path: "/library/f/dup.epub",
	}))

	// Catalog now reports the duplicate as the keeper's id.
	fx.provider.authors["author-1-dup"] = catalogAuthor("author-1", "Frank Herbert",
		catalogBook("book-1", "Dune"))

	assert.True(t, fx.refreshAuthor(t, fx.loadAuthor(t, dup.ID)))

	_, err := fx.store.Authors.Get(ctx, dup.ID)
	assert.Error(t, err, "losing row is deleted")
	_, err = fx.store.Authors.Get(ctx, keeper.ID)
	assert.NoError(t, err)

	files, err := fx.store.GetFilesByAuthor(ctx, keeper.ID)
	require.NoError(t, err)
	require.Len(t, files, 1, "files re-pointed to the surviving author")
}

func TestRefreshAuthors_BatchIsolatesFailures(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()

	broken := fx.seedAuthor(t, catalogAuthor("author-1", "Frank Herbert",
		catalogBook("book-1", "Dune")))
	healthy := fx.seedAuthor(t, catalogAuthor("author-2", "Ursula K. Le Guin",
		catalogBook("book-2", "A Wizard of Earthsea")))

	fx.provider.failFor["author-1"] = bookinfo.ErrServer

	result, err := fx.authors.RefreshAuthors(ctx, []int64{broken.ID, healthy.ID}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, broken.ID, result.Errors[0].AuthorID)

	assert.Len(t, fx.booksOf(t, healthy), 1, "healthy author refreshed despite the failure")
}

func TestRefreshAll_SkipsFreshAuthorsUnlessChanged(t *testing.T) {
	fx := newRefreshFixture(t, RescanNever)
	ctx := context.Background()

	quiet := fx.seedAuthor(t, catalogAuthor("author-1", "Frank Herbert"))
	busy := fx.seedAuthor(t, catalogAuthor("author-2", "Brandon Sanderson"))

	// First manual sweep stamps both sync times.
	_, err := fx.authors.RefreshAll(ctx, true, time.Time{})
	require.NoError(t, err)
	callsAfterFirst := fx.provider.authorCalls["author-1"]

	// Scheduled sweep: both fresh, only the changed one hits the catalog.
	fx.provider.changed = []string{"author-2"}
	result, err := fx.authors.RefreshAll(ctx, false, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, callsAfterFirst, fx.provider.authorCalls["author-1"], "fresh unchanged author not fetched")
	// Seeded add, manual sweep, then the changed-since sweep.
	assert.Equal(t, 3, fx.provider.authorCalls["author-2"])

	_ = quiet
	_ = busy
}

func TestRefreshAll_RescanEnqueuedPerPolicy(t *testing.T) {
	fx := newRefreshFixture(t, RescanAlways)
	ctx := context.Background()

	fx.seedAuthor(t, catalogAuthor("author-1", "Frank Herbert", catalogBook("book-1", "Dune")))

	_, err := fx.authors.RefreshAll(ctx, true, time.Time{})
	require.NoError(t, err)

	select {
	case cmd := <-fx.queue.commands:
		assert.True(t, cmd.MatchedFilesOnly, "refresh-triggered rescans never import new files")
		assert.NotEmpty(t, cmd.AuthorIDs)
	default:
		t.Fatal("expected a rescan command after an updating refresh")
	}
}

func TestRefreshAll_NoRescanWhenNothingUpdated(t *testing.T) {
	fx := newRefreshFixture(t, RescanAlways)
	ctx := context.Background()

	fx.seedAuthor(t, catalogAuthor("author-1", "Frank Herbert", catalogBook("book-1", "Dune")))
	_, err := fx.authors.RefreshAll(ctx, true, time.Time{})
	require.NoError(t, err)
	<-fx.queue.commands // drain the first sweep's command

	_, err = fx.authors.RefreshAll(ctx, true, time.Time{})
	require.NoError(t, err)

	select {
	case <-fx.queue.commands:
		t.Fatal("no-op refresh must not trigger a rescan")
	default:
	}
}

func TestRescanPolicy(t *testing.T) {
	assert.True(t, RescanAlways.ShouldRescan(false))
	assert.True(t, RescanAlways.ShouldRescan(true))
	assert.False(t, RescanAfterManual.ShouldRescan(false))
	assert.True(t, RescanAfterManual.ShouldRescan(true))
	assert.False(t, RescanNever.ShouldRescan(true))
}

func TestShouldRefreshAuthor(t *testing.T) {
	never := &domain.Author{}
	assert.True(t, ShouldRefreshAuthor(never), "authors never synced are always stale")

	recent := time.Now().Add(-time.Hour)
	fresh := &domain.Author{LastInfoSync: &recent,
		Metadata: domain.AuthorMetadata{Status: domain.AuthorStatusContinuing}}
	assert.False(t, ShouldRefreshAuthor(fresh))

	old := time.Now().Add(-3 * 24 * time.Hour)
	staleContinuing := &domain.Author{LastInfoSync: &old,
		Metadata: domain.AuthorMetadata{Status: domain.AuthorStatusContinuing}}
	assert.True(t, ShouldRefreshAuthor(staleContinuing))

	endedRecentEnough := &domain.Author{LastInfoSync: &old,
		Metadata: domain.AuthorMetadata{Status: domain.AuthorStatusEnded}}
	assert.False(t, ShouldRefreshAuthor(endedRecentEnough), "ended authors refresh on a slower cadence")
}
