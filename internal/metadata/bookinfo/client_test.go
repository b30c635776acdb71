package bookinfo

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logger.New(logger.Config{Level: slog.LevelError, Format: "json"})
	client := NewClient(server.URL, log)
	t.Cleanup(client.Close)
	return client
}

const authorFixture = `{
	"foreignId": "author-1",
	"name": "Frank Herbert",
	"sortName": "Herbert, Frank",
	"status": "deceased",
	"overview": "Science fiction writer.",
	"ratings": {"votes": 100, "value": 4.5},
	"series": [
		{"foreignId": "series-1", "title": "Dune Saga", "numbered": true}
	],
	"works": [
		{
			"foreignId": "book-1",
			"foreignAuthorId": "author-1",
			"title": "Dune",
			"ratings": {"votes": 50, "value": 4.8},
			"editions": [
				{"foreignId": "edition-1", "title": "Dune", "isbn13": "9780441013593", "pageCount": 412}
			],
			"series": [
				{"foreignSeriesId": "series-1", "position": "1", "primary": true}
			]
		}
	]
}`

func TestClient_GetAuthorInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/author/author-1", r.URL.Path)
		w.Write([]byte(authorFixture))
	})

	author, metadata, err := client.GetAuthorInfo(context.Background(), "author-1")
	require.NoError(t, err)

	assert.Equal(t, "author-1", author.Metadata.ForeignAuthorID)
	assert.Equal(t, "Frank Herbert", author.Metadata.Name)
	assert.Equal(t, "frankherbert", author.Metadata.CleanName)
	assert.Equal(t, "ended", string(author.Metadata.Status), "deceased maps to ended")

	require.Len(t, author.Books, 1)
	book := author.Books[0]
	assert.Equal(t, "book-1", book.ForeignBookID)
	assert.Equal(t, "dune", book.CleanTitle)
	require.Len(t, book.Editions, 1)
	assert.Equal(t, "edition-1", book.Editions[0].ForeignEditionID)
	require.Len(t, book.SeriesLinks, 1)
	assert.Equal(t, "series-1", book.SeriesLinks[0].ForeignSeriesID)
	assert.Equal(t, "book-1", book.SeriesLinks[0].ForeignBookID)
	assert.True(t, book.SeriesLinks[0].IsPrimary)

	require.Len(t, author.Series, 1)
	assert.True(t, author.Series[0].Numbered)

	require.Len(t, metadata, 1)
	assert.Equal(t, "author-1", metadata[0].ForeignAuthorID)
}

func TestClient_GetAuthorInfo_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, _, err := client.GetAuthorInfo(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	var opErr *Error
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "getAuthor", opErr.Op)
	assert.Equal(t, "missing", opErr.ForeignID)
}

func TestClient_GetAuthorInfo_EmptyID(t *testing.T) {
	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})

	_, _, err := client.GetAuthorInfo(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestClient_GetBookInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/book/book-1", r.URL.Path)
		w.Write([]byte(`{
			"work": {
				"foreignId": "book-1",
				"foreignAuthorId": "author-2",
				"title": "Dune Messiah",
				"ratings": {}
			},
			"authors": [
				{"foreignId": "author-2", "name": "Frank Herbert", "ratings": {}}
			]
		}`))
	})

	authorID, book, metadata, err := client.GetBookInfo(context.Background(), "book-1")
	require.NoError(t, err)
	assert.Equal(t, "author-2", authorID)
	assert.Equal(t, "Dune Messiah", book.Title)
	require.Len(t, metadata, 1)
	assert.Equal(t, "author-2", metadata[0].ForeignAuthorID)
}

func TestClient_GetChangedAuthors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/author/changed", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("since"))
		w.Write([]byte(`{"ids": ["author-1", "author-3"], "limited": false}`))
	})

	ids, err := client.GetChangedAuthors(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"author-1", "author-3"}, ids)
}

func TestClient_GetChangedAuthors_WindowTooLarge(t *testing.T) {
	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected for stale windows")
	})

	ids, err := client.GetChangedAuthors(context.Background(), time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, ids, "stale window disables the incremental list")
}

func TestClient_GetChangedAuthors_Limited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ids": ["author-1"], "limited": true}`))
	})

	ids, err := client.GetChangedAuthors(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Nil(t, ids, "truncated lists are discarded")
}

func TestClient_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, _, err := client.GetAuthorInfo(context.Background(), "author-1")
	assert.ErrorIs(t, err, ErrServer)
	assert.False(t, errors.Is(err, ErrNotFound))
}
