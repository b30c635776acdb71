package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testBook() *Book {
	release := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)
	return &Book{
		ID:               12,
		AuthorMetadataID: 3,
		ForeignBookID:    "book-1",
		Title:            "The Long Way Down",
		CleanTitle:       "longwaydown",
		Genres:           []string{"fantasy"},
		Ratings:          Ratings{Votes: 100, Value: 4.1},
		ReleaseDate:      &release,
		Monitored:        true,
		Added:            time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBookContentEquals_IgnoresLocalFields(t *testing.T) {
	local := testBook()

	remote := testBook()
	remote.ID = 0
	remote.Monitored = false
	remote.AnyEditionOK = true
	remote.Added = time.Time{}

	assert.True(t, local.ContentEquals(remote))
}

func TestBookContentEquals_DetectsRemoteChange(t *testing.T) {
	local := testBook()

	remote := testBook()
	remote.Overview = "now with an overview"

	assert.False(t, local.ContentEquals(remote))

	remote = testBook()
	remote.Ratings.Votes = 101
	assert.False(t, local.ContentEquals(remote))
}

func TestBookUseDBFieldsFrom(t *testing.T) {
	local := testBook()
	remote := testBook()
	remote.ID = 0
	remote.Monitored = false
	remote.Title = "The Long Way Down (Revised)"

	remote.UseDBFieldsFrom(local)

	assert.Equal(t, local.ID, remote.ID)
	assert.True(t, remote.Monitored)
	assert.Equal(t, local.Added, remote.Added)
	// Remote-sourced fields stay from the remote side.
	assert.Equal(t, "The Long Way Down (Revised)", remote.Title)
}

func TestBookApplyMetadataFrom_RePointsParent(t *testing.T) {
	local := testBook()

	remote := testBook()
	remote.AuthorMetadataID = 7
	remote.Title = "The Long Way Down (Revised)"

	local.ApplyMetadataFrom(remote)

	assert.Equal(t, int64(7), local.AuthorMetadataID, "book follows the author the catalog filed it under")
	assert.True(t, local.ContentEquals(remote), "applied book matches its remote counterpart")
	assert.True(t, local.Monitored, "local fields survive the apply")
}

func TestAuthorApplyMetadataFrom_PreservesLocalState(t *testing.T) {
	local := &Author{
		ID:         1,
		MetadataID: 3,
		Path:       "/books/robin-hobb",
		Monitored:  true,
		Tags:       []string{"favorites"},
		Metadata:   AuthorMetadata{ID: 3, ForeignAuthorID: "author-1", Name: "Robin Hob"},
	}

	remote := &Author{
		Metadata: AuthorMetadata{ID: 3, ForeignAuthorID: "author-1", Name: "Robin Hobb"},
	}

	local.ApplyMetadataFrom(remote)

	assert.Equal(t, "Robin Hobb", local.Name())
	assert.Equal(t, "/books/robin-hobb", local.Path)
	assert.True(t, local.Monitored)
	assert.Equal(t, []string{"favorites"}, local.Tags)
	assert.NotNil(t, local.LastInfoSync)
}

func TestAuthorMetadataContentEquals(t *testing.T) {
	a := &AuthorMetadata{ForeignAuthorID: "author-1", Name: "Robin Hobb", Aliases: []string{"Megan Lindholm"}}
	b := &AuthorMetadata{ForeignAuthorID: "author-1", Name: "Robin Hobb", Aliases: []string{"Megan Lindholm"}}

	assert.True(t, a.ContentEquals(b))

	// Local ids don't participate.
	b.ID = 99
	assert.True(t, a.ContentEquals(b))

	b.Status = AuthorStatusEnded
	assert.False(t, a.ContentEquals(b))
	assert.False(t, a.ContentEquals(nil))
}
