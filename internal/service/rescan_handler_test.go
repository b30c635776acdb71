package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

func TestFileRescanner_DropsMissingFiles(t *testing.T) {
	st, err := store.New(t.TempDir(), nil, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	dir := t.TempDir()
	present := filepath.Join(dir, "dune.epub")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o600))

	ctx := context.Background()
	files := []*domain.BookFile{
		{AuthorID: 1, BookID: 10, Path: present, DateAdded: time.Now()},
		{AuthorID: 1, BookID: 11, Path: filepath.Join(dir, "gone.epub"), DateAdded: time.Now()},
		{AuthorID: 2, BookID: 20, Path: filepath.Join(dir, "other-author.epub"), DateAdded: time.Now()},
	}
	for _, f := range files {
		require.NoError(t, st.BookFiles.Insert(ctx, f))
	}

	rescanner := NewFileRescanner(st, testLogger())
	require.NoError(t, rescanner.Rescan(ctx, RescanCommand{AuthorIDs: []int64{1}, MatchedFilesOnly: true}))

	kept, err := st.GetFilesByAuthor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, present, kept[0].Path)

	// Untouched author keeps its row even though the file is missing.
	other, err := st.GetFilesByAuthor(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
