package refresh

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark-server/internal/logger"
)

type fakeParent struct {
	ID        int64
	ForeignID string
	Name      string
	Overview  string
}

type fakeChild struct {
	ID        int64
	ParentID  int64
	ForeignID string
	Title     string
	HasFiles  bool
}

// fakeAdapter implements Adapter over in-memory state and records every
// persistence call so tests can assert on the exact sequence of effects.
type fakeAdapter struct {
	remote        *fakeParent
	remoteErr     error
	byForeignID   map[string]*fakeParent
	localChildren []fakeChild
	remoteKids    []fakeChild
	updateResult  UpdateResult
	shouldDelete  bool

	saved      []fakeParent
	deleted    []fakeParent
	moved      []fakeParent
	mergedInto []fakeParent
	refreshed  []*SortedChildren[fakeChild]
	childTags  []bool
	events     []string
}

func (f *fakeAdapter) EntityName(p *fakeParent) string { return p.Name }
func (f *fakeAdapter) ForeignID(p *fakeParent) string  { return p.ForeignID }

func (f *fakeAdapter) GetRemoteData(_ context.Context, _ *fakeParent, _ []fakeParent, data *RemoteData[fakeParent]) (*fakeParent, error) {
	if f.remoteErr != nil {
		return nil, f.remoteErr
	}
	if data != nil {
		return data.Entity, nil
	}
	return f.remote, nil
}

func (f *fakeAdapter) ShouldDelete(_ context.Context, _ *fakeParent) bool { return f.shouldDelete }

func (f *fakeAdapter) DeleteEntity(_ context.Context, p *fakeParent) error {
	f.deleted = append(f.deleted, *p)
	return nil
}

func (f *fakeAdapter) IsMerge(local, remote *fakeParent) bool {
	return local.ForeignID != remote.ForeignID
}

func (f *fakeAdapter) FindEntityByForeignID(_ context.Context, foreignID string) (*fakeParent, error) {
	return f.byForeignID[foreignID], nil
}

func (f *fakeAdapter) MoveEntity(_ context.Context, local, remote *fakeParent) error {
	local.ForeignID = remote.ForeignID
	f.moved = append(f.moved, *local)
	return nil
}

func (f *fakeAdapter) MergeEntity(_ context.Context, local, target, _ *fakeParent) error {
	f.mergedInto = append(f.mergedInto, *target)
	f.deleted = append(f.deleted, *local)
	return nil
}

func (f *fakeAdapter) UpdateEntity(_ context.Context, local, remote *fakeParent) (UpdateResult, error) {
	local.Name = remote.Name
	local.Overview = remote.Overview
	return f.updateResult, nil
}

func (f *fakeAdapter) SaveEntity(_ context.Context, p *fakeParent) error {
	f.saved = append(f.saved, *p)
	return nil
}

func (f *fakeAdapter) ChildForeignID(c *fakeChild) string { return c.ForeignID }

func (f *fakeAdapter) GetLocalChildren(_ context.Context, _ *fakeParent, _ []fakeChild) ([]fakeChild, error) {
	return f.localChildren, nil
}

func (f *fakeAdapter) GetRemoteChildren(_ context.Context, _ *fakeParent, _ *fakeParent) ([]fakeChild, error) {
	return f.remoteKids, nil
}

func (f *fakeAdapter) ChildrenEqual(local, remote *fakeChild) bool {
	return local.Title == remote.Title
}

func (f *fakeAdapter) CanDeleteChild(_ context.Context, c *fakeChild) (bool, error) {
	return !c.HasFiles, nil
}

func (f *fakeAdapter) PrepareNewChild(p *fakeParent, c *fakeChild) { c.ParentID = p.ID }

func (f *fakeAdapter) PrepareExistingChild(p *fakeParent, local, remote *fakeChild) {
	remote.ID = local.ID
	remote.ParentID = p.ID
	remote.HasFiles = local.HasFiles
}

func (f *fakeAdapter) RefreshChildren(_ context.Context, _ *fakeParent, children *SortedChildren[fakeChild], _, forceUpdateTags bool, _ *time.Time) (bool, error) {
	f.refreshed = append(f.refreshed, children)
	f.childTags = append(f.childTags, forceUpdateTags)
	return children.Changed(), nil
}

func (f *fakeAdapter) PublishEntityUpdated(_ context.Context, _ *fakeParent, _ UpdateResult) {
	f.events = append(f.events, "entityUpdated")
}

func (f *fakeAdapter) PublishChildrenUpdated(_ context.Context, _ *fakeParent, _, _ []fakeChild) {
	f.events = append(f.events, "childrenUpdated")
}

func (f *fakeAdapter) PublishRefreshComplete(_ context.Context, _ *fakeParent) {
	f.events = append(f.events, "refreshComplete")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError, Format: "json"})
}

func newTestEngine(a *fakeAdapter) *Engine[fakeParent, fakeChild] {
	return NewEngine[fakeParent, fakeChild](a, testLogger())
}

func TestRefresh_NotFoundDeletesWhenNothingOwned(t *testing.T) {
	a := &fakeAdapter{shouldDelete: true}
	local := &fakeParent{ID: 1, ForeignID: "author-1", Name: "Frank Herbert"}

	updated, err := newTestEngine(a).RefreshEntityInfo(context.Background(), local, nil, nil, false, false, nil)
	require.NoError(t, err)
	assert.True(t, updated)
	require.Len(t, a.deleted, 1)
	assert.Empty(t, a.refreshed, "children must not be processed after deletion")
}

func TestRefresh_NotFoundKeepsWhenContentOwned(t *testing.T) {
	a := &fakeAdapter{shouldDelete: false}
	local := &fakeParent{ID: 1, ForeignID: "author-1", Name: "Frank Herbert"}

	updated, err := newTestEngine(a).RefreshEntityInfo(context.Background(), local, nil, nil, false, false, nil)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Empty(t, a.deleted)
	assert.Empty(t, a.saved)
}

func TestRefresh_NoChangeDoesNotPersist(t *testing.T) {
	a := &fakeAdapter{
		remote:       &fakeParent{ID: 1, ForeignID: "author-1", Name: "Frank Herbert"},
		updateResult: UpdateNone,
		localChildren: []fakeChild{
			{ID: 10, ParentID: 1, ForeignID: "book-1", Title: "Dune"},
		},
		remoteKids: []fakeChild{
			{ForeignID: "book-1", Title: "Dune"},
		},
	}
	local := &fakeParent{ID: 1, ForeignID: "author-1", Name: "Frank Herbert"}

	updated, err := newTestEngine(a).RefreshEntityInfo(context.Background(), local, nil, nil, false, false, nil)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Empty(t, a.saved)
	assert.NotContains(t, a.events, "entityUpdated")
	assert.Contains(t, a.events, "refreshComplete")

	require.Len(t, a.refreshed, 1)
	assert.Len(t, a.refreshed[0].UpToDate, 1)
	assert.False(t, a.refreshed[0].Changed())
}

func TestRefresh_StandardUpdatePersists(t *testing.T) {
	a := &fakeAdapter{
		remote:       &fakeParent{ID: 1, ForeignID: "author-1", Name: "Frank Herbert", Overview: "new"},
		updateResult: UpdateStandard,
	}
	local := &fakeParent{ID: 1, ForeignID: "author-1", Name: "Frank Herbert"}

	updated, err := newTestEngine(a).RefreshEntityInfo(context.Background(), local, nil, nil, false, false, nil)
	require.NoError(t, err)
	assert.True(t, updated)
	require.Len(t, a.saved, 1)
	assert.Equal(t, "new", a.saved[0].Overview)
	assert.Contains(t, a.events, "entityUpdated")
}

func TestRefresh_MoveWhenNewForeignIDUnowned(t *testing.T) {
	a := &fakeAdapter{
		remote:       &fakeParent{ID: 1, ForeignID: "author-2", Name: "Frank Herbert"},
		byForeignID:  map[string]*fakeParent{},
		updateResult: UpdateTags,
	}
	local := &fakeParent{ID: 1, ForeignID: "author-1", Name: "Frank Herbert"}

	updated, err := newTestEngine(a).RefreshEntityInfo(context.Background(), local, nil, nil, false, false, nil)
	require.NoError(t, err)
	assert.True(t, updated)
	require.Len(t, a.moved, 1)
	assert.Equal(t, "author-2", a.moved[0].ForeignID)
	assert.Equal(t, int64(1), a.moved[0].ID, "move keeps the local row")
	assert.Empty(t, a.mergedInto)

	// Identity changed, so child refresh must run with tag updates forced.
	require.Len(t, a.childTags, 1)
	assert.True(t, a.childTags[0])
}

func TestRefresh_MergeWhenNewForeignIDOwned(t *testing.T) {
	target := &fakeParent{ID: 2, ForeignID: "author-2", Name: "Frank Herbert"}
	a := &fakeAdapter{
		remote:       &fakeParent{ID: 2, ForeignID: "author-2", Name: "Frank Herbert"},
		byForeignID:  map[string]*fakeParent{"author-2": target},
		updateResult: UpdateStandard,
	}
	local := &fakeParent{ID: 1, ForeignID: "author-1", Name: "Frank Herbert (dup)"}

	updated, err := newTestEngine(a).RefreshEntityInfo(context.Background(), local, nil, nil, false, false, nil)
	require.NoError(t, err)
	assert.True(t, updated)
	require.Len(t, a.mergedInto, 1)
	assert.Equal(t, int64(2), a.mergedInto[0].ID)
	require.Len(t, a.deleted, 1)
	assert.Equal(t, int64(1), a.deleted[0].ID, "losing row is deleted")

	// Refresh continued on the surviving target row.
	require.Len(t, a.saved, 1)
	assert.Equal(t, int64(2), a.saved[0].ID)
}

func TestRefresh_PrefetchedRemoteDataWins(t *testing.T) {
	a := &fakeAdapter{
		remote:       &fakeParent{ID: 1, ForeignID: "author-1", Name: "stale"},
		updateResult: UpdateStandard,
	}
	local := &fakeParent{ID: 1, ForeignID: "author-1", Name: "Frank Herbert"}
	data := &RemoteData[fakeParent]{Entity: &fakeParent{ID: 1, ForeignID: "author-1", Name: "fresh"}}

	_, err := newTestEngine(a).RefreshEntityInfo(context.Background(), local, nil, data, false, false, nil)
	require.NoError(t, err)
	require.Len(t, a.saved, 1)
	assert.Equal(t, "fresh", a.saved[0].Name)
}

func TestSortChildren_Buckets(t *testing.T) {
	a := &fakeAdapter{}
	e := newTestEngine(a)
	parent := &fakeParent{ID: 1, ForeignID: "author-1"}

	locals := []fakeChild{
		{ID: 10, ParentID: 1, ForeignID: "book-1", Title: "Dune"},            // unchanged
		{ID: 11, ParentID: 1, ForeignID: "book-2", Title: "Old Title"},       // retitled remotely
		{ID: 12, ParentID: 1, ForeignID: "book-3", Title: "Gone"},            // dropped remotely, no files
		{ID: 13, ParentID: 1, ForeignID: "book-4", Title: "Keeper", HasFiles: true}, // dropped remotely, has files
	}
	remotes := []fakeChild{
		{ForeignID: "book-1", Title: "Dune"},
		{ForeignID: "book-2", Title: "New Title"},
		{ForeignID: "book-5", Title: "Brand New"},
	}

	sorted, err := e.sortChildren(context.Background(), parent, locals, remotes)
	require.NoError(t, err)

	require.Len(t, sorted.Added, 1)
	assert.Equal(t, "book-5", sorted.Added[0].ForeignID)
	assert.Equal(t, int64(1), sorted.Added[0].ParentID, "new child stamped with parent linkage")

	require.Len(t, sorted.Updated, 1)
	assert.Equal(t, "New Title", sorted.Updated[0].Title)
	assert.Equal(t, int64(11), sorted.Updated[0].ID, "updated child keeps its row id")

	require.Len(t, sorted.Deleted, 1)
	assert.Equal(t, "book-3", sorted.Deleted[0].ForeignID)

	// book-1 unchanged plus book-4 protected by owned files.
	require.Len(t, sorted.UpToDate, 2)
	ids := []string{sorted.UpToDate[0].ForeignID, sorted.UpToDate[1].ForeignID}
	assert.Contains(t, ids, "book-1")
	assert.Contains(t, ids, "book-4")

	// Only the file-protected local is flagged as missing from the remote.
	assert.True(t, sorted.Unreported["book-4"])
	assert.False(t, sorted.Unreported["book-1"])

	assert.Empty(t, sorted.Merged)
	assert.True(t, sorted.Changed())
}

func TestSortChildren_DuplicateLocalsMerge(t *testing.T) {
	a := &fakeAdapter{}
	e := newTestEngine(a)
	parent := &fakeParent{ID: 1, ForeignID: "author-1"}

	locals := []fakeChild{
		{ID: 10, ParentID: 1, ForeignID: "book-1", Title: "Dune"},
		{ID: 11, ParentID: 1, ForeignID: "book-1", Title: "Dune"},
	}
	remotes := []fakeChild{
		{ForeignID: "book-1", Title: "Dune"},
	}

	sorted, err := e.sortChildren(context.Background(), parent, locals, remotes)
	require.NoError(t, err)

	require.Len(t, sorted.Merged, 1)
	assert.Equal(t, int64(10), sorted.Merged[0].Survivor.ID)
	assert.Equal(t, int64(11), sorted.Merged[0].Casualty.ID)
	assert.Len(t, sorted.UpToDate, 1)
	assert.Empty(t, sorted.Deleted)
	assert.True(t, sorted.Changed())
}

func TestSortChildren_EmptyRemoteGuardsOwnedContent(t *testing.T) {
	a := &fakeAdapter{}
	e := newTestEngine(a)
	parent := &fakeParent{ID: 1, ForeignID: "author-1"}

	locals := []fakeChild{
		{ID: 10, ForeignID: "book-1", HasFiles: true},
		{ID: 11, ForeignID: "book-2"},
	}

	sorted, err := e.sortChildren(context.Background(), parent, locals, nil)
	require.NoError(t, err)
	assert.Len(t, sorted.UpToDate, 1)
	assert.Len(t, sorted.Deleted, 1)
}

func TestSortedChildren_FutureOldAll(t *testing.T) {
	s := &SortedChildren[fakeChild]{
		UpToDate: []fakeChild{{ID: 1}},
		Added:    []fakeChild{{ID: 2}},
		Updated:  []fakeChild{{ID: 3}},
		Merged:   []MergePair[fakeChild]{{Survivor: fakeChild{ID: 4}, Casualty: fakeChild{ID: 5}}},
		Deleted:  []fakeChild{{ID: 6}},
	}

	future := s.Future()
	require.Len(t, future, 4)
	old := s.Old()
	require.Len(t, old, 2)
	assert.Len(t, s.All(), 6)
}

func TestRefresh_Idempotent(t *testing.T) {
	// After one refresh applied the remote state, a second run with the
	// same inputs must report nothing to do.
	local := &fakeParent{ID: 1, ForeignID: "author-1", Name: "Old Name"}
	remote := fakeParent{ID: 1, ForeignID: "author-1", Name: "New Name"}

	a := &fakeAdapter{remote: &remote, updateResult: UpdateStandard}
	e := newTestEngine(a)

	first, err := e.RefreshEntityInfo(context.Background(), local, nil, nil, false, false, nil)
	require.NoError(t, err)
	assert.True(t, first)

	// Local now matches remote; the adapter classifies no further change.
	a.updateResult = UpdateNone
	second, err := e.RefreshEntityInfo(context.Background(), local, nil, nil, false, false, nil)
	require.NoError(t, err)
	assert.False(t, second)
	assert.Len(t, a.saved, 1, "second pass must not write")
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	var counter, peak int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.lock("author-1")
			defer unlock()

			mu.Lock()
			counter++
			if counter > peak {
				peak = counter
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, peak, "holders of the same key must never overlap")
	assert.Empty(t, km.locks, "released keys are removed")
}

func TestKeyedMutex_DistinctKeysDoNotBlock(t *testing.T) {
	km := newKeyedMutex()
	unlockA := km.lock("author-1")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.lock("author-2")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("distinct keys must not contend")
	}
}
