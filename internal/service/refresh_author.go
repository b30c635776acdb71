package service

import (
	"context"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/logger"
	"github.com/shelfmark/shelfmark-server/internal/metadata/bookinfo"
	"github.com/shelfmark/shelfmark-server/internal/refresh"
	"github.com/shelfmark/shelfmark-server/internal/sse"
	"github.com/shelfmark/shelfmark-server/internal/store"
)

// Refresh intervals by author status. Authors still publishing change in the
// catalog far more often than finished ones.
const (
	refreshIntervalContinuing = 2 * 24 * time.Hour
	refreshIntervalEnded      = 30 * 24 * time.Hour
)

// bookRefresher reconciles one book's editions against already-fetched
// remote data. Implemented by RefreshBookService.
type bookRefresher interface {
	RefreshBookInfo(ctx context.Context, local *domain.Book, data *refresh.RemoteData[domain.Book], isManual, forceUpdateTags bool) (bool, error)
}

// seriesReconciler syncs an author's series rows and book links after the
// books themselves are persisted. Implemented by RefreshSeriesService.
type seriesReconciler interface {
	ReconcileSeries(ctx context.Context, authorMetadataID int64, remoteSeries []domain.Series, books []*domain.Book) (bool, error)
}

// RefreshAuthorService drives author refreshes: single authors by id, and
// the scheduled refresh-all sweep with staleness and changed-since
// filtering.
type RefreshAuthorService struct {
	store    *store.Store
	provider bookinfo.Provider
	books    bookRefresher
	series   seriesReconciler
	rescan   *RescanQueue
	policy   RescanPolicy
	engine   *refresh.Engine[domain.Author, domain.Book]
	logger   *logger.Logger
}

// NewRefreshAuthorService creates the author refresh service.
func NewRefreshAuthorService(
	store *store.Store,
	provider bookinfo.Provider,
	books bookRefresher,
	series seriesReconciler,
	rescan *RescanQueue,
	policy RescanPolicy,
	log *logger.Logger,
) *RefreshAuthorService {
	s := &RefreshAuthorService{
		store:    store,
		provider: provider,
		books:    books,
		series:   series,
		rescan:   rescan,
		policy:   policy,
		logger:   log,
	}
	s.engine = refresh.NewEngine[domain.Author, domain.Book](&authorAdapter{service: s}, log)
	return s
}

// ShouldRefreshAuthor reports whether an author's metadata is stale enough
// for the scheduled sweep to hit the catalog.
func ShouldRefreshAuthor(a *domain.Author) bool {
	if a.LastInfoSync == nil {
		return true
	}
	interval := refreshIntervalContinuing
	if a.Metadata.Status == domain.AuthorStatusEnded {
		interval = refreshIntervalEnded
	}
	return time.Since(*a.LastInfoSync) >= interval
}

// RefreshAuthors refreshes the given authors, always hitting the catalog.
// Failures are isolated per author; the returned result carries both counts
// and the per-author errors.
func (s *RefreshAuthorService) RefreshAuthors(ctx context.Context, ids []int64, isManual bool) (*BatchResult, error) {
	authors, err := s.store.GetAuthors(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.refreshBatch(ctx, authors, isManual, func(*domain.Author) bool { return true }), nil
}

// RefreshAll sweeps every author. Manual triggers force a catalog fetch for
// all of them; scheduled runs only refresh stale authors plus those the
// catalog reports as changed since the last sweep (when that window is
// recent enough for an incremental list).
func (s *RefreshAuthorService) RefreshAll(ctx context.Context, isManual bool, lastStart time.Time) (*BatchResult, error) {
	authors, err := s.store.GetAllAuthors(ctx)
	if err != nil {
		return nil, err
	}

	changed := make(map[string]bool)
	if !isManual && !lastStart.IsZero() {
		ids, err := s.provider.GetChangedAuthors(ctx, lastStart)
		if err != nil {
			s.logger.WithError(err).Warn("changed-author list unavailable, using staleness only")
		}
		for _, id := range ids {
			changed[id] = true
		}
	}

	include := func(a *domain.Author) bool {
		return isManual || ShouldRefreshAuthor(a) || changed[a.ForeignAuthorID()]
	}
	return s.refreshBatch(ctx, authors, isManual, include), nil
}

// refreshBatch runs the engine over each selected author, isolating
// failures, then decides whether to enqueue a rescan.
func (s *RefreshAuthorService) refreshBatch(ctx context.Context, authors []*domain.Author, isManual bool, include func(*domain.Author) bool) *BatchResult {
	result := &BatchResult{}
	trigger := "scheduled"
	if isManual {
		trigger = "manual"
	}
	s.store.Emit(sse.NewEvent(sse.EventRefreshStarted, sse.RefreshEventData{Trigger: trigger, Total: len(authors)}))

	var updatedAuthorIDs []int64
	for _, author := range authors {
		if !include(author) {
			result.Skipped++
			continue
		}

		updated, err := s.engine.RefreshEntityInfo(ctx, author, nil, nil, isManual, false, author.LastInfoSync)
		if err != nil {
			s.logger.WithError(err).Error("author refresh failed", "name", author.Name(), "foreignID", author.ForeignAuthorID())
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{AuthorID: author.ID, Name: author.Name(), Err: err})
			continue
		}
		result.Succeeded++
		if updated {
			updatedAuthorIDs = append(updatedAuthorIDs, author.ID)
		}
	}

	s.logger.Info("author refresh batch finished",
		"succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped)
	s.store.Emit(sse.NewEvent(sse.EventRefreshComplete, sse.RefreshEventData{
		Trigger:   trigger,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	}))

	if len(updatedAuthorIDs) > 0 && s.policy.ShouldRescan(isManual) {
		s.rescan.Enqueue(RescanCommand{AuthorIDs: updatedAuthorIDs, MatchedFilesOnly: true})
	}
	return result
}

// BatchResult summarizes a batch refresh.
type BatchResult struct {
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Errors    []RefreshError `json:"errors,omitempty"`
}

// RefreshError records one author's failure inside a batch.
type RefreshError struct {
	AuthorID int64  `json:"author_id"`
	Name     string `json:"name"`
	Err      error  `json:"-"`
}

// authorAdapter parameterizes the reconciliation engine for authors with
// book children.
type authorAdapter struct {
	service *RefreshAuthorService
}

func (ad *authorAdapter) EntityName(a *domain.Author) string { return a.Name() }
func (ad *authorAdapter) ForeignID(a *domain.Author) string  { return a.ForeignAuthorID() }

// GetRemoteData fetches the canonical author record unless the caller
// already supplied it, upserts the returned metadata set, and pins the
// local ids on the remote representation.
func (ad *authorAdapter) GetRemoteData(ctx context.Context, local *domain.Author, _ []domain.Author, data *refresh.RemoteData[domain.Author]) (*domain.Author, error) {
	var remote *domain.Author
	var metadata []domain.AuthorMetadata

	if data != nil {
		remote = data.Entity
		metadata = data.Metadata
	} else {
		var err error
		remote, metadata, err = ad.service.provider.GetAuthorInfo(ctx, local.ForeignAuthorID())
		if err != nil {
			if errors.Is(err, bookinfo.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
	}
	if remote == nil {
		return nil, nil
	}

	if _, err := ad.service.store.UpsertAuthorMetadata(ctx, metadata); err != nil {
		return nil, err
	}
	stored, err := ad.service.store.FindAuthorMetadataByForeignID(ctx, remote.ForeignAuthorID())
	if err != nil {
		return nil, err
	}

	remote.ID = local.ID
	remote.MetadataID = stored.ID
	remote.Metadata.ID = stored.ID
	return remote, nil
}

// ShouldDelete allows removal only when the author owns no files.
func (ad *authorAdapter) ShouldDelete(ctx context.Context, a *domain.Author) bool {
	files, err := ad.service.store.GetFilesByAuthor(ctx, a.ID)
	if err != nil {
		return false
	}
	return len(files) == 0
}

func (ad *authorAdapter) DeleteEntity(ctx context.Context, a *domain.Author) error {
	if err := ad.service.store.DeleteAuthor(ctx, a.ID); err != nil {
		return err
	}
	ad.service.store.Emit(sse.NewEvent(sse.EventAuthorDeleted, sse.AuthorEventData{
		AuthorID: a.ID, ForeignID: a.ForeignAuthorID(), Name: a.Name(),
	}))
	return nil
}

func (ad *authorAdapter) IsMerge(local, remote *domain.Author) bool {
	return local.ForeignAuthorID() != remote.ForeignAuthorID()
}

func (ad *authorAdapter) FindEntityByForeignID(ctx context.Context, foreignID string) (*domain.Author, error) {
	return ad.service.store.FindAuthorByForeignID(ctx, foreignID)
}

// MoveEntity re-points the library row at the new catalog id: the metadata
// reference moves to the new metadata row and any exclusion on the old id
// follows. Saved immediately so the child diff sees the new ids.
func (ad *authorAdapter) MoveEntity(ctx context.Context, local, remote *domain.Author) error {
	oldID := local.ForeignAuthorID()
	if err := ad.service.store.UpdateExclusionForeignID(ctx, oldID, remote.ForeignAuthorID()); err != nil {
		return err
	}
	local.MetadataID = remote.MetadataID
	local.Metadata = remote.Metadata
	return ad.service.store.SaveAuthor(ctx, local)
}

// MergeEntity folds the duplicate row into the one already owning the new
// catalog id: files and history move over, then the loser is deleted.
func (ad *authorAdapter) MergeEntity(ctx context.Context, local, target, _ *domain.Author) error {
	if err := ad.service.store.ReassignAuthorFiles(ctx, local.ID, target.ID); err != nil {
		return err
	}
	if err := ad.service.store.ReassignAuthorHistory(ctx, local.ID, target.ID); err != nil {
		return err
	}
	return ad.service.store.DeleteAuthor(ctx, local.ID)
}

func (ad *authorAdapter) UpdateEntity(_ context.Context, local, remote *domain.Author) (refresh.UpdateResult, error) {
	result := refresh.UpdateNone
	if !local.Metadata.ContentEquals(&remote.Metadata) {
		result = refresh.UpdateTags
	} else if !seriesSetEqual(local.Series, remote.Series) {
		result = refresh.UpdateStandard
	}
	local.ApplyMetadataFrom(remote)
	return result, nil
}

func (ad *authorAdapter) SaveEntity(ctx context.Context, a *domain.Author) error {
	return ad.service.store.SaveAuthor(ctx, a)
}

func (ad *authorAdapter) ChildForeignID(b *domain.Book) string { return b.ForeignBookID }

func (ad *authorAdapter) GetLocalChildren(ctx context.Context, a *domain.Author, remoteChildren []domain.Book) ([]domain.Book, error) {
	foreignIDs := make([]string, 0, len(remoteChildren))
	for i := range remoteChildren {
		foreignIDs = append(foreignIDs, remoteChildren[i].ForeignBookID)
	}
	rows, err := ad.service.store.GetBooksForRefresh(ctx, a.MetadataID, foreignIDs)
	if err != nil {
		return nil, err
	}
	books := make([]domain.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, *row)
	}
	return books, nil
}

// GetRemoteChildren deduplicates the catalog's book list by foreign id and
// drops books the user has excluded.
func (ad *authorAdapter) GetRemoteChildren(ctx context.Context, _ *domain.Author, remote *domain.Author) ([]domain.Book, error) {
	candidateIDs := make([]string, 0, len(remote.Books))
	for i := range remote.Books {
		candidateIDs = append(candidateIDs, remote.Books[i].ForeignBookID)
	}
	excluded, err := ad.service.store.FindExcludedForeignIDs(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(remote.Books))
	books := make([]domain.Book, 0, len(remote.Books))
	for i := range remote.Books {
		book := remote.Books[i]
		if seen[book.ForeignBookID] || excluded[book.ForeignBookID] {
			continue
		}
		seen[book.ForeignBookID] = true
		books = append(books, book)
	}
	return books, nil
}

func (ad *authorAdapter) ChildrenEqual(local, remote *domain.Book) bool {
	return local.ContentEquals(remote)
}

func (ad *authorAdapter) CanDeleteChild(ctx context.Context, b *domain.Book) (bool, error) {
	files, err := ad.service.store.GetFilesByBook(ctx, b.ID)
	if err != nil {
		return false, err
	}
	return len(files) == 0, nil
}

func (ad *authorAdapter) PrepareNewChild(a *domain.Author, b *domain.Book) {
	b.AuthorMetadataID = a.MetadataID
	b.Monitored = a.Monitored
	b.AnyEditionOK = true
	b.Added = time.Now().UTC()
}

func (ad *authorAdapter) PrepareExistingChild(a *domain.Author, local, remote *domain.Book) {
	remote.UseDBFieldsFrom(local)
	remote.AuthorMetadataID = a.MetadataID
}

// RefreshChildren persists the book buckets in a crash-tolerant order
// (merges, deletes, inserts, updates), recurses into edition reconciliation
// for every surviving book, then syncs the author's series.
func (ad *authorAdapter) RefreshChildren(ctx context.Context, a *domain.Author, children *refresh.SortedChildren[domain.Book], isManual, forceUpdateTags bool, _ *time.Time) (bool, error) {
	st := ad.service.store

	for _, pair := range children.Merged {
		if err := st.ReassignBookFiles(ctx, pair.Casualty.ID, pair.Survivor.ID); err != nil {
			return false, err
		}
		if err := st.ReassignBookHistory(ctx, pair.Casualty.ID, pair.Survivor.ID); err != nil {
			return false, err
		}
		if err := st.DeleteBooks(ctx, []int64{pair.Casualty.ID}); err != nil {
			return false, err
		}
	}

	if len(children.Deleted) > 0 {
		ids := make([]int64, 0, len(children.Deleted))
		for i := range children.Deleted {
			ids = append(ids, children.Deleted[i].ID)
		}
		if err := st.DeleteBooks(ctx, ids); err != nil {
			return false, err
		}
	}

	added := make([]*domain.Book, 0, len(children.Added))
	for i := range children.Added {
		added = append(added, &children.Added[i])
	}
	if err := st.InsertBooks(ctx, added); err != nil {
		return false, err
	}

	updated := make([]*domain.Book, 0, len(children.Updated))
	for i := range children.Updated {
		updated = append(updated, &children.Updated[i])
	}
	if err := st.UpdateBooks(ctx, updated); err != nil {
		return false, err
	}

	// Reconcile editions for every surviving book, unchanged ones included:
	// an edition-level change does not touch the book's own fields. Matched
	// buckets hold the prepared remote copies, so each book is its own
	// remote record; books the catalog dropped carry no remote payload and
	// the book engine keeps them as they are.
	booksChanged := false
	future := children.Future()
	futurePtrs := make([]*domain.Book, 0, len(future))
	seen := make(map[string]bool, len(future))
	for i := range future {
		book := &future[i]
		futurePtrs = append(futurePtrs, book)
		if seen[book.ForeignBookID] {
			continue
		}
		seen[book.ForeignBookID] = true

		data := &refresh.RemoteData[domain.Book]{}
		if !children.Unreported[book.ForeignBookID] {
			data.Entity = book
		}
		changed, err := ad.service.books.RefreshBookInfo(ctx, book, data, isManual, forceUpdateTags)
		if err != nil {
			return false, err
		}
		booksChanged = booksChanged || changed
	}

	seriesChanged, err := ad.service.series.ReconcileSeries(ctx, a.MetadataID, a.Series, futurePtrs)
	if err != nil {
		return false, err
	}

	return children.Changed() || booksChanged || seriesChanged, nil
}

func (ad *authorAdapter) PublishEntityUpdated(ctx context.Context, a *domain.Author, _ refresh.UpdateResult) {
	ad.service.store.Emit(sse.NewEvent(sse.EventAuthorUpdated, sse.AuthorEventData{
		AuthorID: a.ID, ForeignID: a.ForeignAuthorID(), Name: a.Name(),
	}))
}

func (ad *authorAdapter) PublishChildrenUpdated(ctx context.Context, a *domain.Author, added, updated []domain.Book) {
	ids := make([]int64, 0, len(added)+len(updated))
	for i := range added {
		ids = append(ids, added[i].ID)
	}
	for i := range updated {
		ids = append(ids, updated[i].ID)
	}
	ad.service.store.Emit(sse.NewEvent(sse.EventBookUpdated, sse.BookListEventData{AuthorID: a.ID, BookIDs: ids}))
}

// PublishRefreshComplete stamps the sync time so the staleness predicate
// sees even no-change refreshes.
func (ad *authorAdapter) PublishRefreshComplete(ctx context.Context, a *domain.Author) {
	now := time.Now().UTC()
	a.LastInfoSync = &now
	if err := ad.service.store.SaveAuthor(ctx, a); err != nil {
		ad.service.logger.WithError(err).Warn("failed to stamp author sync time", "name", a.Name())
	}
}

// seriesSetEqual compares series sets by foreign id and content.
func seriesSetEqual(a, b []domain.Series) bool {
	if len(a) != len(b) {
		return false
	}
	byID := make(map[string]*domain.Series, len(a))
	for i := range a {
		byID[a[i].ForeignSeriesID] = &a[i]
	}
	for i := range b {
		existing, ok := byID[b[i].ForeignSeriesID]
		if !ok || !existing.ContentEquals(&b[i]) {
			return false
		}
	}
	return true
}
