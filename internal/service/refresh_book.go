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

// parentProvisioner adds a missing author to the library when a refreshed
// book turns out to be filed under one not yet tracked. Implemented by
// AddAuthorService.
type parentProvisioner interface {
	AddAuthor(ctx context.Context, req AddAuthorRequest) (*domain.Author, error)
}

// RefreshBookService reconciles books against the catalog, with editions as
// children.
type RefreshBookService struct {
	store    *store.Store
	provider bookinfo.Provider
	authors  parentProvisioner
	engine   *refresh.Engine[domain.Book, domain.Edition]
	logger   *logger.Logger
}

// NewRefreshBookService creates the book refresh service.
func NewRefreshBookService(store *store.Store, provider bookinfo.Provider, authors parentProvisioner, log *logger.Logger) *RefreshBookService {
	s := &RefreshBookService{
		store:    store,
		provider: provider,
		authors:  authors,
		logger:   log,
	}
	s.engine = refresh.NewEngine[domain.Book, domain.Edition](&bookAdapter{service: s}, log)
	return s
}

// RefreshBookInfo reconciles one book. data may carry the already-fetched
// catalog representation (the author refresh passes the books it just got),
// including a nil Entity when the caller knows the catalog dropped the book.
// When data itself is nil the service fetches the book from the catalog.
func (s *RefreshBookService) RefreshBookInfo(ctx context.Context, local *domain.Book, data *refresh.RemoteData[domain.Book], isManual, forceUpdateTags bool) (bool, error) {
	return s.engine.RefreshEntityInfo(ctx, local, nil, data, isManual, forceUpdateTags, local.LastInfoSync)
}

// RefreshBooks refreshes the given books by id, isolating failures.
func (s *RefreshBookService) RefreshBooks(ctx context.Context, ids []int64, isManual bool) (*BatchResult, error) {
	result := &BatchResult{}
	for _, id := range ids {
		book, err := s.store.Books.Get(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				result.Skipped++
				continue
			}
			return nil, err
		}
		if _, err := s.RefreshBookInfo(ctx, book, nil, isManual, false); err != nil {
			s.logger.WithError(err).Error("book refresh failed", "title", book.Title, "foreignID", book.ForeignBookID)
			result.Failed++
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// ensureParent makes sure the library tracks the author the catalog files
// this book under, adding them when missing. Profiles and the root folder
// are copied from the book's current parent so the new author lands next to
// the old one. Returns the metadata row id the book should point at.
func (s *RefreshBookService) ensureParent(ctx context.Context, local *domain.Book, authorForeignID string) (int64, error) {
	stored, err := s.store.FindAuthorMetadataByForeignID(ctx, authorForeignID)
	if err != nil {
		return 0, err
	}
	if stored != nil {
		author, err := s.store.FindAuthorByForeignID(ctx, authorForeignID)
		if err != nil {
			return 0, err
		}
		if author != nil {
			return stored.ID, nil
		}
	}

	oldParent, err := s.findParentAuthor(ctx, local.AuthorMetadataID)
	if err != nil {
		return 0, err
	}

	req := AddAuthorRequest{
		ForeignAuthorID: authorForeignID,
		RootFolder:      parentRootFolder(oldParent),
		Monitored:       oldParent == nil || oldParent.Monitored,
	}
	if oldParent != nil {
		req.QualityProfileID = oldParent.QualityProfileID
		req.MetadataProfileID = oldParent.MetadataProfileID
		req.Tags = oldParent.Tags
	}

	added, err := s.authors.AddAuthor(ctx, req)
	if err != nil {
		return 0, err
	}
	s.logger.Info("added author for re-filed book", "title", local.Title, "author", added.Name())
	return added.MetadataID, nil
}

func (s *RefreshBookService) findParentAuthor(ctx context.Context, metadataID int64) (*domain.Author, error) {
	authors, err := s.store.GetAllAuthors(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range authors {
		if a.MetadataID == metadataID {
			return a, nil
		}
	}
	return nil, nil
}

func parentRootFolder(a *domain.Author) string {
	if a == nil || a.Path == "" {
		return "/library"
	}
	// Parent folder of the author's own folder.
	for i := len(a.Path) - 1; i > 0; i-- {
		if a.Path[i] == '/' {
			return a.Path[:i]
		}
	}
	return a.Path
}

// bookAdapter parameterizes the reconciliation engine for books with edition
// children.
type bookAdapter struct {
	service *RefreshBookService
}

func (ad *bookAdapter) EntityName(b *domain.Book) string { return b.Title }
func (ad *bookAdapter) ForeignID(b *domain.Book) string  { return b.ForeignBookID }

// GetRemoteData uses the pre-fetched record when the author refresh supplied
// one, otherwise fetches the book, upserting metadata and provisioning a
// missing parent author on the way. A pre-fetched nil entity means the
// catalog no longer reports the book.
func (ad *bookAdapter) GetRemoteData(ctx context.Context, local *domain.Book, _ []domain.Book, data *refresh.RemoteData[domain.Book]) (*domain.Book, error) {
	if data != nil {
		if data.Entity == nil {
			return nil, nil
		}
		remote := data.Entity
		remote.ID = local.ID
		return remote, nil
	}

	authorForeignID, remote, metadata, err := ad.service.provider.GetBookInfo(ctx, local.ForeignBookID)
	if err != nil {
		if errors.Is(err, bookinfo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if _, err := ad.service.store.UpsertAuthorMetadata(ctx, metadata); err != nil {
		return nil, err
	}
	metadataID, err := ad.service.ensureParent(ctx, local, authorForeignID)
	if err != nil {
		return nil, err
	}

	remote.ID = local.ID
	remote.AuthorMetadataID = metadataID
	return remote, nil
}

func (ad *bookAdapter) ShouldDelete(ctx context.Context, b *domain.Book) bool {
	files, err := ad.service.store.GetFilesByBook(ctx, b.ID)
	if err != nil {
		return false
	}
	return len(files) == 0
}

func (ad *bookAdapter) DeleteEntity(ctx context.Context, b *domain.Book) error {
	if err := ad.service.store.DeleteBooks(ctx, []int64{b.ID}); err != nil {
		return err
	}
	ad.service.store.Emit(sse.NewEvent(sse.EventBookDeleted, sse.BookListEventData{BookIDs: []int64{b.ID}}))
	return nil
}

func (ad *bookAdapter) IsMerge(local, remote *domain.Book) bool {
	return local.ForeignBookID != remote.ForeignBookID
}

func (ad *bookAdapter) FindEntityByForeignID(ctx context.Context, foreignID string) (*domain.Book, error) {
	return ad.service.store.FindBookByForeignID(ctx, foreignID)
}

// MoveEntity re-points the book at its new catalog id, dragging any
// exclusion along, and saves immediately so the edition diff sees it.
func (ad *bookAdapter) MoveEntity(ctx context.Context, local, remote *domain.Book) error {
	oldID := local.ForeignBookID
	if err := ad.service.store.UpdateExclusionForeignID(ctx, oldID, remote.ForeignBookID); err != nil {
		return err
	}
	local.ForeignBookID = remote.ForeignBookID
	local.AuthorMetadataID = remote.AuthorMetadataID
	return ad.service.store.UpdateBooks(ctx, []*domain.Book{local})
}

func (ad *bookAdapter) MergeEntity(ctx context.Context, local, target, _ *domain.Book) error {
	if err := ad.service.store.ReassignBookFiles(ctx, local.ID, target.ID); err != nil {
		return err
	}
	if err := ad.service.store.ReassignBookHistory(ctx, local.ID, target.ID); err != nil {
		return err
	}
	return ad.service.store.DeleteBooks(ctx, []int64{local.ID})
}

func (ad *bookAdapter) UpdateEntity(_ context.Context, local, remote *domain.Book) (refresh.UpdateResult, error) {
	if local.ContentEquals(remote) {
		return refresh.UpdateNone, nil
	}
	result := refresh.UpdateStandard
	if local.Title != remote.Title || local.CleanTitle != remote.CleanTitle {
		result = refresh.UpdateTags
	}
	local.ApplyMetadataFrom(remote)
	return result, nil
}

func (ad *bookAdapter) SaveEntity(ctx context.Context, b *domain.Book) error {
	return ad.service.store.UpdateBooks(ctx, []*domain.Book{b})
}

func (ad *bookAdapter) ChildForeignID(e *domain.Edition) string { return e.ForeignEditionID }

func (ad *bookAdapter) GetLocalChildren(ctx context.Context, b *domain.Book, remoteChildren []domain.Edition) ([]domain.Edition, error) {
	foreignIDs := make([]string, 0, len(remoteChildren))
	for i := range remoteChildren {
		foreignIDs = append(foreignIDs, remoteChildren[i].ForeignEditionID)
	}
	rows, err := ad.service.store.GetEditionsForRefresh(ctx, b.ID, foreignIDs)
	if err != nil {
		return nil, err
	}
	editions := make([]domain.Edition, 0, len(rows))
	for _, row := range rows {
		editions = append(editions, *row)
	}
	return editions, nil
}

func (ad *bookAdapter) GetRemoteChildren(_ context.Context, _ *domain.Book, remote *domain.Book) ([]domain.Edition, error) {
	seen := make(map[string]bool, len(remote.Editions))
	editions := make([]domain.Edition, 0, len(remote.Editions))
	for i := range remote.Editions {
		e := remote.Editions[i]
		if seen[e.ForeignEditionID] {
			continue
		}
		seen[e.ForeignEditionID] = true
		editions = append(editions, e)
	}
	return editions, nil
}

func (ad *bookAdapter) ChildrenEqual(local, remote *domain.Edition) bool {
	return local.ContentEquals(remote)
}

func (ad *bookAdapter) CanDeleteChild(ctx context.Context, e *domain.Edition) (bool, error) {
	if e.ManualAdd {
		return false, nil
	}
	files, err := ad.service.store.GetFilesByEdition(ctx, e.ID)
	if err != nil {
		return false, err
	}
	return len(files) == 0, nil
}

func (ad *bookAdapter) PrepareNewChild(b *domain.Book, e *domain.Edition) {
	e.BookID = b.ID
}

func (ad *bookAdapter) PrepareExistingChild(b *domain.Book, local, remote *domain.Edition) {
	remote.ID = local.ID
	remote.Monitored = local.Monitored
	remote.ManualAdd = local.ManualAdd
	remote.BookID = b.ID
}

// RefreshChildren applies the single-monitored-edition rule, then persists
// the edition buckets: merges, deletes, inserts, updates.
func (ad *bookAdapter) RefreshChildren(ctx context.Context, b *domain.Book, children *refresh.SortedChildren[domain.Edition], _, _ bool, _ *time.Time) (bool, error) {
	st := ad.service.store

	if err := ad.monitorSingleEdition(ctx, b, children); err != nil {
		return false, err
	}

	for _, pair := range children.Merged {
		if err := st.ReassignEditionFiles(ctx, pair.Casualty.ID, pair.Survivor.ID); err != nil {
			return false, err
		}
		if err := st.Editions.Delete(ctx, pair.Casualty.ID); err != nil {
			return false, err
		}
	}

	if len(children.Deleted) > 0 {
		ids := make([]int64, 0, len(children.Deleted))
		for i := range children.Deleted {
			ids = append(ids, children.Deleted[i].ID)
		}
		if err := st.Editions.DeleteMany(ctx, ids); err != nil {
			return false, err
		}
	}

	added := make([]*domain.Edition, 0, len(children.Added))
	for i := range children.Added {
		added = append(added, &children.Added[i])
	}
	if err := st.Editions.InsertMany(ctx, added); err != nil {
		return false, err
	}

	updated := make([]*domain.Edition, 0, len(children.Updated))
	for i := range children.Updated {
		updated = append(updated, &children.Updated[i])
	}
	if err := st.Editions.UpdateMany(ctx, updated); err != nil {
		return false, err
	}

	return children.Changed(), nil
}

// monitorSingleEdition enforces exactly one monitored edition per book when
// the book allows automatic edition choice. The keeper is the edition with
// files, then a manually added one, then the most popular. Editions whose
// monitoring flag flips are moved from UpToDate to Updated so the change
// persists.
func (ad *bookAdapter) monitorSingleEdition(ctx context.Context, b *domain.Book, children *refresh.SortedChildren[domain.Edition]) error {
	if !b.AnyEditionOK {
		return nil
	}

	type slot struct {
		edition  *domain.Edition
		upToDate bool
		files    int
	}

	slots := make([]*slot, 0, len(children.UpToDate)+len(children.Added)+len(children.Updated)+len(children.Merged))
	collect := func(e *domain.Edition, upToDate bool) error {
		files := 0
		if e.ID != 0 {
			rows, err := ad.service.store.GetFilesByEdition(ctx, e.ID)
			if err != nil {
				return err
			}
			files = len(rows)
		}
		slots = append(slots, &slot{edition: e, upToDate: upToDate, files: files})
		return nil
	}
	for i := range children.UpToDate {
		if err := collect(&children.UpToDate[i], true); err != nil {
			return err
		}
	}
	for i := range children.Added {
		if err := collect(&children.Added[i], false); err != nil {
			return err
		}
	}
	for i := range children.Updated {
		if err := collect(&children.Updated[i], false); err != nil {
			return err
		}
	}
	for i := range children.Merged {
		if err := collect(&children.Merged[i].Survivor, false); err != nil {
			return err
		}
	}

	if len(slots) == 0 {
		return nil
	}

	// Files beat everything, then manual additions, then popularity.
	better := func(x, y *slot) bool {
		if x.files != y.files {
			return x.files > y.files
		}
		if x.edition.ManualAdd != y.edition.ManualAdd {
			return x.edition.ManualAdd
		}
		if x.edition.Ratings.Popularity != y.edition.Ratings.Popularity {
			return x.edition.Ratings.Popularity > y.edition.Ratings.Popularity
		}
		return x.edition.Ratings.Votes > y.edition.Ratings.Votes
	}

	keeper := slots[0]
	for _, s := range slots[1:] {
		if better(s, keeper) {
			keeper = s
		}
	}

	var promotedOrDemoted []*slot
	for _, s := range slots {
		want := s == keeper
		if s.edition.Monitored != want {
			s.edition.Monitored = want
			if s.upToDate {
				promotedOrDemoted = append(promotedOrDemoted, s)
			}
		}
	}

	// Re-bucket flipped UpToDate editions so they get written.
	if len(promotedOrDemoted) > 0 {
		flipped := make(map[*domain.Edition]bool, len(promotedOrDemoted))
		for _, s := range promotedOrDemoted {
			flipped[s.edition] = true
		}
		kept := children.UpToDate[:0]
		for i := range children.UpToDate {
			e := &children.UpToDate[i]
			if flipped[e] {
				children.Updated = append(children.Updated, *e)
			} else {
				kept = append(kept, *e)
			}
		}
		children.UpToDate = kept
	}
	return nil
}

func (ad *bookAdapter) PublishEntityUpdated(ctx context.Context, b *domain.Book, _ refresh.UpdateResult) {
	ad.service.store.Emit(sse.NewEvent(sse.EventBookUpdated, sse.BookListEventData{BookIDs: []int64{b.ID}}))
}

func (ad *bookAdapter) PublishChildrenUpdated(context.Context, *domain.Book, []domain.Edition, []domain.Edition) {
}

func (ad *bookAdapter) PublishRefreshComplete(context.Context, *domain.Book) {}
