// Package refresh implements the generic reconciliation engine that keeps
// library entities in sync with a remote metadata catalog. The engine is
// parameterized over a parent type P (author, book) and a child type C
// (book, edition) and driven entirely through an Adapter, so the same
// classification logic serves every entity pair.
package refresh

import (
	"context"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
	"github.com/shelfmark/shelfmark-server/internal/errors"
	"github.com/shelfmark/shelfmark-server/internal/logger"
)

// UpdateResult classifies the outcome of copying remote fields onto a local
// entity.
type UpdateResult int

const (
	// UpdateNone means nothing changed; the entity is not persisted.
	UpdateNone UpdateResult = iota
	// UpdateStandard means fields changed and the entity must be saved.
	UpdateStandard
	// UpdateTags means identity-relevant fields changed (name, foreign id);
	// the entity must be saved and dependent tag/index state refreshed.
	UpdateTags
)

func (r UpdateResult) String() string {
	switch r {
	case UpdateStandard:
		return "standard"
	case UpdateTags:
		return "updateTags"
	default:
		return "none"
	}
}

// RemoteData carries an already-fetched remote representation of a parent
// together with the full metadata set the gateway returned alongside it.
// A nil Entity means the caller already knows the remote has no record.
type RemoteData[P any] struct {
	Entity   *P
	Metadata []domain.AuthorMetadata
}

// Adapter supplies the entity-specific behavior the engine needs. All
// persistence goes through the adapter; the engine itself never touches the
// store directly.
type Adapter[P, C any] interface {
	// EntityName returns a human-readable name for log lines.
	EntityName(p *P) string
	// ForeignID returns the catalog identity key of a parent.
	ForeignID(p *P) string

	// GetRemoteData resolves the canonical remote record for local, either
	// from the pre-fetched data/siblings or by hitting the gateway. A nil
	// result with a nil error means the remote has no matching entity. The
	// returned record must already carry the local integer id when one is
	// known.
	GetRemoteData(ctx context.Context, local *P, remoteSiblings []P, data *RemoteData[P]) (*P, error)

	// ShouldDelete reports whether a remotely-missing local entity owns no
	// local content and can be removed.
	ShouldDelete(ctx context.Context, local *P) bool
	DeleteEntity(ctx context.Context, local *P) error

	// IsMerge reports whether the remote record is filed under a different
	// catalog id than local, meaning the refresh is a move or a merge
	// rather than an in-place update.
	IsMerge(local, remote *P) bool
	// FindEntityByForeignID returns the local entity owning the given
	// catalog id, or nil when none exists.
	FindEntityByForeignID(ctx context.Context, foreignID string) (*P, error)
	// MoveEntity re-points local to the remote's new catalog id, including
	// collaborator state keyed by the old id (import-list exclusions).
	MoveEntity(ctx context.Context, local, remote *P) error
	// MergeEntity folds local into target: dependent records move to
	// target's ids and local is deleted. The refresh continues on target.
	MergeEntity(ctx context.Context, local, target, remote *P) error

	// UpdateEntity copies remote-sourced fields onto local, preserving
	// library-local fields, and classifies what changed.
	UpdateEntity(ctx context.Context, local, remote *P) (UpdateResult, error)
	SaveEntity(ctx context.Context, p *P) error

	// ChildForeignID returns the catalog identity key of a child.
	ChildForeignID(c *C) string
	// GetLocalChildren returns the local children relevant to the diff:
	// rows owned by the parent plus rows matching incoming catalog ids
	// (catches children that moved parent).
	GetLocalChildren(ctx context.Context, p *P, remoteChildren []C) ([]C, error)
	// GetRemoteChildren returns the remote child set, deduplicated by
	// catalog id and filtered against import-list exclusions.
	GetRemoteChildren(ctx context.Context, p *P, remote *P) ([]C, error)
	// ChildrenEqual reports content equality between a local child and its
	// prepared remote counterpart.
	ChildrenEqual(local, remote *C) bool
	// CanDeleteChild reports whether a remotely-missing child owns no files.
	CanDeleteChild(ctx context.Context, c *C) (bool, error)
	// PrepareNewChild stamps parent linkage and defaults on a brand-new
	// remote child before insertion.
	PrepareNewChild(p *P, c *C)
	// PrepareExistingChild copies database fields and parent linkage from
	// the matched local child onto the incoming remote record.
	PrepareExistingChild(p *P, local, remote *C)

	// RefreshChildren persists the sorted buckets: merges resolved before
	// deletes, adds before updates. Returns whether anything changed.
	RefreshChildren(ctx context.Context, p *P, children *SortedChildren[C], isManual, forceUpdateTags bool, since *time.Time) (bool, error)

	// Event hooks fired after a successful refresh.
	PublishEntityUpdated(ctx context.Context, p *P, result UpdateResult)
	PublishChildrenUpdated(ctx context.Context, p *P, added, updated []C)
	PublishRefreshComplete(ctx context.Context, p *P)
}

// Engine runs the reconciliation algorithm for one parent/child pair.
type Engine[P, C any] struct {
	adapter Adapter[P, C]
	locks   *keyedMutex
	logger  *logger.Logger
}

// NewEngine creates an engine around the given adapter.
func NewEngine[P, C any](adapter Adapter[P, C], log *logger.Logger) *Engine[P, C] {
	return &Engine[P, C]{
		adapter: adapter,
		locks:   newKeyedMutex(),
		logger:  log,
	}
}

// RefreshEntityInfo reconciles one local parent against the remote catalog.
// remoteSiblings and data are optional pre-fetched inputs; when data is nil
// the adapter fetches from the gateway itself. Returns true when anything
// was added, updated, merged or deleted.
//
// Concurrent refreshes of the same parent are serialized on its foreign id:
// the move/merge logic reads then writes the foreign-id to local-id mapping,
// and two unserialized refreshes could both conclude "no existing owner" and
// insert duplicate rows.
func (e *Engine[P, C]) RefreshEntityInfo(ctx context.Context, local *P, remoteSiblings []P, data *RemoteData[P], isManual, forceUpdateTags bool, since *time.Time) (bool, error) {
	a := e.adapter

	unlock := e.locks.lock(a.ForeignID(local))
	defer unlock()

	log := e.logger.WithFields(map[string]any{
		"entity":    a.EntityName(local),
		"foreignID": a.ForeignID(local),
	})
	log.Info("refreshing entity info")

	remote, err := a.GetRemoteData(ctx, local, remoteSiblings, data)
	if err != nil {
		return false, errors.Internal("fetching remote data", err)
	}

	if remote == nil {
		if a.ShouldDelete(ctx, local) {
			log.Warn("entity no longer reported by remote and owns no content, removing")
			if err := a.DeleteEntity(ctx, local); err != nil {
				return false, err
			}
			return true, nil
		}
		log.Warn("entity no longer reported by remote but owns local content, keeping")
		return false, nil
	}

	identityChanged := false
	if a.IsMerge(local, remote) {
		newID := a.ForeignID(remote)
		target, err := a.FindEntityByForeignID(ctx, newID)
		if err != nil {
			return false, err
		}
		if target == nil {
			log.Info("entity moved to new catalog id", "newForeignID", newID)
			if err := a.MoveEntity(ctx, local, remote); err != nil {
				return false, err
			}
		} else {
			log.Info("entity merged into existing entity", "newForeignID", newID)
			if err := a.MergeEntity(ctx, local, target, remote); err != nil {
				return false, err
			}
			local = target
		}
		// Identity changed, downstream tag/index state is stale either way.
		identityChanged = true
		forceUpdateTags = true
	}

	result, err := a.UpdateEntity(ctx, local, remote)
	if err != nil {
		return false, err
	}
	if identityChanged && result != UpdateTags {
		result = UpdateTags
	}
	if result != UpdateNone {
		if err := a.SaveEntity(ctx, local); err != nil {
			return false, err
		}
	}

	remoteChildren, err := a.GetRemoteChildren(ctx, local, remote)
	if err != nil {
		return false, err
	}
	localChildren, err := a.GetLocalChildren(ctx, local, remoteChildren)
	if err != nil {
		return false, err
	}
	sorted, err := e.sortChildren(ctx, local, localChildren, remoteChildren)
	if err != nil {
		return false, err
	}

	childTags := forceUpdateTags || result == UpdateTags
	childrenChanged, err := a.RefreshChildren(ctx, local, sorted, isManual, childTags, since)
	if err != nil {
		return false, err
	}

	updated := childrenChanged || result != UpdateNone
	if updated {
		a.PublishEntityUpdated(ctx, local, result)
	}
	if len(sorted.Added) > 0 || len(sorted.Updated) > 0 {
		a.PublishChildrenUpdated(ctx, local, sorted.Added, sorted.Updated)
	}
	a.PublishRefreshComplete(ctx, local)

	log.Info("entity refresh finished",
		"result", result.String(),
		"added", len(sorted.Added),
		"updated", len(sorted.Updated),
		"merged", len(sorted.Merged),
		"deleted", len(sorted.Deleted),
		"upToDate", len(sorted.UpToDate))

	return updated, nil
}
