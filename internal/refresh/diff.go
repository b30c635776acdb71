package refresh

import "context"

// MergePair records a child-level merge: Survivor is the record being kept
// (the prepared remote copy) and Casualty the local duplicate whose dependent
// records must be re-pointed to the survivor before it is deleted.
type MergePair[C any] struct {
	Survivor C
	Casualty C
}

// SortedChildren is the output of the child diff. Every local child lands in
// exactly one bucket; brand-new remote children land in Added.
type SortedChildren[C any] struct {
	UpToDate []C
	Added    []C
	Updated  []C
	Merged   []MergePair[C]
	Deleted  []C

	// Unreported holds the foreign ids of locals the remote no longer
	// reports but that were kept for owning files. They sit in UpToDate;
	// adapters recursing into grandchildren must not treat them as carrying
	// remote payload.
	Unreported map[string]bool
}

// Future returns the children that will exist after the refresh: everything
// except deletions and merge casualties.
func (s *SortedChildren[C]) Future() []C {
	out := make([]C, 0, len(s.UpToDate)+len(s.Added)+len(s.Updated)+len(s.Merged))
	out = append(out, s.UpToDate...)
	out = append(out, s.Added...)
	out = append(out, s.Updated...)
	for _, m := range s.Merged {
		out = append(out, m.Survivor)
	}
	return out
}

// Old returns the children that will no longer exist after the refresh.
func (s *SortedChildren[C]) Old() []C {
	out := make([]C, 0, len(s.Deleted)+len(s.Merged))
	out = append(out, s.Deleted...)
	for _, m := range s.Merged {
		out = append(out, m.Casualty)
	}
	return out
}

// All returns every child the diff saw, future and old.
func (s *SortedChildren[C]) All() []C {
	return append(s.Future(), s.Old()...)
}

// Changed reports whether the diff found anything that needs persisting.
func (s *SortedChildren[C]) Changed() bool {
	return len(s.Added) > 0 || len(s.Updated) > 0 || len(s.Merged) > 0 || len(s.Deleted) > 0
}

// sortChildren classifies every local child against the deduplicated,
// exclusion-filtered remote set. Matching is keyed on the child foreign id
// through maps, so the diff stays linear even for libraries with tens of
// thousands of children.
func (e *Engine[P, C]) sortChildren(ctx context.Context, parent *P, localChildren, remoteChildren []C) (*SortedChildren[C], error) {
	a := e.adapter
	sorted := &SortedChildren[C]{}

	// Several locals can share one foreign id (duplicates to be merged).
	localsByID := make(map[string][]*C, len(localChildren))
	for i := range localChildren {
		id := a.ChildForeignID(&localChildren[i])
		localsByID[id] = append(localsByID[id], &localChildren[i])
	}

	remoteIDs := make(map[string]bool, len(remoteChildren))
	for i := range remoteChildren {
		remote := remoteChildren[i]
		id := a.ChildForeignID(&remote)
		remoteIDs[id] = true

		matches := localsByID[id]
		if len(matches) == 0 {
			a.PrepareNewChild(parent, &remote)
			sorted.Added = append(sorted.Added, remote)
			continue
		}

		// First match is the nominal counterpart; the prepared remote copy
		// becomes the canonical record going forward.
		existing := matches[0]
		a.PrepareExistingChild(parent, existing, &remote)
		if a.ChildrenEqual(existing, &remote) {
			sorted.UpToDate = append(sorted.UpToDate, remote)
		} else {
			sorted.Updated = append(sorted.Updated, remote)
		}

		// Any further locals with the same id are duplicates folded into
		// the survivor.
		for _, dup := range matches[1:] {
			sorted.Merged = append(sorted.Merged, MergePair[C]{Survivor: remote, Casualty: *dup})
		}
	}

	// Locals the remote no longer reports: delete only when they own no
	// files, otherwise leave untouched.
	for i := range localChildren {
		local := localChildren[i]
		if remoteIDs[a.ChildForeignID(&local)] {
			continue
		}
		deletable, err := a.CanDeleteChild(ctx, &local)
		if err != nil {
			return nil, err
		}
		if deletable {
			sorted.Deleted = append(sorted.Deleted, local)
		} else {
			if sorted.Unreported == nil {
				sorted.Unreported = make(map[string]bool)
			}
			sorted.Unreported[a.ChildForeignID(&local)] = true
			sorted.UpToDate = append(sorted.UpToDate, local)
		}
	}

	return sorted, nil
}
