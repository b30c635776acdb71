package store

import (
	"context"
	"errors"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func (s *Store) initAuthorMetadata() error {
	metadata, err := NewEntity(s, "authormeta:",
		func(m *domain.AuthorMetadata) int64 { return m.ID },
		func(m *domain.AuthorMetadata, id int64) { m.ID = id },
	)
	if err != nil {
		return err
	}

	s.AuthorMetadata = metadata.
		WithUniqueIndex("foreign", func(m *domain.AuthorMetadata) []string {
			return []string{m.ForeignAuthorID}
		})

	return nil
}

// FindAuthorMetadataByForeignID looks up a metadata row by catalog id.
// Returns nil (no error) when none exists.
func (s *Store) FindAuthorMetadataByForeignID(ctx context.Context, foreignID string) (*domain.AuthorMetadata, error) {
	meta, err := s.AuthorMetadata.GetByIndex(ctx, "foreign", foreignID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// AuthorNameByMetadataID returns the display name stored on a metadata row.
// The search index uses this to denormalize author names into book documents.
func (s *Store) AuthorNameByMetadataID(ctx context.Context, metadataID int64) (string, error) {
	meta, err := s.AuthorMetadata.Get(ctx, metadataID)
	if err != nil {
		return "", err
	}
	return meta.Name, nil
}

// UpsertAuthorMetadata inserts or updates metadata rows, deduplicated by
// foreign id. Returns true if anything was written — the refresh engine uses
// that to force tag/index updates downstream.
func (s *Store) UpsertAuthorMetadata(ctx context.Context, records []domain.AuthorMetadata) (bool, error) {
	seen := make(map[string]bool, len(records))
	updated := false

	for i := range records {
		record := &records[i]
		if record.ForeignAuthorID == "" || seen[record.ForeignAuthorID] {
			continue
		}
		seen[record.ForeignAuthorID] = true

		existing, err := s.FindAuthorMetadataByForeignID(ctx, record.ForeignAuthorID)
		if err != nil {
			return updated, err
		}

		if existing == nil {
			if err := s.AuthorMetadata.Insert(ctx, record); err != nil {
				return updated, err
			}
			updated = true
			continue
		}

		record.ID = existing.ID
		if existing.ContentEquals(record) {
			continue
		}
		if err := s.AuthorMetadata.Update(ctx, record); err != nil {
			return updated, err
		}
		updated = true
	}

	return updated, nil
}
