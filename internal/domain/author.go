package domain

import "time"

// Author is a tracked author in the library. Library-local fields (path,
// monitoring, profiles, tags) live here; everything remote-sourced lives on
// the referenced AuthorMetadata row.
//
// Metadata is always eagerly resolved before an Author value is handed to
// the refresh engine. Nothing in this package triggers I/O.
type Author struct {
	ID                int64          `json:"id"`
	MetadataID        int64          `json:"metadata_id"`
	Path              string         `json:"path"`
	Monitored         bool           `json:"monitored"`
	QualityProfileID  int64          `json:"quality_profile_id,omitempty"`
	MetadataProfileID int64          `json:"metadata_profile_id,omitempty"`
	Tags              []string       `json:"tags,omitempty"`
	Added             time.Time      `json:"added"`
	LastInfoSync      *time.Time     `json:"last_info_sync,omitempty"`
	Metadata          AuthorMetadata `json:"metadata"`

	// Series reported by the catalog for this author. Populated on remote
	// representations only; the library copy is read from the store.
	Series []Series `json:"series,omitempty"`

	// Books reported by the catalog. Populated on remote representations
	// fetched from the gateway, empty on library rows.
	Books []Book `json:"books,omitempty"`
}

// ForeignAuthorID returns the catalog identity key.
func (a *Author) ForeignAuthorID() string {
	return a.Metadata.ForeignAuthorID
}

// Name returns the display name from the metadata record.
func (a *Author) Name() string {
	return a.Metadata.Name
}

// ApplyMetadataFrom copies remote-sourced fields from the freshly fetched
// representation while preserving library-local state. The caller decides
// whether MetadataID changes (a move re-points it, a plain update keeps it).
func (a *Author) ApplyMetadataFrom(remote *Author) {
	a.Metadata = remote.Metadata
	a.Series = remote.Series
	now := time.Now().UTC()
	a.LastInfoSync = &now
}
