package domain

// ImportListExclusion marks a catalog id the user never wants imported.
// Remote children matching an exclusion are dropped before diffing, and a
// move re-points the exclusion at the new catalog id so it keeps holding.
type ImportListExclusion struct {
	ID        int64  `json:"id"`
	ForeignID string `json:"foreign_id"`
	Name      string `json:"name,omitempty"`
}
