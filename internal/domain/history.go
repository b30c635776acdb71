package domain

import "time"

// HistoryEventType classifies a history entry.
type HistoryEventType string

const (
	HistoryEventGrabbed  HistoryEventType = "grabbed"
	HistoryEventImported HistoryEventType = "imported"
	HistoryEventDeleted  HistoryEventType = "deleted"
	HistoryEventRenamed  HistoryEventType = "renamed"
	HistoryEventRetagged HistoryEventType = "retagged"
	HistoryEventIgnored  HistoryEventType = "ignored"
)

// History records something that happened to a book (grab, import, delete).
// Like files, history rows are dependent records re-pointed on merges.
type History struct {
	ID          int64            `json:"id"`
	AuthorID    int64            `json:"author_id"`
	BookID      int64            `json:"book_id"`
	SourceTitle string           `json:"source_title,omitempty"`
	EventType   HistoryEventType `json:"event_type"`
	Date        time.Time        `json:"date"`
}
