// Package sse implements Server-Sent Events for real-time library updates and event broadcasting.
package sse

import (
	"time"
)

// Shelfmark uses SSE for server-to-client communication only; every client
// interaction follows a request/response pattern.

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventAuthorAdded represents an author being added to the library.
	EventAuthorAdded EventType = "author.added"
	// EventAuthorUpdated represents an author metadata update.
	EventAuthorUpdated EventType = "author.updated"
	// EventAuthorDeleted represents an author removal.
	EventAuthorDeleted EventType = "author.deleted"

	// EventBookAdded represents a book being added during refresh.
	EventBookAdded EventType = "book.added"
	// EventBookUpdated represents a book metadata update.
	EventBookUpdated EventType = "book.updated"
	// EventBookDeleted represents a book removal.
	EventBookDeleted EventType = "book.deleted"

	// EventSeriesUpdated represents a series create-or-update.
	EventSeriesUpdated EventType = "series.updated"
	// EventSeriesDeleted represents a series removal.
	EventSeriesDeleted EventType = "series.deleted"

	// EventRefreshStarted represents the start of a batch refresh.
	EventRefreshStarted EventType = "refresh.started"
	// EventRefreshComplete represents the end of a batch refresh, with
	// succeeded/failed counts in the payload.
	EventRefreshComplete EventType = "refresh.completed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType EventType, data any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return NewEvent(EventHeartbeat, nil)
}

// AuthorEventData is the payload for author events.
type AuthorEventData struct {
	AuthorID  int64  `json:"author_id"`
	ForeignID string `json:"foreign_id"`
	Name      string `json:"name"`
}

// BookListEventData is the payload for book add/update events, carrying the
// affected book ids so clients can refetch selectively.
type BookListEventData struct {
	AuthorID int64   `json:"author_id"`
	BookIDs  []int64 `json:"book_ids"`
}

// RefreshEventData is the payload for batch refresh events.
type RefreshEventData struct {
	Trigger   string `json:"trigger"`
	Total     int    `json:"total,omitempty"`
	Succeeded int    `json:"succeeded,omitempty"`
	Failed    int    `json:"failed,omitempty"`
}
