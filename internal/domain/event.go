package domain

// EventType tags the variants carried over the event bus
type EventType string

const (
	EventProgress      EventType = "progress"
	EventLog           EventType = "log"
	EventStatusChange  EventType = "status_change"
	EventItemUpdate    EventType = "item_update"
	EventDialogRequest EventType = "dialog_request"
	EventDone          EventType = "done"
)

// Event is a tagged variant posted by background producers and applied
// by the single consuming poll loop. Only the fields relevant to the
// Type are set.
type Event struct {
	Type         EventType  `json:"type"`
	ItemID       int64      `json:"item_id,omitempty"`
	Message      string     `json:"message,omitempty"`
	Progress     float64    `json:"progress,omitempty"`
	Status       ItemStatus `json:"status,omitempty"`
	Title        string     `json:"title,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`

	// Dialog is a deferred action to run exactly once on the consumer
	// loop. The sole sanctioned way for a background task to request
	// consumer-thread-only effects.
	Dialog func() `json:"-"`
}

// ProgressEvent builds a progress update for an item
func ProgressEvent(itemID int64, percent float64) Event {
	return Event{Type: EventProgress, ItemID: itemID, Progress: percent}
}

// LogEvent builds a log line event
func LogEvent(message string) Event {
	return Event{Type: EventLog, Message: message}
}

// StatusChangeEvent builds a status transition notification
func StatusChangeEvent(itemID int64, status ItemStatus) Event {
	return Event{Type: EventStatusChange, ItemID: itemID, Status: status}
}

// ItemUpdateEvent builds a metadata update for an item
func ItemUpdateEvent(itemID int64, title, thumbnailURL string) Event {
	return Event{Type: EventItemUpdate, ItemID: itemID, Title: title, ThumbnailURL: thumbnailURL}
}

// DialogRequestEvent wraps a deferred consumer-thread action
func DialogRequestEvent(fn func()) Event {
	return Event{Type: EventDialogRequest, Dialog: fn}
}

// DoneEvent signals the worker drained the queue or honored a stop
func DoneEvent() Event {
	return Event{Type: EventDone}
}
