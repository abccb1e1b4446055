package download

import "github.com/wsget/workshop-downloader/internal/model"

// EventType discriminates coordinator events.
type EventType string

const (
	// EventStarted fires when a transfer begins writing to its destination.
	EventStarted EventType = "started"

	// EventQueued fires when a transfer is accepted but deferred because all
	// download slots are busy.
	EventQueued EventType = "queued"

	// EventProgress fires after every written chunk with monotonically
	// non-decreasing byte counts.
	EventProgress EventType = "progress"

	// EventSpeed fires at most once per second with a smoothed transfer rate.
	EventSpeed EventType = "speed"

	// EventFinished fires once when a transfer completes successfully.
	EventFinished EventType = "finished"

	// EventFailed fires once when a transfer fails; the partial file has
	// already been removed.
	EventFailed EventType = "failed"

	// EventCancelled fires once when a cancelled transfer has stopped and its
	// partial file has been removed. No finished or failed event follows.
	EventCancelled EventType = "cancelled"

	// EventAllDone fires when the active set and the queue are both empty.
	EventAllDone EventType = "all_done"
)

// Event is one asynchronous notification from the coordinator. Consumers must
// drain the Events channel; delivery blocks once the buffer fills.
type Event struct {
	Type EventType
	Path string
	Item model.WorkshopItem

	// Progress fields.
	Downloaded int64
	Total      int64
	Percent    int

	// Speed field, bytes per second.
	BytesPerSec float64

	// Failure reason for EventFailed.
	Err string
}
