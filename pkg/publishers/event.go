package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-apiclient/internal/domain"
)

// Event represents the call outcome published downstream.
type Event struct {
	CallID      string            `json:"call_id"`
	CallName    string            `json:"call_name"`
	Record      domain.CallRecord `json:"record"`
	PublishedAt time.Time         `json:"published_at"`
}

// NewEvent constructs an Event for the given call + record.
func NewEvent(callID, callName string, rec domain.CallRecord) Event {
	return Event{
		CallID:      callID,
		CallName:    callName,
		Record:      rec,
		PublishedAt: time.Now().UTC(),
	}
}

// attributes are attached to queue messages so consumers can filter without decoding.
func (e Event) attributes() map[string]string {
	status := "failed"
	if e.Record.OK {
		status = "ok"
	}
	return map[string]string{
		"call_id": e.CallID,
		"outcome": status,
	}
}
