package domain

import "time"

// CallRecord is the outcome of one API call run by the dispatcher.
type CallRecord struct {
	CallID     string    `json:"call_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status,omitempty"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	ErrorCode  int       `json:"error_code,omitempty"`
	ResultKeys []string  `json:"result_keys,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}
