package model

import "time"

// SignalType identifies an inbound host activity signal.
type SignalType string

const (
	SignalDocumentChanged  SignalType = "document_changed"
	SignalDocumentSaved    SignalType = "document_saved"
	SignalDocumentSwitched SignalType = "document_switched"
	SignalFocusChanged     SignalType = "focus_changed"
)

// Signal is one activity notification from the host adapter. The host
// resolves project and branch; the agent never inspects the workspace
// itself.
type Signal struct {
	Type     SignalType `json:"type"`
	File     string     `json:"file,omitempty"`
	Language string     `json:"language,omitempty"`
	Project  string     `json:"project,omitempty"`
	Branch   string     `json:"branch,omitempty"`
	Focused  bool       `json:"focused,omitempty"`
	Time     time.Time  `json:"time,omitempty"`
}

// Heartbeat is a single timestamped coding-activity event. Immutable
// after construction; optional fields stay additive so the wire contract
// never forks into per-version shapes.
type Heartbeat struct {
	ID        string  `json:"id"`
	Timestamp float64 `json:"timestamp"`
	Project   string  `json:"project,omitempty"`
	Language  string  `json:"language,omitempty"`
	File      string  `json:"file,omitempty"`
	Branch    string  `json:"branch,omitempty"`
	Editor    string  `json:"editor,omitempty"`
	OS        string  `json:"os,omitempty"`
}

// Time returns the heartbeat timestamp as a time.Time.
func (h Heartbeat) Time() time.Time {
	sec := int64(h.Timestamp)
	nsec := int64((h.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// DailySummary is one day's authoritative total from the server.
type DailySummary struct {
	Date         string `json:"date"`
	TotalSeconds int64  `json:"totalSeconds"`
}

// StatsResponse wraps the summary endpoint payload. The first entry is
// today in the client's local calendar day.
type StatsResponse struct {
	Days []DailySummary `json:"days"`
}

// UserSettings is the remote per-user settings payload. Zero values mean
// the server left the setting unset.
type UserSettings struct {
	InactivityTimeoutMinutes int `json:"inactivityTimeoutMinutes,omitempty"`
}

// StatusSnapshot is what the UI collaborator renders.
type StatusSnapshot struct {
	TotalSeconds     int64 `json:"totalSeconds"`
	Online           bool  `json:"online"`
	ValidCredentials bool  `json:"validCredentials"`
	Tracking         bool  `json:"tracking"`
}
