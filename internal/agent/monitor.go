package agent

import (
	"sync"
	"time"
)

// Monitor turns host activity signals into an active-document descriptor
// and a judgment of whether the user is effectively active: window
// focused and within the inactivity threshold of the last interaction.
type Monitor struct {
	mu              sync.Mutex
	threshold       time.Duration
	focused         bool
	lastInteraction time.Time

	file     string
	language string
	project  string
	branch   string

	tally *Tally
}

func NewMonitor(threshold time.Duration, tally *Tally) *Monitor {
	return &Monitor{
		threshold: threshold,
		focused:   true,
		tally:     tally,
	}
}

// SetThreshold replaces the inactivity threshold, typically after the
// remote user-settings fetch returns a per-user value.
func (m *Monitor) SetThreshold(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.threshold = d
	m.mu.Unlock()
}

func (m *Monitor) Threshold() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// RecordInteraction notes a user interaction at now. The gap since the
// previous interaction counts as coding time only when it is under the
// threshold; a longer gap is genuine idle and contributes nothing.
func (m *Monitor) RecordInteraction(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.lastInteraction.IsZero() {
		gap := now.Sub(m.lastInteraction)
		if gap > 0 && gap < m.threshold {
			m.tally.AddUnsynced(gap)
		}
	}
	if now.After(m.lastInteraction) {
		m.lastInteraction = now
	}
}

// SetFocused records a window focus change. Regaining focus counts as an
// interaction so the active window immediately resumes tracking.
func (m *Monitor) SetFocused(focused bool, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if focused && !m.focused {
		m.lastInteraction = now
	}
	m.focused = focused
}

func (m *Monitor) Focused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.focused
}

// SetActiveDocument records the document descriptor the host reported.
// For the same file, empty fields keep the previous value so a sparse
// signal does not wipe context the host sent earlier. A file change
// takes language, project and branch verbatim: the old document's
// context must not attach to the new one.
func (m *Monitor) SetActiveDocument(file, language, project, branch string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if file != "" && file != m.file {
		m.file = file
		m.language = language
		m.project = project
		m.branch = branch
		return
	}
	if file != "" {
		m.file = file
	}
	if language != "" {
		m.language = language
	}
	if project != "" {
		m.project = project
	}
	if branch != "" {
		m.branch = branch
	}
}

// ActiveDocument returns the current descriptor; ok is false before the
// host has reported any document.
func (m *Monitor) ActiveDocument() (file, language, project, branch string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file, m.language, m.project, m.branch, m.file != ""
}

// EffectivelyActive reports whether the user is focused and interacted
// within the threshold.
func (m *Monitor) EffectivelyActive(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.focused || m.lastInteraction.IsZero() {
		return false
	}
	return now.Sub(m.lastInteraction) < m.threshold
}
