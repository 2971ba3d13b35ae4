package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codepulse/codepulse/internal/model"
)

// Emitter decides when an activity trigger becomes a heartbeat. A
// non-forced trigger sends only when the active file changed or the
// heartbeat interval elapsed since the last send; forced triggers
// (save, editor switch, focus regain) always send.
type Emitter struct {
	mu       sync.Mutex
	interval time.Duration
	editor   string
	osName   string

	lastFile string
	lastSent time.Time
	lastTS   float64
}

func NewEmitter(interval time.Duration, editor, osName string) *Emitter {
	return &Emitter{interval: interval, editor: editor, osName: osName}
}

// SetInterval replaces the non-forced send interval, typically after a
// config hot-reload.
func (e *Emitter) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	e.mu.Lock()
	e.interval = d
	e.mu.Unlock()
}

// ShouldSend evaluates the trigger rule without recording a send.
func (e *Emitter) ShouldSend(file string, now time.Time, forced bool) bool {
	if forced {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if file != e.lastFile {
		return true
	}
	return e.lastSent.IsZero() || now.Sub(e.lastSent) >= e.interval
}

// Build constructs the heartbeat and records it as the last send.
// Timestamps are kept monotonically non-decreasing across one agent
// instance even if the host clock steps backwards.
func (e *Emitter) Build(file, language, project, branch string, now time.Time) model.Heartbeat {
	e.mu.Lock()
	defer e.mu.Unlock()

	ts := float64(now.Unix()) + float64(now.Nanosecond())/1e9
	if ts < e.lastTS {
		ts = e.lastTS
	}
	e.lastTS = ts
	e.lastFile = file
	e.lastSent = now

	return model.Heartbeat{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Project:   project,
		Language:  language,
		File:      file,
		Branch:    branch,
		Editor:    e.editor,
		OS:        e.osName,
	}
}
