package agent

import (
	"sync"
	"time"
)

// Tally tracks the displayed daily total: the server-acknowledged
// baseline plus seconds accumulated locally since the last successful
// delivery or reconciliation. The baseline only moves on a successful
// summary fetch, so a failed fetch never regresses the visible counter.
type Tally struct {
	mu       sync.Mutex
	acked    int64
	unsynced time.Duration
}

func NewTally() *Tally {
	return &Tally{}
}

// AddUnsynced accumulates active time that the server has not yet seen.
func (t *Tally) AddUnsynced(d time.Duration) {
	if d <= 0 {
		return
	}
	t.mu.Lock()
	t.unsynced += d
	t.mu.Unlock()
}

// ResetUnsynced drops the local accumulator. Called the instant any
// delivery or reconciliation succeeds: the server total now covers it.
func (t *Tally) ResetUnsynced() {
	t.mu.Lock()
	t.unsynced = 0
	t.mu.Unlock()
}

// Adopt replaces the acknowledged baseline with the server's total.
func (t *Tally) Adopt(totalSeconds int64) {
	t.mu.Lock()
	t.acked = totalSeconds
	t.unsynced = 0
	t.mu.Unlock()
}

// Total is the displayable seconds: baseline plus unsynced.
func (t *Tally) Total() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acked + int64(t.unsynced/time.Second)
}

// Acked returns the server-acknowledged baseline.
func (t *Tally) Acked() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acked
}
