package agent

import (
	"sync"

	"github.com/codepulse/codepulse/internal/model"
)

// Listener receives the current snapshot whenever any field changes.
type Listener interface {
	StatusChanged(model.StatusSnapshot)
}

// Status holds the connectivity and credential flags plus the values the
// UI collaborator renders. Setters are edge-triggered: a write of the
// current value does nothing, so the UI never churns and the
// online-recovery flush fires exactly once per offline episode.
type Status struct {
	mu         sync.Mutex
	snap       model.StatusSnapshot
	listeners  []Listener
	onOnlineUp func()
}

func NewStatus() *Status {
	// Optimistic start: assume reachable and authorized until a request
	// proves otherwise.
	return &Status{snap: model.StatusSnapshot{Online: true, ValidCredentials: true}}
}

func (s *Status) AddListener(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// OnOnlineUp registers the hook fired when online flips false to true.
func (s *Status) OnOnlineUp(fn func()) {
	s.mu.Lock()
	s.onOnlineUp = fn
	s.mu.Unlock()
}

func (s *Status) SetOnline(online bool) {
	s.mu.Lock()
	if s.snap.Online == online {
		s.mu.Unlock()
		return
	}
	s.snap.Online = online
	snap := s.snap
	listeners := s.copyListeners()
	hook := s.onOnlineUp
	s.mu.Unlock()

	if online && hook != nil {
		hook()
	}
	notify(listeners, snap)
}

func (s *Status) SetCredentialsValid(valid bool) {
	s.set(func(snap *model.StatusSnapshot) bool {
		if snap.ValidCredentials == valid {
			return false
		}
		snap.ValidCredentials = valid
		return true
	})
}

func (s *Status) SetTracking(tracking bool) {
	s.set(func(snap *model.StatusSnapshot) bool {
		if snap.Tracking == tracking {
			return false
		}
		snap.Tracking = tracking
		return true
	})
}

func (s *Status) SetTotal(seconds int64) {
	s.set(func(snap *model.StatusSnapshot) bool {
		if snap.TotalSeconds == seconds {
			return false
		}
		snap.TotalSeconds = seconds
		return true
	})
}

func (s *Status) Snapshot() model.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *Status) set(mutate func(*model.StatusSnapshot) bool) {
	s.mu.Lock()
	if !mutate(&s.snap) {
		s.mu.Unlock()
		return
	}
	snap := s.snap
	listeners := s.copyListeners()
	s.mu.Unlock()
	notify(listeners, snap)
}

func (s *Status) copyListeners() []Listener {
	out := make([]Listener, len(s.listeners))
	copy(out, s.listeners)
	return out
}

func notify(listeners []Listener, snap model.StatusSnapshot) {
	for _, l := range listeners {
		l.StatusChanged(snap)
	}
}
