package agent

import (
	"testing"

	"github.com/codepulse/codepulse/internal/model"
)

type recordingListener struct {
	snaps []model.StatusSnapshot
}

func (r *recordingListener) StatusChanged(snap model.StatusSnapshot) {
	r.snaps = append(r.snaps, snap)
}

func TestStatusStartsOptimistic(t *testing.T) {
	s := NewStatus()
	snap := s.Snapshot()
	if !snap.Online || !snap.ValidCredentials {
		t.Fatalf("expected optimistic initial state, got %+v", snap)
	}
}

func TestSettersAreEdgeTriggered(t *testing.T) {
	s := NewStatus()
	l := &recordingListener{}
	s.AddListener(l)

	s.SetOnline(true)
	s.SetCredentialsValid(true)
	if len(l.snaps) != 0 {
		t.Fatalf("unchanged values must not notify, got %d notifications", len(l.snaps))
	}

	s.SetOnline(false)
	s.SetOnline(false)
	if len(l.snaps) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(l.snaps))
	}
	if l.snaps[0].Online {
		t.Fatalf("notification should carry the new value")
	}
}

func TestOnlineUpHookFiresOncePerRecovery(t *testing.T) {
	s := NewStatus()
	fired := 0
	s.OnOnlineUp(func() { fired++ })

	s.SetOnline(false)
	s.SetOnline(true)
	s.SetOnline(true)
	if fired != 1 {
		t.Fatalf("expected one online-up trigger, got %d", fired)
	}

	s.SetOnline(false)
	s.SetOnline(true)
	if fired != 2 {
		t.Fatalf("expected a trigger per recovery, got %d", fired)
	}
}

func TestOfflineDoesNotFireHook(t *testing.T) {
	s := NewStatus()
	fired := 0
	s.OnOnlineUp(func() { fired++ })
	s.SetOnline(false)
	if fired != 0 {
		t.Fatalf("going offline must not fire the flush hook")
	}
}

func TestSetTotalNotifies(t *testing.T) {
	s := NewStatus()
	l := &recordingListener{}
	s.AddListener(l)

	s.SetTotal(120)
	s.SetTotal(120)
	s.SetTotal(125)
	if len(l.snaps) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(l.snaps))
	}
	if l.snaps[1].TotalSeconds != 125 {
		t.Fatalf("expected 125, got %d", l.snaps[1].TotalSeconds)
	}
}
