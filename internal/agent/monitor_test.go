package agent

import (
	"testing"
	"time"
)

func TestGapUnderThresholdAccumulates(t *testing.T) {
	tally := NewTally()
	m := NewMonitor(15*time.Minute, tally)
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	m.RecordInteraction(base)
	m.RecordInteraction(base.Add(14*time.Minute + 59*time.Second))

	if got := tally.Total(); got != 14*60+59 {
		t.Fatalf("expected 899 unsynced seconds, got %d", got)
	}
}

func TestGapAtOrOverThresholdIsIdle(t *testing.T) {
	tally := NewTally()
	m := NewMonitor(15*time.Minute, tally)
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	m.RecordInteraction(base)
	m.RecordInteraction(base.Add(15*time.Minute + time.Second))
	if got := tally.Total(); got != 0 {
		t.Fatalf("15:01 gap must not count, got %d", got)
	}

	m.RecordInteraction(base.Add(30*time.Minute + time.Second))
	if got := tally.Total(); got != 0 {
		t.Fatalf("exactly-threshold gap must not count, got %d", got)
	}
}

func TestEffectivelyActiveRequiresFocusAndRecency(t *testing.T) {
	m := NewMonitor(15*time.Minute, NewTally())
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	if m.EffectivelyActive(base) {
		t.Fatalf("no interaction yet, must be inactive")
	}

	m.RecordInteraction(base)
	if !m.EffectivelyActive(base.Add(5 * time.Minute)) {
		t.Fatalf("recent interaction with focus must be active")
	}
	if m.EffectivelyActive(base.Add(16 * time.Minute)) {
		t.Fatalf("stale interaction must be inactive")
	}

	m.SetFocused(false, base.Add(6*time.Minute))
	if m.EffectivelyActive(base.Add(7 * time.Minute)) {
		t.Fatalf("blurred window must be inactive")
	}
}

func TestFocusRegainResetsInteraction(t *testing.T) {
	m := NewMonitor(15*time.Minute, NewTally())
	base := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	m.RecordInteraction(base)
	m.SetFocused(false, base.Add(time.Minute))
	regain := base.Add(20 * time.Minute)
	m.SetFocused(true, regain)

	if !m.EffectivelyActive(regain.Add(time.Second)) {
		t.Fatalf("focus regain must resume tracking immediately")
	}
}

func TestSparseSignalKeepsDocumentContext(t *testing.T) {
	m := NewMonitor(15*time.Minute, NewTally())
	m.SetActiveDocument("main.go", "Go", "demo", "main")
	m.SetActiveDocument("main.go", "", "", "")

	file, language, project, branch, ok := m.ActiveDocument()
	if !ok || file != "main.go" || language != "Go" || project != "demo" || branch != "main" {
		t.Fatalf("context wiped by sparse signal: %s %s %s %s", file, language, project, branch)
	}
}

func TestFileSwitchDropsPreviousProject(t *testing.T) {
	m := NewMonitor(15*time.Minute, NewTally())
	m.SetActiveDocument("main.go", "Go", "demo", "main")
	m.SetActiveDocument("scratch.txt", "", "", "")

	file, language, project, branch, ok := m.ActiveDocument()
	if !ok || file != "scratch.txt" {
		t.Fatalf("file not switched: %s", file)
	}
	if language != "" || project != "" || branch != "" {
		t.Fatalf("stale context carried to new file: %s %s %s", language, project, branch)
	}
}

func TestSetThresholdIgnoresNonPositive(t *testing.T) {
	m := NewMonitor(15*time.Minute, NewTally())
	m.SetThreshold(0)
	if got := m.Threshold(); got != 15*time.Minute {
		t.Fatalf("zero threshold must be ignored, got %v", got)
	}
	m.SetThreshold(10 * time.Minute)
	if got := m.Threshold(); got != 10*time.Minute {
		t.Fatalf("expected 10m threshold, got %v", got)
	}
}
