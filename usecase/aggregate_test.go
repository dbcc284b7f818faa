package usecase

import (
	"main/model"
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad time literal %q: %v", value, err)
	}
	return ts.UTC()
}

func event(t *testing.T, typ model.ActivityType, ts string, tiebreak int) *model.ActivityEvent {
	t.Helper()
	stamp := mustTime(t, ts)
	return &model.ActivityEvent{
		EventID:    ts,
		SessionID:  "s1",
		UserID:     "u1",
		Type:       typ,
		Timestamp:  stamp,
		ReceivedAt: stamp.Add(time.Duration(tiebreak) * time.Millisecond),
	}
}

func TestComputeTimelineScenario(t *testing.T) {
	// Start 09:00:00, active@09:00:05, idle@09:00:40, active@09:01:10,
	// stop 09:02:00. Each interval takes the type of the event opening it
	// and the lead-in counts as active: [0,5) active, [5,40) active,
	// [40,70) idle, [70,120) active.
	start := mustTime(t, "2026-03-02T09:00:00Z")
	stop := mustTime(t, "2026-03-02T09:02:00Z")
	events := []*model.ActivityEvent{
		event(t, model.ActivityActive, "2026-03-02T09:00:05Z", 0),
		event(t, model.ActivityIdle, "2026-03-02T09:00:40Z", 0),
		event(t, model.ActivityActive, "2026-03-02T09:01:10Z", 0),
	}

	duration, active, idle := computeTimeline(start, stop, events)

	if duration != 120 {
		t.Errorf("duration = %d, want 120", duration)
	}
	if active != 90 {
		t.Errorf("active = %d, want 90", active)
	}
	if idle != 30 {
		t.Errorf("idle = %d, want 30", idle)
	}
}

func TestComputeTimelineNoEvents(t *testing.T) {
	// Work starts active until proven idle; an event-free session is all
	// active and duration is pure wall clock.
	start := mustTime(t, "2026-03-02T09:00:00Z")
	stop := start.Add(45 * time.Second)

	duration, active, idle := computeTimeline(start, stop, nil)

	if duration != 45 || active != 45 || idle != 0 {
		t.Errorf("got (%d, %d, %d), want (45, 45, 0)", duration, active, idle)
	}
}

func TestComputeTimelineIdleAtStart(t *testing.T) {
	// Idle pulse exactly at the start boundary: zero-length lead-in, the
	// whole session classifies idle.
	start := mustTime(t, "2026-03-02T09:00:00Z")
	stop := start.Add(60 * time.Second)
	events := []*model.ActivityEvent{
		event(t, model.ActivityIdle, "2026-03-02T09:00:00Z", 0),
	}

	duration, active, idle := computeTimeline(start, stop, events)

	if duration != 60 || active != 0 || idle != 60 {
		t.Errorf("got (%d, %d, %d), want (60, 0, 60)", duration, active, idle)
	}
}

func TestComputeTimelineEventAtEndpoint(t *testing.T) {
	// An idle pulse landing exactly at the endpoint opens a zero-length
	// interval and must not disturb the split.
	start := mustTime(t, "2026-03-02T09:00:00Z")
	stop := start.Add(30 * time.Second)
	events := []*model.ActivityEvent{
		event(t, model.ActivityIdle, "2026-03-02T09:00:30Z", 0),
	}

	duration, active, idle := computeTimeline(start, stop, events)

	if duration != 30 || active != 30 || idle != 0 {
		t.Errorf("got (%d, %d, %d), want (30, 30, 0)", duration, active, idle)
	}
}

func TestComputeTimelineEventsBeyondEndpoint(t *testing.T) {
	// Events after the endpoint (a running session recomputed mid-stream)
	// are ignored for the current snapshot.
	start := mustTime(t, "2026-03-02T09:00:00Z")
	endpoint := start.Add(20 * time.Second)
	events := []*model.ActivityEvent{
		event(t, model.ActivityIdle, "2026-03-02T09:00:10Z", 0),
		event(t, model.ActivityActive, "2026-03-02T09:00:50Z", 0),
	}

	duration, active, idle := computeTimeline(start, endpoint, events)

	if duration != 20 || active != 10 || idle != 10 {
		t.Errorf("got (%d, %d, %d), want (20, 10, 10)", duration, active, idle)
	}
}

func TestComputeTimelineEndpointBeforeStart(t *testing.T) {
	start := mustTime(t, "2026-03-02T09:00:00Z")

	duration, active, idle := computeTimeline(start, start.Add(-time.Second), nil)

	if duration != 0 || active != 0 || idle != 0 {
		t.Errorf("got (%d, %d, %d), want zeros", duration, active, idle)
	}
}

func TestComputeTimelineConservation(t *testing.T) {
	// activeSeconds + idleSeconds == duration must hold exactly for every
	// timeline, including sub-second event spacing.
	start := mustTime(t, "2026-03-02T09:00:00Z")
	stop := start.Add(95*time.Second + 300*time.Millisecond)
	events := []*model.ActivityEvent{
		event(t, model.ActivityIdle, "2026-03-02T09:00:07Z", 0),
		event(t, model.ActivityActive, "2026-03-02T09:00:33Z", 1),
		event(t, model.ActivityIdle, "2026-03-02T09:00:33Z", 2), // same timestamp, tiebroken by receipt
		event(t, model.ActivityActive, "2026-03-02T09:01:20Z", 0),
	}

	duration, active, idle := computeTimeline(start, stop, events)

	if active+idle != duration {
		t.Errorf("conservation violated: %d + %d != %d", active, idle, duration)
	}
	if duration != 95 {
		t.Errorf("duration = %d, want 95", duration)
	}
}
