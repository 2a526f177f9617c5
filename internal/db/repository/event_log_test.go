package repository

import (
	"testing"
	"time"

	"face-greeter-go/internal/core/greeting"
	"face-greeter-go/internal/core/processor"
	"face-greeter-go/internal/core/tracking"
	"face-greeter-go/internal/integrations/audio"
)

func TestEventLogRecordsGreetingsOnly(t *testing.T) {
	repo := newTestRepo(t)
	sink := NewEventLog(repo)
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	sink.Handle(processor.Event{Type: processor.EventIdentityCreated, Day: "20261017", Identity: &tracking.Identity{ID: 1}})
	sink.Handle(processor.Event{
		Type:      processor.EventGreeting,
		SessionID: "s1",
		Day:       "20261017",
		Timestamp: now,
		Outcome: &greeting.Outcome{
			IdentityID:     1,
			Key:            "s1/1",
			Status:         greeting.StatusFired,
			Variant:        "encounter:1",
			Clip:           audio.Clip{Name: "encounter_1.wav"},
			EncounterCount: 1,
			LedgerTotal:    1,
		},
	})

	events, err := repo.GetGreetingEvents("20261017", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	e := events[0]
	if e.Key != "s1/1" || e.Clip != "encounter_1.wav" || e.LedgerTotal != 1 || !e.Timestamp.Equal(now) {
		t.Errorf("event = %+v", e)
	}
}
