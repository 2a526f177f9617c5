package mqtt

import (
	"testing"
	"time"

	"face-greeter-go/internal/core/greeting"
	"face-greeter-go/internal/core/processor"
	"face-greeter-go/internal/core/tracking"
	"face-greeter-go/internal/integrations/audio"
)

type published struct {
	topic   string
	payload interface{}
	retain  bool
}

type fakePublisher struct {
	messages []published
}

func (f *fakePublisher) PublishMessage(topic string, payload interface{}, retain bool) error {
	f.messages = append(f.messages, published{topic, payload, retain})
	return nil
}

func (f *fakePublisher) Topic(parts ...string) string {
	return Topic("greeter/", parts...)
}

func TestTopic(t *testing.T) {
	tests := []struct {
		prefix string
		parts  []string
		want   string
	}{
		{"face-greeter", []string{"status"}, "face-greeter/status"},
		{"/home/greeter/", []string{"ledger", "total"}, "home/greeter/ledger/total"},
		{"", []string{"greeting"}, "greeting"},
	}
	for _, tt := range tests {
		if got := Topic(tt.prefix, tt.parts...); got != tt.want {
			t.Errorf("Topic(%q, %v) = %q, want %q", tt.prefix, tt.parts, got, tt.want)
		}
	}
}

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		payload interface{}
		want    string
	}{
		{"online", "online"},
		{42, "42"},
		{true, "true"},
		{map[string]int{"a": 1}, `{"a":1}`},
	}
	for _, tt := range tests {
		got, err := EncodePayload(tt.payload)
		if err != nil || string(got) != tt.want {
			t.Errorf("EncodePayload(%v) = %q, %v; want %q", tt.payload, got, err, tt.want)
		}
	}
}

func TestEventPublisherGreeting(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewEventPublisher(pub)

	sink.Handle(processor.Event{
		Type:      processor.EventGreeting,
		SessionID: "s1",
		Day:       "20261017",
		Timestamp: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		Outcome: &greeting.Outcome{
			IdentityID:     3,
			Status:         greeting.StatusFired,
			Variant:        "encounter:2",
			Clip:           audio.Clip{Name: "encounter_2.wav"},
			EncounterCount: 2,
			LedgerTotal:    5,
		},
	})

	if len(pub.messages) != 2 {
		t.Fatalf("messages = %+v", pub.messages)
	}
	msg, ok := pub.messages[0].payload.(GreetingMessage)
	if pub.messages[0].topic != "greeter/greeting" || !ok || msg.Clip != "encounter_2.wav" || msg.GreetingsToday != 5 {
		t.Errorf("greeting message = %+v", pub.messages[0])
	}
	if pub.messages[1].topic != "greeter/ledger/total" || pub.messages[1].payload != 5 || !pub.messages[1].retain {
		t.Errorf("total message = %+v", pub.messages[1])
	}
}

func TestEventPublisherIdentity(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewEventPublisher(pub)

	sink.Handle(processor.Event{Type: processor.EventIdentityRemoved, Identity: &tracking.Identity{ID: 4}, Present: 0})
	sink.Handle(processor.Event{Type: processor.EventSnapshotSaved, Identity: &tracking.Identity{ID: 4}})

	if len(pub.messages) != 2 {
		t.Fatalf("messages = %+v", pub.messages)
	}
	if pub.messages[0].topic != "greeter/identity/lost" || pub.messages[1].topic != "greeter/present" {
		t.Errorf("topics = %s, %s", pub.messages[0].topic, pub.messages[1].topic)
	}
}
