package homeassistant

import (
	"testing"
	"time"

	"face-greeter-go/config"
	"face-greeter-go/internal/core/greeting"
	"face-greeter-go/internal/core/processor"
	"face-greeter-go/internal/integrations/mqtt"
)

type message struct {
	topic   string
	payload interface{}
	retain  bool
}

type fakeClient struct {
	messages []message
}

func (f *fakeClient) PublishMessage(topic string, payload interface{}, retain bool) error {
	f.messages = append(f.messages, message{topic, payload, retain})
	return nil
}

func (f *fakeClient) Topic(parts ...string) string {
	return mqtt.Topic("face-greeter", parts...)
}

func TestRegisterSensors(t *testing.T) {
	client := &fakeClient{}
	dm := NewDiscoveryManager(client, config.HomeAssistantConfig{Enabled: true}, "1.0.0")
	if err := dm.RegisterSensors(); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"homeassistant/sensor/face_greeter/greetings_today/config",
		"homeassistant/sensor/face_greeter/identities_present/config",
	}
	if len(client.messages) != len(want) {
		t.Fatalf("messages = %+v", client.messages)
	}
	for i, topic := range want {
		m := client.messages[i]
		if m.topic != topic || !m.retain {
			t.Errorf("message %d = %s retain=%v, want %s", i, m.topic, m.retain, topic)
		}
		sensor := m.payload.(SensorConfig)
		if sensor.StateTopic != "face-greeter/state" || sensor.AvailabilityTopic != "face-greeter/status" {
			t.Errorf("sensor %s topics = %s, %s", sensor.UniqueID, sensor.StateTopic, sensor.AvailabilityTopic)
		}
	}
}

func TestStatePublisherOnlyOnChange(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client)
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	p.Handle(processor.Event{Type: processor.EventIdentityCreated, Day: "20261017", Present: 1, Total: 0, Timestamp: now})
	p.Handle(processor.Event{Type: processor.EventGreeting, Day: "20261017", Present: 1, Total: 1, Timestamp: now, Outcome: &greeting.Outcome{IdentityID: 1}})
	// unverändert: keine weitere Nachricht
	p.Handle(processor.Event{Type: processor.EventIdentityCreated, Day: "20261017", Present: 1, Total: 1, Timestamp: now})
	p.Handle(processor.Event{Type: processor.EventSnapshotSaved, Day: "20261017"})
	p.Handle(processor.Event{Type: processor.EventRollover, Day: "20261018", Total: 0, Timestamp: now})

	if len(client.messages) != 3 {
		t.Fatalf("published %d messages: %+v", len(client.messages), client.messages)
	}
	last := client.messages[2].payload.(State)
	if last.Day != "20261018" || last.GreetingsToday != 0 || last.IdentitiesPresent != 0 {
		t.Errorf("state after rollover = %+v", last)
	}
	if got := p.Current(); got.LastGreeting != now {
		t.Errorf("last greeting = %v", got.LastGreeting)
	}
}
