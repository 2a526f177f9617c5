package homeassistant

import (
	"fmt"
	"strings"

	"face-greeter-go/config"
	"face-greeter-go/internal/integrations/mqtt"

	log "github.com/sirupsen/logrus"
)

// Constants for Home Assistant MQTT Discovery
const (
	// Component-Typ für Sensoren
	ComponentSensor = "sensor"

	// Node-ID des Greeters
	NodeID = "face_greeter"
)

// Sensor-IDs
const (
	SensorGreetingsToday    = "greetings_today"
	SensorIdentitiesPresent = "identities_present"
)

// SensorConfig repräsentiert die MQTT-Discovery-Konfiguration für einen Sensor in Home Assistant
type SensorConfig struct {
	Name                string  `json:"name"`
	UniqueID            string  `json:"unique_id"`
	StateTopic          string  `json:"state_topic"`
	Icon                string  `json:"icon,omitempty"`
	ValueTemplate       string  `json:"value_template,omitempty"`
	StateClass          string  `json:"state_class,omitempty"`
	UnitOfMeasurement   string  `json:"unit_of_measurement,omitempty"`
	JSONAttributesTopic string  `json:"json_attributes_topic,omitempty"`
	AvailabilityTopic   string  `json:"availability_topic,omitempty"`
	PayloadAvailable    string  `json:"payload_available,omitempty"`
	PayloadNotAvailable string  `json:"payload_not_available,omitempty"`
	Device              *Device `json:"device,omitempty"`
}

// Device repräsentiert die Geräteinformationen für Home Assistant
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// DiscoveryManager verwaltet die Home Assistant MQTT Discovery
type DiscoveryManager struct {
	client  mqtt.Publisher
	cfg     config.HomeAssistantConfig
	version string
}

// NewDiscoveryManager erstellt einen neuen Manager für Home Assistant Discovery
func NewDiscoveryManager(client mqtt.Publisher, cfg config.HomeAssistantConfig, version string) *DiscoveryManager {
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}
	if cfg.DeviceName == "" {
		cfg.DeviceName = "Face Greeter"
	}
	return &DiscoveryManager{client: client, cfg: cfg, version: version}
}

// StateTopic ist das Topic, auf dem StatePublisher den Zustand veröffentlicht
func StateTopic(client mqtt.Publisher) string {
	return client.Topic("state")
}

// Sensors liefert die Discovery-Konfigurationen aller Sensoren
func (dm *DiscoveryManager) Sensors() []SensorConfig {
	device := &Device{
		Identifiers:  []string{NodeID},
		Name:         dm.cfg.DeviceName,
		Manufacturer: "Face Greeter",
		Model:        "Camera Greeter",
		SWVersion:    dm.version,
	}

	sensor := func(id, name, icon string) SensorConfig {
		return SensorConfig{
			Name:                name,
			UniqueID:            fmt.Sprintf("%s_%s", NodeID, id),
			StateTopic:          StateTopic(dm.client),
			ValueTemplate:       fmt.Sprintf("{{ value_json.%s }}", id),
			StateClass:          "measurement",
			Icon:                icon,
			JSONAttributesTopic: StateTopic(dm.client),
			AvailabilityTopic:   dm.client.Topic("status"),
			PayloadAvailable:    mqtt.PayloadOnline,
			PayloadNotAvailable: mqtt.PayloadOffline,
			Device:              device,
		}
	}

	return []SensorConfig{
		sensor(SensorGreetingsToday, "Greetings Today", "mdi:hand-wave"),
		sensor(SensorIdentitiesPresent, "Identities Present", "mdi:account-group"),
	}
}

// DiscoveryTopic liefert das Config-Topic eines Sensors
func (dm *DiscoveryManager) DiscoveryTopic(sensor SensorConfig) string {
	objectID := strings.TrimPrefix(sensor.UniqueID, NodeID+"_")
	return fmt.Sprintf("%s/%s/%s/%s/config", dm.cfg.DiscoveryPrefix, ComponentSensor, NodeID, objectID)
}

// RegisterSensors veröffentlicht die Discovery-Konfigurationen (retained)
func (dm *DiscoveryManager) RegisterSensors() error {
	for _, sensor := range dm.Sensors() {
		log.Infof("Registering Home Assistant sensor %s", sensor.UniqueID)
		if err := dm.client.PublishMessage(dm.DiscoveryTopic(sensor), sensor, true); err != nil {
			return fmt.Errorf("failed to publish discovery configuration: %w", err)
		}
	}
	return nil
}
