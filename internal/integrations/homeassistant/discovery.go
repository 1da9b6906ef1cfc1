package homeassistant

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Konstanten für die Home Assistant MQTT Discovery
const (
	// Discovery-Präfix für Home Assistant (Standard ist "homeassistant")
	DiscoveryPrefix = "homeassistant"

	// Component-Typ für Sensoren
	ComponentSensor = "sensor"

	// Node-ID für den Dienst
	NodeID = "campus_face"
)

// Publisher ist der Teil des MQTT-Clients, den die Discovery benötigt
type Publisher interface {
	Topic(suffix string) string
	PublishRetain(topic string, payload interface{}) error
}

// SensorConfig repräsentiert die MQTT-Discovery-Konfiguration für einen Sensor in Home Assistant
type SensorConfig struct {
	Name                string  `json:"name"`
	UniqueID            string  `json:"unique_id"`
	StateTopic          string  `json:"state_topic"`
	Icon                string  `json:"icon,omitempty"`
	JSONAttributesTopic string  `json:"json_attributes_topic,omitempty"`
	ValueTemplate       string  `json:"value_template,omitempty"`
	UnitOfMeasurement   string  `json:"unit_of_measurement,omitempty"`
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
}

// DiscoveryManager verwaltet die Home Assistant MQTT Discovery
type DiscoveryManager struct {
	publisher Publisher
	prefix    string
}

// NewDiscoveryManager erstellt einen neuen Manager für Home Assistant Discovery
func NewDiscoveryManager(publisher Publisher, discoveryPrefix string) *DiscoveryManager {
	if discoveryPrefix == "" {
		discoveryPrefix = DiscoveryPrefix
	}
	return &DiscoveryManager{
		publisher: publisher,
		prefix:    discoveryPrefix,
	}
}

// ConfigTopic gibt das Discovery-Topic eines Sensors zurück
func (dm *DiscoveryManager) ConfigTopic(objectID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", dm.prefix, ComponentSensor, NodeID, objectID)
}

// Sensors baut die Discovery-Konfigurationen für die Erkennungssensoren
func (dm *DiscoveryManager) Sensors() map[string]SensorConfig {
	device := &Device{
		Identifiers:  []string{NodeID},
		Name:         "Campus Face ID",
		Manufacturer: "Campus Security",
		Model:        "LBPH Recognizer",
	}

	stateTopic := dm.publisher.Topic("recognition")
	availability := dm.publisher.Topic("availability")

	return map[string]SensorConfig{
		"last_student": {
			Name:                "Last recognized student",
			UniqueID:            NodeID + "_last_student",
			StateTopic:          stateTopic,
			JSONAttributesTopic: stateTopic,
			ValueTemplate:       "{{ value_json.student.name if value_json.success else 'unknown' }}",
			Icon:                "mdi:face-recognition",
			AvailabilityTopic:   availability,
			PayloadAvailable:    "online",
			PayloadNotAvailable: "offline",
			Device:              device,
		},
		"last_confidence": {
			Name:                "Last recognition confidence",
			UniqueID:            NodeID + "_last_confidence",
			StateTopic:          stateTopic,
			ValueTemplate:       "{{ value_json.confidence | default(0) }}",
			UnitOfMeasurement:   "%",
			Icon:                "mdi:percent",
			AvailabilityTopic:   availability,
			PayloadAvailable:    "online",
			PayloadNotAvailable: "offline",
			Device:              device,
		},
	}
}

// Register veröffentlicht alle Sensor-Konfigurationen mit Retain-Flag
func (dm *DiscoveryManager) Register() error {
	var firstErr error
	for objectID, sensor := range dm.Sensors() {
		log.Infof("Registering Home Assistant sensor: %s", sensor.Name)
		if err := dm.publisher.PublishRetain(dm.ConfigTopic(objectID), sensor); err != nil {
			log.Errorf("Failed to register sensor %s: %v", objectID, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to publish discovery configuration: %w", err)
			}
		}
	}
	return firstErr
}
