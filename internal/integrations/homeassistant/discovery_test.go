package homeassistant

import (
	"encoding/json"
	"errors"
	"testing"
)

type fakePublisher struct {
	published map[string][]byte
	err       error
}

func (p *fakePublisher) Topic(suffix string) string { return "campus-face/" + suffix }

func (p *fakePublisher) PublishRetain(topic string, payload interface{}) error {
	if p.err != nil {
		return p.err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.published[topic] = data
	return nil
}

func TestRegister(t *testing.T) {
	pub := &fakePublisher{published: make(map[string][]byte)}
	dm := NewDiscoveryManager(pub, "")

	if err := dm.Register(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.published) != 2 {
		t.Fatalf("expected 2 sensors, got %d", len(pub.published))
	}

	data, ok := pub.published["homeassistant/sensor/campus_face/last_student/config"]
	if !ok {
		t.Fatalf("missing last_student config, got topics %v", pub.published)
	}
	var sensor SensorConfig
	if err := json.Unmarshal(data, &sensor); err != nil {
		t.Fatal(err)
	}
	if sensor.StateTopic != "campus-face/recognition" || sensor.AvailabilityTopic != "campus-face/availability" {
		t.Errorf("unexpected topics: %+v", sensor)
	}
	if sensor.Device == nil || sensor.Device.Identifiers[0] != NodeID {
		t.Errorf("expected device info, got %+v", sensor.Device)
	}
}

func TestRegister_CustomPrefixAndError(t *testing.T) {
	dm := NewDiscoveryManager(&fakePublisher{err: errors.New("offline")}, "ha")
	if got := dm.ConfigTopic("x"); got != "ha/sensor/campus_face/x/config" {
		t.Errorf("unexpected config topic %s", got)
	}
	if err := dm.Register(); err == nil {
		t.Error("expected publish error to be returned")
	}
}
