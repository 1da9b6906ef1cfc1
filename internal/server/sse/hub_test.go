package sse

import (
	"encoding/json"
	"testing"
	"time"

	"campus-face-id/internal/core/models"
	"campus-face-id/internal/core/processor"
)

func receive(t *testing.T, client Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-client:
		if !ok {
			t.Fatal("client channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, h.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastAndUnregister(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	a := make(Client, 4)
	b := make(Client, 4)
	h.Register(a)
	h.Register(b)
	waitForClients(t, h, 2)

	h.Broadcast([]byte("hello"))
	if got := string(receive(t, a)); got != "hello" {
		t.Errorf("client a got %q", got)
	}
	if got := string(receive(t, b)); got != "hello" {
		t.Errorf("client b got %q", got)
	}

	h.Unregister(a)
	waitForClients(t, h, 1)
	if _, ok := <-a; ok {
		t.Error("expected unregistered client channel to be closed")
	}
}

func TestHub_StopClosesClients(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := make(Client, 1)
	h.Register(c)
	waitForClients(t, h, 1)

	h.Stop()
	select {
	case _, ok := <-c:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client not closed after stop")
	}

	// Nach Stop schließt Register den Client sofort
	late := make(Client, 1)
	h.Register(late)
	if _, ok := <-late; ok {
		t.Error("expected late client to be closed")
	}
	h.Stop()
}

func TestHub_NotifyRecognition(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	c := make(Client, 1)
	h.Register(c)
	waitForClients(t, h, 1)

	confidence := 88.25
	label := 2
	h.NotifyRecognition(&processor.Result{
		RequestID:  "req-7",
		Source:     "mqtt",
		Success:    true,
		Student:    &models.Student{ID: 2, Name: "Emily Wong", StudentID: "STU-10872"},
		Label:      &label,
		Confidence: &confidence,
		FacesFound: 1,
	})

	var event RecognitionEvent
	if err := json.Unmarshal(receive(t, c), &event); err != nil {
		t.Fatalf("invalid event JSON: %v", err)
	}
	if event.RequestID != "req-7" || event.StudentName != "Emily Wong" || event.StudentID != "STU-10872" {
		t.Errorf("unexpected event: %+v", event)
	}
	if event.Confidence == nil || *event.Confidence != 88.25 {
		t.Errorf("unexpected confidence: %v", event.Confidence)
	}
}
