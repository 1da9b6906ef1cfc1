package sse

import (
	"encoding/json"
	"sync"
	"time"

	"campus-face-id/internal/core/processor"

	log "github.com/sirupsen/logrus"
)

// Client repräsentiert einen einzelnen verbundenen SSE-Client
type Client chan []byte

// Hub verwaltet die Menge der aktiven Clients und sendet Broadcasts an sie
type Hub struct {
	clients    map[Client]bool
	broadcast  chan []byte
	register   chan Client
	unregister chan Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
}

// RecognitionEvent ist die Nutzlast, die für jede Erkennung gesendet wird
type RecognitionEvent struct {
	RequestID   string    `json:"request_id"`
	Source      string    `json:"source"`
	Success     bool      `json:"success"`
	StudentID   string    `json:"student_id,omitempty"`
	StudentName string    `json:"student_name,omitempty"`
	Label       *int      `json:"label,omitempty"`
	Confidence  *float64  `json:"confidence,omitempty"`
	FacesFound  int       `json:"faces_found"`
	DebugImage  string    `json:"debug_image,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewHub erstellt eine neue Hub-Instanz
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 100),
		register:   make(chan Client),
		unregister: make(chan Client),
		done:       make(chan struct{}),
		clients:    make(map[Client]bool),
	}
}

// Run startet die Verarbeitungsschleife des Hubs.
// Dies sollte in einer separaten Goroutine ausgeführt werden.
func (h *Hub) Run() {
	log.Info("SSE hub started")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			log.Infof("SSE client registered. Total clients: %d", clientCount)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
				log.Infof("SSE client unregistered. Total clients: %d", len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			log.Debugf("Broadcasting message to %d SSE clients", len(h.clients))
			for client := range h.clients {
				select {
				case client <- message:
				default:
					log.Warn("SSE client channel full, removing client")
					delete(h.clients, client)
					close(client)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client)
			}
			h.mu.Unlock()
			log.Info("SSE hub stopped")
			return
		}
	}
}

// Stop beendet die Verarbeitungsschleife und trennt alle Clients
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register registriert einen neuen Client am Hub
func (h *Hub) Register(client Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client)
	}
}

// Unregister meldet einen Client vom Hub ab
func (h *Hub) Unregister(client Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount gibt die Anzahl verbundener Clients zurück
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sendet eine Nachricht an alle registrierten Clients
func (h *Hub) Broadcast(message []byte) {
	// Blockieren vermeiden, wenn der Broadcast-Kanal voll ist
	select {
	case h.broadcast <- message:
	default:
		log.Warn("SSE broadcast channel full, message dropped")
	}
}

// NotifyRecognition formatiert ein Erkennungsergebnis und sendet es als Broadcast
func (h *Hub) NotifyRecognition(result *processor.Result) {
	data := RecognitionEvent{
		RequestID:  result.RequestID,
		Source:     result.Source,
		Success:    result.Success,
		Label:      result.Label,
		Confidence: result.Confidence,
		FacesFound: result.FacesFound,
		DebugImage: result.DebugImage,
		Timestamp:  result.Timestamp,
	}
	if result.Student != nil {
		data.StudentID = result.Student.StudentID
		data.StudentName = result.Student.Name
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Errorf("Failed to marshal recognition event for SSE: %v", err)
		return
	}

	h.Broadcast(jsonData)
}
