package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"campus-face-id/config"
	"campus-face-id/internal/core/models"
	"campus-face-id/internal/core/processor"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Topic-Suffixe unterhalb von mqtt.topic_prefix
const (
	TopicAvailability     = "availability"
	TopicRecognition      = "recognition"
	TopicRecognizeRequest = "recognize/request"
	TopicRecognizeReply   = "recognize/response"
)

const requestTimeout = 30 * time.Second

// Client veröffentlicht Erkennungsergebnisse und nimmt optional Erkennungsanfragen entgegen
type Client struct {
	config     config.MQTTConfig
	client     mqtt.Client
	recognizer processor.Recognizer
	onConnect  []func()
	mu         sync.RWMutex
}

// RecognizeRequest ist die Nutzlast auf <prefix>/recognize/request
type RecognizeRequest struct {
	RequestID string `json:"request_id"`
	Image     string `json:"image"`
}

// RecognitionMessage ist die Nutzlast für Ergebnisse und Antworten
type RecognitionMessage struct {
	RequestID  string          `json:"request_id"`
	Success    bool            `json:"success"`
	Student    *models.Student `json:"student,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	FacesFound int             `json:"faces_found"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewClient erstellt einen neuen MQTT-Client
func NewClient(cfg config.MQTTConfig) *Client {
	return &Client{config: cfg}
}

// SetRecognizer setzt den Empfänger für Erkennungsanfragen über MQTT
func (c *Client) SetRecognizer(r processor.Recognizer) {
	c.mu.Lock()
	c.recognizer = r
	c.mu.Unlock()
}

// OnConnect registriert eine Funktion, die nach jedem (Wieder-)Verbinden läuft
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = append(c.onConnect, fn)
	c.mu.Unlock()
}

// Topic setzt das konfigurierte Präfix vor suffix
func (c *Client) Topic(suffix string) string {
	prefix := strings.TrimSuffix(c.config.TopicPrefix, "/")
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}

// Start verbindet den Client mit dem Broker
func (c *Client) Start() error {
	if !c.config.Enabled {
		log.Info("MQTT client is disabled in configuration")
		return nil
	}

	opts := mqtt.NewClientOptions()

	brokerURL := fmt.Sprintf("tcp://%s:%d", c.config.Broker, c.config.Port)
	opts.AddBroker(brokerURL)
	opts.SetClientID(c.config.ClientID)

	if c.config.Username != "" {
		opts.SetUsername(c.config.Username)
		opts.SetPassword(c.config.Password)
	}

	// Verfügbarkeit wird bei Verbindungsabbruch vom Broker auf offline gesetzt
	opts.SetWill(c.Topic(TopicAvailability), "offline", 1, true)

	opts.SetOnConnectHandler(c.onConnectHandler)
	opts.SetConnectionLostHandler(c.connectionLostHandler)

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	c.client = mqtt.NewClient(opts)

	log.Infof("Connecting to MQTT broker at %s", brokerURL)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Info("MQTT client connected successfully")
	return nil
}

// Stop meldet den Dienst ab und trennt die Verbindung
func (c *Client) Stop() {
	if c.client != nil && c.client.IsConnected() {
		log.Info("Disconnecting MQTT client...")
		if err := c.PublishRetain(c.Topic(TopicAvailability), "offline"); err != nil {
			log.Warnf("Failed to publish offline state: %v", err)
		}
		c.client.Disconnect(250)
		log.Info("MQTT client disconnected")
	}
}

// IsConnected prüft, ob der Client verbunden ist
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

func (c *Client) onConnectHandler(client mqtt.Client) {
	log.Infof("Connected to MQTT broker at %s:%d", c.config.Broker, c.config.Port)

	if err := c.PublishRetain(c.Topic(TopicAvailability), "online"); err != nil {
		log.Warnf("Failed to publish online state: %v", err)
	}

	c.mu.RLock()
	hooks := append([]func(){}, c.onConnect...)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}

	if !c.config.AcceptRequests {
		return
	}

	topic := c.Topic(TopicRecognizeRequest)
	log.Infof("Subscribing to MQTT topic: %s", topic)
	if token := client.Subscribe(topic, 1, c.messageHandler); token.Wait() && token.Error() != nil {
		log.Errorf("Failed to subscribe to topic %s: %v", topic, token.Error())
	}
}

func (c *Client) connectionLostHandler(client mqtt.Client, err error) {
	log.Errorf("MQTT connection lost: %v", err)
}

// messageHandler verarbeitet eingehende Erkennungsanfragen
func (c *Client) messageHandler(client mqtt.Client, msg mqtt.Message) {
	log.Debugf("Received MQTT message on topic: %s", msg.Topic())

	// Paho ruft Handler sequentiell auf, die Erkennung läuft daher nebenläufig
	payload := msg.Payload()
	go func() {
		reply := c.HandleRequest(payload)
		if err := c.Publish(c.Topic(TopicRecognizeReply), reply); err != nil {
			log.Errorf("Failed to publish recognition response: %v", err)
		}
	}()
}

// HandleRequest dekodiert eine Anfrage, führt die Erkennung aus und baut die Antwort
func (c *Client) HandleRequest(payload []byte) RecognitionMessage {
	var req RecognizeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return RecognitionMessage{Error: "invalid request payload", Timestamp: time.Now()}
	}
	// Auch Fehlerantworten tragen eine request_id, über die der Client sie zuordnen kann
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	if req.Image == "" {
		return RecognitionMessage{RequestID: req.RequestID, Error: processor.ErrNoImage.Error(), Timestamp: time.Now()}
	}

	c.mu.RLock()
	recognizer := c.recognizer
	c.mu.RUnlock()
	if recognizer == nil {
		return RecognitionMessage{RequestID: req.RequestID, Error: "recognition is not available", Timestamp: time.Now()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := recognizer.Recognize(ctx, processor.Request{
		RequestID: req.RequestID,
		Source:    "mqtt",
		Image:     req.Image,
	})
	if err != nil {
		return RecognitionMessage{RequestID: req.RequestID, Error: err.Error(), Timestamp: time.Now()}
	}
	return NewRecognitionMessage(result)
}

// NewRecognitionMessage wandelt ein Ergebnis in die MQTT-Nutzlast um
func NewRecognitionMessage(result *processor.Result) RecognitionMessage {
	msg := RecognitionMessage{
		RequestID:  result.RequestID,
		Success:    result.Success,
		FacesFound: result.FacesFound,
		Timestamp:  result.Timestamp,
	}
	if result.Success {
		msg.Student = result.Student
		msg.Confidence = result.Confidence
	} else {
		msg.Message = "No match found or confidence too low"
	}
	return msg
}

// NotifyRecognition veröffentlicht jedes Ergebnis auf <prefix>/recognition
func (c *Client) NotifyRecognition(result *processor.Result) {
	if !c.IsConnected() {
		return
	}
	if err := c.Publish(c.Topic(TopicRecognition), NewRecognitionMessage(result)); err != nil {
		log.Warnf("Failed to publish recognition result: %v", err)
	}
}

// PublishMessage veröffentlicht eine Nachricht an ein MQTT-Topic
func (c *Client) PublishMessage(topic string, payload interface{}, retain bool) error {
	if !c.IsConnected() {
		return fmt.Errorf("MQTT client is not connected")
	}

	payloadBytes, err := encodePayload(payload)
	if err != nil {
		return err
	}

	token := c.client.Publish(topic, 1, retain, payloadBytes)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish message to topic %s: %w", topic, token.Error())
	}

	log.Debugf("Published message to topic: %s", topic)
	return nil
}

func encodePayload(payload interface{}) ([]byte, error) {
	switch p := payload.(type) {
	case string:
		return []byte(p), nil
	case []byte:
		return p, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool:
		return []byte(fmt.Sprintf("%v", p)), nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload to JSON: %w", err)
		}
		return data, nil
	}
}

// PublishRetain veröffentlicht eine Nachricht mit dem Retain-Flag
func (c *Client) PublishRetain(topic string, payload interface{}) error {
	return c.PublishMessage(topic, payload, true)
}

// Publish veröffentlicht eine Nachricht ohne Retain-Flag
func (c *Client) Publish(topic string, payload interface{}) error {
	return c.PublishMessage(topic, payload, false)
}
