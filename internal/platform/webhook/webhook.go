// Package webhook delivers Connect events to registered external
// endpoints. Payloads are HMAC-SHA256 signed, every attempt is logged,
// and endpoints that fail repeatedly are paused automatically.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Event types published by the platform.
const (
	EventPatientCreated      = "paciente.criado"
	EventPatientUpdated      = "paciente.atualizado"
	EventPatientStatusMoved  = "paciente.status_alterado"
	EventMessageReceived     = "conversa.mensagem"
	EventCallLogged          = "chamada.registrada"
	EventTest                = "webhook.teste"
)

// ErrEndpointNotFound indicates the endpoint does not exist.
var ErrEndpointNotFound = errors.New("webhook endpoint not found")

// ErrDeliveryNotFound indicates the delivery record does not exist.
var ErrDeliveryNotFound = errors.New("webhook delivery not found")

// Endpoint is a registered webhook destination.
type Endpoint struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Secret       string    `json:"secret,omitempty"`
	Events       []string  `json:"events"`
	Status       string    `json:"status"` // "active" or "paused"
	FailureCount int       `json:"failure_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Event is the wire payload POSTed to endpoints.
type Event struct {
	Evento    string          `json:"evento"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent marshals data and wraps it in an Event stamped with the
// current time.
func NewEvent(evento string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshaling event data: %w", err)
	}
	return Event{Evento: evento, Data: raw, Timestamp: time.Now().UTC()}, nil
}

// Delivery records a single delivery attempt to one endpoint.
type Delivery struct {
	ID           string        `json:"id"`
	EndpointID   string        `json:"endpoint_id"`
	Evento       string        `json:"evento"`
	Payload      []byte        `json:"payload"`
	Signature    string        `json:"signature"`
	StatusCode   int           `json:"status_code"`
	ResponseBody string        `json:"response_body"`
	Duration     time.Duration `json:"duration_ns"`
	Attempt      int           `json:"attempt"`
	Status       string        `json:"status"` // "success" or "failed"
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Store persists endpoints and delivery attempts.
type Store interface {
	CreateEndpoint(ctx context.Context, ep *Endpoint) error
	GetEndpoint(ctx context.Context, id string) (*Endpoint, error)
	ListEndpoints(ctx context.Context, limit, offset int) ([]*Endpoint, int, error)
	UpdateEndpoint(ctx context.Context, ep *Endpoint) error
	DeleteEndpoint(ctx context.Context, id string) error
	RecordDelivery(ctx context.Context, d *Delivery) error
	ListDeliveries(ctx context.Context, endpointID string, limit, offset int) ([]*Delivery, int, error)
	GetDelivery(ctx context.Context, id string) (*Delivery, error)
}

// SignPayload computes the hex-encoded HMAC-SHA256 signature of payload
// under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches the HMAC-SHA256 of
// payload under secret. Receivers use this to authenticate deliveries.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// InMemoryStore is a thread-safe, in-memory Store for development and
// tests.
type InMemoryStore struct {
	mu            sync.RWMutex
	endpoints     map[string]*Endpoint
	deliveries    map[string]*Delivery
	endpointOrder []string
	deliveryOrder []string
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		endpoints:  make(map[string]*Endpoint),
		deliveries: make(map[string]*Delivery),
	}
}

func (s *InMemoryStore) CreateEndpoint(_ context.Context, ep *Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[ep.ID] = ep
	s.endpointOrder = append(s.endpointOrder, ep.ID)
	return nil
}

func (s *InMemoryStore) GetEndpoint(_ context.Context, id string) (*Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ep, ok := s.endpoints[id]
	if !ok {
		return nil, ErrEndpointNotFound
	}
	return ep, nil
}

func (s *InMemoryStore) ListEndpoints(_ context.Context, limit, offset int) ([]*Endpoint, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*Endpoint
	for _, id := range s.endpointOrder {
		if ep := s.endpoints[id]; ep != nil {
			all = append(all, ep)
		}
	}
	total := len(all)
	if offset >= total {
		return []*Endpoint{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (s *InMemoryStore) UpdateEndpoint(_ context.Context, ep *Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[ep.ID]; !ok {
		return ErrEndpointNotFound
	}
	s.endpoints[ep.ID] = ep
	return nil
}

func (s *InMemoryStore) DeleteEndpoint(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[id]; !ok {
		return ErrEndpointNotFound
	}
	delete(s.endpoints, id)
	for i, eid := range s.endpointOrder {
		if eid == id {
			s.endpointOrder = append(s.endpointOrder[:i], s.endpointOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryStore) RecordDelivery(_ context.Context, d *Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[d.ID]; !ok {
		s.deliveryOrder = append(s.deliveryOrder, d.ID)
	}
	s.deliveries[d.ID] = d
	return nil
}

func (s *InMemoryStore) ListDeliveries(_ context.Context, endpointID string, limit, offset int) ([]*Delivery, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []*Delivery
	for _, id := range s.deliveryOrder {
		d := s.deliveries[id]
		if d == nil {
			continue
		}
		if d.EndpointID == endpointID {
			filtered = append(filtered, d)
		}
	}
	total := len(filtered)
	if offset >= total {
		return []*Delivery{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (s *InMemoryStore) GetDelivery(_ context.Context, id string) (*Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliveries[id]
	if !ok {
		return nil, ErrDeliveryNotFound
	}
	return d, nil
}
