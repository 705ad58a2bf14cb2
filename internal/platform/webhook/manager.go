package webhook

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHTTPClient overrides the default HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) { m.httpClient = c }
}

// WithMaxFailures sets how many consecutive failures pause an endpoint.
func WithMaxFailures(n int) ManagerOption {
	return func(m *Manager) { m.maxFailures = n }
}

// Manager orchestrates endpoint registration and event delivery.
type Manager struct {
	store       Store
	httpClient  *http.Client
	maxFailures int
	log         zerolog.Logger
}

// NewManager creates a Manager with a 10 second delivery timeout and a
// 10 consecutive failure pause threshold.
func NewManager(store Store, log zerolog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:       store,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		maxFailures: 10,
		log:         log,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// generateSecret produces a cryptographically random 32-byte hex string.
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func validateEndpointURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

// Register validates and persists a new endpoint. If secret is empty a
// random one is generated; the caller must show it to the operator once.
func (m *Manager) Register(ctx context.Context, rawURL, secret string, events []string) (*Endpoint, error) {
	if err := validateEndpointURL(rawURL); err != nil {
		return nil, err
	}
	if secret == "" {
		s, err := generateSecret()
		if err != nil {
			return nil, fmt.Errorf("generating secret: %w", err)
		}
		secret = s
	}

	ep := &Endpoint{
		ID:        uuid.New().String(),
		URL:       rawURL,
		Secret:    secret,
		Events:    events,
		Status:    "active",
		CreatedAt: time.Now(),
	}
	if err := m.store.CreateEndpoint(ctx, ep); err != nil {
		return nil, err
	}
	return ep, nil
}

// Update replaces an endpoint's URL and subscriptions. An empty secret
// keeps the current one; a non-empty secret replaces it.
func (m *Manager) Update(ctx context.Context, id, rawURL, secret string, events []string) (*Endpoint, error) {
	ep, err := m.store.GetEndpoint(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateEndpointURL(rawURL); err != nil {
		return nil, err
	}

	ep.URL = rawURL
	ep.Events = events
	if secret != "" {
		ep.Secret = secret
	}
	if err := m.store.UpdateEndpoint(ctx, ep); err != nil {
		return nil, err
	}
	return ep, nil
}

// Pause sets the endpoint status to "paused".
func (m *Manager) Pause(ctx context.Context, id string) error {
	ep, err := m.store.GetEndpoint(ctx, id)
	if err != nil {
		return err
	}
	ep.Status = "paused"
	return m.store.UpdateEndpoint(ctx, ep)
}

// Resume sets the endpoint status to "active" and clears its failure
// counter.
func (m *Manager) Resume(ctx context.Context, id string) error {
	ep, err := m.store.GetEndpoint(ctx, id)
	if err != nil {
		return err
	}
	ep.Status = "active"
	ep.FailureCount = 0
	return m.store.UpdateEndpoint(ctx, ep)
}

// subscribes reports whether the endpoint wants the event. Patterns can
// be exact ("paciente.criado"), prefix wildcards ("paciente.*") or "*"
// for everything.
func subscribes(ep *Endpoint, evento string) bool {
	if len(ep.Events) == 0 {
		return true
	}
	for _, pat := range ep.Events {
		if pat == "*" || pat == evento {
			return true
		}
		if strings.HasSuffix(pat, ".*") && strings.HasPrefix(evento, pat[:len(pat)-1]) {
			return true
		}
	}
	return false
}

// Publish delivers the event to every active endpoint subscribed to it.
func (m *Manager) Publish(ctx context.Context, event Event) {
	endpoints, _, err := m.store.ListEndpoints(ctx, 1000, 0)
	if err != nil {
		m.log.Error().Err(err).Msg("listing webhook endpoints")
		return
	}

	for _, ep := range endpoints {
		if ep.Status != "active" || !subscribes(ep, event.Evento) {
			continue
		}
		m.deliver(ctx, ep, event)
	}
}

// PublishAsync delivers the event in a background goroutine so intake
// requests do not wait on slow receivers. The delivery inherits a fresh
// context with its own timeout.
func (m *Manager) PublishAsync(event Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		m.Publish(ctx, event)
	}()
}

// deliver signs the payload, POSTs it, records the attempt, and updates
// the endpoint's failure counter.
func (m *Manager) deliver(ctx context.Context, ep *Endpoint, event Event) *Delivery {
	payload, _ := json.Marshal(event)
	sig := SignPayload(payload, ep.Secret)
	now := time.Now()

	d := &Delivery{
		ID:         uuid.New().String(),
		EndpointID: ep.ID,
		Evento:     event.Evento,
		Payload:    payload,
		Signature:  sig,
		Attempt:    1,
		CreatedAt:  now,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(payload))
	if err != nil {
		d.Status = "failed"
		d.Error = err.Error()
		m.finishDelivery(ctx, ep, d)
		return d
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Connect-Signature", "sha256="+sig)
	req.Header.Set("X-Connect-Event", event.Evento)
	req.Header.Set("X-Connect-Delivery", d.ID)

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	d.Duration = time.Since(start)

	if err != nil {
		d.Status = "failed"
		d.Error = err.Error()
		m.finishDelivery(ctx, ep, d)
		return d
	}
	defer resp.Body.Close()

	d.StatusCode = resp.StatusCode
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	d.ResponseBody = string(body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		d.Status = "success"
	} else {
		d.Status = "failed"
		d.Error = fmt.Sprintf("non-2xx response: %d", resp.StatusCode)
	}

	m.finishDelivery(ctx, ep, d)
	return d
}

// finishDelivery records the attempt and maintains the endpoint failure
// counter, pausing the endpoint once it crosses the threshold.
func (m *Manager) finishDelivery(ctx context.Context, ep *Endpoint, d *Delivery) {
	if err := m.store.RecordDelivery(ctx, d); err != nil {
		m.log.Error().Err(err).Str("endpoint_id", ep.ID).Msg("recording webhook delivery")
	}

	if d.Status == "success" {
		if ep.FailureCount != 0 {
			ep.FailureCount = 0
			if err := m.store.UpdateEndpoint(ctx, ep); err != nil {
				m.log.Error().Err(err).Str("endpoint_id", ep.ID).Msg("resetting failure count")
			}
		}
		return
	}

	m.log.Warn().
		Str("endpoint_id", ep.ID).
		Str("evento", d.Evento).
		Int("status_code", d.StatusCode).
		Str("error", d.Error).
		Msg("webhook delivery failed")

	ep.FailureCount++
	if ep.FailureCount >= m.maxFailures {
		ep.Status = "paused"
		m.log.Warn().Str("endpoint_id", ep.ID).Int("failures", ep.FailureCount).Msg("endpoint paused after repeated failures")
	}
	if err := m.store.UpdateEndpoint(ctx, ep); err != nil {
		m.log.Error().Err(err).Str("endpoint_id", ep.ID).Msg("updating failure count")
	}
}

// Retry re-delivers a previously recorded attempt, incrementing the
// attempt counter.
func (m *Manager) Retry(ctx context.Context, deliveryID string) (*Delivery, error) {
	original, err := m.store.GetDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	ep, err := m.store.GetEndpoint(ctx, original.EndpointID)
	if err != nil {
		return nil, err
	}

	var event Event
	if err := json.Unmarshal(original.Payload, &event); err != nil {
		return nil, fmt.Errorf("unmarshaling original payload: %w", err)
	}

	d := m.deliver(ctx, ep, event)
	d.Attempt = original.Attempt + 1
	if err := m.store.RecordDelivery(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Test sends a synthetic event to verify endpoint connectivity.
func (m *Manager) Test(ctx context.Context, endpointID string) (*Delivery, error) {
	ep, err := m.store.GetEndpoint(ctx, endpointID)
	if err != nil {
		return nil, err
	}

	event, err := NewEvent(EventTest, map[string]bool{"teste": true})
	if err != nil {
		return nil, err
	}
	return m.deliver(ctx, ep, event), nil
}

// Deliveries returns paginated delivery attempts for an endpoint.
func (m *Manager) Deliveries(ctx context.Context, endpointID string, limit, offset int) ([]*Delivery, int, error) {
	return m.store.ListDeliveries(ctx, endpointID, limit, offset)
}
