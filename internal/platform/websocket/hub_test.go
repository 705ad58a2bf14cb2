package websocket

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestClient(topics ...string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		Topics: topics,
		Send:   make(chan []byte, 8),
	}
}

func newTestHub() *Hub {
	return NewHub(zerolog.Nop())
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	h := newTestHub()
	client := newTestClient(TopicQueue)
	h.Register(client)

	if h.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", h.ClientCount())
	}
	if h.TopicCount(TopicQueue) != 1 {
		t.Fatalf("expected 1 queue subscriber, got %d", h.TopicCount(TopicQueue))
	}

	event, err := NewEvent("paciente.criado", TopicQueue, map[string]string{"nome": "Ana"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	h.Broadcast(event)

	select {
	case raw := <-client.Send:
		var got Event
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Type != "paciente.criado" || got.Topic != TopicQueue {
			t.Errorf("unexpected event %+v", got)
		}
	default:
		t.Fatal("expected event on client channel")
	}
}

func TestHub_BroadcastOnlyToTopic(t *testing.T) {
	h := newTestHub()
	queueClient := newTestClient(TopicQueue)
	patientsClient := newTestClient(TopicPatients)
	h.Register(queueClient)
	h.Register(patientsClient)

	event, _ := NewEvent("fila.atualizada", TopicQueue, nil)
	h.Broadcast(event)

	if len(queueClient.Send) != 1 {
		t.Errorf("expected queue client to receive event, got %d", len(queueClient.Send))
	}
	if len(patientsClient.Send) != 0 {
		t.Errorf("expected patients client to receive nothing, got %d", len(patientsClient.Send))
	}
}

func TestHub_ConversationTopicIsolation(t *testing.T) {
	h := newTestHub()
	convA := uuid.New()
	convB := uuid.New()

	clientA := newTestClient(TopicConversation(convA))
	clientB := newTestClient(TopicConversation(convB))
	h.Register(clientA)
	h.Register(clientB)

	event, _ := NewEvent("conversa.mensagem", TopicConversation(convA), nil)
	h.Broadcast(event)

	if len(clientA.Send) != 1 {
		t.Errorf("expected conversation A client to receive event")
	}
	if len(clientB.Send) != 0 {
		t.Errorf("expected conversation B client to receive nothing")
	}
}

func TestHub_Unregister(t *testing.T) {
	h := newTestHub()
	client := newTestClient(TopicQueue)
	h.Register(client)
	h.Unregister(client)

	if h.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", h.ClientCount())
	}
	if h.TopicCount(TopicQueue) != 0 {
		t.Errorf("expected 0 subscribers, got %d", h.TopicCount(TopicQueue))
	}

	// Send channel is closed.
	if _, open := <-client.Send; open {
		t.Error("expected Send channel closed after unregister")
	}

	// Double unregister is safe.
	h.Unregister(client)
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	h := newTestHub()
	client := newTestClient()
	h.Register(client)

	h.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{TopicQueue, TopicPatients}})
	if h.TopicCount(TopicQueue) != 1 || h.TopicCount(TopicPatients) != 1 {
		t.Fatal("expected client subscribed to both topics")
	}

	h.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{TopicQueue}})
	if h.TopicCount(TopicQueue) != 0 {
		t.Error("expected queue subscription removed")
	}
	if h.TopicCount(TopicPatients) != 1 {
		t.Error("expected patients subscription kept")
	}
	if len(client.Topics) != 1 || client.Topics[0] != TopicPatients {
		t.Errorf("expected client topics [patients], got %v", client.Topics)
	}
}

func TestHub_BroadcastAll(t *testing.T) {
	h := newTestHub()
	a := newTestClient(TopicQueue)
	b := newTestClient()
	h.Register(a)
	h.Register(b)

	event, _ := NewEvent("sistema.aviso", "", nil)
	h.BroadcastAll(event)

	if len(a.Send) != 1 || len(b.Send) != 1 {
		t.Errorf("expected both clients to receive event, got %d/%d", len(a.Send), len(b.Send))
	}
}

func TestHub_FullBufferSkipped(t *testing.T) {
	h := newTestHub()
	client := &Client{ID: "c", Topics: []string{TopicQueue}, Send: make(chan []byte)}
	h.Register(client)

	// Unbuffered channel with no reader: broadcast must not block.
	event, _ := NewEvent("fila.atualizada", TopicQueue, nil)
	done := make(chan struct{})
	go func() {
		h.Broadcast(event)
		close(done)
	}()
	<-done
}
