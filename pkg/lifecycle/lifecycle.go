package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/civicms/pkg/database"
	"github.com/civicms/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event is a service lifecycle event type.
type Event string

const (
	EventStarting  Event = "starting"
	EventStarted   Event = "started"
	EventReady     Event = "ready"
	EventStopping  Event = "stopping"
	EventStopped   Event = "stopped"
	EventHealthy   Event = "healthy"
	EventUnhealthy Event = "unhealthy"
)

// LifecycleMessage is the payload published for every event.
type LifecycleMessage struct {
	Service   string    `json:"service"`
	NodeID    string    `json:"node_id"`
	Event     Event     `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  any       `json:"metadata"`
}

// LifecycleHandler handles a received lifecycle message.
type LifecycleHandler func(msg *LifecycleMessage)

// Manager publishes this node's lifecycle events and dispatches the
// events of every other node to registered handlers.
type Manager struct {
	service     string
	nodeID      string
	redis       *redis.Client
	handlers    map[Event][]LifecycleHandler
	allHandlers []LifecycleHandler
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	pubsub      *redis.PubSub
}

const lifecycleChannel = "service:lifecycle"

// NewManager creates a manager for the named service node.
func NewManager(service, nodeID string) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		service:     service,
		nodeID:      nodeID,
		redis:       database.GetRedis(),
		handlers:    make(map[Event][]LifecycleHandler),
		allHandlers: make([]LifecycleHandler, 0),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// OnEvent registers a handler for one event type.
func (m *Manager) OnEvent(event Event, handler LifecycleHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], handler)
}

// OnAnyEvent registers a handler for every event.
func (m *Manager) OnAnyEvent(handler LifecycleHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allHandlers = append(m.allHandlers, handler)
}

// Emit publishes an event for this node.
func (m *Manager) Emit(event Event, metadata any) error {
	msg := &LifecycleMessage{
		Service:   m.service,
		NodeID:    m.nodeID,
		Event:     event,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal lifecycle message: %w", err)
	}

	return m.redis.Publish(m.ctx, lifecycleChannel, data).Err()
}

// Start subscribes to the lifecycle channel and begins dispatching.
func (m *Manager) Start() error {
	m.pubsub = m.redis.Subscribe(m.ctx, lifecycleChannel)

	// wait for subscription confirmation
	_, err := m.pubsub.Receive(m.ctx)
	if err != nil {
		return fmt.Errorf("subscribe lifecycle channel: %w", err)
	}

	go m.listen()

	logger.Info("lifecycle manager started",
		zap.String("service", m.service),
		zap.String("node_id", m.nodeID),
	)

	return nil
}

func (m *Manager) listen() {
	ch := m.pubsub.Channel()

	for {
		select {
		case <-m.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			m.handleMessage(msg.Payload)
		}
	}
}

func (m *Manager) handleMessage(payload string) {
	var msg LifecycleMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		logger.Error("parse lifecycle message failed", zap.Error(err))
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if handlers, ok := m.handlers[msg.Event]; ok {
		for _, handler := range handlers {
			go handler(&msg)
		}
	}

	for _, handler := range m.allHandlers {
		go handler(&msg)
	}
}

// Stop cancels the subscription.
func (m *Manager) Stop() error {
	m.cancel()
	if m.pubsub != nil {
		return m.pubsub.Close()
	}
	return nil
}

// EmitStarting publishes the starting event.
func (m *Manager) EmitStarting() error {
	return m.Emit(EventStarting, nil)
}

// EmitStarted publishes the started event.
func (m *Manager) EmitStarted() error {
	return m.Emit(EventStarted, nil)
}

// EmitReady publishes the ready event.
func (m *Manager) EmitReady() error {
	return m.Emit(EventReady, nil)
}

// EmitStopping publishes the stopping event.
func (m *Manager) EmitStopping() error {
	return m.Emit(EventStopping, nil)
}

// EmitStopped publishes the stopped event.
func (m *Manager) EmitStopped() error {
	return m.Emit(EventStopped, nil)
}
