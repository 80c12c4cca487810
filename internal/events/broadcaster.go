// Package events fans state-change events out to connected real-time viewers.
//
// Delivery is at-most-once with no persistence: a subscriber that is not
// joined to a topic when an event is published never sees it. Each subscriber
// owns a bounded queue drained by a single writer goroutine, so events reach a
// subscriber in the order they were published and a slow viewer never blocks
// a publisher. A subscriber whose queue is full is dropped.
package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/metrics"
	"github.com/darshan-rambhia/fleetglint/internal/model"
)

// DashboardTopic reaches every connected admin view.
const DashboardTopic = "dashboard"

// MachineTopic is the topic of one machine's detail view.
func MachineTopic(machineID string) string { return "machine:" + machineID }

// DefaultQueueSize is the per-subscriber queue length.
const DefaultQueueSize = 64

// Writer is the transport end of a subscriber, typically a websocket.
type Writer interface {
	Write(message []byte) error
	Close() error
}

// Publisher is the side of the broadcaster the core depends on.
type Publisher interface {
	Publish(topic, name string, data any)
}

// Subscriber is one connected viewer.
type Subscriber struct {
	w     Writer
	queue chan []byte
	done  chan struct{}
	once  sync.Once
}

// Broadcaster routes published events to the subscribers joined to a topic.
type Broadcaster struct {
	mu        sync.RWMutex
	topics    map[string]map[*Subscriber]struct{}
	joined    map[*Subscriber]map[string]struct{}
	queueSize int
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New returns an empty Broadcaster. m may be nil.
func New(m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{
		topics:    make(map[string]map[*Subscriber]struct{}),
		joined:    make(map[*Subscriber]map[string]struct{}),
		queueSize: DefaultQueueSize,
		metrics:   m,
		now:       time.Now,
	}
}

// Attach registers a writer and starts its delivery goroutine. The subscriber
// receives nothing until it joins a topic.
func (b *Broadcaster) Attach(w Writer) *Subscriber {
	s := &Subscriber{
		w:     w,
		queue: make(chan []byte, b.queueSize),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	b.joined[s] = make(map[string]struct{})
	n := len(b.joined)
	b.mu.Unlock()
	b.metrics.SetSubscribers(n)

	go b.deliver(s)
	return s
}

// Subscribe joins s to topic. Joining twice is a no-op.
func (b *Broadcaster) Subscribe(s *Subscriber, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	topics, ok := b.joined[s]
	if !ok {
		return
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*Subscriber]struct{})
	}
	b.topics[topic][s] = struct{}{}
	topics[topic] = struct{}{}
}

// Unsubscribe removes s from topic.
func (b *Broadcaster) Unsubscribe(s *Subscriber, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leave(s, topic)
}

// Detach removes s from every topic and closes its writer.
func (b *Broadcaster) Detach(s *Subscriber) {
	b.mu.Lock()
	topics, ok := b.joined[s]
	if ok {
		for topic := range topics {
			b.leave(s, topic)
		}
		delete(b.joined, s)
	}
	n := len(b.joined)
	b.mu.Unlock()

	if !ok {
		return
	}
	b.metrics.SetSubscribers(n)
	s.once.Do(func() {
		close(s.done)
		_ = s.w.Close()
	})
}

// leave must be called with b.mu held.
func (b *Broadcaster) leave(s *Subscriber, topic string) {
	if set := b.topics[topic]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(b.topics, topic)
		}
	}
	if topics := b.joined[s]; topics != nil {
		delete(topics, topic)
	}
}

// Topics returns the topics s is joined to.
func (b *Broadcaster) Topics(s *Subscriber) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.joined[s]))
	for t := range b.joined[s] {
		out = append(out, t)
	}
	return out
}

// Count returns the number of attached subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.joined)
}

// Publish sends an event to every subscriber of topic. It never blocks.
func (b *Broadcaster) Publish(topic, name string, data any) {
	msg, err := json.Marshal(model.Event{Name: name, Topic: topic, Data: data, Timestamp: b.now().UTC()})
	if err != nil {
		slog.Error("encoding event", "event", name, "topic", topic, "error", err)
		return
	}

	b.mu.RLock()
	set := b.topics[topic]
	subs := make([]*Subscriber, 0, len(set))
	for s := range set {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	var full []*Subscriber
	for _, s := range subs {
		select {
		case s.queue <- msg:
		case <-s.done:
		default:
			full = append(full, s)
		}
	}
	for _, s := range full {
		slog.Warn("dropping slow subscriber", "topic", topic)
		b.metrics.IncDroppedSubscriber()
		b.Detach(s)
	}
}

func (b *Broadcaster) deliver(s *Subscriber) {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.queue:
			if err := s.w.Write(msg); err != nil {
				slog.Debug("subscriber write failed", "error", err)
				b.metrics.IncDroppedSubscriber()
				b.Detach(s)
				return
			}
		}
	}
}
