package sse

import (
	"sync"
)

// Hub fans generation results out to SSE subscribers by topic. A topic is a
// run id, or "all" for every run. The subscriber owns its channel, the hub
// only sends; slow subscribers drop messages instead of blocking publishers.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[chan []byte]bool
}

// TopicAll receives every published message regardless of run.
const TopicAll = "all"

func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[chan []byte]bool),
	}
}

// Subscribe register ch for topic. The caller should pass a buffered
// channel and must Unsubscribe when done; the hub never closes ch.
func (h *Hub) Subscribe(ch chan []byte, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[chan []byte]bool)
		h.topics[topic] = subs
	}
	subs[ch] = true
}

// Unsubscribe drop ch from topic.
func (h *Hub) Unsubscribe(ch chan []byte, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Publish send msg to every subscriber of topic and of TopicAll.
func (h *Hub) Publish(topic string, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range []string{topic, TopicAll} {
		if t == "" {
			continue
		}
		for ch := range h.topics[t] {
			select {
			case ch <- msg:
			default:
				// drop if client not reading
			}
		}
	}
}

// SubscriberCount subscribers currently registered for topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}
