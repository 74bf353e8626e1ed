// Package signal implements the publish/subscribe mechanism that decouples
// state mutation from side effects. Subscribers run synchronously in the
// emitter's goroutine, after the emitter has released its lock section; a
// panicking subscriber is logged and isolated so it can never corrupt
// engine state.
package signal

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Topics emitted by the ranking engine.
const (
	RankingUpdated = "ranking_updated"
	GameRegistered = "game_registered"
)

// Hub routes emitted values to connected subscribers. One hub is built in
// main and passed to producers and consumers; there is no process-wide
// registry.
type Hub struct {
	mu   sync.RWMutex
	subs map[string][]func(any)
	log  *logrus.Logger
}

// NewHub creates a hub that reports subscriber panics to the given logger.
func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{subs: make(map[string][]func(any)), log: log}
}

// Connect registers fn to be invoked for every value emitted on topic.
func (h *Hub) Connect(topic string, fn func(any)) {
	h.mu.Lock()
	h.subs[topic] = append(h.subs[topic], fn)
	h.mu.Unlock()
}

// Emit delivers v to every subscriber of topic, in connection order,
// synchronously in the caller's goroutine.
func (h *Hub) Emit(topic string, v any) {
	h.mu.RLock()
	subs := h.subs[topic]
	h.mu.RUnlock()

	for _, fn := range subs {
		h.invoke(topic, fn, v)
	}
}

func (h *Hub) invoke(topic string, fn func(any), v any) {
	defer func() {
		if r := recover(); r != nil {
			h.log.WithFields(logrus.Fields{
				"topic": topic,
				"panic": r,
			}).Error("signal subscriber panicked")
		}
	}()
	fn(v)
}
