// Package feedsync tells running feed loaders when something they depend on
// has changed, within one process and across processes.
package feedsync

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	StorageChannel = "storage"
	RenderChannel  = "render"

	TypeStorage = "storage"
	TypeRefresh = "refresh"
	TypeRender  = "render"
)

const clientBuffer = 16

// Message is a change signal. Receivers must not rely on anything but Type
// and Key.
type Message struct {
	Type    string `json:"type"`
	Key     string `json:"key,omitempty"`
	Version uint64 `json:"version,omitempty"`
	// Origin is the instance a relayed message came from; empty for local ones.
	Origin string `json:"origin,omitempty"`
}

// Hub is a registry of named channels. Delivery is non-blocking and the order
// across subscribers is unspecified.
type Hub struct {
	sync.RWMutex
	channels map[string]map[string]chan Message
	closed   bool
}

func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[string]chan Message),
	}
}

// Subscribe registers a new receiver on channel. The returned key is needed
// to unsubscribe. After Shutdown the returned channel is already closed.
func (h *Hub) Subscribe(channel string) (string, <-chan Message) {
	key := uuid.New().String()
	client := make(chan Message, clientBuffer)

	h.Lock()
	defer h.Unlock()
	if h.closed {
		close(client)
		return key, client
	}
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[string]chan Message)
	}
	h.channels[channel][key] = client

	log.WithFields(log.Fields{
		"channel": channel,
		"key":     key,
		"count":   len(h.channels[channel]),
	}).Debug("Added subscriber")
	return key, client
}

func (h *Hub) Unsubscribe(channel, key string) {
	h.Lock()
	defer h.Unlock()

	if client, ok := h.channels[channel][key]; ok {
		close(client)
		delete(h.channels[channel], key)
	}
	if len(h.channels[channel]) == 0 {
		delete(h.channels, channel)
	}
}

func (h *Hub) Publish(channel string, msg Message) {
	h.RLock()
	defer h.RUnlock()

	for key, client := range h.channels[channel] {
		select {
		case client <- msg: // Non-blocking send
		default:
			droppedMessages.WithLabelValues(channel).Inc()
			log.WithFields(log.Fields{
				"channel": channel,
				"key":     key,
			}).Warn("Subscriber channel full, dropping message")
		}
	}
	publishedMessages.WithLabelValues(channel).Inc()
}

// Subscribers returns the number of receivers on channel.
func (h *Hub) Subscribers(channel string) int {
	h.RLock()
	defer h.RUnlock()
	return len(h.channels[channel])
}

// Notify publishes a storage change for key.
func (h *Hub) Notify(key string) {
	h.Publish(StorageChannel, Message{Type: TypeStorage, Key: key})
}

// Shutdown closes every subscriber channel.
func (h *Hub) Shutdown() {
	log.Info("Shutting down sync hub")
	h.Lock()
	defer h.Unlock()

	for _, clients := range h.channels {
		for _, client := range clients {
			close(client)
		}
	}
	h.channels = make(map[string]map[string]chan Message)
	h.closed = true
}
