package events

import (
	"github.com/sarabank-saga/internal/config"
)

// ErrUnmappedEventType is a configuration error: an event type with no destination topic
type ErrUnmappedEventType struct {
	Type Type
}

func (e ErrUnmappedEventType) Error() string {
	return "no topic configured for event type: " + string(e.Type)
}

// TopicMap routes event types to topics. It is built once from configuration
// and handed to whoever needs it.
type TopicMap struct {
	topics map[Type]string
}

// NewTopicMap builds the routing table from the injected topics configuration
func NewTopicMap(cfg *config.TopicsConfig) TopicMap {
	topics := make(map[Type]string)
	for eventType, topic := range cfg.ByEventType() {
		if topic != "" {
			topics[Type(eventType)] = topic
		}
	}
	return TopicMap{topics: topics}
}

// Resolve returns the topic for t or ErrUnmappedEventType
func (m TopicMap) Resolve(t Type) (string, error) {
	topic, ok := m.topics[t]
	if !ok {
		return "", ErrUnmappedEventType{Type: t}
	}
	return topic, nil
}

// Topics returns every configured topic, one per event type
func (m TopicMap) Topics() map[Type]string {
	out := make(map[Type]string, len(m.topics))
	for t, topic := range m.topics {
		out[t] = topic
	}
	return out
}
