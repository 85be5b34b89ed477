package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notifier fans change notifications out to subscribers.
type Notifier interface {
	Publish(ctx context.Context, change Change) error
	Subscribe(collection string, handler ChangeHandler) (cancel func())
}

type localNotifier struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]ChangeHandler
}

// NewLocalNotifier delivers notifications synchronously within the process.
func NewLocalNotifier() Notifier {
	return &localNotifier{handlers: make(map[string]map[int]ChangeHandler)}
}

func (n *localNotifier) Publish(_ context.Context, change Change) error {
	n.mu.RLock()
	handlers := make([]ChangeHandler, 0, len(n.handlers[change.Collection]))
	for _, h := range n.handlers[change.Collection] {
		handlers = append(handlers, h)
	}
	n.mu.RUnlock()

	for _, h := range handlers {
		h(change)
	}
	return nil
}

func (n *localNotifier) Subscribe(collection string, handler ChangeHandler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	if n.handlers[collection] == nil {
		n.handlers[collection] = make(map[int]ChangeHandler)
	}
	n.handlers[collection][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.handlers[collection], id)
		})
	}
}

// RedisNotifier carries notifications over Redis pub/sub so every replica
// sees writes committed by the others.
type RedisNotifier struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
}

// NewRedisNotifier builds a notifier publishing on "<prefix><collection>".
func NewRedisNotifier(client *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, logger: logger, prefix: "store:"}
}

func (n *RedisNotifier) channel(collection string) string {
	return n.prefix + collection
}

// Publish sends the change to the collection channel.
func (n *RedisNotifier) Publish(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel(change.Collection), payload).Err()
}

// Subscribe listens on the collection channel until cancel is called.
func (n *RedisNotifier) Subscribe(collection string, handler ChangeHandler) func() {
	pubsub := n.client.Subscribe(context.Background(), n.channel(collection))
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				n.logger.Warn("discarding malformed change notification",
					zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			handler(change)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = pubsub.Close()
			<-done
		})
	}
}
