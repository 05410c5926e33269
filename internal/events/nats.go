package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// HeaderEventType carries the topic on every published message so consumers
// can route without decoding the body.
const HeaderEventType = "Drivehub-Event"

const subscriptionBuffer = 64

// NATSPublisher publishes events as JSON on the subject named by their topic.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to url. The connection retries forever so that a
// NATS restart does not take the portal's event stream down with it.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("drivehub-portal"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", topic, err)
	}
	msg := nats.NewMsg(topic)
	msg.Header.Set(HeaderEventType, topic)
	msg.Data = data
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Close flushes pending messages, waiting up to two seconds, and closes the
// connection.
func (p *NATSPublisher) Close() error {
	err := p.conn.FlushTimeout(2 * time.Second)
	p.conn.Close()
	if err != nil {
		return fmt.Errorf("flushing events: %w", err)
	}
	return nil
}

// NATSSubscriber receives events from NATS subjects.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects with unlimited reconnects. opts are applied after
// the defaults, so callers can add disconnect and reconnect handlers.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	all := append([]nats.Option{
		nats.Name("drivehub-watch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}, opts...)
	nc, err := nats.Connect(url, all...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Subscribe delivers raw payloads published on topic, which may use NATS
// wildcards such as TopicAll. The subscription is registered with the server
// before Subscribe returns. The cancel function is idempotent; once it
// returns the channel is closed and empty.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	b := &bridge{ch: make(chan []byte, subscriptionBuffer)}
	sub, err := s.conn.Subscribe(topic, b.deliver)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, nil, fmt.Errorf("registering subscription to %s: %w", topic, err)
	}
	return b.ch, func() { b.stop(sub) }, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}

// bridge hands NATS callbacks to a channel. A full channel drops the
// message; the NATS read loop never waits on a slow reader.
type bridge struct {
	mu      sync.Mutex
	ch      chan []byte
	stopped bool
}

func (b *bridge) deliver(msg *nats.Msg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	select {
	case b.ch <- msg.Data:
	default:
	}
}

func (b *bridge) stop(sub *nats.Subscription) {
	_ = sub.Unsubscribe()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	for len(b.ch) > 0 {
		<-b.ch
	}
	close(b.ch)
}
