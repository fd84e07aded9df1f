// Package messaging provides a NATS client wrapper for the moderation
// service's interface to the chat transport. The transport submits prechecks
// and comment/content checks and receives per-session decision events; the
// host/admin surface submits unban requests on its own subject.
package messaging

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects used between the chat transport and the moderation service.
const (
	SubjectCommentPrecheck = "moderation.comment.precheck" // request/reply
	SubjectCommentCheck    = "moderation.comment.check"    // request/reply
	SubjectContentCheck    = "moderation.content.check"    // request/reply
	SubjectUnban           = "moderation.unban"            // request/reply
	SubjectDecision        = "moderation.decision"         // + .<session_id>, published
)

// NATSClient wraps the NATS connection with helper methods for the
// moderation subjects.
type NATSClient struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "lms-moderator",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewNATSClient connects to NATS with the given config and returns a ready
// client. It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &NATSClient{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// Subscribe registers a handler for the given subject and stores the
// subscription internally for later cleanup. Handlers receive the raw
// message so request/reply handlers can use msg.Respond.
func (c *NATSClient) Subscribe(subject string, handler func(msg *nats.Msg)) error {
	sub, err := c.conn.Subscribe(subject, handler)
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()

	return nil
}

// SubscribeCommentPrecheck registers the handler for rate limit prechecks.
func (c *NATSClient) SubscribeCommentPrecheck(handler func(msg *nats.Msg)) error {
	return c.Subscribe(SubjectCommentPrecheck, handler)
}

// SubscribeCommentCheck registers the handler for comment moderation checks.
func (c *NATSClient) SubscribeCommentCheck(handler func(msg *nats.Msg)) error {
	return c.Subscribe(SubjectCommentCheck, handler)
}

// SubscribeContentCheck registers the handler for session content checks.
func (c *NATSClient) SubscribeContentCheck(handler func(msg *nats.Msg)) error {
	return c.Subscribe(SubjectContentCheck, handler)
}

// SubscribeUnban registers the handler for unban requests.
func (c *NATSClient) SubscribeUnban(handler func(msg *nats.Msg)) error {
	return c.Subscribe(SubjectUnban, handler)
}

// PublishDecision publishes a moderation decision event for a session so
// transport instances can observe outcomes they did not request themselves.
func (c *NATSClient) PublishDecision(sessionID string, data []byte) error {
	return c.conn.Publish(SubjectDecision+"."+sessionID, data)
}

// Close drains all subscriptions and closes the connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	for subject, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("[nats] unsubscribe %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)
	c.mu.Unlock()

	c.conn.Close()
}
