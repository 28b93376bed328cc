// Package service holds the outbound side of the message broker: the
// publisher handlers use to emit domain events.
package service

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// ErrPublisherDisabled is returned by Publish when no broker URL is set.
var ErrPublisherDisabled = errors.New("publisher disabled")

// Publisher publishes JSON messages to durable queues on the default
// exchange. It keeps one connection and channel open and redials when the
// broker drops them. Messages are persistent.
type Publisher struct {
    url string
    log *zap.Logger

    mu       sync.Mutex
    conn     *amqp.Connection
    ch       *amqp.Channel
    declared map[string]bool
}

// NewPublisher returns a Publisher for the broker at url. An empty url
// yields a publisher whose Publish returns ErrPublisherDisabled.
func NewPublisher(url string, log *zap.Logger) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{url: url, log: log, declared: map[string]bool{}}
}

// Enabled reports whether a broker is configured.
func (p *Publisher) Enabled() bool { return p != nil && p.url != "" }

// Publish marshals v and sends it to queue.
func (p *Publisher) Publish(ctx context.Context, queue string, v any) error {
    if !p.Enabled() {
        return ErrPublisherDisabled
    }
    body, err := json.Marshal(v)
    if err != nil {
        return fmt.Errorf("marshal %s message: %w", queue, err)
    }

    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel()
    if err != nil {
        p.log.Warn("rabbitmq: connect failed", zap.String("queue", queue), zap.Error(err))
        return err
    }
    if !p.declared[queue] {
        // Durable so messages survive broker restarts.
        if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
            p.reset()
            return fmt.Errorf("queue declare %s: %w", queue, err)
        }
        p.declared[queue] = true
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    uuid.NewString(),
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
        p.reset()
        p.log.Warn("rabbitmq: publish failed", zap.String("queue", queue), zap.Error(err))
        return err
    }
    return nil
}

// channel returns the open channel, dialing first if needed. p.mu is held.
func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, err
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

// reset drops the current connection. p.mu is held.
func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.conn, p.ch = nil, nil
    p.declared = map[string]bool{}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    if p == nil {
        return nil
    }
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}
