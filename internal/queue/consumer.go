package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// HandlerFunc processes one message body. A returned error rejects the
// message without requeueing it.
type HandlerFunc func(ctx context.Context, body []byte) error

// Consumer reads every registered queue over one connection and dispatches
// messages to their handlers. Run reconnects with exponential backoff until
// its context is cancelled.
type Consumer struct {
    url      string
    log      *zap.Logger
    handlers map[string]HandlerFunc
}

// NewConsumer returns a Consumer for the broker at url.
func NewConsumer(url string, log *zap.Logger) *Consumer {
    if log == nil {
        log = zap.NewNop()
    }
    return &Consumer{url: url, log: log, handlers: map[string]HandlerFunc{}}
}

// Handle registers h for queue.
func (c *Consumer) Handle(queue string, h HandlerFunc) {
    c.handlers[queue] = h
}

// Run blocks until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("consumer: loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn("consumer: set QoS failed", zap.Error(err))
    }

    var wg sync.WaitGroup
    done := make(chan struct{})
    var once sync.Once
    stop := func() { once.Do(func() { close(done) }) }

    for queue, h := range c.handlers {
        if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", queue, err)
        }
        msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", queue, err)
        }
        wg.Add(1)
        go func(queue string, h HandlerFunc, msgs <-chan amqp.Delivery) {
            defer wg.Done()
            defer stop()
            for d := range msgs {
                c.dispatch(ctx, queue, h, d)
            }
        }(queue, h, msgs)
    }

    select {
    case <-ctx.Done():
    case <-done:
    }
    _ = ch.Close()
    wg.Wait()
    return errors.New("deliveries channel closed")
}

// acker is the part of amqp.Delivery that dispatch needs.
type acker interface {
    Ack(multiple bool) error
    Nack(multiple, requeue bool) error
}

func (c *Consumer) dispatch(ctx context.Context, queue string, h HandlerFunc, d amqp.Delivery) {
    c.process(ctx, queue, h, d.Body, d)
}

func (c *Consumer) process(ctx context.Context, queue string, h HandlerFunc, body []byte, a acker) {
    if err := h(ctx, body); err != nil {
        c.log.Error("consumer: handle message failed", zap.String("queue", queue), zap.Error(err))
        _ = a.Nack(false, false) // reject, do not requeue to avoid tight loops
        return
    }
    _ = a.Ack(false)
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

// AllocationLogHandler appends one line per allocation event to path.
func AllocationLogHandler(path string) HandlerFunc {
    var mu sync.Mutex
    return func(_ context.Context, body []byte) error {
        var ev AllocationEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        if ev.Event == "" || ev.AllocationID == 0 {
            return errors.New("allocation event without event name or id")
        }
        mu.Lock()
        defer mu.Unlock()
        if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
            return fmt.Errorf("mkdir logs: %w", err)
        }
        f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
        if err != nil {
            return fmt.Errorf("open log file: %w", err)
        }
        defer f.Close()

        end := ev.EndDate
        if end == "" {
            end = "open"
        }
        line := fmt.Sprintf("[%s] %s | allocation_id=%d | user_id=%d | room=%q (id=%d) | %s..%s | status=%s | rent=%s | by=%d\n",
            ev.OccurredAt.UTC().Format(time.RFC3339), ev.Event, ev.AllocationID, ev.UserID, ev.RoomNumber, ev.RoomID,
            ev.StartDate, end, ev.Status, ev.MonthlyRent, ev.ActorID)
        if _, err := f.WriteString(line); err != nil {
            return fmt.Errorf("write log: %w", err)
        }
        return nil
    }
}

// Sender delivers a notification to the outside world.
type Sender interface {
    Send(ctx context.Context, ev NotificationEvent) error
}

// NotificationStore records the delivery outcome.
type NotificationStore interface {
    MarkSent(ctx context.Context, id uint64, at time.Time) error
    MarkFailed(ctx context.Context, id uint64) error
}

// NotificationHandler delivers notification events through s and records
// the outcome in store. A nil sender leaves notifications pending.
func NotificationHandler(s Sender, store NotificationStore, log *zap.Logger) HandlerFunc {
    return func(ctx context.Context, body []byte) error {
        var ev NotificationEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        if s == nil {
            return nil
        }
        if err := s.Send(ctx, ev); err != nil {
            log.Warn("notification delivery failed",
                zap.Uint64("notification_id", ev.NotificationID), zap.Error(err))
            return store.MarkFailed(ctx, ev.NotificationID)
        }
        return store.MarkSent(ctx, ev.NotificationID, time.Now().UTC())
    }
}
