// Package service provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures without
// interrupting the main request flow.
package service

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/case-approval-tracker/internal/queue"
)

// DefaultDialTimeout bounds connecting to the broker and the AMQP handshake.
const DefaultDialTimeout = 2 * time.Second

// Publisher sends test lifecycle events to a durable queue.  Each publish
// opens its own connection, so a broker outage never leaves a stale handle
// behind.
type Publisher struct {
    URL         string
    Queue       string
    DialTimeout time.Duration
}

func NewPublisher(url, queueName string) *Publisher {
    return &Publisher{URL: url, Queue: queueName, DialTimeout: DefaultDialTimeout}
}

// dial connects within DialTimeout or the context deadline, whichever is
// sooner.
func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, error) {
    timeout := p.DialTimeout
    if timeout <= 0 {
        timeout = DefaultDialTimeout
    }
    if dl, ok := ctx.Deadline(); ok {
        if left := time.Until(dl); left < timeout {
            timeout = left
        }
    }
    if timeout <= 0 {
        return nil, context.DeadlineExceeded
    }
    return amqp.DialConfig(p.URL, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    })
}

// PublishTestEvent publishes ev as a persistent JSON message.  The function
// never panics; any error is logged and returned so the caller can choose to
// ignore it.
func (p *Publisher) PublishTestEvent(ctx context.Context, ev queue.TestEvent) error {
    conn, err := p.dial(ctx)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        p.Queue, // name
        true,    // durable
        false,   // autoDelete
        false,   // exclusive
        false,   // noWait
        nil,     // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Type:         string(ev.Type),
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",      // default exchange
        p.Queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }
    return nil
}
