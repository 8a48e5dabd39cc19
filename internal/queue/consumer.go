package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Subscribe registers handler for queue and starts consuming it.  The
// registration survives reconnects.  When the client is not connected yet
// Subscribe connects first; a failed dial is returned but the subscription
// stays registered and is started by the background reconnect.
func (c *Client) Subscribe(ctx context.Context, queue string, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := subscription{queue: queue, handler: handler}

	c.connMu.Lock()
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		c.connMu.Unlock()
		return ErrClosed
	}
	c.subs = append(c.subs, s)
	conn := c.conn
	c.mu.Unlock()
	if conn != nil && !conn.IsClosed() {
		err := c.consume(conn, s)
		c.connMu.Unlock()
		return err
	}
	c.connMu.Unlock()

	// connect replays every registered subscription, this one included.
	return c.Start(ctx)
}

// consume opens a dedicated channel for s with Prefetch unacknowledged
// deliveries and starts Prefetch workers draining it.  A supervisor
// resubscribes when the channel closes or the broker cancels the consumer
// while conn stays up.
func (c *Client) consume(conn connection, s subscription) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set qos: %w", err)
	}
	if err := c.declare(ch, s.queue); err != nil {
		_ = ch.Close()
		return err
	}
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	cancelled := ch.NotifyCancel(make(chan string, 1))
	msgs, err := ch.Consume(s.queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("queue consume %s: %w", s.queue, err)
	}

	var drained sync.WaitGroup
	for i := 0; i < c.cfg.Prefetch; i++ {
		drained.Add(1)
		c.workers.Add(1)
		go func() {
			defer c.workers.Done()
			defer drained.Done()
			for d := range msgs {
				c.handleDelivery(c.ctx, s, d)
			}
		}()
	}

	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		select {
		case tag, ok := <-cancelled:
			if ok {
				c.log.WithFields(logrus.Fields{"queue": s.queue, "consumer": tag}).Warn("consumer cancelled by broker")
			}
			_ = ch.Close()
		case amqpErr := <-closed:
			if amqpErr != nil {
				c.log.WithError(amqpErr).WithField("queue", s.queue).Warn("consumer channel closed")
			}
		}
		drained.Wait()
		c.resubscribe(conn, s)
	}()

	c.log.WithFields(logrus.Fields{
		"queue":    s.queue,
		"prefetch": c.cfg.Prefetch,
	}).Info("consuming queue")
	return nil
}

// resubscribe restarts s on conn after its channel went away.  Nothing
// happens once the client is stopped or conn was replaced, because connect
// replays every subscription on a new connection.  When the channel cannot
// be reopened conn is closed to force a full reconnect.
func (c *Client) resubscribe(conn connection, s subscription) {
	select {
	case <-c.ctx.Done():
		return
	case <-time.After(c.cfg.BackoffBase):
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.mu.Lock()
	live := !c.stopped && c.conn == conn && !conn.IsClosed()
	c.mu.Unlock()
	if !live {
		return
	}
	if err := c.consume(conn, s); err != nil {
		c.log.WithError(err).WithField("queue", s.queue).Error("resubscribe failed, reconnecting")
		_ = conn.Close()
	}
}

// handleDelivery runs the handler for one delivery and settles it: ack on
// success, ack plus dead-letter on permanent failure, requeue otherwise.
func (c *Client) handleDelivery(ctx context.Context, s subscription, d amqp.Delivery) {
	log := c.log.WithFields(logrus.Fields{
		"queue":        s.queue,
		"delivery_tag": d.DeliveryTag,
		"redelivered":  d.Redelivered,
	})
	start := time.Now()

	var err error
	if !json.Valid(d.Body) {
		err = Permanent(ErrMalformedMessage)
	} else {
		err = runHandler(ctx, s.handler, d.Body)
	}

	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			log.WithError(ackErr).Warn("ack failed")
		}
		log.WithField("took", time.Since(start).String()).Debug("message handled")

	case IsPermanent(err):
		log.WithError(err).Error("message failed permanently")
		if c.cfg.DeadLetterSuffix != "" {
			dead := s.queue + c.cfg.DeadLetterSuffix
			dl := amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now().UTC(),
				Headers:      amqp.Table{"x-error": err.Error(), "x-source-queue": s.queue},
				Body:         d.Body,
			}
			if dlErr := c.publish(ctx, dead, dl); dlErr != nil {
				// Keep the message rather than lose it.
				log.WithError(dlErr).Error("dead-letter publish failed, requeueing")
				_ = d.Nack(false, true)
				return
			}
		}
		if ackErr := d.Ack(false); ackErr != nil {
			log.WithError(ackErr).Warn("ack failed")
		}

	default:
		log.WithError(err).Warn("message failed, requeueing")
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.WithError(nackErr).Warn("nack failed")
		}
	}
}

// runHandler converts a handler panic into a retriable error.
func runHandler(ctx context.Context, h Handler, body []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, body)
}
