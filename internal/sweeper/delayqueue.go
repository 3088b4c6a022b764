package sweeper

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

const (
	delayExchange = "sweeper.delay"
	readyQueue    = "sweeper.recheck"
	waitQueuePrefix = "sweeper.delay.wait."
)

// DelayQueue is the Provider Polling Sweeper's alternate, durable recheck
// broker (GoldenLandForever-V2V's pkg/queue/I2V_delayed.go): Redis holds the
// fast next-check cache this process reads every tick, but that cache is
// disposable; DelayQueue additionally schedules a recheck notification on
// RabbitMQ, using the classic per-message-TTL-plus-dead-letter-exchange
// trick to get delayed delivery without a broker plugin, so a scheduled
// recheck survives a sweeper restart even if Redis is flushed in between.
type DelayQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewDelayQueue(uri string) (*DelayQueue, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	dq := &DelayQueue{conn: conn, ch: ch}
	if err := dq.setup(); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return dq, nil
}

func (dq *DelayQueue) setup() error {
	if err := dq.ch.ExchangeDeclare(delayExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare delay exchange: %w", err)
	}
	if _, err := dq.ch.QueueDeclare(readyQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare ready queue: %w", err)
	}
	return dq.ch.QueueBind(readyQueue, readyQueue, delayExchange, false, nil)
}

// ScheduleRecheck publishes transitionID onto a queue that expires after
// wait and dead-letters onto the ready queue, where Drain picks it up.
func (dq *DelayQueue) ScheduleRecheck(transitionID string, wait time.Duration) error {
	waitQueue := waitQueuePrefix + transitionID
	_, err := dq.ch.QueueDeclare(waitQueue, true, false, true, false, amqp.Table{
		"x-dead-letter-exchange":    delayExchange,
		"x-dead-letter-routing-key": readyQueue,
		"x-message-ttl":             wait.Milliseconds(),
		"x-expires":                 wait.Milliseconds() + 60000,
	})
	if err != nil {
		return fmt.Errorf("declare delay queue for transition %s: %w", transitionID, err)
	}
	return dq.ch.Publish("", waitQueue, false, false, amqp.Publishing{
		ContentType: "text/plain",
		Body:        []byte(transitionID),
	})
}

// Drain returns every transition id currently sitting in the ready queue,
// without blocking: sweepOnce calls this once per tick alongside its own
// Redis-driven due() check, so a transition whose Redis key was lost still
// gets woken once its RabbitMQ TTL fires.
func (dq *DelayQueue) Drain() ([]string, error) {
	var ids []string
	for {
		msg, ok, err := dq.ch.Get(readyQueue, true)
		if err != nil {
			return ids, fmt.Errorf("get from ready queue: %w", err)
		}
		if !ok {
			return ids, nil
		}
		ids = append(ids, string(msg.Body))
	}
}

func (dq *DelayQueue) Close() error {
	_ = dq.ch.Close()
	return dq.conn.Close()
}
