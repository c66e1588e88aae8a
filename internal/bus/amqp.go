package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/hms-homelab/hms-detection/internal/logging"
)

// AMQPClient is the alternate transport to MQTTClient. It implements
// Publisher only — the event bus's inbound motion-start/stop
// subscription stays MQTT-only, so Subscribe is not part of this
// transport's contract.
type AMQPClient struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	url      string
}

// NewAMQPClient dials amqpURL with a bounded number of retries (10
// attempts, 5s apart).
func NewAMQPClient(amqpURL, exchange string) (*AMQPClient, error) {
	c := &AMQPClient{exchange: exchange, url: amqpURL}

	const maxRetries = 10
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = c.connect(); err == nil {
			if logging.Log != nil {
				logging.Log.Infow("amqp connected", "exchange", exchange)
			}
			return c, nil
		}
		if logging.Log != nil {
			logging.Log.Warnw("amqp connect attempt failed", "attempt", i+1, "max", maxRetries, "error", err)
		}
		time.Sleep(5 * time.Second)
	}
	return nil, fmt.Errorf("connect to amqp broker after %d attempts: %w", maxRetries, err)
}

func (c *AMQPClient) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	c.conn = conn
	c.channel = ch
	return nil
}

// Publish sends to the declared topic exchange using topic as the
// routing key, ignoring retain (AMQP topic exchanges have no retained-
// message concept).
func (c *AMQPClient) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	err := c.channel.Publish(c.exchange, topic, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
		Timestamp:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (c *AMQPClient) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
