package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/hms-homelab/hms-detection/internal/logging"
)

// subscription is one registered pattern → handler pair, dispatched in
// registration order with first-match-wins, matching MqttClient's
// subscriptions map.
type subscription struct {
	pattern string
	handler Handler
}

// MQTTClient wraps paho.mqtt.golang with auto-reconnect and a
// fire-and-forget publish, dispatching subscriptions in registration
// order with first-match-wins.
type MQTTClient struct {
	client mqtt.Client
	qos    byte

	mu   sync.Mutex
	subs []subscription
}

// NewMQTTClient connects to broker with auto-reconnect enabled. Connect
// failures are returned, not swallowed, since a broker that never comes
// up at startup is a fatal configuration problem; runtime disconnects
// after a successful initial connect are handled by paho's
// auto-reconnect, not treated as fatal.
func NewMQTTClient(broker, clientID string, qos byte) (*MQTTClient, error) {
	c := &MQTTClient{qos: qos}

	if clientID == "" {
		clientID = "hms-detection-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetDefaultPublishHandler(c.dispatch)
	// A clean-session reconnect drops the broker-side subscriptions, so
	// every registered pattern is subscribed again on each connect.
	opts.SetOnConnectHandler(func(cl mqtt.Client) {
		c.mu.Lock()
		filters := make(map[string]byte, len(c.subs))
		for _, s := range c.subs {
			filters[s.pattern] = c.qos
		}
		c.mu.Unlock()
		if len(filters) > 0 {
			cl.SubscribeMultiple(filters, nil)
		}
	})

	c.client = mqtt.NewClient(opts)
	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	if logging.Log != nil {
		logging.Log.Infow("mqtt connected", "broker", broker)
	}
	return c, nil
}

// dispatch runs on paho's internal callback goroutine: it
// must return quickly, so handlers only parse JSON and hand off.
func (c *MQTTClient) dispatch(_ mqtt.Client, msg mqtt.Message) {
	c.mu.Lock()
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	topic := msg.Topic()
	for _, s := range subs {
		if TopicMatches(s.pattern, topic) {
			s.handler(topic, msg.Payload())
			return
		}
	}
}

// Publish is fire-and-forget: it waits for the token but does not block
// indefinitely, matching the "safe to call from any thread" contract of
// MqttClient::publish.
func (c *MQTTClient) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	token := c.client.Publish(topic, c.qos, retain, payload)
	select {
	case <-tokenDone(token):
	case <-ctx.Done():
		return ctx.Err()
	}
	return token.Error()
}

// Subscribe registers handler for every pattern in topics and issues a
// single batch subscribe call to the broker, matching
// MqttClient::subscribe.
func (c *MQTTClient) Subscribe(topics []string, handler Handler) error {
	filters := make(map[string]byte, len(topics))
	for _, t := range topics {
		filters[t] = c.qos
	}

	token := c.client.SubscribeMultiple(filters, nil)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe: %w", token.Error())
	}

	c.mu.Lock()
	for _, t := range topics {
		c.subs = append(c.subs, subscription{pattern: t, handler: handler})
	}
	c.mu.Unlock()
	return nil
}

func (c *MQTTClient) Close() error {
	c.client.Disconnect(250)
	return nil
}

// tokenDone adapts a paho Token into a channel so Publish can race it
// against ctx.Done().
func tokenDone(token mqtt.Token) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		token.WaitTimeout(10 * time.Second)
		close(ch)
	}()
	return ch
}
