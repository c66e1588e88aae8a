package bus

import (
	"context"

	"github.com/hms-homelab/hms-detection/internal/logging"
)

// DualClient fans a single Publish out to a primary transport and a
// secondary Publisher, while delegating Subscribe to the primary only —
// AMQPClient implements Publisher but not Subscriber, so inbound
// motion-start/stop dispatch always stays on the primary (MQTT) side.
type DualClient struct {
	primary   Client
	secondary Publisher
}

// NewDualClient wraps primary with a secondary publish-only transport.
func NewDualClient(primary Client, secondary Publisher) *DualClient {
	return &DualClient{primary: primary, secondary: secondary}
}

func (d *DualClient) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	err := d.primary.Publish(ctx, topic, payload, retain)
	if serr := d.secondary.Publish(ctx, topic, payload, retain); serr != nil {
		if logging.Log != nil {
			logging.Log.Warnw("secondary bus publish failed", "topic", topic, "error", serr)
		}
	}
	return err
}

func (d *DualClient) Subscribe(topics []string, handler Handler) error {
	return d.primary.Subscribe(topics, handler)
}

func (d *DualClient) Close() error {
	err := d.primary.Close()
	if serr := d.secondary.Close(); serr != nil && logging.Log != nil {
		logging.Log.Warnw("secondary bus close failed", "error", serr)
	}
	return err
}
