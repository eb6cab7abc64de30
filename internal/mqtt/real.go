package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/rotary-phone/internal/command"
	"github.com/sweeney/rotary-phone/internal/phone"
)

// DefaultBufferSize is the number of messages kept while disconnected.
const DefaultBufferSize = 100

// CommandSink accepts commands received on TopicCommand.
type CommandSink interface {
	Submit(c command.Command) error
}

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	ClientID string
	// Commands receives operator commands. nil disables the subscription.
	Commands CommandSink
	// BufferSize bounds the offline buffer; 0 means DefaultBufferSize.
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client   paho.Client
	commands CommandSink

	mu        sync.Mutex
	buf       *outbox
	connected bool // at least one successful connect
}

// NewRealPublisher creates a publisher and starts connecting in the
// background. It never blocks on the broker.
func NewRealPublisher(o Options) *RealPublisher {
	size := o.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	p := &RealPublisher{
		commands: o.Commands,
		buf:      newOutbox(size),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	pending, dropped := p.buf.drain()
	p.mu.Unlock()

	log.Info().Bool("reconnect", reconnect).Int("buffered", len(pending)).Int("dropped", dropped).Msg("mqtt connected")

	if p.commands != nil {
		token := c.Subscribe(TopicCommand, 1, p.onCommand)
		go func() {
			if token.WaitTimeout(5*time.Second) && token.Error() != nil {
				log.Error().Err(token.Error()).Str("topic", TopicCommand).Msg("mqtt subscribe failed")
			}
		}()
	}

	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		c.Publish(TopicSystem, 1, false, payload)
	}
}

func (p *RealPublisher) onCommand(_ paho.Client, msg paho.Message) {
	if err := dispatchCommand(p.commands, msg.Payload()); err != nil {
		log.Warn().Err(err).Str("topic", msg.Topic()).Msg("mqtt command rejected")
	}
}

// dispatchCommand parses payload and hands it to sink.
func dispatchCommand(sink CommandSink, payload []byte) error {
	c, err := command.Parse(payload)
	if err != nil {
		return err
	}
	c.Source = "mqtt"
	if err := sink.Submit(c); err != nil {
		return fmt.Errorf("submit %s: %w", c, err)
	}
	log.Info().Str("command", c.String()).Msg("mqtt command queued")
	return nil
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Publish sends a phone event to the MQTT broker.
func (p *RealPublisher) Publish(event phone.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(TopicFor(event), 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
