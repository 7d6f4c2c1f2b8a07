package mqtt

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/logger"
	"tezui.dashboard/internal/core/ports"
)

const publishTimeout = 5 * time.Second

// Event is the payload published for every store change.
type Event struct {
	Type    string        `json:"type"`
	Payload domain.Change `json:"payload"`
}

// Publisher mirrors store changes to an MQTT broker under
// {prefix}/{entity type}/{id}.
type Publisher struct {
	client mqtt.Client
	pubsub ports.ChangePubSub
	prefix string
}

// NewPublisher connects to the broker.
func NewPublisher(pubsub ports.ChangePubSub, brokerURL string) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("tezui-server-%d", time.Now().UnixNano()))
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", brokerURL, token.Error())
	}

	logger.Info("Connected to MQTT broker", "broker", brokerURL)
	return NewWithClient(client, pubsub), nil
}

func NewWithClient(client mqtt.Client, pubsub ports.ChangePubSub) *Publisher {
	return &Publisher{client: client, pubsub: pubsub, prefix: "tezui"}
}

// Topic is the topic a change is published on.
func (p *Publisher) Topic(c domain.Change) string {
	return fmt.Sprintf("%s/%s/%s", p.prefix, c.Type, c.ID)
}

// Start consumes changes until ctx is done.
func (p *Publisher) Start(ctx context.Context) {
	go p.consumeChanges(ctx)
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

func (p *Publisher) consumeChanges(ctx context.Context) {
	ch, err := p.pubsub.SubscribeChanges(ctx)
	if err != nil {
		logger.Error("Failed to subscribe to changes", "error", err)
		return
	}

	logger.Info("MQTT change consumer started")

	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				return
			}
			if err := p.publish(c); err != nil {
				logger.Warn("MQTT publish failed", "type", c.Type, "id", c.ID, "error", err)
			}
		}
	}
}

func (p *Publisher) publish(c domain.Change) error {
	data, err := json.Marshal(Event{Type: string(c.Op), Payload: c})
	if err != nil {
		return err
	}
	token := p.client.Publish(p.Topic(c), 0, false, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", p.Topic(c))
	}
	return token.Error()
}
