// Package publish pushes diagnostic reports to an MQTT broker so downstream
// consumers can subscribe instead of polling the export directory.
package publish

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Options configures the publisher.
type Options struct {
	BrokerURL string
	ClientID  string
	Topic     string
	QoS       byte
}

// Publisher is a thin MQTT client bound to one topic.
type Publisher struct {
	raw   mqtt.Client
	topic string
	qos   byte
}

// New connects to the broker. Connection retries are handled by the client.
func New(opts Options) (*Publisher, error) {
	if opts.ClientID == "" {
		opts.ClientID = fmt.Sprintf("obdiag-%d", time.Now().UnixNano())
	}

	o := mqtt.NewClientOptions()
	o.AddBroker(opts.BrokerURL)
	o.SetClientID(opts.ClientID)
	o.SetConnectRetry(true)
	o.SetConnectRetryInterval(2 * time.Second)
	c := mqtt.NewClient(o)

	token := c.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to broker %s: %w", opts.BrokerURL, token.Error())
	}

	return &Publisher{raw: c, topic: opts.Topic, qos: opts.QoS}, nil
}

// Publish sends one payload to the configured topic.
func (p *Publisher) Publish(payload []byte) error {
	token := p.raw.Publish(p.topic, p.qos, false, payload)
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.raw.Disconnect(250)
}
