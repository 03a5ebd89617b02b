// Package mqtt publishes samples to an MQTT broker as JSON.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/output"
	"github.com/itohio/gotherm/pkg/sample"
)

const (
	DefaultClientID = "gotherm"
	DefaultTopic    = "gotherm/samples"

	publishTimeout = 2 * time.Second
	disconnectMs   = 250
)

// Payload is the JSON document published for every sample.
// Undefined temperatures are encoded as null.
type Payload struct {
	T  float64      `json:"t"`
	T1 sample.Value `json:"t1"`
	T2 sample.Value `json:"t2"`
}

// NewPayload builds the document for s.
func NewPayload(s sample.Sample) Payload {
	return Payload{T: s.Seconds(), T1: s.T1, T2: s.T2}
}

// Output publishes every sample to a single topic.
type Output struct {
	client mqtt.Client
	topic  string
}

var _ output.Output = (*Output)(nil)

// New connects to the broker described by cfg.
func New(cfg config.MQTTConfig) (*Output, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	return newOutput(client, cfg.Topic), nil
}

func newOutput(client mqtt.Client, topic string) *Output {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Output{client: client, topic: topic}
}

// Topic returns the topic samples are published to.
func (o *Output) Topic() string {
	return o.topic
}

// Reset does nothing; every message stands on its own.
func (o *Output) Reset() error {
	return nil
}

// Publish sends s to the broker and waits for the delivery to complete.
func (o *Output) Publish(s sample.Sample) error {
	b, err := json.Marshal(NewPayload(s))
	if err != nil {
		return err
	}

	token := o.client.Publish(o.topic, 0, false, b)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish to %s: timeout", o.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", o.topic, err)
	}
	return nil
}

func (o *Output) Close() error {
	if o.client != nil {
		o.client.Disconnect(disconnectMs)
	}
	return nil
}
