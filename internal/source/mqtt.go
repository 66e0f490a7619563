package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oshokin/posture-monitor/internal/config"
	"github.com/oshokin/posture-monitor/internal/domain/posture"
	"github.com/oshokin/posture-monitor/internal/logger"
)

const (
	// mqttQueueSize is the number of frames buffered between the client and the session.
	mqttQueueSize = 256
	// mqttTimeout bounds connect and subscribe round trips.
	mqttTimeout = 5 * time.Second
	// mqttQuiesce is how long Disconnect waits for in-flight work, in milliseconds.
	mqttQuiesce = 250
)

var errMQTTTimeout = errors.New("mqtt operation timed out")

// MQTT receives frames published on a broker topic.
// Messages that arrive while the queue is full are dropped.
type MQTT struct {
	client mqtt.Client
	topic  string
	qos    byte
	log    *zap.SugaredLogger

	// mu guards index, closed and sends on frames.
	mu     sync.Mutex
	index  int
	closed bool
	frames chan posture.Frame
}

// NewMQTT connects to the broker and subscribes to the configured topic.
// The subscription is renewed on every reconnect.
func NewMQTT(ctx context.Context, cfg config.MQTTConfig) (*MQTT, error) {
	s := newMQTTSource(logger.FromContext(ctx).Named("mqtt-source"), cfg.Topic, cfg.QoS)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "posture-monitor-" + uuid.NewString()[:8]
	}

	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.log.Infow("MQTT connection established", "broker", broker, "client_id", clientID)
		s.subscribe(c)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.Warnw("MQTT connection lost, waiting for reconnect", "broker", broker, "error", err)
	})

	s.client = mqtt.NewClient(opts)

	token := s.client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("connect to %s: %w", broker, errMQTTTimeout)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, err)
	}

	return s, nil
}

func newMQTTSource(log *zap.SugaredLogger, topic string, qos byte) *MQTT {
	return &MQTT{
		topic:  topic,
		qos:    qos,
		log:    log,
		frames: make(chan posture.Frame, mqttQueueSize),
	}
}

// Next implements Source. It returns io.EOF once the source is closed and drained.
func (s *MQTT) Next(ctx context.Context) (posture.Frame, error) {
	select {
	case <-ctx.Done():
		return posture.Frame{}, ctx.Err()
	case frame, ok := <-s.frames:
		if !ok {
			return posture.Frame{}, io.EOF
		}

		return frame, nil
	}
}

// Close unsubscribes, disconnects and ends the stream.
func (s *MQTT) Close() error {
	if s.client != nil && s.client.IsConnected() {
		token := s.client.Unsubscribe(s.topic)
		if !token.WaitTimeout(mqttTimeout) {
			s.log.Warnw("MQTT unsubscribe timed out", "topic", s.topic)
		}

		s.client.Disconnect(mqttQuiesce)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.frames)
	}

	return nil
}

func (s *MQTT) subscribe(c mqtt.Client) {
	token := c.Subscribe(s.topic, s.qos, s.handle)
	if !token.WaitTimeout(mqttTimeout) {
		s.log.Errorw("MQTT subscription timed out", "topic", s.topic)
		return
	}

	if err := token.Error(); err != nil {
		s.log.Errorw("MQTT subscription failed", "topic", s.topic, "error", err)
		return
	}

	s.log.Infow("Subscribed to frames", "topic", s.topic, "qos", s.qos)
}

// handle decodes one message and queues the frame.
func (s *MQTT) handle(_ mqtt.Client, msg mqtt.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	frame, err := Decode(msg.Payload(), s.index)
	if err != nil {
		s.log.Warnw("Skipping malformed frame", "topic", msg.Topic(), "error", err)
		return
	}

	select {
	case s.frames <- frame:
		s.index++
	default:
		s.log.Warnw("Frame queue full, dropping frame", "topic", msg.Topic(), "index", s.index)
	}
}
