// Package mqtt receives records over MQTT. Each message carries one record
// for the entity named by the last topic segment.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/vehicle-ingest/internal/config"
	"github.com/ukydev/vehicle-ingest/internal/ingest"
	"github.com/ukydev/vehicle-ingest/internal/models"
	"github.com/ukydev/vehicle-ingest/internal/schema"
)

// HandleTimeout bounds the processing of one message.
const HandleTimeout = 30 * time.Second

// Ingester is what the subscriber needs from the ingestion service.
type Ingester interface {
	Ingest(ctx context.Context, e schema.Entity, rec models.Payload) (*ingest.Ack, error)
}

// Topic returns the topic records of e are published on.
func Topic(prefix string, e schema.Entity) string {
	return strings.Trim(prefix, "/") + "/" + string(e)
}

// EntityFromTopic returns the entity named by the last segment of topic.
func EntityFromTopic(topic string) (schema.Entity, bool) {
	e := schema.Entity(topic[strings.LastIndex(topic, "/")+1:])
	_, ok := schema.Lookup(e)
	return e, ok
}

// NewClientOptions returns paho options for cfg.
func NewClientOptions(cfg config.MQTT) *paho.ClientOptions {
	return paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetOrderMatters(false)
}

// Subscriber feeds MQTT messages to the ingestion service.
type Subscriber struct {
	svc    Ingester
	log    log.FieldLogger
	prefix string
	qos    byte
	client paho.Client
}

// NewSubscriber creates a subscriber; Start connects it.
func NewSubscriber(svc Ingester, logger log.FieldLogger, cfg config.MQTT) *Subscriber {
	return &Subscriber{svc: svc, log: logger, prefix: cfg.TopicPrefix, qos: cfg.QoS}
}

// Filter is the subscription topic filter.
func (s *Subscriber) Filter() string {
	return strings.Trim(s.prefix, "/") + "/+"
}

// Start connects to the broker and subscribes. The subscription is renewed
// on every reconnect.
func (s *Subscriber) Start(opts *paho.ClientOptions) error {
	opts.SetOnConnectHandler(func(c paho.Client) {
		tok := c.Subscribe(s.Filter(), s.qos, s.onMessage)
		if tok.WaitTimeout(10*time.Second) && tok.Error() != nil {
			s.log.WithError(tok.Error()).WithField("filter", s.Filter()).Error("MQTT subscribe failed")
			return
		}
		s.log.WithField("filter", s.Filter()).Info("MQTT subscribed")
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.log.WithError(err).Warn("MQTT connection lost")
	})

	s.client = paho.NewClient(opts)
	tok := s.client.Connect()
	if !tok.WaitTimeout(15 * time.Second) {
		return errors.New("mqtt connect timed out")
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Stop disconnects, waiting up to quiesce for in-flight work.
func (s *Subscriber) Stop(quiesce time.Duration) {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(uint(quiesce / time.Millisecond))
	}
}

func (s *Subscriber) onMessage(_ paho.Client, m paho.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), HandleTimeout)
	defer cancel()
	_ = s.HandleMessage(ctx, m.Topic(), m.Payload())
}

// HandleMessage ingests one message. Failures are logged and returned; the
// message is not redelivered.
func (s *Subscriber) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	logger := s.log.WithField("topic", topic)

	e, ok := EntityFromTopic(topic)
	if !ok {
		err := fmt.Errorf("no entity for topic %q", topic)
		logger.WithError(err).Warn("MQTT message dropped")
		return err
	}
	rec, err := models.ParsePayload(payload)
	if err != nil {
		logger.WithError(err).Warn("MQTT message dropped")
		return err
	}
	ack, err := s.svc.Ingest(ctx, e, rec)
	if err != nil {
		var cie *ingest.ClientInputError
		if errors.As(err, &cie) {
			logger.WithError(err).Warn("MQTT record rejected")
		} else {
			logger.WithError(err).Error("MQTT ingestion failed")
		}
		return err
	}
	logger.WithFields(log.Fields{"rows": ack.Rows, "key": ack.Key}).Debug(ack.Message)
	return nil
}
