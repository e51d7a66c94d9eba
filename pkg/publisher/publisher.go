package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"go-vortexguard/pkg/logger"
	"go-vortexguard/pkg/models"
)

// Publisher streams lookup verdicts to a Kafka topic, keyed by subject so
// repeat lookups of one subject land on the same partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	config := sarama.NewConfig()
	version, err := sarama.ParseKafkaVersion("2.1.0")
	if err != nil {
		return nil, err
	}
	config.Version = version
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Net.DialTimeout = 30 * time.Second
	config.Net.ReadTimeout = 30 * time.Second
	config.Net.WriteTimeout = 30 * time.Second

	logger.Log.Infof("connecting to kafka brokers: %v", brokers)
	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return NewWithProducer(producer, topic), nil
}

func NewWithProducer(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

func (p *Publisher) Name() string { return "kafka" }

func (p *Publisher) RecordLookup(_ context.Context, ev models.LookupEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.Subject),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(ev.Kind)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish lookup event: %w", err)
	}

	logger.Log.Debugf("lookup event published: topic=%s, partition=%d, offset=%d", p.topic, partition, offset)
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
