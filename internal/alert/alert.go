// Package alert publishes high-risk scored transactions to downstream
// consumers.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

// Publisher delivers fraud alerts.
type Publisher interface {
	Publish(ctx context.Context, scored []model.ScoredTransaction) (int, error)
	Close() error
}

// Nop drops every alert.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, []model.ScoredTransaction) (int, error) { return 0, nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }

// Event is the JSON message written for each alert.
type Event struct {
	EventType     string    `json:"event_type"`
	Source        string    `json:"source"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	Data          EventData `json:"data"`
}

// EventData describes the flagged transaction.
type EventData struct {
	TransactionID int64              `json:"transaction_id"`
	UserID        int64              `json:"user_id"`
	Date          time.Time          `json:"date"`
	Amount        string             `json:"amount"`
	Category      string             `json:"category"`
	Merchant      string             `json:"merchant"`
	FraudScore    float64            `json:"fraud_score"`
	RiskLevel     model.RiskLevel    `json:"risk_level"`
	SubScores     map[string]float64 `json:"sub_scores"`
}

// KafkaPublisher sends one message per transaction at or above MinRisk,
// keyed by transaction id.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	minRisk  model.RiskLevel
	now      func() time.Time
}

// NewKafkaPublisher connects a synchronous producer to brokers.
func NewKafkaPublisher(brokers []string, topic string, minRisk model.RiskLevel) (*KafkaPublisher, error) {
	if minRisk.Rank() < 0 {
		return nil, fmt.Errorf("alert min risk %q: %w", minRisk, model.ErrInvalidConfiguration)
	}
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("connecting to kafka: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic, minRisk), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(p sarama.SyncProducer, topic string, minRisk model.RiskLevel) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic, minRisk: minRisk, now: time.Now}
}

// Publish implements Publisher. It returns the number of alerts sent.
func (k *KafkaPublisher) Publish(ctx context.Context, scored []model.ScoredTransaction) (int, error) {
	var msgs []*sarama.ProducerMessage
	for _, s := range scored {
		if s.Risk.Rank() < k.minRisk.Rank() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		body, err := json.Marshal(k.event(s))
		if err != nil {
			return 0, fmt.Errorf("encoding alert %d: %w", s.ID, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: k.topic,
			Key:   sarama.StringEncoder(strconv.FormatInt(s.ID, 10)),
			Value: sarama.ByteEncoder(body),
		})
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	if err := k.producer.SendMessages(msgs); err != nil {
		return 0, fmt.Errorf("sending %d alerts: %w", len(msgs), err)
	}
	return len(msgs), nil
}

// Close implements Publisher.
func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}

func (k *KafkaPublisher) event(s model.ScoredTransaction) Event {
	return Event{
		EventType:     "fraud_alert",
		Source:        "ledgerscope",
		SchemaVersion: "1",
		Timestamp:     k.now().UTC(),
		Data: EventData{
			TransactionID: s.ID,
			UserID:        s.UserID,
			Date:          s.Timestamp,
			Amount:        s.Amount.StringFixed(2),
			Category:      s.Category,
			Merchant:      s.Merchant,
			FraudScore:    s.FraudScore,
			RiskLevel:     s.Risk,
			SubScores: map[string]float64{
				"anomaly":   s.AnomalyScore,
				"amount":    s.AmountScore,
				"time":      s.TimeScore,
				"velocity":  s.VelocityScore,
				"deviation": s.DeviationScore,
				"merchant":  s.MerchantScore,
			},
		},
	}
}
