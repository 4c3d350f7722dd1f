package alert

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/ledgerscope/internal/model"
)

func scored(id int64, risk model.RiskLevel, score float64) model.ScoredTransaction {
	return model.ScoredTransaction{
		Transaction: model.Transaction{
			ID:        id,
			UserID:    7,
			Timestamp: time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC),
			Amount:    decimal.RequireFromString("1234.5"),
			Category:  "Travel",
			Merchant:  "Airline",
		},
		FraudScore: score,
		Risk:       risk,
	}
}

func TestKafkaPublisher_FiltersByRisk(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Data.TransactionID != 2 || ev.Data.Amount != "1234.50" {
			return errors.New("unexpected alert payload")
		}
		return nil
	})
	producer.ExpectSendMessageAndSucceed()

	p := NewKafkaPublisherWithProducer(producer, "alerts", model.RiskHigh)
	n, err := p.Publish(context.Background(), []model.ScoredTransaction{
		scored(1, model.RiskMedium, 40),
		scored(2, model.RiskHigh, 60),
		scored(3, model.RiskCritical, 90),
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("sent = %d, want 2", n)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestKafkaPublisher_NothingToSend(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	p := NewKafkaPublisherWithProducer(producer, "alerts", model.RiskCritical)
	n, err := p.Publish(context.Background(), []model.ScoredTransaction{scored(1, model.RiskHigh, 70)})
	if err != nil || n != 0 {
		t.Fatalf("Publish = %d, %v; want 0, nil", n, err)
	}
	_ = p.Close()
}

func TestKafkaPublisher_SendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, sarama.NewConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := NewKafkaPublisherWithProducer(producer, "alerts", model.RiskLow)
	if _, err := p.Publish(context.Background(), []model.ScoredTransaction{scored(1, model.RiskLow, 5)}); err == nil {
		t.Fatal("expected send error")
	}
	_ = p.Close()
}

func TestNewKafkaPublisher_RejectsUnknownRisk(t *testing.T) {
	_, err := NewKafkaPublisher([]string{"localhost:9092"}, "alerts", model.RiskLevel("Severe"))
	if !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	n, err := p.Publish(context.Background(), []model.ScoredTransaction{scored(1, model.RiskCritical, 99)})
	if n != 0 || err != nil {
		t.Fatalf("Nop.Publish = %d, %v", n, err)
	}
}
