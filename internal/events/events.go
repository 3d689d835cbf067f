// Package events publishes committed ledger entries to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fastprodman/seamlesswallet/internal/repos/transactions"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Publisher receives the entries of a committed batch. Publishing happens
// after commit, so a failure never undoes the ledger change.
type Publisher interface {
	PublishEntries(ctx context.Context, entries []transactions.Entry) error
}

// EntryEvent is the wire form of one ledger entry on the feed.
type EntryEvent struct {
	EventID         string          `json:"eventId"`
	RefID           string          `json:"refId"`
	TxnID           string          `json:"txnId,omitempty"`
	Action          string          `json:"action"`
	RequestID       string          `json:"requestId,omitempty"`
	Username        string          `json:"username"`
	ProductID       string          `json:"productId,omitempty"`
	Currency        string          `json:"currency"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status,omitempty"`
	RoundID         string          `json:"roundId,omitempty"`
	GameCode        string          `json:"gameCode,omitempty"`
	TimestampMillis int64           `json:"timestampMillis"`
	BalanceBefore   decimal.Decimal `json:"balanceBefore"`
	BalanceAfter    decimal.Decimal `json:"balanceAfter"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type NopPublisher struct{}

func (NopPublisher) PublishEntries(context.Context, []transactions.Entry) error { return nil }

type KafkaPublisher struct {
	w     *kafka.Writer
	newID func() uuid.UUID
}

// NewKafkaPublisher writes to topic. Messages are keyed by account so that
// entries of one player stay ordered within a partition.
func NewKafkaPublisher(brokers []string, topic string, writeTimeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			WriteTimeout:           writeTimeout,
			AllowAutoTopicCreation: true,
		},
		newID: uuid.New,
	}
}

func (p *KafkaPublisher) PublishEntries(ctx context.Context, entries []transactions.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	msgs, err := encodeEntries(entries, p.newID)
	if err != nil {
		return err
	}

	err = p.w.WriteMessages(ctx, msgs...)
	if err != nil {
		return fmt.Errorf("write %d ledger events: %w", len(msgs), err)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func encodeEntries(entries []transactions.Entry, newID func() uuid.UUID) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(entries))

	for _, e := range entries {
		ev := EntryEvent{
			EventID:         newID().String(),
			RefID:           e.RefID,
			TxnID:           e.TxnID,
			Action:          e.Action,
			RequestID:       e.RequestID,
			Username:        e.Username,
			ProductID:       e.ProductID,
			Currency:        e.Currency,
			Amount:          e.Amount,
			Status:          e.Status,
			RoundID:         e.RoundID,
			GameCode:        e.GameCode,
			TimestampMillis: e.TimestampMillis,
			BalanceBefore:   e.BalanceBefore,
			BalanceAfter:    e.BalanceAfter,
			CreatedAt:       e.CreatedAt,
		}

		payload, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("encode ledger event %s: %w", e.RefID, err)
		}

		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Username + "/" + e.Currency),
			Value: payload,
			Time:  e.CreatedAt,
			Headers: []kafka.Header{
				{Key: "action", Value: []byte(e.Action)},
			},
		})
	}

	return msgs, nil
}
