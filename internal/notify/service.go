// Package notify turns order events into confirmation messages for the
// email/SMS collaborator. Actual delivery is behind the Sender interface;
// this service only decides what to send and makes sure it is sent once.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	kafkax "github.com/godishuset/box-orders/internal/kafka"
	"github.com/godishuset/box-orders/internal/orders"
	"github.com/godishuset/box-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogSender is the default sink when no transport is wired in.
type LogSender struct{}

func (LogSender) Send(_ context.Context, recipient, subject, body string) error {
	log.Printf("notify %s: %s", recipient, subject)
	return nil
}

type Service struct {
	Redis       *redis.Client
	Sender      Sender
	ServiceName string
}

// HandleEvent is the consumer handler for all order topics.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// dedup on event id; a replayed event must not mail the customer twice
	dkey := fmt.Sprintf(redisx.KeyDedup, "notify", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}

	var err error
	switch env.EventType {
	case orders.EventOrderPlaced:
		err = s.orderPlaced(ctx, env.Payload)
	case orders.EventPaymentChanged:
		err = s.paymentChanged(ctx, env.Payload)
	case orders.EventRefundCreated:
		err = s.refundCreated(ctx, env.Payload)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
}

func (s *Service) orderPlaced(ctx context.Context, payload json.RawMessage) error {
	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](payload)
	if err != nil {
		return err
	}
	body := fmt.Sprintf(
		"Hej %s!\n\nTack för din beställning (%s).\nLeverans: %s (%s)\nSumma: %s kr\nBetalsätt: %s\n",
		p.CustomerName, p.OrderID, p.DeliveryDate, p.DeliveryType, kronor(p.Total), p.Method)
	return s.Sender.Send(ctx, p.Email, "Orderbekräftelse", body)
}

func (s *Service) paymentChanged(ctx context.Context, payload json.RawMessage) error {
	p, err := kafkax.UnwrapPayload[orders.PaymentChangedPayload](payload)
	if err != nil {
		return err
	}
	log.Printf("order %s payment %s -> %s", p.OrderID, p.From, p.To)
	return nil
}

func (s *Service) refundCreated(ctx context.Context, payload json.RawMessage) error {
	p, err := kafkax.UnwrapPayload[orders.RefundCreatedPayload](payload)
	if err != nil {
		return err
	}
	log.Printf("order %s refunded %s kr (ref %s)", p.OrderID, kronor(p.Amount), p.Reference)
	return nil
}

func kronor(amount int64) string {
	return fmt.Sprintf("%d,%02d", amount/100, amount%100)
}
