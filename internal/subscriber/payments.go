// Package subscriber consumes payment status reports from NATS JetStream.
package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
	"github.com/abgdnv/gofulfillment/internal/service"
	"github.com/abgdnv/gofulfillment/pkg/config"
	"github.com/abgdnv/gofulfillment/pkg/messaging/events"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"
)

// PaymentRecorder stores a payment report on an order.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, id uuid.UUID, report service.PaymentReportDto) (*service.OrderDto, error)
}

// Deduper claims event ids so a redelivered event is applied once.
type Deduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// ackableMsg is the part of jetstream.Msg the handler needs.
type ackableMsg interface {
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

type Payments struct {
	recorder PaymentRecorder
	dedup    Deduper
	logger   *slog.Logger
}

// NewPayments creates the payment subscriber. dedup may be nil.
func NewPayments(recorder PaymentRecorder, dedup Deduper, logger *slog.Logger) *Payments {
	return &Payments{
		recorder: recorder,
		dedup:    dedup,
		logger:   logger.With("component", "payments-subscriber"),
	}
}

// Start creates the durable consumer and runs the configured number of workers until ctx is done.
func (p *Payments) Start(ctx context.Context, js jetstream.JetStream, subscriberCfg config.SubscriberConfig) error {
	cfg := jetstream.ConsumerConfig{
		FilterSubject: subscriberCfg.Subject,
		Durable:       subscriberCfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	consumer, err := js.CreateOrUpdateConsumer(ctx, subscriberCfg.Stream, cfg)
	if err != nil {
		return err
	}
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < subscriberCfg.Workers; i++ {
		g.Go(func() error {
			return p.runWorker(gCtx, consumer, subscriberCfg)
		})
	}
	return g.Wait()
}

func (p *Payments) runWorker(ctx context.Context, consumer jetstream.Consumer, cfg config.SubscriberConfig) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			batch, err := consumer.Fetch(cfg.Batch, jetstream.FetchMaxWait(cfg.Timeout))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				p.logger.Error("failed to fetch messages", "error", err)
				time.Sleep(cfg.Interval)
				continue
			}
			for msg := range batch.Messages() {
				p.handleMessage(ctx, msg)
			}
		}
	}
}

// handleMessage applies one payment report. Rejected reports and duplicates are acknowledged,
// infrastructure failures are NAKed for redelivery and malformed payloads are terminated.
func (p *Payments) handleMessage(ctx context.Context, msg ackableMsg) {
	if msg == nil {
		p.logger.Error("received nil message")
		return
	}
	var event events.PaymentStatusEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil || event.OrderID == uuid.Nil {
		p.logger.Error("malformed payment event", "error", err)
		p.settle(msg.Term, "term")
		return
	}
	log := p.logger.With("event_id", event.EventID, "order_id", event.OrderID, "payment_status", event.Status)

	eventID := event.EventID.String()
	if p.dedup != nil && event.EventID != uuid.Nil {
		claimed, err := p.dedup.Claim(ctx, eventID)
		if err != nil {
			log.Error("failed to claim payment event", "error", err)
			p.settle(msg.Nak, "nak")
			return
		}
		if !claimed {
			log.Info("duplicate payment event skipped")
			p.settle(msg.Ack, "ack")
			return
		}
	}

	report := service.PaymentReportDto{Status: strings.ToUpper(event.Status), ExternalID: event.ExternalID}
	_, err := p.recorder.RecordPayment(ctx, event.OrderID, report)
	switch ordererrors.Classify(err) {
	case ordererrors.OutcomeOK:
		log.Info("payment status recorded")
		p.settle(msg.Ack, "ack")
	case ordererrors.OutcomeRejected:
		log.Warn("payment event rejected", "error", err)
		p.settle(msg.Ack, "ack")
	default:
		log.Error("failed to record payment", "error", err)
		if p.dedup != nil && event.EventID != uuid.Nil {
			if relErr := p.dedup.Release(ctx, eventID); relErr != nil {
				log.Error("failed to release payment event", "error", relErr)
			}
		}
		p.settle(msg.Nak, "nak")
	}
}

func (p *Payments) settle(fn func() error, action string) {
	if err := fn(); err != nil {
		p.logger.Error("failed to "+action+" message", "error", err)
	}
}
