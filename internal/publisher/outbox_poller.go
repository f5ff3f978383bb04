package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/store"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// OutboxPoller drains the order outbox into kafka and sweeps checkouts
// that died between reserving stock and resolving payment.
type OutboxPoller struct {
	timeout      time.Duration
	eventTick    time.Duration
	recoveryTick time.Duration
	stuckAfter   time.Duration
	repo         repository.OrderRepository
	ledger       store.InventoryStore
	writer       *kafka.Writer
	logger       *zap.Logger
}

// NewOutboxPoller builds the poller. With no brokers the kafka writer is
// left nil and only the recovery sweep runs: stuck orders must be resolved
// even when event publishing is switched off.
func NewOutboxPoller(repo repository.OrderRepository, ledger store.InventoryStore, logger *zap.Logger, brokers ...string) *OutboxPoller {
	var w *kafka.Writer
	if len(brokers) > 0 {
		w = &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  "order-events",
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		}
	}
	return &OutboxPoller{
		timeout:      5 * time.Second,
		eventTick:    time.Second,
		recoveryTick: 5 * time.Second,
		stuckAfter:   5 * time.Minute,
		repo:         repo,
		ledger:       ledger,
		writer:       w,
		logger:       logger,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStuckOrders(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	if p.writer == nil {
		return
	}

	events, err := p.repo.GetUnprocessedEvents(ctx, 100)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if errPublish := p.publishToKafka(ctx, event); errPublish != nil {
			p.logger.Error("failed to publish event",
				zap.Int("event_id", event.ID), zap.Error(errPublish))
			continue
		}

		if errMark := p.repo.MarkEventAsProcessed(ctx, event.ID); errMark != nil {
			p.logger.Error("failed to mark event as processed",
				zap.Int("event_id", event.ID), zap.Error(errMark))
			continue
		}
	}
}

// recoverStuckOrders resolves checkouts that never reached a terminal
// payment state: the process died mid-saga or the compensation itself
// failed. The status compare-and-set makes the sweep safe to race
// against a checkout that is still alive.
func (p *OutboxPoller) recoverStuckOrders(ctx context.Context) {
	cutoff := time.Now().Add(-p.stuckAfter)
	orders, err := p.repo.GetStuckOrders(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to fetch stuck orders", zap.Error(err))
		return
	}

	for _, order := range orders {
		log := p.logger.With(zap.String("order_id", order.ID.String()))
		log.Warn("recovering stuck order")

		payload, errMarshal := json.Marshal(map[string]interface{}{
			"order_id": order.ID,
			"reason":   "payment timed out",
		})
		if errMarshal != nil {
			log.Error("failed to marshal recovery payload", zap.Error(errMarshal))
			continue
		}

		errUpdate := p.repo.UpdateOrderStatus(ctx, order.ID,
			domain.OrderStatusPendingPayment, domain.OrderStatusPaymentFailed,
			"order.payment_failed", payload)
		if errors.Is(errUpdate, repository.ErrStatusConflict) {
			// The checkout resolved itself between the query and the sweep
			continue
		}
		if errUpdate != nil {
			log.Error("failed to fail stuck order", zap.Error(errUpdate))
			continue
		}

		// Only the sweep that won the compare-and-set frees the hold
		if order.ReservationID != "" {
			if errRelease := p.ledger.Release(order.ReservationID); errRelease != nil {
				log.Error("failed to release reservation",
					zap.String("reservation_id", order.ReservationID), zap.Error(errRelease))
			}
		}

		log.Info("stuck order resolved", zap.String("status", string(domain.OrderStatusPaymentFailed)))
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *repository.OutboxEvent) error {
	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateId), // order_id for ordering
		Value: event.Payload,             // Already JSON from database
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	return p.writer.WriteMessages(writeCtx, msg)
}
