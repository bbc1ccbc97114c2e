// internal/service/delivery/delivery_service.go
package delivery

import (
	"context"
	"fmt"
	"time"

	"mealbox-service/internal/domain/delivery"
	xerrors "mealbox-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Store interface {
	FindByID(ctx context.Context, id int64) (*delivery.Delivery, error)
	EnsureForDate(ctx context.Context, subscriptionID int64, date time.Time) (*delivery.Delivery, error)
	UpdateStatus(ctx context.Context, id int64, status delivery.DeliveryStatus, notes string) error
	ListForDate(ctx context.Context, date time.Time) ([]delivery.Delivery, error)
	ListForSubscription(ctx context.Context, subscriptionID int64, limit int) ([]delivery.Delivery, error)
}

// Broadcaster pushes status events to the live kitchen feed. A nil
// broadcaster disables the feed.
type Broadcaster interface {
	Broadcast(event delivery.StatusEvent)
}

// DeliveryService manages materialized delivery rows and their status
// machine.
type DeliveryService struct {
	deliveries Store
	feed       Broadcaster
	logger     *zap.Logger
}

func NewDeliveryService(deliveries Store, feed Broadcaster, logger *zap.Logger) *DeliveryService {
	return &DeliveryService{deliveries: deliveries, feed: feed, logger: logger}
}

func (s *DeliveryService) GetByID(ctx context.Context, id int64) (*delivery.Delivery, error) {
	return s.deliveries.FindByID(ctx, id)
}

// EnsureForDate materializes the delivery row the kitchen works against.
func (s *DeliveryService) EnsureForDate(ctx context.Context, subscriptionID int64, date time.Time) (*delivery.Delivery, error) {
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return s.deliveries.EnsureForDate(ctx, subscriptionID, date)
}

// UpdateStatus moves a delivery through the state machine and announces the
// change on the kitchen feed.
func (s *DeliveryService) UpdateStatus(ctx context.Context, id int64, req *delivery.UpdateStatusRequest) (*delivery.Delivery, error) {
	d, err := s.deliveries.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !delivery.CanTransition(d.Status, req.Status) {
		return nil, fmt.Errorf("%w: cannot move delivery from %s to %s",
			xerrors.ErrInvalidInput, d.Status, req.Status)
	}

	if err := s.deliveries.UpdateStatus(ctx, id, req.Status, req.Notes); err != nil {
		return nil, err
	}

	d, err = s.deliveries.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("delivery status updated",
		zap.Int64("delivery_id", d.ID),
		zap.Int64("subscription_id", d.SubscriptionID),
		zap.String("status", string(d.Status)),
	)
	if s.feed != nil {
		s.feed.Broadcast(delivery.StatusEvent{
			DeliveryID:     d.ID,
			SubscriptionID: d.SubscriptionID,
			DeliveryDate:   d.DeliveryDate.Format("2006-01-02"),
			Status:         d.Status,
			OccurredAt:     time.Now(),
		})
	}
	return d, nil
}

func (s *DeliveryService) ListForDate(ctx context.Context, date time.Time) ([]delivery.Delivery, error) {
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	deliveries, err := s.deliveries.ListForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if deliveries == nil {
		deliveries = []delivery.Delivery{}
	}
	return deliveries, nil
}

func (s *DeliveryService) ListForSubscription(ctx context.Context, subscriptionID int64, limit int) ([]delivery.Delivery, error) {
	deliveries, err := s.deliveries.ListForSubscription(ctx, subscriptionID, limit)
	if err != nil {
		return nil, err
	}
	if deliveries == nil {
		deliveries = []delivery.Delivery{}
	}
	return deliveries, nil
}
