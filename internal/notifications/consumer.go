package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/kabidey/privity-sub003/pkg/db/models"
	"github.com/kabidey/privity-sub003/pkg/enums"
	"github.com/kabidey/privity-sub003/pkg/logger"
	"github.com/kabidey/privity-sub003/pkg/outbox"
	"github.com/kabidey/privity-sub003/pkg/outbox/idempotency"
	"github.com/kabidey/privity-sub003/pkg/outbox/payloads"
)

const bookingNotificationConsumer = "booking-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches booking events and raises desk notifications for the ones
// that need a human follow-up.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a booking notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("booking subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if !notifiable(eventType) {
		c.logg.Info(logCtx, "skipping event without a notification rule")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, bookingNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventType, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, bookingNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func notifiable(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventBookingCreated,
		enums.EventTransferReady,
		enums.EventBpOverrideProposed,
		enums.EventInsiderFormUploaded:
		return true
	}
	return false
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage, logCtx context.Context) error {
	switch eventType {
	case enums.EventBookingCreated:
		var payload payloads.BookingCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.onBookingCreated(ctx, payload, logCtx)
	case enums.EventTransferReady:
		var payload payloads.TransferReadyEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.onTransferReady(ctx, payload, logCtx)
	case enums.EventBpOverrideProposed:
		var payload payloads.BpOverrideProposedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.onBpOverrideProposed(ctx, payload, logCtx)
	case enums.EventInsiderFormUploaded:
		var payload payloads.InsiderFormUploadedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		return c.onInsiderFormUploaded(ctx, payload, logCtx)
	}
	return nil
}

func (c *Consumer) onBookingCreated(ctx context.Context, payload payloads.BookingCreatedEvent, logCtx context.Context) error {
	if payload.BookingID == uuid.Nil {
		return fmt.Errorf("booking id missing")
	}

	title := "Booking awaiting approval"
	message := fmt.Sprintf("Booking #%d is awaiting PE approval.", payload.BookingNumber)
	if payload.IsLossBooking {
		title = "Loss booking awaiting approval"
		message = fmt.Sprintf("Booking #%d was quoted below landing price and needs loss approval in addition to PE approval.", payload.BookingNumber)
	}

	notification := &models.Notification{
		RecipientRole: enums.MemberRolePEDesk,
		BookingID:     uuidPtr(payload.BookingID),
		Type:          enums.NotificationTypeBookingAlert,
		Title:         title,
		Message:       message,
		Link:          bookingLink(payload.BookingID),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "desk notified of new booking")
	return nil
}

func (c *Consumer) onTransferReady(ctx context.Context, payload payloads.TransferReadyEvent, logCtx context.Context) error {
	if payload.BookingID == uuid.Nil {
		return fmt.Errorf("booking id missing")
	}
	notification := &models.Notification{
		RecipientRole: enums.MemberRolePEDesk,
		BookingID:     uuidPtr(payload.BookingID),
		Type:          enums.NotificationTypePaymentAlert,
		Title:         "Booking fully paid",
		Message:       fmt.Sprintf("Booking #%d is fully paid (%s). The DP transfer can proceed.", payload.BookingNumber, payload.TotalPaid.StringFixed(2)),
		Link:          bookingLink(payload.BookingID),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "desk notified of transfer readiness")
	return nil
}

func (c *Consumer) onBpOverrideProposed(ctx context.Context, payload payloads.BpOverrideProposedEvent, logCtx context.Context) error {
	if payload.BookingID == uuid.Nil {
		return fmt.Errorf("booking id missing")
	}
	notification := &models.Notification{
		RecipientRole: enums.MemberRolePEDesk,
		BookingID:     uuidPtr(payload.BookingID),
		Type:          enums.NotificationTypeCompliance,
		Title:         "BP share override proposed",
		Message:       fmt.Sprintf("Booking #%d has a pending business-partner share override of %s%%.", payload.BookingNumber, payload.OverridePercent.StringFixed(2)),
		Link:          bookingLink(payload.BookingID),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "desk notified of bp override proposal")
	return nil
}

func (c *Consumer) onInsiderFormUploaded(ctx context.Context, payload payloads.InsiderFormUploadedEvent, logCtx context.Context) error {
	if payload.BookingID == uuid.Nil {
		return fmt.Errorf("booking id missing")
	}
	notification := &models.Notification{
		RecipientRole: enums.MemberRolePEDesk,
		BookingID:     uuidPtr(payload.BookingID),
		Type:          enums.NotificationTypeCompliance,
		Title:         "Insider form uploaded",
		Message:       fmt.Sprintf("Booking #%d now has its insider trading form on file.", payload.BookingNumber),
		Link:          bookingLink(payload.BookingID),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "desk notified of insider form upload")
	return nil
}

func bookingLink(bookingID uuid.UUID) *string {
	link := fmt.Sprintf("/bookings/%s", bookingID)
	return &link
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
