package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateBooking        OutboxAggregateType = "booking"
	AggregatePaymentTranche OutboxAggregateType = "payment_tranche"
	AggregateStock          OutboxAggregateType = "stock"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateBooking,
	AggregatePaymentTranche,
	AggregateStock,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventBookingCreated          OutboxEventType = "booking_created"
	EventBookingApproved         OutboxEventType = "booking_approved"
	EventBookingRejected         OutboxEventType = "booking_rejected"
	EventBookingVoided           OutboxEventType = "booking_voided"
	EventBookingDeleted          OutboxEventType = "booking_deleted"
	EventLossBookingDecided      OutboxEventType = "loss_booking_decided"
	EventClientConfirmed         OutboxEventType = "client_confirmed"
	EventPaymentRecorded         OutboxEventType = "payment_recorded"
	EventPaymentDeleted          OutboxEventType = "payment_deleted"
	EventTransferReady           OutboxEventType = "transfer_ready"
	EventStockTransferred        OutboxEventType = "stock_transferred"
	EventRpMappingUpdated        OutboxEventType = "rp_mapping_updated"
	EventBpOverrideProposed      OutboxEventType = "bp_override_proposed"
	EventBpOverrideDecided       OutboxEventType = "bp_override_decided"
	EventInsiderFormUploaded     OutboxEventType = "insider_form_uploaded"
	EventBookingStatusReconciled OutboxEventType = "booking_status_reconciled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBookingCreated,
	EventBookingApproved,
	EventBookingRejected,
	EventBookingVoided,
	EventBookingDeleted,
	EventLossBookingDecided,
	EventClientConfirmed,
	EventPaymentRecorded,
	EventPaymentDeleted,
	EventTransferReady,
	EventStockTransferred,
	EventRpMappingUpdated,
	EventBpOverrideProposed,
	EventBpOverrideDecided,
	EventInsiderFormUploaded,
	EventBookingStatusReconciled,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
