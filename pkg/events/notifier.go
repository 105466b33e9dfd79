// Package events composes and emits the domain notifications. Emission is
// best-effort everywhere: the triggering write has already committed, so a
// broker failure is logged and reported but never rolls anything back.
package events

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/trellis/pkg/kafka"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

// Sink is the producer side the notifier writes to.
type Sink interface {
	PublishNotification(ctx context.Context, event *kafka.NotificationEvent) error
	PublishNotifications(ctx context.Context, events []*kafka.NotificationEvent) error
}

// Notifier emits party notifications for the matching flows.
type Notifier struct {
	sink   Sink
	logger ectologger.Logger
}

// NewNotifier creates a notifier over the sink.
func NewNotifier(sink Sink, logger ectologger.Logger) *Notifier {
	return &Notifier{
		sink:   sink,
		logger: logger,
	}
}

// NotifyRequestMatched tells each matched listing owner about the new buyer
// request, and tells the buyer how many listings matched. Returns the number
// of events that could not be published.
func (n *Notifier) NotifyRequestMatched(ctx context.Context, req *models.BuyerRequest, matches []models.Listing) int {
	ctx, span := tracing.StartSpan(ctx, "events.Notifier.NotifyRequestMatched")
	defer span.End()

	events := make([]*kafka.NotificationEvent, 0, len(matches)+1)
	for _, l := range matches {
		events = append(events, &kafka.NotificationEvent{
			EventType: "request.matched",
			Recipient: l.OwnerPhone,
			Sender:    req.PhoneNumber,
			Message: fmt.Sprintf("A buyer is looking for a %s in %s matching your property %s",
				req.PropertyType, req.City, l.ListingID),
		})
	}
	events = append(events, &kafka.NotificationEvent{
		EventType: "request.matched",
		Recipient: req.PhoneNumber,
		Sender:    "",
		Message:   fmt.Sprintf("Your request %d matched %d properties", req.RequestID, len(matches)),
	})

	if err := n.sink.PublishNotifications(ctx, events); err != nil {
		n.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"request_id": req.RequestID,
		}).Warn("Failed to publish match notifications")
		return len(events)
	}
	return 0
}

// NotifyInterestRegistered tells the buyer that a listing owner is interested
// in their request. Returns the number of events that could not be published.
func (n *Notifier) NotifyInterestRegistered(ctx context.Context, req *models.BuyerRequest, ownerPhone string, connected bool) int {
	ctx, span := tracing.StartSpan(ctx, "events.Notifier.NotifyInterestRegistered")
	defer span.End()

	message := fmt.Sprintf("An owner has shown interest in your request %d", req.RequestID)
	if !connected {
		message = fmt.Sprintf("An owner tried to reach you about request %d; upgrade to connect", req.RequestID)
	}

	event := &kafka.NotificationEvent{
		EventType: "interest.registered",
		Recipient: req.PhoneNumber,
		Sender:    ownerPhone,
		Message:   message,
	}

	if err := n.sink.PublishNotification(ctx, event); err != nil {
		n.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"request_id": req.RequestID,
		}).Warn("Failed to publish interest notification")
		return 1
	}
	return 0
}
