package events

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/trellis/pkg/kafka"
	"github.com/Ramsey-B/trellis/pkg/models"
)

type fakeSink struct {
	published []*kafka.NotificationEvent
	fail      bool
}

func (f *fakeSink) PublishNotification(_ context.Context, e *kafka.NotificationEvent) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.published = append(f.published, e)
	return nil
}

func (f *fakeSink) PublishNotifications(_ context.Context, events []*kafka.NotificationEvent) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.published = append(f.published, events...)
	return nil
}

func newNotifier(sink Sink) *Notifier {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewNotifier(sink, logger)
}

func TestNotifyRequestMatched(t *testing.T) {
	sink := &fakeSink{}
	n := newNotifier(sink)

	req := &models.BuyerRequest{RequestID: 101, PhoneNumber: "9876543210", PropertyType: "Flat", City: "Chennai"}
	matches := []models.Listing{
		{ListingID: "LST-1", OwnerPhone: "1111111111"},
		{ListingID: "LST-2", OwnerPhone: "2222222222"},
	}

	failed := n.NotifyRequestMatched(context.Background(), req, matches)
	assert.Zero(t, failed)
	require.Len(t, sink.published, 3)

	// owners first, buyer summary last
	assert.Equal(t, "1111111111", sink.published[0].Recipient)
	assert.Equal(t, "9876543210", sink.published[0].Sender)
	assert.Contains(t, sink.published[0].Message, "LST-1")

	assert.Equal(t, "9876543210", sink.published[2].Recipient)
	assert.Contains(t, sink.published[2].Message, "matched 2 properties")
}

func TestNotifyRequestMatchedBrokerFailureIsReported(t *testing.T) {
	sink := &fakeSink{fail: true}
	n := newNotifier(sink)

	req := &models.BuyerRequest{RequestID: 101, PhoneNumber: "9876543210"}
	failed := n.NotifyRequestMatched(context.Background(), req, []models.Listing{{OwnerPhone: "1111111111"}})
	assert.Equal(t, 2, failed)
}

func TestNotifyInterestRegistered(t *testing.T) {
	t.Run("connected owner", func(t *testing.T) {
		sink := &fakeSink{}
		n := newNotifier(sink)

		req := &models.BuyerRequest{RequestID: 101, PhoneNumber: "9876543210"}
		failed := n.NotifyInterestRegistered(context.Background(), req, "1111111111", true)
		assert.Zero(t, failed)
		require.Len(t, sink.published, 1)
		assert.Equal(t, "interest.registered", sink.published[0].EventType)
		assert.Equal(t, "9876543210", sink.published[0].Recipient)
		assert.Equal(t, "1111111111", sink.published[0].Sender)
		assert.Contains(t, sink.published[0].Message, "shown interest")
	})

	t.Run("free tier owner gets the upgrade nudge", func(t *testing.T) {
		sink := &fakeSink{}
		n := newNotifier(sink)

		req := &models.BuyerRequest{RequestID: 101, PhoneNumber: "9876543210"}
		n.NotifyInterestRegistered(context.Background(), req, "1111111111", false)
		require.Len(t, sink.published, 1)
		assert.Contains(t, sink.published[0].Message, "upgrade to connect")
	})
}
