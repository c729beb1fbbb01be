package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/bidhaus/bidhaus-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeResult struct {
	err error
}

func (f fakeResult) Get(context.Context) (string, error) {
	return "msg-1", f.err
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	return fakeResult{err: f.err}
}

func TestPubSubBidPlacedRoutesToEventsTopic(t *testing.T) {
	events := &fakePublisher{}
	notices := &fakePublisher{}
	ps := &PubSub{events: events, notices: notices}

	auctionID := uuid.New()
	err := ps.BidPlaced(context.Background(), BidPlacedEvent{
		AuctionID:    auctionID,
		BidID:        uuid.New(),
		CurrentPrice: decimal.RequireFromString("150.00"),
		TotalBids:    3,
	})
	if err != nil {
		t.Fatalf("publish bid placed: %v", err)
	}
	if len(events.messages) != 1 {
		t.Fatalf("expected 1 message on events topic, got %d", len(events.messages))
	}
	if len(notices.messages) != 0 {
		t.Fatalf("expected no vendor notices, got %d", len(notices.messages))
	}

	msg := events.messages[0]
	if got := msg.Attributes["event_type"]; got != string(enums.EventBidPlaced) {
		t.Fatalf("expected event_type %q, got %q", enums.EventBidPlaced, got)
	}
	if got := msg.Attributes["auction_id"]; got != auctionID.String() {
		t.Fatalf("expected auction_id %q, got %q", auctionID, got)
	}

	var decoded BidPlacedEvent
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !decoded.CurrentPrice.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("expected current price 150.00, got %s", decoded.CurrentPrice)
	}
}

func TestPubSubVendorNoticeRoutesToNoticesTopic(t *testing.T) {
	events := &fakePublisher{}
	notices := &fakePublisher{}
	ps := &PubSub{events: events, notices: notices}

	err := ps.NotifyVendor(context.Background(), VendorNotice{
		VendorID:     uuid.New(),
		AuctionID:    uuid.New(),
		BidID:        uuid.New(),
		Event:        enums.EventBidOutbid,
		CurrentPrice: decimal.RequireFromString("200.00"),
	})
	if err != nil {
		t.Fatalf("publish vendor notice: %v", err)
	}
	if len(notices.messages) != 1 {
		t.Fatalf("expected 1 vendor notice, got %d", len(notices.messages))
	}
	if len(events.messages) != 0 {
		t.Fatalf("expected no auction events, got %d", len(events.messages))
	}
	if got := notices.messages[0].Attributes["event_type"]; got != string(enums.EventBidOutbid) {
		t.Fatalf("expected event_type %q, got %q", enums.EventBidOutbid, got)
	}
}

func TestPubSubPublishFailureSurfacesError(t *testing.T) {
	events := &fakePublisher{err: errors.New("broker unavailable")}
	ps := &PubSub{events: events, notices: &fakePublisher{}}

	err := ps.AuctionCompleted(context.Background(), AuctionCompletedEvent{
		AuctionID:  uuid.New(),
		FinalPrice: decimal.RequireFromString("999.00"),
	})
	if err == nil {
		t.Fatal("expected publish error")
	}
}
