package notifier

import (
	"context"
	"time"

	"github.com/bidhaus/bidhaus-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidPlacedEvent announces a committed bid to auction watchers.
type BidPlacedEvent struct {
	AuctionID     uuid.UUID       `json:"auction_id"`
	BidID         uuid.UUID       `json:"bid_id"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	LeadingVendor uuid.UUID       `json:"leading_vendor"`
	TotalBids     int             `json:"total_bids"`
	TimeRemaining time.Duration   `json:"time_remaining"`
	IsProxyBid    bool            `json:"is_proxy_bid"`
}

// AuctionExtendedEvent announces a soft-close extension.
type AuctionExtendedEvent struct {
	AuctionID uuid.UUID `json:"auction_id"`
	NewEndsAt time.Time `json:"new_ends_at"`
}

// AuctionCompletedEvent announces settlement of an auction.
type AuctionCompletedEvent struct {
	AuctionID    uuid.UUID       `json:"auction_id"`
	WinningBidID *uuid.UUID      `json:"winning_bid_id,omitempty"`
	WinnerID     *uuid.UUID      `json:"winner_id,omitempty"`
	FinalPrice   decimal.Decimal `json:"final_price"`
	TotalBids    int             `json:"total_bids"`
}

// VendorNotice targets a single vendor with a bid status change.
type VendorNotice struct {
	VendorID     uuid.UUID              `json:"vendor_id"`
	AuctionID    uuid.UUID              `json:"auction_id"`
	BidID        uuid.UUID              `json:"bid_id"`
	Event        enums.AuctionEventType `json:"event"`
	CurrentPrice decimal.Decimal        `json:"current_price"`
}

// Notifier fans out auction activity after database commits. Implementations
// must tolerate being called concurrently; delivery is best effort.
type Notifier interface {
	BidPlaced(ctx context.Context, event BidPlacedEvent) error
	AuctionExtended(ctx context.Context, event AuctionExtendedEvent) error
	AuctionCompleted(ctx context.Context, event AuctionCompletedEvent) error
	NotifyVendor(ctx context.Context, notice VendorNotice) error
}

// Noop discards all notifications. Used in tests and when no Pub/Sub project
// is configured.
type Noop struct{}

func (Noop) BidPlaced(context.Context, BidPlacedEvent) error             { return nil }
func (Noop) AuctionExtended(context.Context, AuctionExtendedEvent) error { return nil }
func (Noop) AuctionCompleted(context.Context, AuctionCompletedEvent) error {
	return nil
}
func (Noop) NotifyVendor(context.Context, VendorNotice) error { return nil }
