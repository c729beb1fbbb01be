package auctions

import (
	"time"

	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	"github.com/bidhaus/bidhaus-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAuctionInput carries the seller's listing request.
type CreateAuctionInput struct {
	ItemID        uuid.UUID
	CreatedBy     uuid.UUID
	StartingPrice decimal.Decimal
	DurationHours int
	MinIncrement  *decimal.Decimal
}

// ListFilters narrow an auction listing query.
type ListFilters struct {
	Status    *enums.AuctionStatus
	CreatedBy *uuid.UUID
	ItemID    *uuid.UUID
}

// AuctionList is one page of auctions plus the cursor for the next page.
type AuctionList struct {
	Auctions   []models.Auction
	NextCursor string
}

// BidHistoryEntry is one row of an auction's append-only bid log.
type BidHistoryEntry struct {
	BidID      uuid.UUID       `json:"bid_id"`
	VendorID   uuid.UUID       `json:"vendor_id"`
	Amount     decimal.Decimal `json:"amount"`
	IsProxyBid bool            `json:"is_proxy_bid"`
	Status     enums.BidStatus `json:"status"`
	PlacedAt   time.Time       `json:"placed_at"`
}
