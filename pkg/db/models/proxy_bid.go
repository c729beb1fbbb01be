package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bidhaus/bidhaus-backend/pkg/enums"
)

// ProxyBid is an append-only bid record. Vendor-initiated bids have
// IsProxyBid=false; automatic counter-bids spawned by the cascade copy
// MaxProxyBid from their parent and reference it via ProxyBidParentID.
// After creation only BidStatus and AutoBidCount ever change.
type ProxyBid struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	AuctionID         uuid.UUID       `gorm:"column:auction_id;type:uuid;not null;index"`
	VendorID          uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null"`
	MaxProxyBid       decimal.Decimal `gorm:"column:max_proxy_bid;type:numeric(14,2);not null"`
	CurrentBidAmount  decimal.Decimal `gorm:"column:current_bid_amount;type:numeric(14,2);not null"`
	OriginalBidAmount decimal.Decimal `gorm:"column:original_bid_amount;type:numeric(14,2);not null"`
	IsProxyBid        bool            `gorm:"column:is_proxy_bid;not null;default:false"`
	ProxyBidParentID  *uuid.UUID      `gorm:"column:proxy_bid_parent_id;type:uuid"`
	BidStatus         enums.BidStatus `gorm:"column:bid_status;type:text;not null;default:'active'"`
	AutoBidCount      int             `gorm:"column:auto_bid_count;not null;default:0"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}
