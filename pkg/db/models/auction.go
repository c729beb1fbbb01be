package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bidhaus/bidhaus-backend/pkg/enums"
)

// Auction is the durable record for a timed listing. CurrentPrice is
// non-decreasing once bidding starts and always equals the committed amount
// of the bid referenced by LeadingBidID.
type Auction struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ItemID             uuid.UUID           `gorm:"column:item_id;type:uuid;not null"`
	CreatedBy          uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	StartingPrice      decimal.Decimal     `gorm:"column:starting_price;type:numeric(14,2);not null"`
	CurrentPrice       decimal.Decimal     `gorm:"column:current_price;type:numeric(14,2);not null"`
	MinIncrement       decimal.Decimal     `gorm:"column:min_increment;type:numeric(14,2);not null"`
	LeadingBidID       *uuid.UUID          `gorm:"column:leading_bid_id;type:uuid"`
	Status             enums.AuctionStatus `gorm:"column:status;type:text;not null;default:'active'"`
	TotalBids          int                 `gorm:"column:total_bids;not null;default:0"`
	SoftCloseTriggered bool                `gorm:"column:soft_close_triggered;not null;default:false"`
	EndsAt             time.Time           `gorm:"column:ends_at;not null"`
	ExtendedEndsAt     *time.Time          `gorm:"column:extended_ends_at"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectiveEndsAt returns the soft-close-extended deadline when one is set,
// otherwise the original deadline.
func (a *Auction) EffectiveEndsAt() time.Time {
	if a.ExtendedEndsAt != nil {
		return *a.ExtendedEndsAt
	}
	return a.EndsAt
}

// HasEnded reports whether the effective deadline has passed at the given instant.
func (a *Auction) HasEnded(now time.Time) bool {
	return now.After(a.EffectiveEndsAt())
}
