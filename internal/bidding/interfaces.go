package bidding

import (
	"context"

	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	"github.com/bidhaus/bidhaus-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for auctions and bid records.
// Bid rows are append-only: counter-bids insert new rows, status flips are the
// only permitted mutation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAuctionByID(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	FindBidByID(ctx context.Context, id uuid.UUID) (*models.ProxyBid, error)
	CreateBid(ctx context.Context, bid *models.ProxyBid) (*models.ProxyBid, error)
	UpdateBidStatus(ctx context.Context, bidID uuid.UUID, status enums.BidStatus) error
	IncrementAutoBidCount(ctx context.Context, bidID uuid.UUID) error
	CompetingBids(ctx context.Context, auctionID uuid.UUID, excludeVendor uuid.UUID) ([]models.ProxyBid, error)
	UpdateAuction(ctx context.Context, auctionID uuid.UUID, updates map[string]any) error
}
