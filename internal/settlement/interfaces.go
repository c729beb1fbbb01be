package settlement

import (
	"context"
	"time"

	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the persistence operations settlement needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAuctionByID(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	FindBidByID(ctx context.Context, id uuid.UUID) (*models.ProxyBid, error)
	FindExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Auction, error)
	MarkLosingBids(ctx context.Context, auctionID uuid.UUID, winningBidID *uuid.UUID) error
	UpdateAuction(ctx context.Context, auctionID uuid.UUID, updates map[string]any) error
}
