package auctions

import (
	"context"

	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	"github.com/bidhaus/bidhaus-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for auction listings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, auction *models.Auction) (*models.Auction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*AuctionList, error)
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.ProxyBid, error)
}
