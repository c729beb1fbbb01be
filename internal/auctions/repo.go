package auctions

import (
	"context"

	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	"github.com/bidhaus/bidhaus-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an auctions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, auction *models.Auction) (*models.Auction, error) {
	if auction.ID == uuid.Nil {
		auction.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(auction).Error; err != nil {
		return nil, err
	}
	return auction, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&auction).Error
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*AuctionList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Auction{})
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	if filters.CreatedBy != nil {
		qb = qb.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.ItemID != nil {
		qb = qb.Where("item_id = ?", *filters.ItemID)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var auctions []models.Auction
	err = qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&auctions).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(auctions) > pageSize {
		auctions = auctions[:pageSize]
		last := auctions[len(auctions)-1]
		nextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}

	return &AuctionList{
		Auctions:   auctions,
		NextCursor: nextCursor,
	}, nil
}

// ListBids returns an auction's full append-only bid history, oldest first.
func (r *repository) ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.ProxyBid, error) {
	var bids []models.ProxyBid
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("created_at ASC").
		Find(&bids).Error
	if err != nil {
		return nil, err
	}
	return bids, nil
}
