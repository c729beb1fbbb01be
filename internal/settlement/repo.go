package settlement

import (
	"context"
	"time"

	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	"github.com/bidhaus/bidhaus-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAuctionByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&auction).Error
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *repository) FindBidByID(ctx context.Context, id uuid.UUID) (*models.ProxyBid, error) {
	var bid models.ProxyBid
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&bid).Error
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// FindExpiredActive returns active auctions whose effective deadline has
// passed, oldest first.
func (r *repository) FindExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Auction, error) {
	var auctions []models.Auction
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.AuctionStatusActive).
		Where("COALESCE(extended_ends_at, ends_at) < ?", now).
		Order("ends_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&auctions).Error; err != nil {
		return nil, err
	}
	return auctions, nil
}

// MarkLosingBids flips every bid except the winner to lost.
func (r *repository) MarkLosingBids(ctx context.Context, auctionID uuid.UUID, winningBidID *uuid.UUID) error {
	query := r.db.WithContext(ctx).
		Model(&models.ProxyBid{}).
		Where("auction_id = ?", auctionID)
	if winningBidID != nil {
		query = query.Where("id <> ?", *winningBidID)
	}
	return query.Update("bid_status", enums.BidStatusLost).Error
}

func (r *repository) UpdateAuction(ctx context.Context, auctionID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", auctionID).
		Updates(updates).Error
}
