package bidding

import (
	"context"
	"sort"

	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	"github.com/bidhaus/bidhaus-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bidding repository bound to the provided DB.
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

func (r *repository) CreateBid(ctx context.Context, bid *models.ProxyBid) (*models.ProxyBid, error) {
	if bid.ID == uuid.Nil {
		bid.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(bid).Error; err != nil {
		return nil, err
	}
	return bid, nil
}

func (r *repository) UpdateBidStatus(ctx context.Context, bidID uuid.UUID, status enums.BidStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.ProxyBid{}).
		Where("id = ?", bidID).
		Update("bid_status", status).Error
}

func (r *repository) IncrementAutoBidCount(ctx context.Context, bidID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProxyBid{}).
		Where("id = ?", bidID).
		Update("auto_bid_count", gorm.Expr("auto_bid_count + 1")).Error
}

// CompetingBids returns the latest standing bid per vendor, excluding the
// provided vendor, ordered by max ceiling descending. Outbid rows still count:
// a vendor's ceiling stands until the auction ends.
func (r *repository) CompetingBids(ctx context.Context, auctionID uuid.UUID, excludeVendor uuid.UUID) ([]models.ProxyBid, error) {
	var bids []models.ProxyBid
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Where("bid_status IN ?", statusStrings(enums.StandingBidStatuses)).
		Where("vendor_id <> ?", excludeVendor).
		Find(&bids).Error
	if err != nil {
		return nil, err
	}

	sortByRecencyDesc(bids)
	latest := make([]models.ProxyBid, 0, len(bids))
	seen := map[uuid.UUID]bool{}
	for _, bid := range bids {
		if seen[bid.VendorID] {
			continue
		}
		seen[bid.VendorID] = true
		latest = append(latest, bid)
	}
	sortByCeilingDesc(latest)
	return latest, nil
}

func (r *repository) UpdateAuction(ctx context.Context, auctionID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Auction{}).
		Where("id = ?", auctionID).
		Updates(updates).Error
}

func statusStrings(statuses []enums.BidStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

// sortByRecencyDesc orders bids newest first. Rows written in the same locked
// session share a created_at; the committed amount strictly increases within a
// session, so it breaks the tie deterministically.
func sortByRecencyDesc(bids []models.ProxyBid) {
	sort.SliceStable(bids, func(i, j int) bool {
		if !bids[i].CreatedAt.Equal(bids[j].CreatedAt) {
			return bids[i].CreatedAt.After(bids[j].CreatedAt)
		}
		return bids[i].CurrentBidAmount.GreaterThan(bids[j].CurrentBidAmount)
	})
}

// sortByCeilingDesc orders bids by ceiling descending; ties go to the earlier bid.
func sortByCeilingDesc(bids []models.ProxyBid) {
	sort.SliceStable(bids, func(i, j int) bool {
		if !bids[i].MaxProxyBid.Equal(bids[j].MaxProxyBid) {
			return bids[i].MaxProxyBid.GreaterThan(bids[j].MaxProxyBid)
		}
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
}
