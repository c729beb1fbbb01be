package auctions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bidhaus/bidhaus-backend/pkg/config"
	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	"github.com/bidhaus/bidhaus-backend/pkg/enums"
	pkgerrors "github.com/bidhaus/bidhaus-backend/pkg/errors"
	"github.com/bidhaus/bidhaus-backend/pkg/logger"
	"github.com/bidhaus/bidhaus-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// settler lets listing reads opportunistically finalize expired auctions so
// callers never see a stale "active" auction that has already ended.
type settler interface {
	SettleDue(ctx context.Context) (int, error)
}

// Service defines auction listing operations.
type Service interface {
	Create(ctx context.Context, input CreateAuctionInput) (*models.Auction, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*AuctionList, error)
	BidHistory(ctx context.Context, auctionID uuid.UUID) ([]BidHistoryEntry, error)
}

// ServiceParams collect the dependencies for the auctions service.
type ServiceParams struct {
	Repo    Repository
	Settler settler
	Engine  config.EngineConfig
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	settler settler
	engine  config.EngineConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the auctions service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("auctions repository required")
	}
	if params.Logger == nil {
		params.Logger = logger.New(logger.Options{ServiceName: "auctions"})
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:    params.Repo,
		settler: params.Settler,
		engine:  params.Engine,
		logg:    params.Logger,
		now:     params.Now,
	}, nil
}

// Create validates and persists a new listing. The current price starts equal
// to the starting price and the deadline is fixed at creation.
func (s *service) Create(ctx context.Context, input CreateAuctionInput) (*models.Auction, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if !input.StartingPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "starting price must be positive")
	}
	if input.DurationHours <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be positive")
	}
	if max := s.engine.MaxAuctionDurationHr; max > 0 && input.DurationHours > max {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("duration cannot exceed %d hours", max))
	}

	increment := s.engine.MinIncrement()
	if input.MinIncrement != nil {
		if !input.MinIncrement.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "min increment must be positive")
		}
		increment = *input.MinIncrement
	}

	now := s.now()
	auction := &models.Auction{
		ItemID:        input.ItemID,
		CreatedBy:     input.CreatedBy,
		StartingPrice: input.StartingPrice,
		CurrentPrice:  input.StartingPrice,
		MinIncrement:  increment,
		Status:        enums.AuctionStatusActive,
		EndsAt:        now.Add(time.Duration(input.DurationHours) * time.Hour),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := s.repo.Create(ctx, auction)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "creating auction")
	}
	s.logg.Info(s.logg.WithAuctionID(ctx, created.ID.String()), "auction created")
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id required")
	}
	auction, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "loading auction")
	}
	return auction, nil
}

// List reads a page of auctions. Expired active auctions are settled first so
// the returned snapshot is consistent with the deadlines it reports.
func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*AuctionList, error) {
	if s.settler != nil {
		if _, err := s.settler.SettleDue(ctx); err != nil {
			// Settlement failures must not break reads; the sweeper retries
			// on its own schedule.
			s.logg.Error(ctx, "on-demand settlement failed", err)
		}
	}
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "listing auctions")
	}
	return list, nil
}

// BidHistory returns the append-only bid log without exposing vendor ceilings.
func (s *service) BidHistory(ctx context.Context, auctionID uuid.UUID) ([]BidHistoryEntry, error) {
	if auctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id required")
	}
	if _, err := s.Get(ctx, auctionID); err != nil {
		return nil, err
	}
	bids, err := s.repo.ListBids(ctx, auctionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "listing bids")
	}
	history := make([]BidHistoryEntry, 0, len(bids))
	for _, bid := range bids {
		history = append(history, BidHistoryEntry{
			BidID:      bid.ID,
			VendorID:   bid.VendorID,
			Amount:     bid.CurrentBidAmount,
			IsProxyBid: bid.IsProxyBid,
			Status:     bid.BidStatus,
			PlacedAt:   bid.CreatedAt,
		})
	}
	return history, nil
}
