package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bidhaus/bidhaus-backend/internal/locks"
	"github.com/bidhaus/bidhaus-backend/internal/notifier"
	"github.com/bidhaus/bidhaus-backend/pkg/config"
	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	"github.com/bidhaus/bidhaus-backend/pkg/enums"
	pkgerrors "github.com/bidhaus/bidhaus-backend/pkg/errors"
	"github.com/bidhaus/bidhaus-backend/pkg/logger"
	"github.com/bidhaus/bidhaus-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxCascadeRounds bounds the counter-bid loop. The price strictly increases
// each round so the cascade always terminates; the bound only guards against
// a corrupted bid set.
const maxCascadeRounds = 1000

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lockManager interface {
	Acquire(ctx context.Context, name string) (string, error)
	Release(ctx context.Context, name string, token string) error
}

// ProxyBidInput carries a vendor's ceiling for one auction.
type ProxyBidInput struct {
	AuctionID   uuid.UUID
	VendorID    uuid.UUID
	MaxProxyBid decimal.Decimal
}

// ProxyBidResult describes the vendor's committed bid and the auction state
// after any counter-bid cascade settled.
type ProxyBidResult struct {
	BidID           uuid.UUID
	CommittedAmount decimal.Decimal
	CurrentPrice    decimal.Decimal
	LeadingVendorID uuid.UUID
	IsLeading       bool
	TotalBids       int
	EndsAt          time.Time
	Extended        bool
	CascadeRounds   int
}

// Service processes proxy bids under per-auction mutual exclusion.
type Service interface {
	ProcessProxyBid(ctx context.Context, input ProxyBidInput) (*ProxyBidResult, error)
}

// ServiceParams collects the dependencies for the bidding service.
type ServiceParams struct {
	Repo     Repository
	TX       txRunner
	Locks    lockManager
	Notifier notifier.Notifier
	Engine   config.EngineConfig
	Metrics  *metrics.EngineMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	locks   lockManager
	notify  notifier.Notifier
	engine  config.EngineConfig
	metrics *metrics.EngineMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the bidding service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("bidding repository required")
	}
	if params.TX == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock manager required")
	}
	if params.Notifier == nil {
		params.Notifier = notifier.Noop{}
	}
	if params.Logger == nil {
		params.Logger = logger.New(logger.Options{ServiceName: "bidding"})
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.TX,
		locks:   params.Locks,
		notify:  params.Notifier,
		engine:  params.Engine,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     params.Now,
	}, nil
}

// pendingEvents accumulates notifications inside the transaction; they are
// dispatched only after the commit succeeds.
type pendingEvents struct {
	placed    []notifier.BidPlacedEvent
	extended  *notifier.AuctionExtendedEvent
	notices   []notifier.VendorNotice
	auctionID uuid.UUID
}

// ProcessProxyBid validates, resolves and commits a vendor's proxy bid, runs
// the counter-bid cascade and the soft-close check, then notifies. All state
// transitions happen under the auction's lock and inside one transaction.
func (s *service) ProcessProxyBid(ctx context.Context, input ProxyBidInput) (*ProxyBidResult, error) {
	if input.AuctionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auction id required")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if !input.MaxProxyBid.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max proxy bid must be positive")
	}

	ctx = s.logg.WithAuctionID(ctx, input.AuctionID.String())
	ctx = s.logg.WithVendorID(ctx, input.VendorID.String())

	lockName := locks.AuctionName(input.AuctionID)
	token, err := s.locks.Acquire(ctx, lockName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring auction lock")
	}
	if token == "" {
		s.metrics.IncLockContention()
		return nil, pkgerrors.New(pkgerrors.CodeLocked, "auction is processing another bid")
	}
	defer func() {
		if releaseErr := s.locks.Release(ctx, lockName, token); releaseErr != nil && !errors.Is(releaseErr, locks.ErrNotHeld) {
			s.logg.Error(ctx, "releasing auction lock", releaseErr)
		}
	}()

	var (
		result *ProxyBidResult
		events pendingEvents
	)
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		res, ev, err := s.processLocked(ctx, repo, input)
		if err != nil {
			return err
		}
		result = res
		events = *ev
		return nil
	})
	if txErr != nil {
		if engineErr := pkgerrors.As(txErr); engineErr != nil {
			s.recordRejection(engineErr)
			return nil, engineErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, txErr, "committing bid")
	}

	s.dispatch(ctx, events)
	s.metrics.ObserveCascadeDepth(result.CascadeRounds)
	if result.Extended {
		s.metrics.IncExtension()
	}
	return result, nil
}

func (s *service) processLocked(ctx context.Context, repo Repository, input ProxyBidInput) (*ProxyBidResult, *pendingEvents, error) {
	now := s.now()
	auction, err := repo.FindAuctionByID(ctx, input.AuctionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "loading auction")
	}

	if err := validateEligibility(auction, input, now); err != nil {
		return nil, nil, err
	}

	var leader *models.ProxyBid
	if auction.LeadingBidID != nil {
		leader, err = repo.FindBidByID(ctx, *auction.LeadingBidID)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "loading leading bid")
		}
	}

	amount, err := resolveCommitAmount(auction, leader, input.VendorID, input.MaxProxyBid)
	if err != nil {
		return nil, nil, err
	}

	events := &pendingEvents{auctionID: auction.ID}

	// Commit the vendor's own bid.
	bid, err := s.commitBid(ctx, repo, auction, leader, now, &models.ProxyBid{
		AuctionID:         auction.ID,
		VendorID:          input.VendorID,
		MaxProxyBid:       input.MaxProxyBid,
		CurrentBidAmount:  amount,
		OriginalBidAmount: amount,
		IsProxyBid:        false,
		BidStatus:         enums.BidStatusWinning,
		CreatedAt:         now,
	}, events)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.IncBidCommitted("direct")
	leader = bid

	// Counter-bid cascade: one automatic bid per round, strictly increasing
	// price, until no standing ceiling can beat the current price.
	rounds := 0
	for rounds < maxCascadeRounds {
		competitors, err := repo.CompetingBids(ctx, auction.ID, leader.VendorID)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "loading competing bids")
		}
		if len(competitors) == 0 {
			break
		}
		top := competitors[0]
		counter, ok := nextCounterBid(auction.CurrentPrice, auction.MinIncrement, leader.MaxProxyBid, top.MaxProxyBid)
		if !ok {
			break
		}

		parentID := top.ID
		auto, err := s.commitBid(ctx, repo, auction, leader, now, &models.ProxyBid{
			AuctionID:         auction.ID,
			VendorID:          top.VendorID,
			MaxProxyBid:       top.MaxProxyBid,
			CurrentBidAmount:  counter,
			OriginalBidAmount: counter,
			IsProxyBid:        true,
			ProxyBidParentID:  &parentID,
			BidStatus:         enums.BidStatusWinning,
			CreatedAt:         now,
		}, events)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.IncrementAutoBidCount(ctx, parentID); err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "updating auto bid count")
		}
		s.metrics.IncBidCommitted("counter")
		leader = auto
		rounds++
	}

	extended := s.checkSoftClose(auction, now, events)

	updates := map[string]any{
		"current_price":  auction.CurrentPrice,
		"leading_bid_id": auction.LeadingBidID,
		"total_bids":     auction.TotalBids,
		"updated_at":     now,
	}
	if extended {
		updates["extended_ends_at"] = auction.ExtendedEndsAt
		updates["soft_close_triggered"] = true
	}
	if err := repo.UpdateAuction(ctx, auction.ID, updates); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "updating auction")
	}

	events.notices = append(events.notices, notifier.VendorNotice{
		VendorID:     leader.VendorID,
		AuctionID:    auction.ID,
		BidID:        leader.ID,
		Event:        enums.EventBidWinning,
		CurrentPrice: auction.CurrentPrice,
	})

	return &ProxyBidResult{
		BidID:           bid.ID,
		CommittedAmount: bid.CurrentBidAmount,
		CurrentPrice:    auction.CurrentPrice,
		LeadingVendorID: leader.VendorID,
		IsLeading:       leader.VendorID == input.VendorID,
		TotalBids:       auction.TotalBids,
		EndsAt:          auction.EffectiveEndsAt(),
		Extended:        extended,
		CascadeRounds:   rounds,
	}, events, nil
}

// commitBid inserts a bid row, demotes the previous leader, and advances the
// in-memory auction state. The auction row itself is persisted once at the end
// of the locked session; the enclosing transaction makes the whole session
// atomic.
func (s *service) commitBid(ctx context.Context, repo Repository, auction *models.Auction, prevLeader *models.ProxyBid, now time.Time, bid *models.ProxyBid, events *pendingEvents) (*models.ProxyBid, error) {
	created, err := repo.CreateBid(ctx, bid)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "inserting bid")
	}

	if prevLeader != nil {
		if err := repo.UpdateBidStatus(ctx, prevLeader.ID, enums.BidStatusOutbid); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "demoting previous leader")
		}
		if prevLeader.VendorID != created.VendorID {
			events.notices = append(events.notices, notifier.VendorNotice{
				VendorID:     prevLeader.VendorID,
				AuctionID:    auction.ID,
				BidID:        prevLeader.ID,
				Event:        enums.EventBidOutbid,
				CurrentPrice: created.CurrentBidAmount,
			})
		}
	}

	auction.CurrentPrice = created.CurrentBidAmount
	auction.LeadingBidID = &created.ID
	auction.TotalBids++

	events.placed = append(events.placed, notifier.BidPlacedEvent{
		AuctionID:     auction.ID,
		BidID:         created.ID,
		CurrentPrice:  created.CurrentBidAmount,
		LeadingVendor: created.VendorID,
		TotalBids:     auction.TotalBids,
		TimeRemaining: auction.EffectiveEndsAt().Sub(now),
		IsProxyBid:    created.IsProxyBid,
	})
	return created, nil
}

// checkSoftClose extends the deadline when a bid lands inside the soft-close
// window. The extension fires at most once per auction.
func (s *service) checkSoftClose(auction *models.Auction, now time.Time, events *pendingEvents) bool {
	if auction.SoftCloseTriggered {
		return false
	}
	remaining := auction.EffectiveEndsAt().Sub(now)
	if remaining > s.engine.SoftCloseWindow {
		return false
	}
	newEnd := now.Add(s.engine.ExtensionDuration)
	auction.ExtendedEndsAt = &newEnd
	auction.SoftCloseTriggered = true
	events.extended = &notifier.AuctionExtendedEvent{
		AuctionID: auction.ID,
		NewEndsAt: newEnd,
	}
	return true
}

// validateEligibility applies the pre-mutation bid checks. Failures here never
// need a rollback because nothing has been written yet.
func validateEligibility(auction *models.Auction, input ProxyBidInput, now time.Time) error {
	if auction.Status != enums.AuctionStatusActive {
		return pkgerrors.New(pkgerrors.CodeNotActive, "auction is not open for bidding")
	}
	if auction.HasEnded(now) {
		return pkgerrors.New(pkgerrors.CodeExpired, "auction has ended")
	}
	if input.VendorID == auction.CreatedBy {
		return pkgerrors.New(pkgerrors.CodeSelfBid, "sellers cannot bid on their own auctions")
	}
	minimum := auction.CurrentPrice.Add(auction.MinIncrement)
	if input.MaxProxyBid.LessThan(minimum) {
		return pkgerrors.New(pkgerrors.CodeBidTooLow, "bid is below the minimum").
			WithDetails(amountDetails{MinimumRequired: minimum.StringFixed(2)})
	}
	return nil
}

func (s *service) recordRejection(err *pkgerrors.Error) {
	if s.metrics == nil || err == nil {
		return
	}
	switch err.Code() {
	case pkgerrors.CodeBidTooLow, pkgerrors.CodeMustExceed, pkgerrors.CodeNotActive,
		pkgerrors.CodeExpired, pkgerrors.CodeSelfBid, pkgerrors.CodeNotFound:
		s.metrics.IncBidRejected(string(err.Code()))
	}
}

// dispatch delivers collected events after the transaction commits. Delivery
// failures are logged, never surfaced to the bidder.
func (s *service) dispatch(ctx context.Context, events pendingEvents) {
	for _, placed := range events.placed {
		if err := s.notify.BidPlaced(ctx, placed); err != nil {
			s.logg.Error(ctx, "publishing bid placed event", err)
		}
	}
	if events.extended != nil {
		if err := s.notify.AuctionExtended(ctx, *events.extended); err != nil {
			s.logg.Error(ctx, "publishing auction extended event", err)
		}
	}
	for _, notice := range events.notices {
		if err := s.notify.NotifyVendor(ctx, notice); err != nil {
			s.logg.Error(ctx, "publishing vendor notice", err)
		}
	}
}
