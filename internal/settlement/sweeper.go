package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bidhaus/bidhaus-backend/internal/locks"
	"github.com/bidhaus/bidhaus-backend/internal/notifier"
	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	"github.com/bidhaus/bidhaus-backend/pkg/enums"
	pkgerrors "github.com/bidhaus/bidhaus-backend/pkg/errors"
	"github.com/bidhaus/bidhaus-backend/pkg/logger"
	"github.com/bidhaus/bidhaus-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const defaultBatchSize = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lockManager interface {
	Acquire(ctx context.Context, name string) (string, error)
	Release(ctx context.Context, name string, token string) error
}

// Outcome describes what settling one auction did.
type Outcome struct {
	AuctionID    uuid.UUID
	Settled      bool
	WinningBidID *uuid.UUID
	WinnerID     *uuid.UUID
}

// SweeperParams collect the dependencies for the settlement sweeper.
type SweeperParams struct {
	Repo      Repository
	TX        txRunner
	Locks     lockManager
	Notifier  notifier.Notifier
	Metrics   *metrics.EngineMetrics
	Logger    *logger.Logger
	BatchSize int
	Now       func() time.Time
}

// Sweeper finalizes auctions past their effective deadline: the leading bid
// becomes the winner, every other bid is lost, the auction completes.
// Settlement is idempotent and safe to run from multiple processes.
type Sweeper struct {
	repo    Repository
	tx      txRunner
	locks   lockManager
	notify  notifier.Notifier
	metrics *metrics.EngineMetrics
	logg    *logger.Logger
	batch   int
	now     func() time.Time
}

// NewSweeper builds the settlement sweeper.
func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settlement repository required")
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
		params.Logger = logger.New(logger.Options{ServiceName: "settlement"})
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Sweeper{
		repo:    params.Repo,
		tx:      params.TX,
		locks:   params.Locks,
		notify:  params.Notifier,
		metrics: params.Metrics,
		logg:    params.Logger,
		batch:   batch,
		now:     params.Now,
	}, nil
}

// SettleDue finds expired active auctions and settles each in turn. One
// auction failing does not stop the rest; errors are aggregated.
func (s *Sweeper) SettleDue(ctx context.Context) (int, error) {
	expired, err := s.repo.FindExpiredActive(ctx, s.now(), s.batch)
	if err != nil {
		return 0, fmt.Errorf("listing expired auctions: %w", err)
	}

	settled := 0
	var errs error
	for _, auction := range expired {
		outcome, err := s.SettleOne(ctx, auction.ID)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeLocked) {
				// Another worker or a live bid holds the auction; the next
				// sweep will pick it up.
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("auction %s: %w", auction.ID, err))
			continue
		}
		if outcome.Settled {
			settled++
		}
	}
	return settled, errs
}

// SettleOne finalizes a single auction under its lock. Already-completed
// auctions and auctions still running are a no-op, which makes re-running
// settlement safe.
func (s *Sweeper) SettleOne(ctx context.Context, auctionID uuid.UUID) (*Outcome, error) {
	ctx = s.logg.WithAuctionID(ctx, auctionID.String())

	lockName := locks.AuctionName(auctionID)
	token, err := s.locks.Acquire(ctx, lockName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring auction lock")
	}
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeLocked, "auction is busy")
	}
	defer func() {
		if releaseErr := s.locks.Release(ctx, lockName, token); releaseErr != nil && !errors.Is(releaseErr, locks.ErrNotHeld) {
			s.logg.Error(ctx, "releasing auction lock", releaseErr)
		}
	}()

	var (
		outcome   Outcome
		completed *notifier.AuctionCompletedEvent
		winNotice *notifier.VendorNotice
	)
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		auction, err := repo.FindAuctionByID(ctx, auctionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")
			}
			return err
		}

		outcome.AuctionID = auction.ID

		// The status check inside the transaction is what makes double
		// settlement impossible.
		if auction.Status != enums.AuctionStatusActive {
			return nil
		}
		if !auction.HasEnded(s.now()) {
			return nil
		}

		var winner *models.ProxyBid
		if auction.LeadingBidID != nil {
			winner, err = repo.FindBidByID(ctx, *auction.LeadingBidID)
			if err != nil {
				return fmt.Errorf("loading winning bid: %w", err)
			}
		}

		if err := repo.MarkLosingBids(ctx, auction.ID, auction.LeadingBidID); err != nil {
			return fmt.Errorf("marking losing bids: %w", err)
		}
		if err := repo.UpdateAuction(ctx, auction.ID, map[string]any{
			"status":     enums.AuctionStatusCompleted,
			"updated_at": s.now(),
		}); err != nil {
			return fmt.Errorf("completing auction: %w", err)
		}

		outcome.Settled = true
		event := notifier.AuctionCompletedEvent{
			AuctionID:  auction.ID,
			FinalPrice: auction.CurrentPrice,
			TotalBids:  auction.TotalBids,
		}
		if winner != nil {
			outcome.WinningBidID = &winner.ID
			outcome.WinnerID = &winner.VendorID
			event.WinningBidID = &winner.ID
			event.WinnerID = &winner.VendorID
			winNotice = &notifier.VendorNotice{
				VendorID:     winner.VendorID,
				AuctionID:    auction.ID,
				BidID:        winner.ID,
				Event:        enums.EventBidWinning,
				CurrentPrice: auction.CurrentPrice,
			}
		}
		completed = &event
		return nil
	})
	if txErr != nil {
		if engineErr := pkgerrors.As(txErr); engineErr != nil {
			return nil, engineErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, txErr, "settling auction")
	}

	if outcome.Settled {
		s.logg.Info(ctx, "auction settled")
		if completed != nil {
			if err := s.notify.AuctionCompleted(ctx, *completed); err != nil {
				s.logg.Error(ctx, "publishing auction completed event", err)
			}
		}
		if winNotice != nil {
			if err := s.notify.NotifyVendor(ctx, *winNotice); err != nil {
				s.logg.Error(ctx, "publishing winner notice", err)
			}
		}
		s.recordOutcome(outcome)
	}
	return &outcome, nil
}

func (s *Sweeper) recordOutcome(outcome Outcome) {
	if s.metrics == nil {
		return
	}
	if outcome.WinningBidID != nil {
		s.metrics.IncSettlement("won")
		return
	}
	s.metrics.IncSettlement("no_bids")
}
