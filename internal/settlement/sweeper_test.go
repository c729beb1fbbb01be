package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bidhaus/bidhaus-backend/internal/notifier"
	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	"github.com/bidhaus/bidhaus-backend/pkg/enums"
	pkgerrors "github.com/bidhaus/bidhaus-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeRepo struct {
	auctions map[uuid.UUID]*models.Auction
	bids     []*models.ProxyBid
	findErr  map[uuid.UUID]error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		auctions: map[uuid.UUID]*models.Auction{},
		findErr:  map[uuid.UUID]error{},
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) FindAuctionByID(_ context.Context, id uuid.UUID) (*models.Auction, error) {
	if err, ok := f.findErr[id]; ok {
		return nil, err
	}
	auction, ok := f.auctions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *auction
	return &copied, nil
}

func (f *fakeRepo) FindBidByID(_ context.Context, id uuid.UUID) (*models.ProxyBid, error) {
	for _, bid := range f.bids {
		if bid.ID == id {
			copied := *bid
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) FindExpiredActive(_ context.Context, now time.Time, limit int) ([]models.Auction, error) {
	expired := []models.Auction{}
	for _, auction := range f.auctions {
		if auction.Status == enums.AuctionStatusActive && auction.HasEnded(now) {
			expired = append(expired, *auction)
		}
	}
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (f *fakeRepo) MarkLosingBids(_ context.Context, auctionID uuid.UUID, winningBidID *uuid.UUID) error {
	for _, bid := range f.bids {
		if bid.AuctionID != auctionID {
			continue
		}
		if winningBidID != nil && bid.ID == *winningBidID {
			continue
		}
		bid.BidStatus = enums.BidStatusLost
	}
	return nil
}

func (f *fakeRepo) UpdateAuction(_ context.Context, auctionID uuid.UUID, updates map[string]any) error {
	auction, ok := f.auctions[auctionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["status"]; ok {
		auction.Status = v.(enums.AuctionStatus)
	}
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeLocks struct {
	busy map[string]bool
}

func (f *fakeLocks) Acquire(_ context.Context, name string) (string, error) {
	if f.busy[name] {
		return "", nil
	}
	return uuid.NewString(), nil
}

func (f *fakeLocks) Release(context.Context, string, string) error { return nil }

type captureNotifier struct {
	completed []notifier.AuctionCompletedEvent
	notices   []notifier.VendorNotice
}

func (c *captureNotifier) BidPlaced(context.Context, notifier.BidPlacedEvent) error { return nil }
func (c *captureNotifier) AuctionExtended(context.Context, notifier.AuctionExtendedEvent) error {
	return nil
}

func (c *captureNotifier) AuctionCompleted(_ context.Context, e notifier.AuctionCompletedEvent) error {
	c.completed = append(c.completed, e)
	return nil
}

func (c *captureNotifier) NotifyVendor(_ context.Context, n notifier.VendorNotice) error {
	c.notices = append(c.notices, n)
	return nil
}

type sweeperFixture struct {
	sweeper  *Sweeper
	repo     *fakeRepo
	locks    *fakeLocks
	notifier *captureNotifier
	now      time.Time
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()
	repo := newFakeRepo()
	lockMgr := &fakeLocks{busy: map[string]bool{}}
	capture := &captureNotifier{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sweeper, err := NewSweeper(SweeperParams{
		Repo:     repo,
		TX:       fakeTx{},
		Locks:    lockMgr,
		Notifier: capture,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("construct sweeper: %v", err)
	}
	return &sweeperFixture{sweeper: sweeper, repo: repo, locks: lockMgr, notifier: capture, now: now}
}

func (fx *sweeperFixture) addExpiredAuction(withWinner bool) *models.Auction {
	auction := &models.Auction{
		ID:           uuid.New(),
		CreatedBy:    uuid.New(),
		CurrentPrice: decimal.RequireFromString("750"),
		Status:       enums.AuctionStatusActive,
		EndsAt:       fx.now.Add(-time.Minute),
		TotalBids:    3,
	}
	if withWinner {
		winner := &models.ProxyBid{
			ID:               uuid.New(),
			AuctionID:        auction.ID,
			VendorID:         uuid.New(),
			CurrentBidAmount: auction.CurrentPrice,
			BidStatus:        enums.BidStatusWinning,
		}
		loser := &models.ProxyBid{
			ID:               uuid.New(),
			AuctionID:        auction.ID,
			VendorID:         uuid.New(),
			CurrentBidAmount: decimal.RequireFromString("700"),
			BidStatus:        enums.BidStatusOutbid,
		}
		fx.repo.bids = append(fx.repo.bids, winner, loser)
		auction.LeadingBidID = &winner.ID
	}
	fx.repo.auctions[auction.ID] = auction
	return auction
}

func TestSettleOneFinalizesWinnerAndLosers(t *testing.T) {
	fx := newSweeperFixture(t)
	auction := fx.addExpiredAuction(true)

	outcome, err := fx.sweeper.SettleOne(context.Background(), auction.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !outcome.Settled {
		t.Fatal("expected auction to settle")
	}
	if outcome.WinningBidID == nil || *outcome.WinningBidID != *auction.LeadingBidID {
		t.Fatal("expected the leading bid to win")
	}

	if fx.repo.auctions[auction.ID].Status != enums.AuctionStatusCompleted {
		t.Fatal("expected auction to be completed")
	}
	for _, bid := range fx.repo.bids {
		if bid.ID == *auction.LeadingBidID {
			if bid.BidStatus != enums.BidStatusWinning {
				t.Fatal("winner must keep winning status")
			}
			continue
		}
		if bid.BidStatus != enums.BidStatusLost {
			t.Fatalf("expected losing bid %s to be lost, got %s", bid.ID, bid.BidStatus)
		}
	}

	if len(fx.notifier.completed) != 1 {
		t.Fatalf("expected 1 completed event, got %d", len(fx.notifier.completed))
	}
	if len(fx.notifier.notices) != 1 || fx.notifier.notices[0].Event != enums.EventBidWinning {
		t.Fatal("expected a winning notice for the winner")
	}
}

func TestSettleOneIsIdempotent(t *testing.T) {
	fx := newSweeperFixture(t)
	auction := fx.addExpiredAuction(true)

	if _, err := fx.sweeper.SettleOne(context.Background(), auction.ID); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	outcome, err := fx.sweeper.SettleOne(context.Background(), auction.ID)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if outcome.Settled {
		t.Fatal("second settlement must be a no-op")
	}
	if len(fx.notifier.completed) != 1 {
		t.Fatalf("expected no duplicate completed events, got %d", len(fx.notifier.completed))
	}
}

func TestSettleOneNoBids(t *testing.T) {
	fx := newSweeperFixture(t)
	auction := fx.addExpiredAuction(false)

	outcome, err := fx.sweeper.SettleOne(context.Background(), auction.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !outcome.Settled {
		t.Fatal("expected auction to settle")
	}
	if outcome.WinningBidID != nil {
		t.Fatal("expected no winner")
	}
	if len(fx.notifier.completed) != 1 {
		t.Fatalf("expected completed event, got %d", len(fx.notifier.completed))
	}
	if fx.notifier.completed[0].WinnerID != nil {
		t.Fatal("completed event must not name a winner")
	}
	if len(fx.notifier.notices) != 0 {
		t.Fatal("no vendor notices expected without a winner")
	}
}

func TestSettleOneStillRunningIsNoop(t *testing.T) {
	fx := newSweeperFixture(t)
	auction := fx.addExpiredAuction(true)
	fx.repo.auctions[auction.ID].EndsAt = fx.now.Add(time.Hour)

	outcome, err := fx.sweeper.SettleOne(context.Background(), auction.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if outcome.Settled {
		t.Fatal("a running auction must not settle")
	}
	if fx.repo.auctions[auction.ID].Status != enums.AuctionStatusActive {
		t.Fatal("auction must stay active")
	}
}

func TestSettleOneRespectsExtendedDeadline(t *testing.T) {
	fx := newSweeperFixture(t)
	auction := fx.addExpiredAuction(true)
	extended := fx.now.Add(2 * time.Minute)
	fx.repo.auctions[auction.ID].ExtendedEndsAt = &extended

	outcome, err := fx.sweeper.SettleOne(context.Background(), auction.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if outcome.Settled {
		t.Fatal("an extended auction must not settle before the extension passes")
	}
}

func TestSettleOneLockContention(t *testing.T) {
	fx := newSweeperFixture(t)
	auction := fx.addExpiredAuction(true)
	fx.locks.busy["auction:"+auction.ID.String()] = true

	_, err := fx.sweeper.SettleOne(context.Background(), auction.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeLocked) {
		t.Fatalf("expected Locked, got %v", err)
	}
}

func TestSettleDueSkipsLockedAndAggregatesErrors(t *testing.T) {
	fx := newSweeperFixture(t)
	okAuction := fx.addExpiredAuction(true)
	locked := fx.addExpiredAuction(true)
	broken := fx.addExpiredAuction(false)

	fx.locks.busy["auction:"+locked.ID.String()] = true
	fx.repo.findErr[broken.ID] = errors.New("connection reset")

	settled, err := fx.sweeper.SettleDue(context.Background())
	if settled != 1 {
		t.Fatalf("expected 1 settled auction, got %d", settled)
	}
	if err == nil {
		t.Fatal("expected aggregated error for the broken auction")
	}
	if fx.repo.auctions[okAuction.ID].Status != enums.AuctionStatusCompleted {
		t.Fatal("healthy auction must settle despite sibling failures")
	}
	if fx.repo.auctions[locked.ID].Status != enums.AuctionStatusActive {
		t.Fatal("locked auction must be left for the next sweep")
	}
}
