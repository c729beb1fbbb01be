package bidding

import (
	"testing"

	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	pkgerrors "github.com/bidhaus/bidhaus-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return d
}

func testAuction(t *testing.T, current string) *models.Auction {
	t.Helper()
	return &models.Auction{
		ID:            uuid.New(),
		StartingPrice: dec(t, "500"),
		CurrentPrice:  dec(t, current),
		MinIncrement:  dec(t, "50"),
	}
}

func TestResolveCommitAmountFreshAuction(t *testing.T) {
	auction := testAuction(t, "500")
	amount, err := resolveCommitAmount(auction, nil, uuid.New(), dec(t, "800"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !amount.Equal(dec(t, "500")) {
		t.Fatalf("expected commit at starting price 500, got %s", amount)
	}
}

func TestResolveCommitAmountAgainstRivalLeader(t *testing.T) {
	auction := testAuction(t, "500")
	leader := &models.ProxyBid{
		ID:          uuid.New(),
		VendorID:    uuid.New(),
		MaxProxyBid: dec(t, "1000"),
	}
	auction.LeadingBidID = &leader.ID

	amount, err := resolveCommitAmount(auction, leader, uuid.New(), dec(t, "1200"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !amount.Equal(dec(t, "550")) {
		t.Fatalf("expected commit at 550, got %s", amount)
	}
}

func TestResolveCommitAmountRivalBelowMinimum(t *testing.T) {
	auction := testAuction(t, "900")
	leader := &models.ProxyBid{
		ID:          uuid.New(),
		VendorID:    uuid.New(),
		MaxProxyBid: dec(t, "1000"),
	}

	_, err := resolveCommitAmount(auction, leader, uuid.New(), dec(t, "925"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeMustExceed) {
		t.Fatalf("expected MustExceed, got %v", err)
	}
	engineErr := pkgerrors.As(err)
	details, ok := engineErr.Details().(amountDetails)
	if !ok {
		t.Fatalf("expected amount details, got %T", engineErr.Details())
	}
	if details.MinimumRequired != "950.00" {
		t.Fatalf("expected minimum 950.00, got %s", details.MinimumRequired)
	}
}

func TestResolveCommitAmountLeaderRaisesOwnCeiling(t *testing.T) {
	vendor := uuid.New()
	auction := testAuction(t, "600")
	leader := &models.ProxyBid{
		ID:          uuid.New(),
		VendorID:    vendor,
		MaxProxyBid: dec(t, "1000"),
	}

	// Raising above the standing ceiling keeps the current price.
	amount, err := resolveCommitAmount(auction, leader, vendor, dec(t, "1500"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !amount.Equal(dec(t, "600")) {
		t.Fatalf("expected price to stay at 600, got %s", amount)
	}

	// A ceiling at or below the standing one is refused.
	_, err = resolveCommitAmount(auction, leader, vendor, dec(t, "1000"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeMustExceed) {
		t.Fatalf("expected MustExceed, got %v", err)
	}
}

func TestNextCounterBid(t *testing.T) {
	tests := []struct {
		name          string
		current       string
		leaderCeiling string
		ceiling       string
		want          string
		ok            bool
	}{
		{
			name:    "capped at own ceiling when below leader",
			current: "550", leaderCeiling: "1200", ceiling: "1000",
			want: "1000", ok: true,
		},
		{
			name:    "one increment above leader ceiling",
			current: "1000", leaderCeiling: "1000", ceiling: "1200",
			want: "1050", ok: true,
		},
		{
			name:    "ceiling cannot beat current price",
			current: "1050", leaderCeiling: "1200", ceiling: "1000",
			ok: false,
		},
		{
			name:    "ceiling equal to current price is not enough",
			current: "1000", leaderCeiling: "1200", ceiling: "1000",
			ok: false,
		},
	}

	incr := decimal.RequireFromString("50")
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			amount, ok := nextCounterBid(
				decimal.RequireFromString(tc.current),
				incr,
				decimal.RequireFromString(tc.leaderCeiling),
				decimal.RequireFromString(tc.ceiling),
			)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if !ok {
				return
			}
			if !amount.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("expected %s, got %s", tc.want, amount)
			}
		})
	}
}
