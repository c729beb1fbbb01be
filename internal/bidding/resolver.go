package bidding

import (
	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	pkgerrors "github.com/bidhaus/bidhaus-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// amountDetails is attached to pricing rejections so callers learn the
// minimum acceptable ceiling without seeing competitor maximums.
type amountDetails struct {
	MinimumRequired string `json:"minimum_required"`
}

// resolveCommitAmount decides the price a new ceiling enters the auction at.
//
// A fresh auction commits at the starting price. A leader raising their own
// ceiling keeps the current price; the price only moves when vendors compete.
// Against a rival leader the entrant commits one increment above the current
// price, which their ceiling must cover.
func resolveCommitAmount(auction *models.Auction, leader *models.ProxyBid, vendorID uuid.UUID, maxProxyBid decimal.Decimal) (decimal.Decimal, error) {
	if leader == nil {
		if maxProxyBid.LessThan(auction.StartingPrice) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeBidTooLow, "bid is below the starting price").
				WithDetails(amountDetails{MinimumRequired: auction.StartingPrice.StringFixed(2)})
		}
		return auction.StartingPrice, nil
	}

	if leader.VendorID == vendorID {
		if maxProxyBid.LessThanOrEqual(leader.MaxProxyBid) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeMustExceed, "new ceiling must exceed your standing ceiling").
				WithDetails(amountDetails{MinimumRequired: leader.MaxProxyBid.StringFixed(2)})
		}
		return auction.CurrentPrice, nil
	}

	needed := auction.CurrentPrice.Add(auction.MinIncrement)
	if maxProxyBid.LessThan(needed) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeMustExceed, "bid cannot beat the current price").
			WithDetails(amountDetails{MinimumRequired: needed.StringFixed(2)})
	}
	return needed, nil
}

// nextCounterBid computes the amount a standing proxy counter-bids at: one
// increment above the leader's ceiling, capped by the proxy's own ceiling.
// Second-price logic: the eventual winner pays one increment above the best
// rejected ceiling, never their full ceiling unless forced to. The second
// return is false when the ceiling cannot beat the current price, which ends
// the cascade.
func nextCounterBid(currentPrice, minIncrement, leaderCeiling, ceiling decimal.Decimal) (decimal.Decimal, bool) {
	amount := decimal.Min(ceiling, leaderCeiling.Add(minIncrement))
	if amount.LessThanOrEqual(currentPrice) {
		return decimal.Zero, false
	}
	return amount, true
}
