package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bidhaus/bidhaus-backend/api/responses"
	"github.com/bidhaus/bidhaus-backend/api/validators"
	biddingsvc "github.com/bidhaus/bidhaus-backend/internal/bidding"
	pkgerrors "github.com/bidhaus/bidhaus-backend/pkg/errors"
	"github.com/bidhaus/bidhaus-backend/pkg/logger"
)

// PlaceBid commits a maximum proxy bid against an auction. The engine bids
// the minimum needed on the vendor's behalf up to that ceiling.
func PlaceBid(svc biddingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bidding service unavailable"))
			return
		}

		vendorID, err := vendorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		auctionID, err := auctionIDFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeBidRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		maxProxyBid, err := decimal.NewFromString(strings.TrimSpace(payload.MaxProxyBid))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid max proxy bid"))
			return
		}

		result, err := svc.ProcessProxyBid(r.Context(), biddingsvc.ProxyBidInput{
			AuctionID:   auctionID,
			VendorID:    vendorID,
			MaxProxyBid: maxProxyBid,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toBidResponse(result))
	}
}

type placeBidRequest struct {
	MaxProxyBid string `json:"max_proxy_bid" validate:"required"`
}

type bidResponse struct {
	BidID           uuid.UUID       `json:"bid_id"`
	CommittedAmount decimal.Decimal `json:"committed_amount"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	LeadingVendorID uuid.UUID       `json:"leading_vendor_id"`
	IsLeading       bool            `json:"is_leading"`
	TotalBids       int             `json:"total_bids"`
	EndsAt          time.Time       `json:"ends_at"`
	Extended        bool            `json:"extended"`
}

func toBidResponse(result *biddingsvc.ProxyBidResult) bidResponse {
	return bidResponse{
		BidID:           result.BidID,
		CommittedAmount: result.CommittedAmount,
		CurrentPrice:    result.CurrentPrice,
		LeadingVendorID: result.LeadingVendorID,
		IsLeading:       result.IsLeading,
		TotalBids:       result.TotalBids,
		EndsAt:          result.EndsAt,
		Extended:        result.Extended,
	}
}
