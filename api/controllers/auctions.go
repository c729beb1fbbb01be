package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bidhaus/bidhaus-backend/api/middleware"
	"github.com/bidhaus/bidhaus-backend/api/responses"
	"github.com/bidhaus/bidhaus-backend/api/validators"
	auctionsvc "github.com/bidhaus/bidhaus-backend/internal/auctions"
	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	"github.com/bidhaus/bidhaus-backend/pkg/enums"
	pkgerrors "github.com/bidhaus/bidhaus-backend/pkg/errors"
	"github.com/bidhaus/bidhaus-backend/pkg/logger"
	"github.com/bidhaus/bidhaus-backend/pkg/pagination"
)

// CreateAuction opens a new listing. The caller becomes the seller and may
// not bid on it afterwards.
func CreateAuction(svc auctionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}

		sellerID, err := vendorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createAuctionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput(sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		auction, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toAuctionResponse(auction))
	}
}

// GetAuction returns a single auction with its live price state.
func GetAuction(svc auctionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}

		auctionID, err := auctionIDFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		auction, err := svc.Get(r.Context(), auctionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toAuctionResponse(auction))
	}
}

// ListAuctions pages through auctions newest first.
func ListAuctions(svc auctionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := auctionsvc.ListFilters{}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseAuctionStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}

		createdBy, err := validators.ParseQueryUUID(r, "created_by")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.CreatedBy = createdBy

		itemID, err := validators.ParseQueryUUID(r, "item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.ItemID = itemID

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]auctionResponse, 0, len(list.Auctions))
		for i := range list.Auctions {
			items = append(items, toAuctionResponse(&list.Auctions[i]))
		}

		responses.WriteSuccess(w, auctionListResponse{
			Auctions:   items,
			NextCursor: list.NextCursor,
		})
	}
}

// AuctionBidHistory returns the append-only bid log for an auction. Proxy
// ceilings are never exposed.
func AuctionBidHistory(svc auctionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auction service unavailable"))
			return
		}

		auctionID, err := auctionIDFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.BidHistory(r.Context(), auctionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"bids": history})
	}
}

type createAuctionRequest struct {
	ItemID        string  `json:"item_id" validate:"required,uuid"`
	StartingPrice string  `json:"starting_price" validate:"required"`
	DurationHours int     `json:"duration_hours" validate:"required,min=1"`
	MinIncrement  *string `json:"min_increment,omitempty"`
}

func (r createAuctionRequest) toCreateInput(sellerID uuid.UUID) (auctionsvc.CreateAuctionInput, error) {
	itemID, err := uuid.Parse(r.ItemID)
	if err != nil {
		return auctionsvc.CreateAuctionInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
	}

	startingPrice, err := decimal.NewFromString(strings.TrimSpace(r.StartingPrice))
	if err != nil {
		return auctionsvc.CreateAuctionInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid starting price")
	}

	input := auctionsvc.CreateAuctionInput{
		ItemID:        itemID,
		CreatedBy:     sellerID,
		StartingPrice: startingPrice,
		DurationHours: r.DurationHours,
	}

	if r.MinIncrement != nil {
		increment, err := decimal.NewFromString(strings.TrimSpace(*r.MinIncrement))
		if err != nil {
			return auctionsvc.CreateAuctionInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid min increment")
		}
		input.MinIncrement = &increment
	}

	return input, nil
}

type auctionResponse struct {
	ID                 uuid.UUID           `json:"id"`
	ItemID             uuid.UUID           `json:"item_id"`
	CreatedBy          uuid.UUID           `json:"created_by"`
	StartingPrice      decimal.Decimal     `json:"starting_price"`
	CurrentPrice       decimal.Decimal     `json:"current_price"`
	MinIncrement       decimal.Decimal     `json:"min_increment"`
	LeadingBidID       *uuid.UUID          `json:"leading_bid_id,omitempty"`
	Status             enums.AuctionStatus `json:"status"`
	TotalBids          int                 `json:"total_bids"`
	SoftCloseTriggered bool                `json:"soft_close_triggered"`
	EndsAt             time.Time           `json:"ends_at"`
	ExtendedEndsAt     *time.Time          `json:"extended_ends_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type auctionListResponse struct {
	Auctions   []auctionResponse `json:"auctions"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

func toAuctionResponse(a *models.Auction) auctionResponse {
	return auctionResponse{
		ID:                 a.ID,
		ItemID:             a.ItemID,
		CreatedBy:          a.CreatedBy,
		StartingPrice:      a.StartingPrice,
		CurrentPrice:       a.CurrentPrice,
		MinIncrement:       a.MinIncrement,
		LeadingBidID:       a.LeadingBidID,
		Status:             a.Status,
		TotalBids:          a.TotalBids,
		SoftCloseTriggered: a.SoftCloseTriggered,
		EndsAt:             a.EndsAt,
		ExtendedEndsAt:     a.ExtendedEndsAt,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func auctionIDFromRoute(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "auctionId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid auction id")
	}
	return id, nil
}

func vendorFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.VendorIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor identity missing").WithDetails(map[string]any{"header": "X-Vendor-Id"})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id")
	}
	return id, nil
}
