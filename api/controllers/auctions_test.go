package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bidhaus/bidhaus-backend/api/middleware"
	auctionsvc "github.com/bidhaus/bidhaus-backend/internal/auctions"
	"github.com/bidhaus/bidhaus-backend/pkg/db/models"
	"github.com/bidhaus/bidhaus-backend/pkg/enums"
	pkgerrors "github.com/bidhaus/bidhaus-backend/pkg/errors"
	"github.com/bidhaus/bidhaus-backend/pkg/logger"
	"github.com/bidhaus/bidhaus-backend/pkg/pagination"
)

type stubAuctionService struct {
	auction     *models.Auction
	list        *auctionsvc.AuctionList
	history     []auctionsvc.BidHistoryEntry
	err         error
	createInput *auctionsvc.CreateAuctionInput
	listFilters *auctionsvc.ListFilters
	listParams  *pagination.Params
}

func (s *stubAuctionService) Create(ctx context.Context, input auctionsvc.CreateAuctionInput) (*models.Auction, error) {
	s.createInput = &input
	if s.err != nil {
		return nil, s.err
	}
	return s.auction, nil
}

func (s *stubAuctionService) Get(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.auction, nil
}

func (s *stubAuctionService) List(ctx context.Context, params pagination.Params, filters auctionsvc.ListFilters) (*auctionsvc.AuctionList, error) {
	s.listParams = &params
	s.listFilters = &filters
	if s.err != nil {
		return nil, s.err
	}
	return s.list, nil
}

func (s *stubAuctionService) BidHistory(ctx context.Context, auctionID uuid.UUID) ([]auctionsvc.BidHistoryEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.history, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func sampleAuction(sellerID uuid.UUID) *models.Auction {
	return &models.Auction{
		ID:            uuid.New(),
		ItemID:        uuid.New(),
		CreatedBy:     sellerID,
		StartingPrice: decimal.RequireFromString("500.00"),
		CurrentPrice:  decimal.RequireFromString("500.00"),
		MinIncrement:  decimal.RequireFromString("50.00"),
		Status:        enums.AuctionStatusActive,
		EndsAt:        time.Now().Add(24 * time.Hour),
	}
}

func TestCreateAuction(t *testing.T) {
	logg := testLogger()
	sellerID := uuid.New()

	makeRequest := func(stub *stubAuctionService, vendor, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auctions", strings.NewReader(body))
		ctx := context.Background()
		if vendor != "" {
			ctx = middleware.WithVendorID(ctx, vendor)
		}
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		CreateAuction(stub, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing seller identity", func(t *testing.T) {
		rec := makeRequest(&stubAuctionService{}, "", `{"item_id":"`+uuid.NewString()+`","starting_price":"500.00","duration_hours":24}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 when seller missing, got %d", rec.Code)
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		rec := makeRequest(&stubAuctionService{}, sellerID.String(), `{"item_id":"`+uuid.NewString()+`","starting_price":"500.00","duration_hours":24,"bogus":true}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for unknown fields, got %d", rec.Code)
		}
	})

	t.Run("invalid starting price", func(t *testing.T) {
		rec := makeRequest(&stubAuctionService{}, sellerID.String(), `{"item_id":"`+uuid.NewString()+`","starting_price":"not-money","duration_hours":24}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad price, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubAuctionService{auction: sampleAuction(sellerID)}
		itemID := stub.auction.ItemID
		rec := makeRequest(stub, sellerID.String(), `{"item_id":"`+itemID.String()+`","starting_price":"500.00","duration_hours":24,"min_increment":"50.00"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 on success, got %d", rec.Code)
		}
		if stub.createInput == nil {
			t.Fatalf("expected service to be invoked")
		}
		if stub.createInput.CreatedBy != sellerID {
			t.Fatalf("expected seller from context, got %s", stub.createInput.CreatedBy)
		}
		if stub.createInput.MinIncrement == nil || !stub.createInput.MinIncrement.Equal(decimal.RequireFromString("50.00")) {
			t.Fatalf("expected min increment to pass through")
		}
	})
}

func TestGetAuction(t *testing.T) {
	logg := testLogger()

	makeRequest := func(stub *stubAuctionService, auctionID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auctions/"+auctionID, nil)
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("auctionId", auctionID)
		req = req.WithContext(context.WithValue(context.Background(), chi.RouteCtxKey, routeCtx))
		rec := httptest.NewRecorder()
		GetAuction(stub, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("invalid id", func(t *testing.T) {
		rec := makeRequest(&stubAuctionService{}, "not-a-uuid")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad id, got %d", rec.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		stub := &stubAuctionService{err: pkgerrors.New(pkgerrors.CodeNotFound, "auction not found")}
		rec := makeRequest(stub, uuid.NewString())
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		auction := sampleAuction(uuid.New())
		rec := makeRequest(&stubAuctionService{auction: auction}, auction.ID.String())
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var envelope struct {
			Data auctionResponse `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if envelope.Data.ID != auction.ID {
			t.Fatalf("expected auction %s, got %s", auction.ID, envelope.Data.ID)
		}
		if !envelope.Data.CurrentPrice.Equal(auction.CurrentPrice) {
			t.Fatalf("unexpected current price %s", envelope.Data.CurrentPrice)
		}
	})
}

func TestListAuctions(t *testing.T) {
	logg := testLogger()

	makeRequest := func(stub *stubAuctionService, query string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auctions"+query, nil)
		rec := httptest.NewRecorder()
		ListAuctions(stub, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("invalid status filter", func(t *testing.T) {
		rec := makeRequest(&stubAuctionService{}, "?status=bogus")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad status filter, got %d", rec.Code)
		}
	})

	t.Run("limit out of range", func(t *testing.T) {
		rec := makeRequest(&stubAuctionService{}, "?limit=5000")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for oversized limit, got %d", rec.Code)
		}
	})

	t.Run("filters forwarded", func(t *testing.T) {
		sellerID := uuid.New()
		stub := &stubAuctionService{list: &auctionsvc.AuctionList{}}
		rec := makeRequest(stub, "?status=active&created_by="+sellerID.String()+"&limit=10")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.listFilters == nil || stub.listFilters.Status == nil || *stub.listFilters.Status != enums.AuctionStatusActive {
			t.Fatalf("expected status filter to pass through")
		}
		if stub.listFilters.CreatedBy == nil || *stub.listFilters.CreatedBy != sellerID {
			t.Fatalf("expected created_by filter to pass through")
		}
		if stub.listParams == nil || stub.listParams.Limit != 10 {
			t.Fatalf("expected limit 10 to pass through")
		}
	})

	t.Run("cursor surfaces", func(t *testing.T) {
		auction := sampleAuction(uuid.New())
		stub := &stubAuctionService{list: &auctionsvc.AuctionList{
			Auctions:   []models.Auction{*auction},
			NextCursor: "next-page",
		}}
		rec := makeRequest(stub, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var envelope struct {
			Data auctionListResponse `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(envelope.Data.Auctions) != 1 {
			t.Fatalf("expected one auction, got %d", len(envelope.Data.Auctions))
		}
		if envelope.Data.NextCursor != "next-page" {
			t.Fatalf("expected cursor to surface, got %q", envelope.Data.NextCursor)
		}
	})
}

func TestAuctionBidHistory(t *testing.T) {
	logg := testLogger()
	auctionID := uuid.New()

	stub := &stubAuctionService{history: []auctionsvc.BidHistoryEntry{
		{
			BidID:    uuid.New(),
			VendorID: uuid.New(),
			Amount:   decimal.RequireFromString("550.00"),
			Status:   enums.BidStatusWinning,
			PlacedAt: time.Now(),
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auctions/"+auctionID.String()+"/bids", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("auctionId", auctionID.String())
	req = req.WithContext(context.WithValue(context.Background(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()
	AuctionBidHistory(stub, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// Ceilings must never leak: the payload only carries committed amounts.
	body := rec.Body.String()
	if strings.Contains(body, "max_proxy_bid") {
		t.Fatalf("bid history leaked proxy ceilings: %s", body)
	}
	var envelope struct {
		Data struct {
			Bids []struct {
				Amount decimal.Decimal `json:"amount"`
			} `json:"bids"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if len(envelope.Data.Bids) != 1 {
		t.Fatalf("expected one bid in payload, got %d", len(envelope.Data.Bids))
	}
	if !envelope.Data.Bids[0].Amount.Equal(decimal.RequireFromString("550.00")) {
		t.Fatalf("expected committed amount 550.00, got %s", envelope.Data.Bids[0].Amount)
	}
}
