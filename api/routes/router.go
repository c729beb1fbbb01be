package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bidhaus/bidhaus-backend/api/controllers"
	"github.com/bidhaus/bidhaus-backend/api/middleware"
	auctionsvc "github.com/bidhaus/bidhaus-backend/internal/auctions"
	biddingsvc "github.com/bidhaus/bidhaus-backend/internal/bidding"
	"github.com/bidhaus/bidhaus-backend/pkg/config"
	"github.com/bidhaus/bidhaus-backend/pkg/db"
	"github.com/bidhaus/bidhaus-backend/pkg/logger"
	"github.com/bidhaus/bidhaus-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	auctionService auctionsvc.Service,
	biddingService biddingsvc.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1/auctions", func(r chi.Router) {
		r.Use(middleware.VendorContext(logg))

		r.Post("/", controllers.CreateAuction(auctionService, logg))
		r.Get("/", controllers.ListAuctions(auctionService, logg))
		r.Get("/{auctionId}", controllers.GetAuction(auctionService, logg))
		r.Get("/{auctionId}/bids", controllers.AuctionBidHistory(auctionService, logg))
		r.Post("/{auctionId}/bids", controllers.PlaceBid(biddingService, logg))
	})

	return r
}
