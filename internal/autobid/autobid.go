package autobid

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketbay/auction-api/internal/bidding"
	"github.com/marketbay/auction-api/internal/types"
	"github.com/marketbay/auction-api/pkg/response"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service manages auto-bid directives and triggers resolution whenever
// one is created or updated.
type Service struct {
	db       *Database
	resolver *Resolver
}

func NewService(gormDB *gorm.DB, resolver *Resolver) *Service {
	return &Service{
		db:       NewDatabase(gormDB),
		resolver: resolver,
	}
}

// SetAutoBid creates or updates the user's directive on an auction and
// immediately resolves proxy bidding in the same transaction, so the
// persisted state always reflects a fully-resolved equilibrium.
func (s *Service) SetAutoBid(auctionID, userID string, ceiling, step decimal.Decimal) (*types.AutoBidDirective, error) {
	if auctionID == "" || userID == "" {
		return nil, fmt.Errorf("missing auction or user id: %w", types.ErrValidation)
	}
	if !ceiling.IsPositive() {
		return nil, fmt.Errorf("ceiling must be positive: %w", types.ErrValidation)
	}
	if !step.IsPositive() {
		return nil, fmt.Errorf("step must be positive: %w", types.ErrValidation)
	}

	logger := log.With().
		Str("auction_id", auctionID).
		Str("user_id", userID).
		Str("service", "autobid").
		Logger()

	directive := &types.AutoBidDirective{
		AuctionID: auctionID,
		UserID:    userID,
		Ceiling:   ceiling,
		Step:      step,
		Active:    true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		auction, err := bidding.GetAuction(tx, auctionID)
		if err != nil {
			return err
		}

		now := time.Now()
		if !now.Before(auction.ClosesAt) {
			return types.Rejectf("auction has ended")
		}
		if userID == auction.SellerID {
			return types.Rejectf("you cannot auto-bid on your own auction")
		}

		if err := UpsertDirective(tx, directive); err != nil {
			return err
		}

		return s.resolver.Resolve(tx, auctionID)
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("ceiling", ceiling.StringFixed(2)).
		Str("step", step.StringFixed(2)).
		Msg("auto-bid directive set")

	return directive, nil
}

// GetAutoBid returns the user's directive on an auction.
func (s *Service) GetAutoBid(auctionID, userID string) (*types.AutoBidDirective, error) {
	directive, err := s.db.GetDirective(auctionID, userID)
	if err != nil {
		return nil, err
	}
	if directive == nil {
		return nil, fmt.Errorf("auto-bid directive: %w", types.ErrNotFound)
	}
	return directive, nil
}

// GinHandlers contains HTTP handlers for auto-bid endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type setAutoBidRequest struct {
	Ceiling decimal.Decimal `json:"ceiling" binding:"required"`
	Step    decimal.Decimal `json:"step" binding:"required"`
}

// SetAutoBidHandler handles PUT requests to create or update the acting
// user's auto-bid directive on an auction.
// URL parameter: auction_id
func (h *GinHandlers) SetAutoBidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		auctionID := c.Param("auction_id")
		if auctionID == "" {
			response.BadRequest(c, "Auction ID is required")
			return
		}

		var req setAutoBidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid auto-bid parameters")
			return
		}

		directive, err := h.service.SetAutoBid(auctionID, userID, req.Ceiling, req.Step)
		response.Handle(c, directive, err)
	}
}

// GetAutoBidHandler returns the acting user's directive on an auction.
func (h *GinHandlers) GetAutoBidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		auctionID := c.Param("auction_id")
		directive, err := h.service.GetAutoBid(auctionID, userID)
		response.Handle(c, directive, err)
	}
}
