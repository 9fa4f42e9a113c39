package bidding

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketbay/auction-api/internal/alerts"
	"github.com/marketbay/auction-api/internal/types"
	"github.com/marketbay/auction-api/pkg/response"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProxyResolver runs auto-bid resolution for an auction inside the
// caller's transaction, so an accepted manual bid and the proxy
// counter-bids it provokes commit as one state change.
type ProxyResolver interface {
	Resolve(tx *gorm.DB, auctionID string) error
}

// Service handles bid placement and evaluation
type Service struct {
	db         *Database
	resolver   ProxyResolver
	maxRetries int
}

// NewService creates a new bidding service with the given database
// connection and proxy resolver.
func NewService(gormDB *gorm.DB, resolver ProxyResolver, maxRetries int) *Service {
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &Service{
		db:         NewDatabase(gormDB),
		resolver:   resolver,
		maxRetries: maxRetries,
	}
}

// PlaceBid evaluates and records a manual bid, then lets auto-bid
// directives react. A lost race on the auction's version is retried
// internally against freshly-read state; callers only ever see a
// rejection reason or the fully-resolved result.
func (s *Service) PlaceBid(auctionID, bidderID string, amount decimal.Decimal) (*types.BidReceipt, error) {
	if auctionID == "" || bidderID == "" {
		return nil, fmt.Errorf("missing auction or bidder id: %w", types.ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("bid amount must be positive: %w", types.ErrValidation)
	}

	logger := log.With().
		Str("auction_id", auctionID).
		Str("bidder_id", bidderID).
		Str("service", "bidding").
		Logger()

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		receipt, err := s.placeBidOnce(auctionID, bidderID, amount)
		if errors.Is(err, types.ErrConflict) {
			logger.Debug().Int("attempt", attempt+1).Msg("lost auction version race, retrying bid")
			continue
		}
		if err != nil {
			return nil, err
		}

		logger.Info().
			Str("bid_id", receipt.BidID).
			Str("leading_price", receipt.LeadingPrice.StringFixed(2)).
			Str("leading_user", receipt.LeadingUser).
			Msg("bid accepted")
		return receipt, nil
	}

	logger.Error().Int("attempts", s.maxRetries).Msg("bid placement retries exhausted")
	return nil, fmt.Errorf("bid placement failed after %d attempts: %w", s.maxRetries, types.ErrConflict)
}

// placeBidOnce runs a single evaluate-and-write attempt in one store
// transaction.
func (s *Service) placeBidOnce(auctionID, bidderID string, amount decimal.Decimal) (*types.BidReceipt, error) {
	var receipt *types.BidReceipt

	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		auction, err := GetAuction(tx, auctionID)
		if err != nil {
			return err
		}

		leading, err := GetLeadingBid(tx, auctionID)
		if err != nil {
			return err
		}

		if err := Evaluate(auction, leading, bidderID, amount, now); err != nil {
			return err
		}

		if err := MarkOpenBidsOutbid(tx, auctionID); err != nil {
			return err
		}

		bid, err := InsertLeadingBid(tx, auctionID, bidderID, amount, now)
		if err != nil {
			return err
		}

		if leading != nil && leading.BidderID != bidderID {
			msg := fmt.Sprintf("You have been outbid on '%s'. The highest bid is now $%s.",
				auction.Title, amount.StringFixed(2))
			if err := alerts.Create(tx, leading.BidderID, msg); err != nil {
				return err
			}
		}

		// The CAS on the auction version is the per-auction critical
		// section: if another bid committed since our read, roll back and
		// re-evaluate.
		if err := RefreshHighestBidCAS(tx, auction, amount); err != nil {
			return err
		}

		if err := s.resolver.Resolve(tx, auctionID); err != nil {
			return err
		}

		final, err := GetLeadingBid(tx, auctionID)
		if err != nil {
			return err
		}
		if final == nil {
			return fmt.Errorf("no leading bid after placement on auction %s", auctionID)
		}

		receipt = &types.BidReceipt{
			BidID:        bid.BidID,
			AuctionID:    auctionID,
			Accepted:     true,
			LeadingPrice: final.Price,
			LeadingUser:  final.BidderID,
			Timestamp:    time.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// GinHandlers contains HTTP handlers for bidding endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for bidding endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type placeBidRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// PlaceBidHandler handles POST requests to place a bid on an auction.
// Requires a valid JWT token; the acting user is taken from the token,
// never from ambient state.
// URL parameter: auction_id
func (h *GinHandlers) PlaceBidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bidderID := c.GetString("userID")
		if bidderID == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		auctionID := c.Param("auction_id")
		if auctionID == "" {
			response.BadRequest(c, "Auction ID is required")
			return
		}

		var req placeBidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid bid amount")
			return
		}

		receipt, err := h.service.PlaceBid(auctionID, bidderID, req.Amount)
		response.Handle(c, receipt, err)
	}
}
