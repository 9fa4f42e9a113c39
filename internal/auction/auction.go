package auction

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketbay/auction-api/internal/alerts"
	"github.com/marketbay/auction-api/internal/types"
	"github.com/marketbay/auction-api/pkg/response"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultListLimit = 20

// Service handles auction listing and administration. Bidding and
// settlement have their own services; this one owns the auction rows
// themselves.
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// CreateAuction validates and records a new listing.
func (s *Service) CreateAuction(sellerID, itemID, title, description string, startingPrice decimal.Decimal, opensAt, closesAt time.Time) (*types.Auction, error) {
	if sellerID == "" {
		return nil, fmt.Errorf("missing seller id: %w", types.ErrValidation)
	}
	if title == "" {
		return nil, fmt.Errorf("auction title is required: %w", types.ErrValidation)
	}
	if startingPrice.IsNegative() {
		return nil, fmt.Errorf("starting price cannot be negative: %w", types.ErrValidation)
	}
	if !closesAt.After(opensAt) {
		return nil, fmt.Errorf("close time must be after open time: %w", types.ErrValidation)
	}

	auction := &types.Auction{
		AuctionID:         "AUC_" + uuid.New().String(),
		SellerID:          sellerID,
		ItemID:            itemID,
		Title:             title,
		Description:       description,
		StartingPrice:     startingPrice,
		OpensAt:           opensAt,
		ClosesAt:          closesAt,
		CurrentHighestBid: decimal.Zero,
	}

	if err := s.db.CreateAuction(auction); err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	log.Info().
		Str("auction_id", auction.AuctionID).
		Str("seller_id", sellerID).
		Str("service", "auction").
		Time("closes_at", closesAt).
		Msg("auction created")

	return auction, nil
}

// GetAuctionDetail assembles the auction view: the listing, the current
// leader, the most recent distinct bidders and the full bid history.
func (s *Service) GetAuctionDetail(auctionID string) (*types.AuctionDetail, error) {
	auction, err := s.db.GetAuction(auctionID)
	if err != nil {
		return nil, err
	}

	leading, err := s.db.GetLeadingBid(auctionID)
	if err != nil {
		return nil, err
	}

	recentBidders, err := s.db.GetRecentBidders(auctionID, 5)
	if err != nil {
		return nil, err
	}

	history, err := s.db.GetBidHistory(auctionID)
	if err != nil {
		return nil, err
	}

	return &types.AuctionDetail{
		Auction:       *auction,
		LeadingBid:    leading,
		RecentBidders: recentBidders,
		BidHistory:    history,
	}, nil
}

// ListAuctions returns the most recently listed auctions.
func (s *Service) ListAuctions() ([]types.Auction, error) {
	return s.db.ListAuctions(defaultListLimit)
}

// RemoveAuction is the administrative removal command: it deletes the
// auction with its bids and directives, and alerts every participant.
// No bidding logic is involved.
func (s *Service) RemoveAuction(auctionID string) error {
	logger := log.With().
		Str("auction_id", auctionID).
		Str("service", "auction").
		Logger()

	var title string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		auction, err := getAuctionTx(tx, auctionID)
		if err != nil {
			return err
		}
		title = auction.Title

		bidders, err := GetDistinctBidders(tx, auctionID)
		if err != nil {
			return err
		}

		if err := DeleteAuctionCascade(tx, auctionID); err != nil {
			return err
		}

		for _, bidderID := range bidders {
			msg := fmt.Sprintf("The auction '%s' has been removed. Your bids on it were cancelled.", title)
			if err := alerts.Create(tx, bidderID, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to remove auction")
		return err
	}

	logger.Info().Str("title", title).Msg("auction removed")
	return nil
}

// SalesReport aggregates realised winning prices: total earnings and a
// per-seller breakdown, best sellers first.
func (s *Service) SalesReport() (*types.SalesReport, error) {
	wonBids, auctions, err := s.db.GetWonBidsWithAuctions()
	if err != nil {
		return nil, fmt.Errorf("failed to build sales report: %w", err)
	}

	total := decimal.Zero
	perSeller := make(map[string]*types.SellerEarnings)

	for _, bid := range wonBids {
		auction, ok := auctions[bid.AuctionID]
		if !ok {
			continue
		}

		total = total.Add(bid.Price)
		entry, exists := perSeller[auction.SellerID]
		if !exists {
			entry = &types.SellerEarnings{SellerID: auction.SellerID, Earnings: decimal.Zero}
			perSeller[auction.SellerID] = entry
		}
		entry.Earnings = entry.Earnings.Add(bid.Price)
		entry.Auctions++
	}

	sellers := make([]types.SellerEarnings, 0, len(perSeller))
	for _, entry := range perSeller {
		sellers = append(sellers, *entry)
	}
	sort.Slice(sellers, func(i, j int) bool {
		if !sellers[i].Earnings.Equal(sellers[j].Earnings) {
			return sellers[i].Earnings.GreaterThan(sellers[j].Earnings)
		}
		return sellers[i].SellerID < sellers[j].SellerID
	})

	return &types.SalesReport{
		TotalEarnings: total,
		PerSeller:     sellers,
		GeneratedAt:   time.Now(),
	}, nil
}

func getAuctionTx(tx *gorm.DB, auctionID string) (*types.Auction, error) {
	var auction types.Auction
	if err := tx.Where("auction_id = ?", auctionID).First(&auction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("auction %s: %w", auctionID, types.ErrNotFound)
		}
		return nil, err
	}
	return &auction, nil
}

// GinHandlers contains HTTP handlers for auction endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type createAuctionRequest struct {
	ItemID        string          `json:"item_id"`
	Title         string          `json:"title" binding:"required"`
	Description   string          `json:"description"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	OpensAt       time.Time       `json:"opens_at" binding:"required"`
	ClosesAt      time.Time       `json:"closes_at" binding:"required"`
}

// CreateAuctionHandler handles POST requests to list a new auction.
// The seller is the authenticated user.
func (h *GinHandlers) CreateAuctionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sellerID := c.GetString("userID")
		if sellerID == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		var req createAuctionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		auction, err := h.service.CreateAuction(sellerID, req.ItemID, req.Title, req.Description,
			req.StartingPrice, req.OpensAt, req.ClosesAt)
		response.Handle(c, auction, err)
	}
}

// GetAuctionHandler handles GET requests for a single auction view.
// URL parameter: auction_id
func (h *GinHandlers) GetAuctionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		auctionID := c.Param("auction_id")
		if auctionID == "" {
			response.BadRequest(c, "Auction ID is required")
			return
		}

		detail, err := h.service.GetAuctionDetail(auctionID)
		response.Handle(c, detail, err)
	}
}

// ListAuctionsHandler handles GET requests for the latest listings.
func (h *GinHandlers) ListAuctionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		auctions, err := h.service.ListAuctions()
		response.Handle(c, auctions, err)
	}
}

// RemoveAuctionHandler handles DELETE requests for administrative auction
// removal. Requires admin authentication.
// URL parameter: auction_id
func (h *GinHandlers) RemoveAuctionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		auctionID := c.Param("auction_id")

		if err := h.service.RemoveAuction(auctionID); err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, gin.H{"message": "auction removed"})
	}
}

// SalesReportHandler handles GET requests for the summary sales report.
// Requires admin authentication.
func (h *GinHandlers) SalesReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.service.SalesReport()
		response.Handle(c, report, err)
	}
}
