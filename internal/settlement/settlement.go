package settlement

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketbay/auction-api/internal/alerts"
	"github.com/marketbay/auction-api/internal/types"
	"github.com/marketbay/auction-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// RunSettlement finalizes every auction whose close time has passed and
// which still holds a LEADING bid. It is cheap when nothing is due and
// idempotent under arbitrary repeated or concurrent invocation: the
// conditional LEADING-to-WON promotion makes a second pass a no-op.
// Auctions that fail to settle are skipped and retried on the next pass;
// settlement never surfaces a per-auction error to callers.
func (s *Service) RunSettlement(now time.Time) ([]string, error) {
	logger := log.With().Str("service", "settlement").Logger()

	due, err := s.db.GetDueAuctions(now)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for due auctions: %w", err)
	}

	settled := make([]string, 0, len(due))
	for i := range due {
		auction := &due[i]

		won, err := s.settleAuction(auction)
		if err != nil {
			logger.Error().
				Err(err).
				Str("auction_id", auction.AuctionID).
				Msg("failed to settle auction, will retry on next pass")
			continue
		}
		if won {
			settled = append(settled, auction.AuctionID)
		}
	}

	if len(settled) > 0 {
		logger.Info().
			Int("settled_count", len(settled)).
			Msg("settlement pass completed")
	}

	return settled, nil
}

// settleAuction promotes the leader of one auction in a single
// transaction. Returns false without error when a concurrent pass
// settled it first.
func (s *Service) settleAuction(auction *types.Auction) (bool, error) {
	won := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		leading, err := GetLeadingBid(tx, auction.AuctionID)
		if err != nil {
			return err
		}
		if leading == nil {
			// Already settled by a concurrent invocation.
			return nil
		}

		promoted, err := PromoteLeadingBid(tx, leading.BidID)
		if err != nil {
			return err
		}
		if !promoted {
			return nil
		}

		if err := MarkRemainingLost(tx, auction.AuctionID, leading.BidID); err != nil {
			return err
		}

		msg := fmt.Sprintf("Congratulations! You won the auction '%s' with a bid of $%s",
			auction.Title, leading.Price.StringFixed(2))
		if err := alerts.Create(tx, leading.BidderID, msg); err != nil {
			return err
		}

		won = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if won {
		log.Info().
			Str("auction_id", auction.AuctionID).
			Str("service", "settlement").
			Msg("auction settled")
	}

	return won, nil
}

// GinHandlers contains HTTP handlers for settlement endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// RunSettlementHandler triggers a settlement pass on demand. The
// surrounding pipeline may call this opportunistically; the background
// processor covers the quiet periods.
func (h *GinHandlers) RunSettlementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ranAt := time.Now()
		settledIDs, err := h.service.RunSettlement(ranAt)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, types.SettlementRunResponse{
			SettledAuctionIDs: settledIDs,
			RanAt:             ranAt,
		})
	}
}
