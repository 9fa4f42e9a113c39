package settlement

import (
	"errors"
	"time"

	"github.com/marketbay/auction-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.db.Transaction(fn)
}

// GetDueAuctions selects auctions past their close time that still hold a
// LEADING bid. The LEADING predicate is the idempotency guard: once an
// auction has no LEADING bid it is settled (or never had bids) and is
// skipped on every later pass.
func (d *Database) GetDueAuctions(now time.Time) ([]types.Auction, error) {
	var auctions []types.Auction
	err := d.db.
		Where("closes_at <= ? AND EXISTS (SELECT 1 FROM bids WHERE bids.auction_id = auctions.auction_id AND bids.status = ?)",
			now, types.BidStatusLeading).
		Find(&auctions).Error
	if err != nil {
		return nil, err
	}
	return auctions, nil
}

// GetLeadingBid returns the auction's LEADING bid, or nil when none holds
// that status.
func GetLeadingBid(tx *gorm.DB, auctionID string) (*types.Bid, error) {
	var bid types.Bid
	err := tx.Where("auction_id = ? AND status = ?", auctionID, types.BidStatusLeading).
		Order("price DESC, placed_at ASC, id ASC").
		First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bid, nil
}

// PromoteLeadingBid transitions one bid from LEADING to WON, but only if
// it still holds LEADING. A zero row count means a concurrent settlement
// pass won the race; the caller must treat the auction as already
// settled. This conditional update is what makes double settlement a
// no-op rather than a duplicate winner.
func PromoteLeadingBid(tx *gorm.DB, bidID string) (bool, error) {
	result := tx.Model(&types.Bid{}).
		Where("bid_id = ? AND status = ?", bidID, types.BidStatusLeading).
		Update("status", types.BidStatusWon)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// MarkRemainingLost transitions every other open bid on the auction to
// LOST.
func MarkRemainingLost(tx *gorm.DB, auctionID, winningBidID string) error {
	return tx.Model(&types.Bid{}).
		Where("auction_id = ? AND bid_id != ? AND status IN ?",
			auctionID, winningBidID, []string{types.BidStatusOutbid, types.BidStatusPlaced}).
		Update("status", types.BidStatusLost).Error
}
