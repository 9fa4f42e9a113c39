package bidding

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marketbay/auction-api/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Transaction runs fn inside a single store transaction. Every logical
// bid operation (evaluate, displace, insert, resolve) commits atomically
// or not at all.
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.db.Transaction(fn)
}

// GetAuction loads an auction by its business id.
func GetAuction(tx *gorm.DB, auctionID string) (*types.Auction, error) {
	var auction types.Auction
	if err := tx.Where("auction_id = ?", auctionID).First(&auction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("auction %s: %w", auctionID, types.ErrNotFound)
		}
		return nil, err
	}
	return &auction, nil
}

// GetLeadingBid returns the auction's current leading bid, or nil when no
// bid holds LEADING. Ordering matches the leader invariant: price
// descending, earliest placement first.
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

// MarkOpenBidsOutbid transitions every PLACED or LEADING bid on the
// auction to OUTBID ahead of a new leader being inserted.
func MarkOpenBidsOutbid(tx *gorm.DB, auctionID string) error {
	return tx.Model(&types.Bid{}).
		Where("auction_id = ? AND status IN ?", auctionID, []string{types.BidStatusPlaced, types.BidStatusLeading}).
		Update("status", types.BidStatusOutbid).Error
}

// InsertLeadingBid records a new LEADING bid at the given price.
func InsertLeadingBid(tx *gorm.DB, auctionID, bidderID string, price decimal.Decimal, placedAt time.Time) (*types.Bid, error) {
	bid := &types.Bid{
		BidID:     "BID_" + uuid.New().String(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Price:     price,
		PlacedAt:  placedAt,
		Status:    types.BidStatusLeading,
	}
	if err := tx.Create(bid).Error; err != nil {
		return nil, err
	}
	return bid, nil
}

// RefreshHighestBidCAS updates the auction's cached highest bid only if
// the version read at the start of the decision is still current. A zero
// row count means another bid committed in between and the whole attempt
// must be retried against fresh state.
func RefreshHighestBidCAS(tx *gorm.DB, auction *types.Auction, price decimal.Decimal) error {
	result := tx.Model(&types.Auction{}).
		Where("auction_id = ? AND version = ?", auction.AuctionID, auction.Version).
		Updates(map[string]interface{}{
			"current_highest_bid": price,
			"version":             auction.Version + 1,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return types.ErrConflict
	}

	return nil
}

// RefreshHighestBid updates the cached highest bid unconditionally. Used
// by the resolver, which runs inside a transaction already fenced by the
// placement CAS.
func RefreshHighestBid(tx *gorm.DB, auctionID string, price decimal.Decimal) error {
	return tx.Model(&types.Auction{}).
		Where("auction_id = ?", auctionID).
		Updates(map[string]interface{}{
			"current_highest_bid": price,
			"version":             gorm.Expr("version + 1"),
		}).Error
}
