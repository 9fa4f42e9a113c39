package auction

import (
	"errors"
	"fmt"

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

func (d *Database) CreateAuction(auction *types.Auction) error {
	return d.db.Create(auction).Error
}

func (d *Database) GetAuction(auctionID string) (*types.Auction, error) {
	var auction types.Auction
	if err := d.db.Where("auction_id = ?", auctionID).First(&auction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("auction %s: %w", auctionID, types.ErrNotFound)
		}
		return nil, err
	}
	return &auction, nil
}

// ListAuctions returns the most recently listed auctions.
func (d *Database) ListAuctions(limit int) ([]types.Auction, error) {
	var auctions []types.Auction
	if err := d.db.Order("opens_at DESC").Limit(limit).Find(&auctions).Error; err != nil {
		return nil, err
	}
	return auctions, nil
}

// GetBidHistory returns all bids on an auction, latest first.
func (d *Database) GetBidHistory(auctionID string) ([]types.Bid, error) {
	var bids []types.Bid
	if err := d.db.Where("auction_id = ?", auctionID).
		Order("placed_at DESC, id DESC").
		Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

// GetLeadingBid returns the auction's current leading bid, or nil.
func (d *Database) GetLeadingBid(auctionID string) (*types.Bid, error) {
	var bid types.Bid
	err := d.db.Where("auction_id = ? AND status = ?", auctionID, types.BidStatusLeading).
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

// GetRecentBidders returns the ids of the last distinct bidders on an
// auction, most recent first.
func (d *Database) GetRecentBidders(auctionID string, limit int) ([]string, error) {
	var bidderIDs []string
	err := d.db.Raw(
		`SELECT bidder_id FROM bids
		 WHERE auction_id = ?
		 GROUP BY bidder_id
		 ORDER BY MAX(placed_at) DESC
		 LIMIT ?`, auctionID, limit).
		Scan(&bidderIDs).Error
	if err != nil {
		return nil, err
	}
	return bidderIDs, nil
}

// GetDistinctBidders returns every user that bid on an auction.
func GetDistinctBidders(tx *gorm.DB, auctionID string) ([]string, error) {
	var bidderIDs []string
	err := tx.Model(&types.Bid{}).
		Where("auction_id = ?", auctionID).
		Distinct().
		Pluck("bidder_id", &bidderIDs).Error
	if err != nil {
		return nil, err
	}
	return bidderIDs, nil
}

// DeleteAuctionCascade removes an auction together with its bids and
// auto-bid directives.
func DeleteAuctionCascade(tx *gorm.DB, auctionID string) error {
	if err := tx.Where("auction_id = ?", auctionID).Delete(&types.Bid{}).Error; err != nil {
		return err
	}
	if err := tx.Where("auction_id = ?", auctionID).Delete(&types.AutoBidDirective{}).Error; err != nil {
		return err
	}

	result := tx.Where("auction_id = ?", auctionID).Delete(&types.Auction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("auction %s: %w", auctionID, types.ErrNotFound)
	}
	return nil
}

// GetWonBidsWithAuctions returns every settled winning bid joined with
// its auction, the raw material for the sales report.
func (d *Database) GetWonBidsWithAuctions() ([]types.Bid, map[string]types.Auction, error) {
	var wonBids []types.Bid
	if err := d.db.Where("status = ?", types.BidStatusWon).Find(&wonBids).Error; err != nil {
		return nil, nil, err
	}

	auctionIDs := make([]string, 0, len(wonBids))
	for _, bid := range wonBids {
		auctionIDs = append(auctionIDs, bid.AuctionID)
	}

	auctionMap := make(map[string]types.Auction, len(auctionIDs))
	if len(auctionIDs) > 0 {
		var auctions []types.Auction
		if err := d.db.Where("auction_id IN ?", auctionIDs).Find(&auctions).Error; err != nil {
			return nil, nil, err
		}
		for _, auction := range auctions {
			auctionMap[auction.AuctionID] = auction
		}
	}

	return wonBids, auctionMap, nil
}
