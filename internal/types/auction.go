package types

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bid status lifecycle. At most one bid per auction holds StatusLeading
// before settlement and at most one holds StatusWon after it.
const (
	BidStatusPlaced  = "PLACED"
	BidStatusLeading = "LEADING"
	BidStatusOutbid  = "OUTBID"
	BidStatusWon     = "WON"
	BidStatusLost    = "LOST"
)

type Auction struct {
	gorm.Model        `json:"-"`
	AuctionID         string          `gorm:"uniqueIndex" json:"auction_id"`
	SellerID          string          `json:"seller_id"`
	ItemID            string          `json:"item_id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	StartingPrice     decimal.Decimal `gorm:"type:decimal(20,2)" json:"starting_price"`
	OpensAt           time.Time       `json:"opens_at"`
	ClosesAt          time.Time       `json:"closes_at"`
	// Denormalized convenience value. The bid ledger is authoritative.
	CurrentHighestBid decimal.Decimal `gorm:"type:decimal(20,2)" json:"current_highest_bid"`
	// Version guards the per-auction critical section: bid placement
	// commits only if the version it read is still current.
	Version int64 `json:"-"`
}

type Bid struct {
	gorm.Model `json:"-"`
	BidID      string          `gorm:"uniqueIndex" json:"bid_id"`
	AuctionID  string          `gorm:"index" json:"auction_id"`
	BidderID   string          `json:"bidder_id"`
	Price      decimal.Decimal `gorm:"type:decimal(20,2)" json:"price"`
	PlacedAt   time.Time       `json:"placed_at"`
	Status     string          `json:"status"` // PLACED, LEADING, OUTBID, WON, LOST
}

// AutoBidDirective is a standing instruction to bid on a user's behalf:
// raise by Step whenever outbid, never exceeding Ceiling. At most one
// directive exists per (auction, user) pair.
type AutoBidDirective struct {
	gorm.Model `json:"-"`
	AuctionID  string          `gorm:"uniqueIndex:idx_directive_auction_user" json:"auction_id"`
	UserID     string          `gorm:"uniqueIndex:idx_directive_auction_user" json:"user_id"`
	Ceiling    decimal.Decimal `gorm:"type:decimal(20,2)" json:"ceiling"`
	Step       decimal.Decimal `gorm:"type:decimal(20,2)" json:"step"`
	Active     bool            `json:"active"`
}

type Alert struct {
	gorm.Model `json:"-"`
	AlertID    string    `gorm:"uniqueIndex" json:"alert_id"`
	UserID     string    `gorm:"index" json:"user_id"`
	Message    string    `json:"message"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}
