package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidReceipt is returned to a bidder after an accepted bid. LeadingPrice
// reflects the fully-resolved state, which may exceed the submitted amount
// when auto-bid directives counter immediately.
type BidReceipt struct {
	BidID        string          `json:"bid_id"`
	AuctionID    string          `json:"auction_id"`
	Accepted     bool            `json:"accepted"`
	LeadingPrice decimal.Decimal `json:"leading_price"`
	LeadingUser  string          `json:"leading_user"`
	Timestamp    time.Time       `json:"timestamp"`
}

// AuctionDetail is the full auction view: listing data, the current
// leader and the bid history.
type AuctionDetail struct {
	Auction       Auction  `json:"auction"`
	LeadingBid    *Bid     `json:"leading_bid,omitempty"`
	RecentBidders []string `json:"recent_bidders"`
	BidHistory    []Bid    `json:"bid_history"`
}

// SettlementRunResponse reports one settlement pass.
type SettlementRunResponse struct {
	SettledAuctionIDs []string  `json:"settled_auction_ids"`
	RanAt             time.Time `json:"ran_at"`
}

// SellerEarnings is one row of the sales report.
type SellerEarnings struct {
	SellerID string          `json:"seller_id"`
	Earnings decimal.Decimal `json:"earnings"`
	Auctions int             `json:"auctions"`
}

// SalesReport summarises realised winning prices across settled auctions.
type SalesReport struct {
	TotalEarnings decimal.Decimal  `json:"total_earnings"`
	PerSeller     []SellerEarnings `json:"per_seller"`
	GeneratedAt   time.Time        `json:"generated_at"`
}
