package bidding

import (
	"time"

	"github.com/marketbay/auction-api/internal/types"
	"github.com/shopspring/decimal"
)

// Evaluate decides whether a proposed bid is acceptable against the
// auction's current state. It is pure decision logic: callers load the
// auction and its leading bid (nil when no bid exists) and perform all
// writes themselves.
//
// The minimum acceptable price is max(starting price, leading price) and
// the comparison is strict: a bid exactly equal to the current leader is
// rejected.
func Evaluate(auction *types.Auction, leading *types.Bid, bidderID string, amount decimal.Decimal, now time.Time) error {
	if now.Before(auction.OpensAt) {
		return types.Rejectf("auction has not opened yet")
	}

	if !now.Before(auction.ClosesAt) {
		return types.Rejectf("auction has ended")
	}

	if bidderID == auction.SellerID {
		return types.Rejectf("you cannot place a bid on your own auction")
	}

	minRequired := auction.StartingPrice
	if leading != nil && leading.Price.GreaterThan(minRequired) {
		minRequired = leading.Price
	}

	if amount.LessThanOrEqual(minRequired) {
		return types.Rejectf("bid must exceed current highest bid of %s", minRequired.StringFixed(2))
	}

	return nil
}
