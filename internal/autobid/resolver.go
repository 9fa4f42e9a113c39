package autobid

import (
	"fmt"
	"time"

	"github.com/marketbay/auction-api/internal/alerts"
	"github.com/marketbay/auction-api/internal/bidding"
	"github.com/marketbay/auction-api/internal/types"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Resolver runs the iterative auto-bid algorithm: starting from the
// current leader, it repeatedly lets the strongest eligible directive
// raise the price by its step until no directive can profitably raise it
// further. That state is the fixed point; resolving again without a new
// manual bid changes nothing.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve drives the auction to its proxy-bid fixed point inside the
// caller's transaction. Each iteration strictly raises the leading price,
// every automatic bid stays at or below its directive's ceiling, and ties
// on the resulting price go to the lowest user id.
func (r *Resolver) Resolve(tx *gorm.DB, auctionID string) error {
	auction, err := bidding.GetAuction(tx, auctionID)
	if err != nil {
		return err
	}

	directives, err := GetActiveDirectives(tx, auctionID)
	if err != nil {
		return err
	}
	if len(directives) == 0 {
		return nil
	}

	leading, err := bidding.GetLeadingBid(tx, auctionID)
	if err != nil {
		return err
	}

	basePrice := auction.StartingPrice
	if leading != nil {
		basePrice = leading.Price
	}
	maxIterations := iterationCap(directives, basePrice)

	for i := 0; ; i++ {
		if i >= maxIterations {
			// The cap is sized so every directive can spend its whole
			// budget; reaching it means the termination argument no longer
			// holds and the loop must not be trusted.
			log.Error().
				Str("auction_id", auctionID).
				Int("iterations", i).
				Msg("auto-bid resolution exceeded iteration cap")
			return fmt.Errorf("auto-bid resolution did not converge on auction %s", auctionID)
		}

		currentPrice := auction.StartingPrice
		leaderID := ""
		if leading != nil {
			currentPrice = leading.Price
			leaderID = leading.BidderID
		}

		chosen, nextPrice := selectCounterBid(directives, currentPrice, leaderID)
		if chosen == nil {
			// Fixed point: no directive can profitably raise the price.
			return nil
		}

		if err := bidding.MarkOpenBidsOutbid(tx, auctionID); err != nil {
			return err
		}

		if leading != nil {
			msg := fmt.Sprintf("You have been outbid on '%s'. The highest bid is now $%s.",
				auction.Title, nextPrice.StringFixed(2))
			if err := alerts.Create(tx, leading.BidderID, msg); err != nil {
				return err
			}
		}

		bid, err := bidding.InsertLeadingBid(tx, auctionID, chosen.UserID, nextPrice, time.Now())
		if err != nil {
			return err
		}

		if err := bidding.RefreshHighestBid(tx, auctionID, nextPrice); err != nil {
			return err
		}

		leading = bid
	}
}

// selectCounterBid picks the directive producing the highest next price
// against the current leader. Candidates are min(ceiling, price+step) and
// must strictly exceed the current price; the leader's own directive
// never competes. Ties on the resulting price resolve to the lowest user
// id, a deliberately documented policy so resolution order is never an
// accident of row ordering.
func selectCounterBid(directives []types.AutoBidDirective, currentPrice decimal.Decimal, leaderID string) (*types.AutoBidDirective, decimal.Decimal) {
	var chosen *types.AutoBidDirective
	var chosenPrice decimal.Decimal

	for i := range directives {
		d := &directives[i]
		if d.UserID == leaderID {
			continue
		}
		if !d.Ceiling.GreaterThan(currentPrice) {
			continue
		}

		candidate := decimal.Min(d.Ceiling, currentPrice.Add(d.Step))
		if !candidate.GreaterThan(currentPrice) {
			continue
		}

		switch {
		case chosen == nil,
			candidate.GreaterThan(chosenPrice),
			candidate.Equal(chosenPrice) && d.UserID < chosen.UserID:
			chosen = d
			chosenPrice = candidate
		}
	}

	return chosen, chosenPrice
}

// iterationCap bounds the resolution loop by the total number of raises
// the directives can fund from the given price: each directive contributes
// at most ceil((ceiling-price)/step) steps before exhausting its budget.
func iterationCap(directives []types.AutoBidDirective, price decimal.Decimal) int {
	total := 1
	for _, d := range directives {
		room := d.Ceiling.Sub(price)
		if !room.IsPositive() || !d.Step.IsPositive() {
			continue
		}
		steps := room.Div(d.Step).Ceil().IntPart()
		total += int(steps) + 1
	}
	return total
}
