package bidding

import (
	"errors"
	"testing"
	"time"

	"github.com/marketbay/auction-api/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	now := time.Now()
	auction := &types.Auction{
		AuctionID:     "AUC_test",
		SellerID:      "seller",
		Title:         "Test Item",
		StartingPrice: decimal.NewFromInt(10),
		OpensAt:       now.Add(-time.Hour),
		ClosesAt:      now.Add(time.Hour),
	}
	leading := &types.Bid{
		BidderID: "alice",
		Price:    decimal.NewFromInt(20),
		Status:   types.BidStatusLeading,
	}

	tests := []struct {
		name      string
		leading   *types.Bid
		bidderID  string
		amount    decimal.Decimal
		wantError bool
	}{
		{
			name:     "first bid above starting price",
			bidderID: "bob",
			amount:   decimal.NewFromInt(11),
		},
		{
			name:      "first bid equal to starting price",
			bidderID:  "bob",
			amount:    decimal.NewFromInt(10),
			wantError: true,
		},
		{
			name:      "first bid below starting price",
			bidderID:  "bob",
			amount:    decimal.NewFromInt(5),
			wantError: true,
		},
		{
			name:     "bid above leading price",
			leading:  leading,
			bidderID: "bob",
			amount:   decimal.NewFromFloat(20.01),
		},
		{
			name:      "bid equal to leading price",
			leading:   leading,
			bidderID:  "bob",
			amount:    decimal.NewFromInt(20),
			wantError: true,
		},
		{
			name:      "bid below leading price",
			leading:   leading,
			bidderID:  "bob",
			amount:    decimal.NewFromInt(15),
			wantError: true,
		},
		{
			name:      "seller bidding on own auction",
			bidderID:  "seller",
			amount:    decimal.NewFromInt(50),
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Evaluate(auction, tt.leading, tt.bidderID, tt.amount, now)
			if tt.wantError {
				require.Error(t, err)
				require.ErrorIs(t, err, types.ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestEvaluateAuctionWindow(t *testing.T) {
	now := time.Now()
	amount := decimal.NewFromInt(50)

	notOpen := &types.Auction{
		SellerID:      "seller",
		StartingPrice: decimal.NewFromInt(10),
		OpensAt:       now.Add(time.Hour),
		ClosesAt:      now.Add(2 * time.Hour),
	}
	err := Evaluate(notOpen, nil, "bob", amount, now)
	require.ErrorIs(t, err, types.ErrValidation)

	ended := &types.Auction{
		SellerID:      "seller",
		StartingPrice: decimal.NewFromInt(10),
		OpensAt:       now.Add(-2 * time.Hour),
		ClosesAt:      now.Add(-time.Hour),
	}
	err = Evaluate(ended, nil, "bob", amount, now)
	require.ErrorIs(t, err, types.ErrValidation)

	// Closing instant itself is closed
	atClose := &types.Auction{
		SellerID:      "seller",
		StartingPrice: decimal.NewFromInt(10),
		OpensAt:       now.Add(-time.Hour),
		ClosesAt:      now,
	}
	err = Evaluate(atClose, nil, "bob", amount, now)
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestEvaluateRejectionReason(t *testing.T) {
	now := time.Now()
	auction := &types.Auction{
		SellerID:      "seller",
		StartingPrice: decimal.NewFromInt(10),
		OpensAt:       now.Add(-time.Hour),
		ClosesAt:      now.Add(time.Hour),
	}

	err := Evaluate(auction, nil, "bob", decimal.NewFromInt(10), now)
	require.Error(t, err)

	var rejected *types.RejectedError
	require.True(t, errors.As(err, &rejected))
	require.Contains(t, rejected.Reason, "10.00")
}
