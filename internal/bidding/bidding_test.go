package bidding

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marketbay/auction-api/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type noopResolver struct{}

func (noopResolver) Resolve(tx *gorm.DB, auctionID string) error { return nil }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.Auction{}, &types.Bid{}, &types.AutoBidDirective{}, &types.Alert{}))
	return db
}

func seedAuction(t *testing.T, db *gorm.DB, auctionID, sellerID string, startingPrice int64) *types.Auction {
	t.Helper()

	auction := &types.Auction{
		AuctionID:         auctionID,
		SellerID:          sellerID,
		Title:             "Vintage Camera",
		StartingPrice:     decimal.NewFromInt(startingPrice),
		OpensAt:           time.Now().Add(-time.Hour),
		ClosesAt:          time.Now().Add(time.Hour),
		CurrentHighestBid: decimal.Zero,
	}
	require.NoError(t, db.Create(auction).Error)
	return auction
}

func countLeading(t *testing.T, db *gorm.DB, auctionID string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&types.Bid{}).
		Where("auction_id = ? AND status = ?", auctionID, types.BidStatusLeading).
		Count(&count).Error)
	return count
}

func TestPlaceBidFirstBidLeads(t *testing.T) {
	db := setupTestDB(t)
	seedAuction(t, db, "AUC_1", "seller", 10)
	service := NewService(db, noopResolver{}, 3)

	receipt, err := service.PlaceBid("AUC_1", "alice", decimal.NewFromInt(15))
	require.NoError(t, err)
	require.True(t, receipt.Accepted)
	require.Equal(t, "alice", receipt.LeadingUser)
	require.True(t, receipt.LeadingPrice.Equal(decimal.NewFromInt(15)))

	require.EqualValues(t, 1, countLeading(t, db, "AUC_1"))

	var auction types.Auction
	require.NoError(t, db.Where("auction_id = ?", "AUC_1").First(&auction).Error)
	require.True(t, auction.CurrentHighestBid.Equal(decimal.NewFromInt(15)))
	require.EqualValues(t, 1, auction.Version)
}

func TestPlaceBidRejectsNonExceedingAmount(t *testing.T) {
	db := setupTestDB(t)
	seedAuction(t, db, "AUC_1", "seller", 10)
	service := NewService(db, noopResolver{}, 3)

	_, err := service.PlaceBid("AUC_1", "alice", decimal.NewFromInt(20))
	require.NoError(t, err)

	// Equal to the current leader: strictly-greater comparison rejects it
	_, err = service.PlaceBid("AUC_1", "bob", decimal.NewFromInt(20))
	require.ErrorIs(t, err, types.ErrValidation)

	_, err = service.PlaceBid("AUC_1", "bob", decimal.NewFromInt(18))
	require.ErrorIs(t, err, types.ErrValidation)

	// Rejection leaves the ledger untouched
	require.EqualValues(t, 1, countLeading(t, db, "AUC_1"))

	var leading types.Bid
	require.NoError(t, db.Where("auction_id = ? AND status = ?", "AUC_1", types.BidStatusLeading).First(&leading).Error)
	require.Equal(t, "alice", leading.BidderID)
}

func TestPlaceBidDisplacesPreviousLeader(t *testing.T) {
	db := setupTestDB(t)
	seedAuction(t, db, "AUC_1", "seller", 10)
	service := NewService(db, noopResolver{}, 3)

	_, err := service.PlaceBid("AUC_1", "alice", decimal.NewFromInt(15))
	require.NoError(t, err)

	receipt, err := service.PlaceBid("AUC_1", "bob", decimal.NewFromInt(20))
	require.NoError(t, err)
	require.Equal(t, "bob", receipt.LeadingUser)

	require.EqualValues(t, 1, countLeading(t, db, "AUC_1"))

	var outbid types.Bid
	require.NoError(t, db.Where("auction_id = ? AND bidder_id = ?", "AUC_1", "alice").First(&outbid).Error)
	require.Equal(t, types.BidStatusOutbid, outbid.Status)

	// The displaced leader is notified
	var alert types.Alert
	require.NoError(t, db.Where("user_id = ?", "alice").First(&alert).Error)
	require.Contains(t, alert.Message, "outbid")
	require.Contains(t, alert.Message, "20.00")
}

func TestPlaceBidNoAlertWhenRaisingOwnBid(t *testing.T) {
	db := setupTestDB(t)
	seedAuction(t, db, "AUC_1", "seller", 10)
	service := NewService(db, noopResolver{}, 3)

	_, err := service.PlaceBid("AUC_1", "alice", decimal.NewFromInt(15))
	require.NoError(t, err)
	_, err = service.PlaceBid("AUC_1", "alice", decimal.NewFromInt(25))
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&types.Alert{}).Where("user_id = ?", "alice").Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestPlaceBidSellerRejected(t *testing.T) {
	db := setupTestDB(t)
	seedAuction(t, db, "AUC_1", "seller", 10)
	service := NewService(db, noopResolver{}, 3)

	_, err := service.PlaceBid("AUC_1", "seller", decimal.NewFromInt(50))
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestPlaceBidClosedAuctionRejected(t *testing.T) {
	db := setupTestDB(t)
	auction := &types.Auction{
		AuctionID:     "AUC_closed",
		SellerID:      "seller",
		Title:         "Antique Clock",
		StartingPrice: decimal.NewFromInt(10),
		OpensAt:       time.Now().Add(-2 * time.Hour),
		ClosesAt:      time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(auction).Error)
	service := NewService(db, noopResolver{}, 3)

	_, err := service.PlaceBid("AUC_closed", "alice", decimal.NewFromInt(50))
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestPlaceBidUnknownAuction(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, noopResolver{}, 3)

	_, err := service.PlaceBid("AUC_missing", "alice", decimal.NewFromInt(10))
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestPlaceBidInputValidation(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, noopResolver{}, 3)

	_, err := service.PlaceBid("", "alice", decimal.NewFromInt(10))
	require.ErrorIs(t, err, types.ErrValidation)

	_, err = service.PlaceBid("AUC_1", "", decimal.NewFromInt(10))
	require.ErrorIs(t, err, types.ErrValidation)

	_, err = service.PlaceBid("AUC_1", "alice", decimal.Zero)
	require.ErrorIs(t, err, types.ErrValidation)

	_, err = service.PlaceBid("AUC_1", "alice", decimal.NewFromInt(-5))
	require.ErrorIs(t, err, types.ErrValidation)
}

func TestRefreshHighestBidCASDetectsStaleVersion(t *testing.T) {
	db := setupTestDB(t)
	auction := seedAuction(t, db, "AUC_1", "seller", 10)

	stale := *auction
	require.NoError(t, RefreshHighestBidCAS(db, auction, decimal.NewFromInt(15)))

	// A second write against the version read before the first commit
	// must report a conflict.
	err := RefreshHighestBidCAS(db, &stale, decimal.NewFromInt(20))
	require.ErrorIs(t, err, types.ErrConflict)
}
