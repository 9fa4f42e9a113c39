package auction

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

func seedBid(t *testing.T, db *gorm.DB, auctionID, bidderID string, price int64, status string, placedAt time.Time) {
	t.Helper()

	bid := &types.Bid{
		BidID:     "BID_" + uuid.New().String(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Price:     decimal.NewFromInt(price),
		PlacedAt:  placedAt,
		Status:    status,
	}
	require.NoError(t, db.Create(bid).Error)
}

func TestCreateAuction(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	opensAt := time.Now()
	closesAt := opensAt.Add(24 * time.Hour)

	auction, err := service.CreateAuction("seller", "ITEM_1", "Vintage Camera", "Working Leica",
		decimal.NewFromInt(100), opensAt, closesAt)
	require.NoError(t, err)
	require.NotEmpty(t, auction.AuctionID)
	require.Equal(t, "seller", auction.SellerID)
	require.True(t, auction.CurrentHighestBid.IsZero())

	fetched, err := service.GetAuctionDetail(auction.AuctionID)
	require.NoError(t, err)
	require.Equal(t, "Vintage Camera", fetched.Auction.Title)
	require.Nil(t, fetched.LeadingBid)
	require.Empty(t, fetched.BidHistory)
}

func TestCreateAuctionValidation(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	opensAt := time.Now()
	closesAt := opensAt.Add(time.Hour)

	tests := []struct {
		name          string
		sellerID      string
		title         string
		startingPrice decimal.Decimal
		opensAt       time.Time
		closesAt      time.Time
	}{
		{"missing seller", "", "Item", decimal.NewFromInt(10), opensAt, closesAt},
		{"missing title", "seller", "", decimal.NewFromInt(10), opensAt, closesAt},
		{"negative starting price", "seller", "Item", decimal.NewFromInt(-1), opensAt, closesAt},
		{"closes before opens", "seller", "Item", decimal.NewFromInt(10), closesAt, opensAt},
		{"closes equals opens", "seller", "Item", decimal.NewFromInt(10), opensAt, opensAt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateAuction(tt.sellerID, "ITEM_1", tt.title, "",
				tt.startingPrice, tt.opensAt, tt.closesAt)
			require.ErrorIs(t, err, types.ErrValidation)
		})
	}
}

func TestGetAuctionDetail(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	auction, err := service.CreateAuction("seller", "ITEM_1", "Oil Painting", "",
		decimal.NewFromInt(10), time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)

	base := time.Now().Add(-30 * time.Minute)
	seedBid(t, db, auction.AuctionID, "alice", 15, types.BidStatusOutbid, base)
	seedBid(t, db, auction.AuctionID, "bob", 20, types.BidStatusOutbid, base.Add(time.Minute))
	seedBid(t, db, auction.AuctionID, "alice", 25, types.BidStatusLeading, base.Add(2*time.Minute))

	detail, err := service.GetAuctionDetail(auction.AuctionID)
	require.NoError(t, err)

	require.NotNil(t, detail.LeadingBid)
	require.Equal(t, "alice", detail.LeadingBid.BidderID)
	require.True(t, detail.LeadingBid.Price.Equal(decimal.NewFromInt(25)))

	require.Len(t, detail.BidHistory, 3)
	// Latest first
	require.True(t, detail.BidHistory[0].Price.Equal(decimal.NewFromInt(25)))

	// Distinct bidders, most recent activity first
	require.Equal(t, []string{"alice", "bob"}, detail.RecentBidders)
}

func TestGetAuctionDetailNotFound(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	_, err := service.GetAuctionDetail("AUC_missing")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestListAuctions(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	for i := 0; i < 3; i++ {
		opensAt := time.Now().Add(time.Duration(-i) * time.Hour)
		_, err := service.CreateAuction("seller", "ITEM_1", "Item", "",
			decimal.NewFromInt(10), opensAt, opensAt.Add(24*time.Hour))
		require.NoError(t, err)
	}

	auctions, err := service.ListAuctions()
	require.NoError(t, err)
	require.Len(t, auctions, 3)
	// Most recently opened first
	require.True(t, auctions[0].OpensAt.After(auctions[1].OpensAt))
}

func TestRemoveAuction(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	auction, err := service.CreateAuction("seller", "ITEM_1", "Antique Clock", "",
		decimal.NewFromInt(10), time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)

	now := time.Now()
	seedBid(t, db, auction.AuctionID, "alice", 15, types.BidStatusOutbid, now)
	seedBid(t, db, auction.AuctionID, "bob", 20, types.BidStatusLeading, now)

	require.NoError(t, service.RemoveAuction(auction.AuctionID))

	_, err = service.GetAuctionDetail(auction.AuctionID)
	require.ErrorIs(t, err, types.ErrNotFound)

	var bidCount int64
	require.NoError(t, db.Model(&types.Bid{}).Where("auction_id = ?", auction.AuctionID).Count(&bidCount).Error)
	require.EqualValues(t, 0, bidCount)

	// Every participant is told their bids were cancelled
	for _, bidder := range []string{"alice", "bob"} {
		var alert types.Alert
		require.NoError(t, db.Where("user_id = ?", bidder).First(&alert).Error)
		require.Contains(t, alert.Message, "removed")
	}
}

func TestRemoveAuctionNotFound(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	err := service.RemoveAuction("AUC_missing")
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestSalesReport(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	sellers := map[string]string{"s1": "", "s2": ""}
	for sellerID := range sellers {
		auction, err := service.CreateAuction(sellerID, "ITEM_1", "Item", "",
			decimal.NewFromInt(10), time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))
		require.NoError(t, err)
		sellers[sellerID] = auction.AuctionID
	}

	now := time.Now()
	seedBid(t, db, sellers["s1"], "alice", 100, types.BidStatusWon, now)
	seedBid(t, db, sellers["s1"], "bob", 90, types.BidStatusLost, now)
	seedBid(t, db, sellers["s2"], "carol", 250, types.BidStatusWon, now)

	report, err := service.SalesReport()
	require.NoError(t, err)
	require.True(t, report.TotalEarnings.Equal(decimal.NewFromInt(350)))
	require.Len(t, report.PerSeller, 2)

	// Best earner first
	require.Equal(t, "s2", report.PerSeller[0].SellerID)
	require.True(t, report.PerSeller[0].Earnings.Equal(decimal.NewFromInt(250)))
	require.Equal(t, "s1", report.PerSeller[1].SellerID)
	require.Equal(t, 1, report.PerSeller[1].Auctions)
}

func TestSalesReportEmpty(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	report, err := service.SalesReport()
	require.NoError(t, err)
	require.True(t, report.TotalEarnings.IsZero())
	require.Empty(t, report.PerSeller)
}
