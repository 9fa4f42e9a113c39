package migrations

import (
	"gorm.io/gorm"
)

// AddLedgerIndexes creates the indexes the bidding and settlement paths
// depend on
func AddLedgerIndexes(db *gorm.DB) error {
	// Add indexes for better query performance
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Composite index for leader lookups and conditional status updates
		`CREATE INDEX IF NOT EXISTS idx_bids_auction_status
		 ON bids(auction_id, status)`,

		// Index for the settlement due-auction scan
		`CREATE INDEX IF NOT EXISTS idx_auctions_closes_at
		 ON auctions(closes_at)`,

		// Index for per-user alert listings
		`CREATE INDEX IF NOT EXISTS idx_alerts_user_created
		 ON alerts(user_id, created_at)`,

		// Index for gathering a single auction's active directives
		`CREATE INDEX IF NOT EXISTS idx_directives_auction_active
		 ON auto_bid_directives(auction_id, active)`,
	}

	// Execute each index creation
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
