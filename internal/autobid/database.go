package autobid

import (
	"errors"

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

// GetActiveDirectives returns every active auto-bid directive for the
// auction.
func GetActiveDirectives(tx *gorm.DB, auctionID string) ([]types.AutoBidDirective, error) {
	var directives []types.AutoBidDirective
	if err := tx.Where("auction_id = ? AND active = ?", auctionID, true).
		Order("user_id ASC").
		Find(&directives).Error; err != nil {
		return nil, err
	}
	return directives, nil
}

// UpsertDirective creates or replaces the single directive a user may
// hold on an auction.
func UpsertDirective(tx *gorm.DB, directive *types.AutoBidDirective) error {
	var existing types.AutoBidDirective
	err := tx.Where("auction_id = ? AND user_id = ?", directive.AuctionID, directive.UserID).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(directive).Error
		}
		return err
	}

	return tx.Model(&existing).Updates(map[string]interface{}{
		"ceiling": directive.Ceiling,
		"step":    directive.Step,
		"active":  directive.Active,
	}).Error
}

// GetDirective returns a user's directive on an auction, or nil when none
// exists.
func (d *Database) GetDirective(auctionID, userID string) (*types.AutoBidDirective, error) {
	var directive types.AutoBidDirective
	err := d.db.Where("auction_id = ? AND user_id = ?", auctionID, userID).
		First(&directive).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &directive, nil
}
