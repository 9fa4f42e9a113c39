package alerts

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketbay/auction-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Create inserts an alert row. Callers inside a transaction pass their tx
// handle so the alert commits or rolls back with the triggering mutation.
func Create(tx *gorm.DB, userID, message string) error {
	alert := &types.Alert{
		AlertID:   "ALR_" + uuid.New().String(),
		UserID:    userID,
		Message:   message,
		Read:      false,
		CreatedAt: time.Now(),
	}
	return tx.Create(alert).Error
}

func (d *Database) Create(userID, message string) error {
	return Create(d.db, userID, message)
}

func (d *Database) ListByUser(userID string) ([]types.Alert, error) {
	var userAlerts []types.Alert
	if err := d.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&userAlerts).Error; err != nil {
		return nil, err
	}
	return userAlerts, nil
}

// MarkRead flips the read flag on one of the user's alerts. The user
// filter keeps one recipient from touching another's alerts.
func (d *Database) MarkRead(userID, alertID string) error {
	result := d.db.Model(&types.Alert{}).
		Where("alert_id = ? AND user_id = ?", alertID, userID).
		Update("read", true)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return types.ErrNotFound
	}

	return nil
}
