package alerts

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marketbay/auction-api/internal/types"
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
	require.NoError(t, db.AutoMigrate(&types.Alert{}))
	return db
}

func TestSendAndList(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	require.NoError(t, service.Send("alice", "first"))
	require.NoError(t, service.Send("alice", "second"))
	require.NoError(t, service.Send("bob", "other user"))

	userAlerts, err := service.ListAlerts("alice")
	require.NoError(t, err)
	require.Len(t, userAlerts, 2)
	for _, alert := range userAlerts {
		require.Equal(t, "alice", alert.UserID)
		require.False(t, alert.Read)
		require.NotEmpty(t, alert.AlertID)
	}
}

func TestListAlertsNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	base := time.Now().Add(-time.Hour)
	for i, msg := range []string{"oldest", "middle", "newest"} {
		alert := &types.Alert{
			AlertID:   "ALR_" + uuid.New().String(),
			UserID:    "alice",
			Message:   msg,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(alert).Error)
	}

	userAlerts, err := service.ListAlerts("alice")
	require.NoError(t, err)
	require.Len(t, userAlerts, 3)
	require.Equal(t, "newest", userAlerts[0].Message)
	require.Equal(t, "oldest", userAlerts[2].Message)
}

func TestMarkRead(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	require.NoError(t, service.Send("alice", "you won"))

	userAlerts, err := service.ListAlerts("alice")
	require.NoError(t, err)
	require.Len(t, userAlerts, 1)

	require.NoError(t, service.MarkRead("alice", userAlerts[0].AlertID))

	userAlerts, err = service.ListAlerts("alice")
	require.NoError(t, err)
	require.True(t, userAlerts[0].Read)
}

func TestMarkReadWrongUser(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	require.NoError(t, service.Send("alice", "private"))

	userAlerts, err := service.ListAlerts("alice")
	require.NoError(t, err)

	// Another user cannot acknowledge someone else's alert
	err = service.MarkRead("bob", userAlerts[0].AlertID)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestMarkReadUnknownAlert(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db)

	err := service.MarkRead("alice", "ALR_missing")
	require.ErrorIs(t, err, types.ErrNotFound)
}
