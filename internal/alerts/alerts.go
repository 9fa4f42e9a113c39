package alerts

import (
	"github.com/gin-gonic/gin"
	"github.com/marketbay/auction-api/internal/types"
	"github.com/marketbay/auction-api/pkg/response"
	"gorm.io/gorm"
)

// Service exposes the user-facing side of the notification sink. Engine
// components write alert rows directly within their own transactions; the
// service only reads and acknowledges them.
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// Send writes a fire-and-forget alert outside any transaction.
func (s *Service) Send(userID, message string) error {
	return s.db.Create(userID, message)
}

// ListAlerts returns the user's alerts, newest first.
func (s *Service) ListAlerts(userID string) ([]types.Alert, error) {
	return s.db.ListByUser(userID)
}

// MarkRead acknowledges a single alert for the user.
func (s *Service) MarkRead(userID, alertID string) error {
	return s.db.MarkRead(userID, alertID)
}

// GinHandlers contains HTTP handlers for alert endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func (h *GinHandlers) ListAlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		userAlerts, err := h.service.ListAlerts(userID)
		response.Handle(c, userAlerts, err)
	}
}

func (h *GinHandlers) MarkReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		alertID := c.Param("alert_id")
		if alertID == "" {
			response.BadRequest(c, "Alert ID is required")
			return
		}

		if err := h.service.MarkRead(userID, alertID); err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, gin.H{"message": "alert marked as read"})
	}
}
