package handler

import (
	"Postpilot/internal/pkg/response"
	"Postpilot/internal/service"
	"time"

	"github.com/gin-gonic/gin"
)

type UsageHandler struct {
	usageSvc service.UsageService
	now      func() time.Time
}

func NewUsageHandler(usageSvc service.UsageService) *UsageHandler {
	return &UsageHandler{
		usageSvc: usageSvc,
		now:      time.Now,
	}
}

func (s *UsageHandler) Current(c *gin.Context) {
	userID := c.GetUint64("user_id")

	usage, err := s.usageSvc.Current(c.Request.Context(), userID, s.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, usage)
}
