package handler

import (
	"Postpilot/internal/api/dto"
	"Postpilot/internal/pkg/response"
	"Postpilot/internal/service"

	"github.com/gin-gonic/gin"
)

type DraftHandler struct {
	draftSvc service.DraftService
}

func NewDraftHandler(draftSvc service.DraftService) *DraftHandler {
	return &DraftHandler{
		draftSvc: draftSvc,
	}
}

func (s *DraftHandler) ListDrafts(c *gin.Context) {
	userID := c.GetUint64("user_id")

	var query dto.DraftListDTO
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err))
		return
	}

	drafts, err := s.draftSvc.ListDrafts(c.Request.Context(), userID, &query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, drafts)
}

func (s *DraftHandler) Approve(c *gin.Context) {
	userID := c.GetUint64("user_id")
	draftID, err := pathID(c, "draft_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err = s.draftSvc.Approve(c.Request.Context(), userID, draftID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"success": true})
}

func (s *DraftHandler) Reject(c *gin.Context) {
	userID := c.GetUint64("user_id")
	draftID, err := pathID(c, "draft_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err = s.draftSvc.Reject(c.Request.Context(), userID, draftID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"success": true})
}
