package handler

import (
	"Postpilot/internal/api/dto"
	"Postpilot/internal/pkg/response"
	"Postpilot/internal/pkg/util"
	"Postpilot/internal/service"

	"github.com/gin-gonic/gin"
)

type GenerationHandler struct {
	generationSvc service.GenerationService
}

func NewGenerationHandler(generationSvc service.GenerationService) *GenerationHandler {
	return &GenerationHandler{
		generationSvc: generationSvc,
	}
}

// Generate creates drafts for the caller right away, outside the daily quota
func (s *GenerationHandler) Generate(c *gin.Context) {
	userID := c.GetUint64("user_id")

	var req dto.GenerateDTO
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err))
			return
		}
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	posts, err := s.generationSvc.GenerateForUser(c.Request.Context(), userID, req.Count)
	if err != nil && len(posts) == 0 {
		response.Error(c, err)
		return
	}

	result := &dto.GenerateResultDTO{Tweets: make([]*dto.ScheduledPostDTO, 0, len(posts))}
	for _, post := range posts {
		result.Tweets = append(result.Tweets, service.ToScheduledPostDTO(post))
	}
	result.TweetsGenerated = len(result.Tweets)
	response.Success(c, result)
}
