package handler

import (
	"Postpilot/internal/api/dto"
	"Postpilot/internal/pkg/response"
	"Postpilot/internal/pkg/util"
	"Postpilot/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	postSvc    service.PostService
	publishSvc service.PublishService
}

func NewPostHandler(postSvc service.PostService, publishSvc service.PublishService) *PostHandler {
	return &PostHandler{
		postSvc:    postSvc,
		publishSvc: publishSvc,
	}
}

func (s *PostHandler) ListPosts(c *gin.Context) {
	userID := c.GetUint64("user_id")

	var query dto.PostListDTO
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err))
		return
	}

	posts, err := s.postSvc.ListPosts(c.Request.Context(), userID, &query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, posts)
}

func (s *PostHandler) GetPost(c *gin.Context) {
	userID := c.GetUint64("user_id")
	postID, err := pathID(c, "post_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	post, err := s.postSvc.GetPost(c.Request.Context(), userID, postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

func (s *PostHandler) CancelPost(c *gin.Context) {
	userID := c.GetUint64("user_id")
	postID, err := pathID(c, "post_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CancelPostDTO
	if c.Request.ContentLength > 0 {
		if err = c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err))
			return
		}
	}
	if err = util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	if err = s.publishSvc.Cancel(c.Request.Context(), userID, postID, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *PostHandler) PublishPost(c *gin.Context) {
	userID := c.GetUint64("user_id")
	postID, err := pathID(c, "post_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	post, err := s.publishSvc.Publish(c.Request.Context(), userID, postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, service.ToScheduledPostDTO(post))
}

func (s *PostHandler) RetryPost(c *gin.Context) {
	userID := c.GetUint64("user_id")
	postID, err := pathID(c, "post_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err = s.publishSvc.Retry(c.Request.Context(), userID, postID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *PostHandler) ListEvents(c *gin.Context) {
	userID := c.GetUint64("user_id")
	postID, err := pathID(c, "post_id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var page dto.PageDTO
	if err = c.ShouldBindQuery(&page); err != nil {
		response.Error(c, bindError(err))
		return
	}

	events, err := s.postSvc.ListEvents(c.Request.Context(), userID, postID, &page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, events)
}
