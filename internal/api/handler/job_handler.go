package handler

import (
	"Postpilot/internal/api/dto"
	"Postpilot/internal/pkg/response"
	"Postpilot/internal/pkg/util"
	"context"

	"github.com/gin-gonic/gin"
)

// GeneratorJob operator controls of the recurring generation job
type GeneratorJob interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	RunNow(ctx context.Context) (*dto.JobStatusDTO, error)
	Status(ctx context.Context) (*dto.JobStatusDTO, error)
}

type JobHandler struct {
	generator GeneratorJob
}

func NewJobHandler(generator GeneratorJob) *JobHandler {
	return &JobHandler{
		generator: generator,
	}
}

func (s *JobHandler) Status(c *gin.Context) {
	status, err := s.generator.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}

func (s *JobHandler) Control(c *gin.Context) {
	var req dto.JobActionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	var err error
	switch req.Action {
	case "start":
		err = s.generator.Start(ctx)
	case "stop":
		err = s.generator.Stop(ctx)
	case "run":
		var status *dto.JobStatusDTO
		if status, err = s.generator.RunNow(ctx); err == nil {
			response.Success(c, status)
			return
		}
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	status, err := s.generator.Status(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}
