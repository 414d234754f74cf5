package util

import (
	"Postpilot/internal/model"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDTOVoiceSummary(t *testing.T) {
	voice := model.VoiceSummary{}
	voice.Cadence.QuestionRate = 0.2
	assert.NoError(t, ValidateDTO(&voice))

	voice.Cadence.QuestionRate = 1.5
	err := ValidateDTO(&voice)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QuestionRate")

	var vErrs validator.ValidationErrors
	assert.True(t, errors.As(err, &vErrs))
}
