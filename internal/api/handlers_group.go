package api

import (
	"Postpilot/internal/api/handler"
	"Postpilot/internal/api/middleware"
	"Postpilot/internal/pkg/metrics"
	"Postpilot/internal/pkg/security"
)

// HandlersGroup every initialized handler plus what the router needs to guard them
type HandlersGroup struct {
	PostHandler       *handler.PostHandler
	DraftHandler      *handler.DraftHandler
	GenerationHandler *handler.GenerationHandler
	UsageHandler      *handler.UsageHandler
	JobHandler        *handler.JobHandler

	Verifier *security.TokenVerifier
	Revoked  middleware.RevocationChecker
	Metrics  *metrics.Metrics
}
