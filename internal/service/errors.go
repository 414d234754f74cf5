package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
	BadGateway          = 502
)

// Kind coarse error class surfaced to callers
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindNotFound            Kind = "NOT_FOUND"
	KindConflict            Kind = "CONFLICT"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindInternal            Kind = "INTERNAL"
)

var (
	ErrParamInvalid        = errors.New("invalid parameter")
	ErrInvalidTimeOfDay    = errors.New("preferred time must be HH:MM")
	ErrUserNotFound        = errors.New("user not found")
	ErrScheduleInactive    = errors.New("schedule policy is missing or inactive")
	ErrVoiceProfileMissing = errors.New("voice profile is missing")
	ErrNoSources           = errors.New("no enabled content source")
	ErrNoPostingAccount    = errors.New("no connected posting account")
	ErrPostNotFound        = errors.New("scheduled post not found")
	ErrDraftNotFound       = errors.New("draft not found")
	ErrPostNotScheduled    = errors.New("post is not scheduled")
	ErrPostAlreadyCanceled = errors.New("post is already canceled")
	ErrPostAlreadyPosted   = errors.New("post is already posted")
	ErrPostInFlight        = errors.New("post is being published")
	ErrPostNotFailed       = errors.New("only failed posts can be retried")
	ErrDraftLocked         = errors.New("draft is already scheduled or posted")
	ErrDraftNotApproved    = errors.New("draft must be approved before publishing")
	ErrCycleRunning        = errors.New("content generation is already running")
	ErrNoContent           = errors.New("no content found in the selected communities")
	ErrGenerationFailed    = errors.New("generation produced no tweets")
	ErrPublishFailed       = errors.New("publish failed")
	ErrMaterializeFailed   = errors.New("some generated items could not be saved")
	UnauthorizedError      = errors.New("permission denied")
	UnExpectedError        = errors.New("unexpected error, please retry later")
)

// sentinelKinds is walked in order, so an error chain carrying two sentinels
// always resolves to the one listed first
var sentinelKinds = []struct {
	err  error
	kind Kind
}{
	{UnauthorizedError, KindValidation},
	{ErrParamInvalid, KindValidation},
	{ErrInvalidTimeOfDay, KindValidation},
	{ErrScheduleInactive, KindValidation},
	{ErrVoiceProfileMissing, KindValidation},
	{ErrNoSources, KindValidation},
	{ErrNoPostingAccount, KindValidation},
	{ErrUserNotFound, KindNotFound},
	{ErrPostNotFound, KindNotFound},
	{ErrDraftNotFound, KindNotFound},
	{ErrPostNotScheduled, KindConflict},
	{ErrPostAlreadyCanceled, KindConflict},
	{ErrPostAlreadyPosted, KindConflict},
	{ErrPostInFlight, KindConflict},
	{ErrPostNotFailed, KindConflict},
	{ErrDraftLocked, KindConflict},
	{ErrDraftNotApproved, KindConflict},
	{ErrCycleRunning, KindConflict},
	{ErrNoContent, KindUpstreamUnavailable},
	{ErrGenerationFailed, KindUpstreamUnavailable},
	{ErrPublishFailed, KindUpstreamUnavailable},
	{ErrMaterializeFailed, KindInternal},
	{UnExpectedError, KindInternal},
}

var kindCodes = map[Kind]int{
	KindValidation:          BadRequest,
	KindNotFound:            NotFound,
	KindConflict:            Conflict,
	KindUpstreamUnavailable: BadGateway,
	KindInternal:            InternalServerError,
}

// ErrorMap business code of every known sentinel
var ErrorMap = func() map[error]int {
	m := make(map[error]int, len(sentinelKinds))
	for _, sk := range sentinelKinds {
		m[sk.err] = kindCodes[sk.kind]
	}
	m[UnauthorizedError] = Forbidden
	return m
}()

// KindOf classifies err by the first known sentinel in its chain
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, sk := range sentinelKinds {
		if errors.Is(err, sk.err) {
			return sk.kind
		}
	}
	return KindInternal
}

// CodeOf business code of err, InternalServerError when unknown
func CodeOf(err error) (int, bool) {
	for _, sk := range sentinelKinds {
		if errors.Is(err, sk.err) {
			return ErrorMap[sk.err], true
		}
	}
	return InternalServerError, false
}
