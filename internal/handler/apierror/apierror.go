// Package apierror maps service errors to HTTP responses.
package apierror

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/study-mentor/backend/internal/extract"
	"github.com/zhouzirui/study-mentor/backend/internal/service/gateway"
	"github.com/zhouzirui/study-mentor/backend/internal/service/session"
	"github.com/zhouzirui/study-mentor/backend/internal/service/tutor"
	"github.com/zhouzirui/study-mentor/backend/pkg/utils"
)

const (
	MsgMissingProfile = "Missing name or age"
	MsgNoInput        = "No input provided"
	MsgInvalidFile    = "Invalid file type"
	MsgNoFile         = "No file uploaded"
	MsgFileTooLarge   = "File too large"
	MsgInternal       = "Internal server error"
)

// Problem is the client-facing description of an error.
type Problem struct {
	Status    int
	Message   string
	Retryable *bool
}

// Describe classifies err. Unknown errors become a generic 500.
func Describe(err error) Problem {
	switch {
	case errors.Is(err, session.ErrMissingField):
		return Problem{Status: http.StatusBadRequest, Message: MsgMissingProfile}
	case errors.Is(err, tutor.ErrEmptyMessage):
		return Problem{Status: http.StatusBadRequest, Message: MsgNoInput}
	case errors.Is(err, tutor.ErrInvalidFileType):
		return Problem{Status: http.StatusBadRequest, Message: MsgInvalidFile}
	case errors.Is(err, tutor.ErrEmptyFile):
		return Problem{Status: http.StatusBadRequest, Message: MsgNoFile}
	case errors.Is(err, tutor.ErrSessionRequired):
		return Problem{Status: http.StatusBadRequest, Message: "Missing session"}
	}

	var extractErr *extract.Error
	if errors.As(err, &extractErr) {
		return Problem{Status: http.StatusInternalServerError, Message: extractErr.Error()}
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		retryable := gwErr.Retryable()
		p := Problem{Retryable: &retryable}
		switch gwErr.Kind {
		case gateway.ErrTimeout:
			p.Status, p.Message = http.StatusGatewayTimeout, "The tutor took too long to answer, please try again"
		case gateway.ErrRateLimited:
			p.Status, p.Message = http.StatusTooManyRequests, "The tutor is busy right now, please try again shortly"
		case gateway.ErrInvalidResponse:
			p.Status, p.Message = http.StatusBadGateway, "The tutor returned an invalid answer"
		default:
			p.Status, p.Message = http.StatusServiceUnavailable, "The tutor is unavailable right now"
		}
		return p
	}

	return Problem{Status: http.StatusInternalServerError, Message: MsgInternal}
}

// Write sends the JSON error body for err and logs server-side failures.
func Write(w http.ResponseWriter, logger *zap.Logger, err error) {
	p := Describe(err)
	if logger != nil && p.Status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", p.Status), zap.Error(err))
	}
	if p.Retryable != nil {
		utils.RespondRetryableError(w, p.Status, p.Message, *p.Retryable)
		return
	}
	utils.RespondError(w, p.Status, p.Message)
}
