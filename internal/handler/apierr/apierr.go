// Package apierr maps service errors to HTTP responses.
package apierr

import (
	"errors"
	"net/http"

	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
	"github.com/zhouzirui/sirius-report/backend/internal/service/authoring"
	"github.com/zhouzirui/sirius-report/backend/pkg/utils"
)

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, authoring.ErrSessionNotFound), errors.Is(err, report.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, authoring.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, authoring.ErrInvalidState), errors.Is(err, authoring.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, authoring.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Write responds with {"error": ...} and the mapped status.
func Write(w http.ResponseWriter, err error) {
	_ = utils.RespondError(w, Status(err), err.Error())
}
