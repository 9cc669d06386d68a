package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
	"github.com/zhouzirui/sirius-report/backend/internal/service/authoring"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{authoring.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", report.ErrNotFound), http.StatusNotFound},
		{authoring.ErrEmptyInput, http.StatusBadRequest},
		{authoring.ErrSessionBusy, http.StatusConflict},
		{authoring.ErrInvalidState, http.StatusConflict},
		{fmt.Errorf("%w: timeout", authoring.ErrGenerationFailed), http.StatusBadGateway},
		{fmt.Errorf("%w: disk full", authoring.ErrPersistFailed), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Fatalf("Status(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
