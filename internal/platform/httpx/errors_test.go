package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail bool
	}{
		{"not found", fmt.Errorf("invoice: %w", ErrNotFound), http.StatusNotFound, true},
		{"duplicate", ErrDuplicate, http.StatusConflict, true},
		{"validation", ErrValidation, http.StatusBadRequest, true},
		{"unknown is opaque", errors.New("pool exhausted"), http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)

			require.Equal(t, tc.wantStatus, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var problem ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.Equal(t, tc.wantStatus, problem.Status)
			if tc.wantDetail {
				require.Contains(t, problem.Detail, tc.err.Error())
			} else {
				require.Empty(t, problem.Detail)
			}
		})
	}
}
