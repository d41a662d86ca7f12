package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/segyhp/circulation-engine/pkg/errors"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody string
	}{
		{"not found", apperrors.WrapLoanNotFound("x"), http.StatusNotFound, apperrors.ErrCodeLoanNotFound},
		{"forbidden", apperrors.WrapForbidden("renew loan"), http.StatusForbidden, apperrors.ErrCodeForbidden},
		{"conflict", apperrors.WrapFineAlreadyPaid("f"), http.StatusConflict, apperrors.ErrCodeFineAlreadyPaid},
		{"unavailable", apperrors.WrapItemUnavailable(3), http.StatusBadRequest, apperrors.ErrCodeItemUnavailable},
		{"gateway", apperrors.WrapGatewayError(errors.New("down")), http.StatusBadGateway, apperrors.ErrCodeGatewayError},
		{"database", apperrors.WrapDatabaseError(errors.New("conn reset")), http.StatusInternalServerError, apperrors.ErrCodeDatabaseError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apperrors.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			FromError(w, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.expectedBody, body.Code)
		})
	}
}

func TestFromError_HidesInternalCause(t *testing.T) {
	w := httptest.NewRecorder()
	FromError(w, apperrors.WrapDatabaseError(errors.New("password authentication failed")))

	assert.NotContains(t, w.Body.String(), "password")
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	h := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/loans", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, called)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
