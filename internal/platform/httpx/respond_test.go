package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusInternalServerError, Envelope{Success: false, Error: "Erreur serveur"})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":false,"error":"Erreur serveur"}`, rr.Body.String())
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		detail bool
	}{
		{fmt.Errorf("audit 42: %w", ErrNotFound), http.StatusNotFound, true},
		{fmt.Errorf("email: %w", ErrValidation), http.StatusBadRequest, true},
		{ErrUnauthorized, http.StatusUnauthorized, true},
		{ErrUnavailable, http.StatusServiceUnavailable, true},
		{errors.New("pg: connection reset"), http.StatusInternalServerError, false},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.status, rr.Code)

		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
		assert.Equal(t, tc.status, problem.Status)
		if tc.detail {
			assert.Equal(t, tc.err.Error(), problem.Detail)
		} else {
			assert.Empty(t, problem.Detail)
		}
	}
}
