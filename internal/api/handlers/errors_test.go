package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"field-attendance-api-server/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.New(apperr.KindValidation, "op", "bad"), http.StatusBadRequest},
		{apperr.New(apperr.KindOutsideZone, "op", "out"), http.StatusForbidden},
		{apperr.New(apperr.KindNoZonesConfigured, "op", "none"), http.StatusForbidden},
		{apperr.New(apperr.KindLocationUnavailable, "op", "gps"), http.StatusUnprocessableEntity},
		{apperr.New(apperr.KindAlreadyCheckedIn, "op", "dup"), http.StatusConflict},
		{apperr.New(apperr.KindLogoutBlocked, "op", "busy"), http.StatusConflict},
		{apperr.New(apperr.KindNotFound, "op", "gone"), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", apperr.Wrap(apperr.KindBackendUnavailable, "op", errors.New("eof"))), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestRespondErrorHidesCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, apperr.Wrap(apperr.KindBackendUnavailable, "zone.List", errors.New("dial tcp 10.0.0.5:27017: refused")))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "backend unavailable", body["error"])
	assert.Equal(t, "backend_unavailable", body["code"])
}
