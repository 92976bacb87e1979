package handlers

import (
	"errors"
	"net/http"
	"strings"

	"field-attendance-api-server/internal/apperr"

	"github.com/gin-gonic/gin"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:          http.StatusBadRequest,
	apperr.KindOutsideZone:         http.StatusForbidden,
	apperr.KindNoZonesConfigured:   http.StatusForbidden,
	apperr.KindLocationUnavailable: http.StatusUnprocessableEntity,
	apperr.KindAlreadyCheckedIn:    http.StatusConflict,
	apperr.KindNoOpenRecord:        http.StatusConflict,
	apperr.KindInvalidTransition:   http.StatusConflict,
	apperr.KindConflict:            http.StatusConflict,
	apperr.KindLogoutBlocked:       http.StatusConflict,
	apperr.KindNotFound:            http.StatusNotFound,
	apperr.KindBackendUnavailable:  http.StatusServiceUnavailable,
}

// StatusFor maps an error to its HTTP status. Errors without a kind are 500.
func StatusFor(err error) int {
	if status, ok := statusByKind[apperr.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		c.JSON(status, gin.H{"error": "internal server error", "code": "internal"})
		return
	}
	msg := ae.Message
	if msg == "" {
		msg = strings.ReplaceAll(string(ae.Kind), "_", " ")
	}
	c.JSON(status, gin.H{"error": msg, "code": string(ae.Kind)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(apperr.KindValidation)})
}
