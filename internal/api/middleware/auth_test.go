package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"field-attendance-api-server/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(tokens *auth.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Authenticate(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, EmployeeRef(c))
	})
	r.GET("/admin", Authenticate(tokens), Authorize(auth.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewManager("secret", time.Hour)
	r := newRouter(tokens)
	token, err := tokens.GenerateJWT("e@example.com", auth.RoleEmployee, "EMP-9")
	require.NoError(t, err)

	w := do(r, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EMP-9", w.Body.String())

	w = do(r, "/me?token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", token).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Bearer junk").Code)
}

func TestAuthorize(t *testing.T) {
	tokens := auth.NewManager("secret", time.Hour)
	r := newRouter(tokens)

	employee, err := tokens.GenerateJWT("e@example.com", auth.RoleEmployee, "EMP-9")
	require.NoError(t, err)
	admin, err := tokens.GenerateJWT("a@example.com", auth.RoleAdmin, "ADM-1")
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", "Bearer "+employee).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/admin", "Bearer "+admin).Code)
}
