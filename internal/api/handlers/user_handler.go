package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"field-attendance-api-server/internal/api/middleware"
	"field-attendance-api-server/internal/auth"
	"field-attendance-api-server/internal/models"
	"field-attendance-api-server/internal/store"
	"field-attendance-api-server/internal/taskguard"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserHandler struct {
	Users  store.UserStore
	Tokens *auth.Manager
	Guard  *taskguard.Guard
	Log    *slog.Logger
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=admin employee"`
	// EmployeeRef is generated when empty.
	EmployeeRef string `json:"employeeRef"`
}

func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.Users.FindUserByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.Log.Error("login lookup failed", "email", req.Email, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend unavailable", "code": "backend_unavailable"})
		return
	}
	if err != nil || user.Status != "active" || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.Tokens.GenerateJWT(user.Email, user.Role, user.EmployeeRef)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Logout is refused, with the reason, while a field task is active. Tokens
// are stateless so an allowed logout only acknowledges.
func (h *UserHandler) Logout(c *gin.Context) {
	employeeRef := middleware.EmployeeRef(c)
	if err := h.Guard.CheckLogout(c.Request.Context(), employeeRef); err != nil {
		respondError(c, err)
		return
	}
	h.Log.Info("employee logged out", "employee", employeeRef)
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Logged out"})
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	employeeRef := strings.TrimSpace(req.EmployeeRef)
	if employeeRef == "" {
		employeeRef = fmt.Sprintf("EMP-%s", strings.ToUpper(uuid.New().String()[:8]))
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	user := models.User{
		Email:        strings.ToLower(req.Email),
		Name:         req.Name,
		PasswordHash: hash,
		Role:         req.Role,
		EmployeeRef:  employeeRef,
		Status:       "active",
	}
	if err := h.Users.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email or employee reference already exists", "code": "conflict"})
			return
		}
		h.Log.Error("create user failed", "email", user.Email, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend unavailable", "code": "backend_unavailable"})
		return
	}
	c.JSON(http.StatusCreated, user)
}
