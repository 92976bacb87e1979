package handlers

import (
	"net/http"

	"field-attendance-api-server/internal/api/middleware"
	"field-attendance-api-server/internal/models"
	"field-attendance-api-server/internal/taskguard"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	Guard *taskguard.Guard
}

type UpdateTaskStatusRequest struct {
	Status  models.TaskState `json:"status" binding:"required"`
	TaskRef *string          `json:"taskRef"`
}

func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	employeeRef := middleware.EmployeeRef(c)
	updated, err := h.Guard.UpdateStatus(c.Request.Context(), employeeRef, req.Status, req.TaskRef)
	if err != nil {
		respondError(c, err)
		return
	}
	ts, err := h.Guard.Get(c.Request.Context(), employeeRef)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated, "task": ts})
}

func (h *TaskHandler) GetStatus(c *gin.Context) {
	employeeRef := middleware.EmployeeRef(c)
	ts, err := h.Guard.Get(c.Request.Context(), employeeRef)
	if err != nil {
		respondError(c, err)
		return
	}
	canLogout, err := h.Guard.CanLogout(c.Request.Context(), employeeRef)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": ts, "canLogout": canLogout})
}
