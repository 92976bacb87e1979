package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"field-attendance-api-server/internal/api/middleware"
	"field-attendance-api-server/internal/attendance"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

type AttendanceHandler struct {
	Attendance    *attendance.Service
	MaxPhotoBytes int64
}

// CheckInRequest is accepted as JSON or as multipart form fields next to an
// optional "photo" file.
type CheckInRequest struct {
	Lat *float64 `json:"lat" form:"lat" binding:"required"`
	Lng *float64 `json:"lng" form:"lng" binding:"required"`
	// Timestamp is when the device took the fix, RFC 3339.
	Timestamp string `json:"timestamp" form:"timestamp"`
}

type SetBreakRequest struct {
	OnBreak *bool `json:"onBreak" binding:"required"`
}

func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	pos := attendance.ReportedPosition{Lat: *req.Lat, Lng: *req.Lng}
	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			badRequest(c, fmt.Errorf("timestamp must be RFC 3339: %w", err))
			return
		}
		pos.Timestamp = ts
	}

	photo, err := h.readPhoto(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	rec, err := h.Attendance.CheckIn(c.Request.Context(), middleware.EmployeeRef(c), pos, photo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// readPhoto returns nil when the request carries no photo.
func (h *AttendanceHandler) readPhoto(c *gin.Context) (*attendance.Photo, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}
	file, err := c.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	limit := h.MaxPhotoBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	if file.Size > limit {
		return nil, fmt.Errorf("photo exceeds %d bytes", limit)
	}

	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("photo exceeds %d bytes", limit)
	}
	if mt := mimetype.Detect(data); !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("photo must be an image, got %s", mt.String())
	}
	return &attendance.Photo{Filename: file.Filename, Data: data}, nil
}

func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	rec, err := h.Attendance.CheckOutEmployee(c.Request.Context(), middleware.EmployeeRef(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"record":          rec,
		"durationSeconds": int64(rec.Duration().Seconds()),
	})
}

func (h *AttendanceHandler) GetOpenRecord(c *gin.Context) {
	rec, err := h.Attendance.GetOpenRecord(c.Request.Context(), middleware.EmployeeRef(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *AttendanceHandler) GetHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, fmt.Errorf("limit must be a number"))
			return
		}
		limit = n
	}
	records, err := h.Attendance.History(c.Request.Context(), middleware.EmployeeRef(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// SetBreak is the admin override between checked_in and on_break.
func (h *AttendanceHandler) SetBreak(c *gin.Context) {
	var req SetBreakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.Attendance.SetBreak(c.Request.Context(), c.Param("id"), *req.OnBreak)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
