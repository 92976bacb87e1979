package handlers

import (
	"net/http"

	"field-attendance-api-server/internal/geofence"
	"field-attendance-api-server/internal/models"
	"field-attendance-api-server/internal/zone"

	"github.com/gin-gonic/gin"
)

type ZoneHandler struct {
	Zones     *zone.Service
	Validator *geofence.Validator
}

type ZoneRequest struct {
	Name     string          `json:"name" binding:"required"`
	Vertices []models.LatLng `json:"vertices" binding:"required"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type ValidateLocationRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

func (h *ZoneHandler) CreateZone(c *gin.Context) {
	var req ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	z, err := h.Zones.Create(c.Request.Context(), req.Name, req.Vertices)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, z)
}

func (h *ZoneHandler) GetAllZones(c *gin.Context) {
	zones, err := h.Zones.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, zones)
}

func (h *ZoneHandler) GetActiveZones(c *gin.Context) {
	zones, err := h.Zones.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, zones)
}

func (h *ZoneHandler) GetZoneByID(c *gin.Context) {
	z, err := h.Zones.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, z)
}

func (h *ZoneHandler) UpdateZone(c *gin.Context) {
	var req ZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	z, err := h.Zones.Update(c.Request.Context(), c.Param("id"), req.Name, req.Vertices)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, z)
}

// DeleteZone answers 204 whether or not the zone existed.
func (h *ZoneHandler) DeleteZone(c *gin.Context) {
	if err := h.Zones.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ZoneHandler) SetZoneActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	z, err := h.Zones.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, z)
}

// ValidateLocation is a dry run of the check-in geofence gate.
func (h *ZoneHandler) ValidateLocation(c *gin.Context) {
	var req ValidateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.Validator.Validate(c.Request.Context(), models.LatLng{Lat: *req.Lat, Lng: *req.Lng})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
