// Package geofence decides whether a coordinate lies inside one of the
// configured work zones. It is the only place the point-in-polygon test lives.
package geofence

import (
	"math"

	"field-attendance-api-server/internal/models"
)

// edgeTolerance is the perpendicular distance, in degrees, within which a point
// counts as lying on a polygon edge.
const edgeTolerance = 1e-12

// Contains reports whether p is strictly inside the ring. The ring closes from
// the last vertex back to the first. Points on an edge or vertex are outside.
// Rings with fewer than three vertices contain nothing.
func Contains(ring []models.LatLng, p models.LatLng) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	if onBoundary(ring, p) {
		return false
	}

	// Even-odd rule: cast a ray from p towards increasing longitude and count
	// the edges it crosses.
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Lat > p.Lat) == (b.Lat > p.Lat) {
			continue
		}
		crossLng := a.Lng + (p.Lat-a.Lat)*(b.Lng-a.Lng)/(b.Lat-a.Lat)
		if p.Lng < crossLng {
			inside = !inside
		}
	}
	return inside
}

func onBoundary(ring []models.LatLng, p models.LatLng) bool {
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if onSegment(ring[j], ring[i], p) {
			return true
		}
	}
	return false
}

func onSegment(a, b, p models.LatLng) bool {
	length := math.Hypot(b.Lng-a.Lng, b.Lat-a.Lat)
	if length == 0 {
		return math.Hypot(p.Lng-a.Lng, p.Lat-a.Lat) <= edgeTolerance
	}
	// |cross| is the distance from p to the line through a and b, scaled by
	// the edge length.
	cross := (b.Lng-a.Lng)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lng-a.Lng)
	if math.Abs(cross)/length > edgeTolerance {
		return false
	}
	return p.Lng >= math.Min(a.Lng, b.Lng)-edgeTolerance &&
		p.Lng <= math.Max(a.Lng, b.Lng)+edgeTolerance &&
		p.Lat >= math.Min(a.Lat, b.Lat)-edgeTolerance &&
		p.Lat <= math.Max(a.Lat, b.Lat)+edgeTolerance
}
