// internal/models/common.go
package models

import "math"

// LatLng is a coordinate in signed decimal degrees.
type LatLng struct {
	Lat float64 `bson:"lat" json:"lat" validate:"latitude"`
	Lng float64 `bson:"lng" json:"lng" validate:"longitude"`
}

// InRange reports whether the coordinate is finite and within the WGS84 bounds.
func (p LatLng) InRange() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Location is where an attendance transition happened. ZoneLabel is nil when
// the check-in was accepted without a containing zone.
type Location struct {
	Lat       float64 `bson:"lat" json:"lat"`
	Lng       float64 `bson:"lng" json:"lng"`
	ZoneLabel *string `bson:"zoneLabel" json:"zoneLabel"`
}

func (l Location) Point() LatLng {
	return LatLng{Lat: l.Lat, Lng: l.Lng}
}
