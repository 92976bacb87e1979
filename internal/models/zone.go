package models

import "time"

// Zone is a named geofence polygon. Vertices are kept in insertion order and
// the ring closes implicitly from the last vertex back to the first.
type Zone struct {
	ID        string    `bson:"_id" json:"id" gorm:"primaryKey;size:64"`
	Name      string    `bson:"name" json:"name" gorm:"not null"`
	Vertices  []LatLng  `bson:"vertices" json:"vertices" gorm:"serializer:json;not null"`
	Active    bool      `bson:"active" json:"active" gorm:"index"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (Zone) TableName() string {
	return "zones"
}
