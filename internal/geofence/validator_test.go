package geofence

import (
	"context"
	"errors"
	"testing"

	"field-attendance-api-server/internal/apperr"
	"field-attendance-api-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ring(pts ...float64) []models.LatLng {
	out := make([]models.LatLng, 0, len(pts)/2)
	for i := 0; i+1 < len(pts); i += 2 {
		out = append(out, models.LatLng{Lat: pts[i], Lng: pts[i+1]})
	}
	return out
}

var square = models.Zone{ID: "ZONE-SQ", Name: "Square", Vertices: ring(0, 0, 0, 10, 10, 10, 10, 0), Active: true}

func TestValidateSquare(t *testing.T) {
	res := Validate(models.LatLng{Lat: 5, Lng: 5}, []models.Zone{square})
	assert.True(t, res.Valid)
	assert.Equal(t, OutcomeInside, res.Outcome)
	require.NotNil(t, res.ZoneName)
	assert.Equal(t, "Square", *res.ZoneName)

	res = Validate(models.LatLng{Lat: 15, Lng: 15}, []models.Zone{square})
	assert.False(t, res.Valid)
	assert.Equal(t, OutcomeOutside, res.Outcome)
	assert.Nil(t, res.ZoneName)
}

func TestContains(t *testing.T) {
	// U shape: the notch between the arms is outside.
	concave := ring(0, 0, 0, 9, 9, 9, 9, 6, 3, 6, 3, 3, 9, 3, 9, 0)
	triangle := ring(0, 0, 10, 0, 0, 10)
	// About 11 m across.
	tiny := ring(0, 0, 0, 1e-4, 1e-4, 1e-4, 1e-4, 0)

	tests := []struct {
		name string
		ring []models.LatLng
		p    models.LatLng
		want bool
	}{
		{"square centre", square.Vertices, models.LatLng{Lat: 5, Lng: 5}, true},
		{"square outside", square.Vertices, models.LatLng{Lat: 15, Lng: 15}, false},
		{"square left of ring", square.Vertices, models.LatLng{Lat: 5, Lng: -1}, false},
		{"on edge is outside", square.Vertices, models.LatLng{Lat: 0, Lng: 5}, false},
		{"on closing edge is outside", square.Vertices, models.LatLng{Lat: 5, Lng: 0}, false},
		{"on vertex is outside", square.Vertices, models.LatLng{Lat: 10, Lng: 10}, false},
		{"just inside edge", square.Vertices, models.LatLng{Lat: 1e-9, Lng: 5}, true},
		{"concave arm", concave, models.LatLng{Lat: 6, Lng: 1.5}, true},
		{"concave notch", concave, models.LatLng{Lat: 6, Lng: 4.5}, false},
		{"concave base", concave, models.LatLng{Lat: 1.5, Lng: 4.5}, true},
		{"ray through vertex", concave, models.LatLng{Lat: 3, Lng: 1}, true},
		{"triangle inside", triangle, models.LatLng{Lat: 2, Lng: 2}, true},
		{"triangle beyond hypotenuse", triangle, models.LatLng{Lat: 6, Lng: 6}, false},
		{"triangle on hypotenuse", triangle, models.LatLng{Lat: 5, Lng: 5}, false},
		{"negative coordinates", ring(-10, -10, -10, -5, -5, -5, -5, -10), models.LatLng{Lat: -7, Lng: -7}, true},
		{"small zone just inside edge", tiny, models.LatLng{Lat: 1e-10, Lng: 5e-5}, true},
		{"small zone on edge", tiny, models.LatLng{Lat: 0, Lng: 5e-5}, false},
		{"small zone centre", tiny, models.LatLng{Lat: 5e-5, Lng: 5e-5}, true},
		{"large zone within tolerance of edge", square.Vertices, models.LatLng{Lat: 1e-13, Lng: 5}, false},
		{"degenerate ring", ring(0, 0, 1, 1), models.LatLng{Lat: 0.5, Lng: 0.5}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Contains(tc.ring, tc.p))
		})
	}
}

func TestValidateFirstMatchWins(t *testing.T) {
	outer := models.Zone{ID: "ZONE-OUT", Name: "Campus", Vertices: ring(0, 0, 0, 20, 20, 20, 20, 0)}
	inner := models.Zone{ID: "ZONE-IN", Name: "Lab", Vertices: ring(5, 5, 5, 8, 8, 8, 8, 5)}
	p := models.LatLng{Lat: 6, Lng: 6}

	res := Validate(p, []models.Zone{outer, inner})
	require.NotNil(t, res.ZoneName)
	assert.Equal(t, "Campus", *res.ZoneName)

	res = Validate(p, []models.Zone{inner, outer})
	require.NotNil(t, res.ZoneName)
	assert.Equal(t, "Lab", *res.ZoneName)
	assert.Equal(t, "ZONE-IN", res.ZoneID)
}

func TestValidateUnconfigured(t *testing.T) {
	res := Validate(models.LatLng{Lat: 1, Lng: 1}, nil)
	assert.Equal(t, OutcomeUnconfigured, res.Outcome)
	assert.False(t, res.Valid)
}

type staticZones struct {
	zones []models.Zone
	err   error
}

func (s staticZones) ListActive(context.Context) ([]models.Zone, error) { return s.zones, s.err }

func TestValidatorUsesActiveZones(t *testing.T) {
	v := NewValidator(staticZones{zones: []models.Zone{square}}, nil, nil)

	res, err := v.Validate(context.Background(), models.LatLng{Lat: 5, Lng: 5})
	require.NoError(t, err)
	assert.True(t, res.Valid)

	_, err = v.Validate(context.Background(), models.LatLng{Lat: 91, Lng: 0})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	boom := errors.New("boom")
	v = NewValidator(staticZones{err: boom}, nil, nil)
	_, err = v.Validate(context.Background(), models.LatLng{Lat: 5, Lng: 5})
	assert.ErrorIs(t, err, boom)
}
