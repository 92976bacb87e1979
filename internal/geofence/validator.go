package geofence

import (
	"context"
	"log/slog"

	"field-attendance-api-server/internal/apperr"
	"field-attendance-api-server/internal/metrics"
	"field-attendance-api-server/internal/models"
)

type Outcome string

const (
	OutcomeInside  Outcome = "inside"
	OutcomeOutside Outcome = "outside"
	// OutcomeUnconfigured means there were no active zones to test against.
	// It is neither a match nor a miss; callers pick the policy.
	OutcomeUnconfigured Outcome = "unconfigured"
)

type Result struct {
	Outcome  Outcome `json:"outcome"`
	Valid    bool    `json:"valid"`
	ZoneID   string  `json:"zoneId,omitempty"`
	ZoneName *string `json:"zoneName"`
}

// Validate tests p against zones in the order given and stops at the first
// containing zone. Overlapping zones therefore resolve by enumeration order,
// not by area or nesting.
func Validate(p models.LatLng, zones []models.Zone) Result {
	if len(zones) == 0 {
		return Result{Outcome: OutcomeUnconfigured}
	}
	for _, z := range zones {
		if Contains(z.Vertices, p) {
			name := z.Name
			return Result{Outcome: OutcomeInside, Valid: true, ZoneID: z.ID, ZoneName: &name}
		}
	}
	return Result{Outcome: OutcomeOutside}
}

// ZoneSource is the active-zone read path of the zone store.
type ZoneSource interface {
	ListActive(ctx context.Context) ([]models.Zone, error)
}

type Validator struct {
	zones   ZoneSource
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewValidator(zones ZoneSource, m *metrics.Metrics, log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	return &Validator{zones: zones, metrics: m, log: log}
}

// Validate checks p against the currently active zones.
func (v *Validator) Validate(ctx context.Context, p models.LatLng) (Result, error) {
	if !p.InRange() {
		return Result{}, apperr.New(apperr.KindValidation, "geofence.Validate", "coordinate out of range").WithLocation(p)
	}
	zones, err := v.zones.ListActive(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Validate(p, zones)
	v.metrics.ObserveGeofence(string(res.Outcome))
	v.log.Debug("geofence validated", "lat", p.Lat, "lng", p.Lng, "outcome", res.Outcome, "zones", len(zones))
	return res, nil
}
