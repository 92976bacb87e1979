// Package zone manages the catalog of geofence polygons and serves the active
// set to the validator.
package zone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"field-attendance-api-server/internal/apperr"
	"field-attendance-api-server/internal/metrics"
	"field-attendance-api-server/internal/models"
	"field-attendance-api-server/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Config struct {
	// CacheMaxAge bounds how stale ListActive may be. Zero refetches every call.
	CacheMaxAge time.Duration
}

type Service struct {
	store    store.ZoneStore
	cache    *ActiveCache
	validate *validator.Validate
	now      func() time.Time
	log      *slog.Logger
}

type input struct {
	Name     string          `validate:"required"`
	Vertices []models.LatLng `validate:"min=3,dive"`
}

// NewService wires the zone store. clock may be nil.
func NewService(s store.ZoneStore, cfg Config, clock func() time.Time, m *metrics.Metrics, log *slog.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	svc := &Service{
		store:    s,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      clock,
		log:      log,
	}
	svc.cache = NewActiveCache(func(ctx context.Context) ([]models.Zone, error) {
		return s.ListZones(ctx, true)
	}, cfg.CacheMaxAge, clock, m)
	return svc
}

func (s *Service) Create(ctx context.Context, name string, vertices []models.LatLng) (models.Zone, error) {
	const op = "zone.Create"
	name = strings.TrimSpace(name)
	if err := s.check(op, name, vertices); err != nil {
		return models.Zone{}, err
	}
	now := s.now().UTC()
	z := models.Zone{
		ID:        fmt.Sprintf("ZONE-%s", strings.ToUpper(uuid.New().String()[:8])),
		Name:      name,
		Vertices:  append([]models.LatLng(nil), vertices...),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateZone(ctx, z); err != nil {
		return models.Zone{}, backend(op, err)
	}
	s.cache.Invalidate()
	s.log.Info("zone created", "zone", z.ID, "name", z.Name, "vertices", len(z.Vertices))
	return z, nil
}

func (s *Service) Update(ctx context.Context, id, name string, vertices []models.LatLng) (models.Zone, error) {
	const op = "zone.Update"
	name = strings.TrimSpace(name)
	if err := s.check(op, name, vertices); err != nil {
		return models.Zone{}, err
	}
	z := models.Zone{
		ID:        id,
		Name:      name,
		Vertices:  append([]models.LatLng(nil), vertices...),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.UpdateZone(ctx, z); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Zone{}, apperr.New(apperr.KindNotFound, op, "zone %s not found", id)
		}
		return models.Zone{}, backend(op, err)
	}
	s.cache.Invalidate()
	s.log.Info("zone updated", "zone", id, "name", name, "vertices", len(vertices))
	return s.Get(ctx, id)
}

// Delete removes the zone. Deleting an unknown or already deleted zone is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	removed, err := s.store.DeleteZone(ctx, id)
	if err != nil {
		return backend("zone.Delete", err)
	}
	s.cache.Invalidate()
	if removed {
		s.log.Info("zone deleted", "zone", id)
	}
	return nil
}

// SetActive is idempotent: setting the current state again succeeds unchanged.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (models.Zone, error) {
	const op = "zone.SetActive"
	z, err := s.store.SetZoneActive(ctx, id, active, s.now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Zone{}, apperr.New(apperr.KindNotFound, op, "zone %s not found", id)
		}
		return models.Zone{}, backend(op, err)
	}
	s.cache.Invalidate()
	s.log.Info("zone activation set", "zone", id, "active", active)
	return z, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Zone, error) {
	z, err := s.store.GetZone(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Zone{}, apperr.New(apperr.KindNotFound, "zone.Get", "zone %s not found", id)
		}
		return models.Zone{}, backend("zone.Get", err)
	}
	return z, nil
}

func (s *Service) List(ctx context.Context) ([]models.Zone, error) {
	zones, err := s.store.ListZones(ctx, false)
	if err != nil {
		return nil, backend("zone.List", err)
	}
	return zones, nil
}

// ListActive serves the active zones through the cache, ordered by creation.
func (s *Service) ListActive(ctx context.Context) ([]models.Zone, error) {
	zones, err := s.cache.Get(ctx)
	if err != nil {
		return nil, backend("zone.ListActive", err)
	}
	return zones, nil
}

func (s *Service) check(op, name string, vertices []models.LatLng) error {
	err := s.validate.Struct(input{Name: name, Vertices: vertices})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.KindValidation, op, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apperr.New(apperr.KindValidation, op, "%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch {
	case fe.Field() == "Name":
		return "name must not be empty"
	case fe.Field() == "Vertices" && fe.Tag() == "min":
		return "a zone needs at least 3 vertices"
	case fe.Tag() == "latitude":
		return fmt.Sprintf("%s must be a latitude in [-90, 90]", fe.Namespace())
	case fe.Tag() == "longitude":
		return fmt.Sprintf("%s must be a longitude in [-180, 180]", fe.Namespace())
	}
	return fe.Error()
}

func backend(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Wrap(apperr.KindBackendUnavailable, op, err)
}
