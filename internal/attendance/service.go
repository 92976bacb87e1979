// Package attendance drives the per-employee check-in/check-out lifecycle.
// Check-in is gated by the geofence; the one-open-record invariant is left to
// the store's conditional insert.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"field-attendance-api-server/internal/apperr"
	"field-attendance-api-server/internal/geofence"
	"field-attendance-api-server/internal/metrics"
	"field-attendance-api-server/internal/models"
	"field-attendance-api-server/internal/store"

	"github.com/google/uuid"
)

// UnconfiguredPolicy decides what a check-in does when no zone is active.
type UnconfiguredPolicy string

const (
	RejectWhenUnconfigured UnconfiguredPolicy = "reject"
	AllowWhenUnconfigured  UnconfiguredPolicy = "allow"
)

type Config struct {
	LocationTimeout    time.Duration
	MaxFixAge          time.Duration
	PhotoUploadTimeout time.Duration
	UnconfiguredPolicy UnconfiguredPolicy
}

// GeofenceValidator is the containment check used to gate check-in.
type GeofenceValidator interface {
	Validate(ctx context.Context, p models.LatLng) (geofence.Result, error)
}

type Notifier interface {
	Publish(employeeRef, event string, payload any)
}

type Service struct {
	store    store.AttendanceStore
	geofence GeofenceValidator
	photos   PhotoStore
	notifier Notifier
	metrics  *metrics.Metrics
	log      *slog.Logger
	cfg      Config
	now      func() time.Time

	wg sync.WaitGroup
}

type Option func(*Service)

func WithPhotoStore(p PhotoStore) Option { return func(s *Service) { s.photos = p } }

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(st store.AttendanceStore, gv GeofenceValidator, cfg Config, opts ...Option) *Service {
	if cfg.UnconfiguredPolicy == "" {
		cfg.UnconfiguredPolicy = RejectWhenUnconfigured
	}
	s := &Service{
		store:    st,
		geofence: gv,
		cfg:      cfg,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckIn opens a session for employeeRef at the position resolved by loc.
// Nothing is written unless every check passed; the photo, if any, is
// uploaded afterwards on a best-effort basis.
func (s *Service) CheckIn(ctx context.Context, employeeRef string, loc LocationProvider, photo *Photo) (models.AttendanceRecord, error) {
	const op = "attendance.CheckIn"
	employeeRef = strings.TrimSpace(employeeRef)
	if employeeRef == "" {
		return s.rejectCheckIn(apperr.New(apperr.KindValidation, op, "employee reference is required"))
	}

	if open, err := s.store.FindOpenRecord(ctx, employeeRef); err == nil {
		return s.rejectCheckIn(apperr.New(apperr.KindAlreadyCheckedIn, op, "already checked in since %s", open.CheckInTime.Format(time.RFC3339)).
			WithEmployee(employeeRef).
			WithTime(s.now().UTC()))
	} else if abandoned(ctx, err) {
		return s.rejectCheckIn(apperr.Wrap(apperr.KindLocationUnavailable, op, ctx.Err()).WithEmployee(employeeRef))
	} else if !errors.Is(err, store.ErrNotFound) {
		return s.rejectCheckIn(apperr.Wrap(apperr.KindBackendUnavailable, op, err).WithEmployee(employeeRef))
	}

	pos, err := acquire(ctx, loc, s.cfg.LocationTimeout)
	if err != nil {
		return s.rejectCheckIn(apperr.Wrap(apperr.KindLocationUnavailable, op, err).
			WithEmployee(employeeRef).
			WithTime(s.now().UTC()))
	}
	now := s.now().UTC()
	point := pos.Point()
	if !point.InRange() {
		return s.rejectCheckIn(apperr.New(apperr.KindValidation, op, "coordinate out of range").
			WithEmployee(employeeRef).WithTime(now).WithLocation(point))
	}
	if s.cfg.MaxFixAge > 0 && !pos.Timestamp.IsZero() && now.Sub(pos.Timestamp) > s.cfg.MaxFixAge {
		return s.rejectCheckIn(apperr.New(apperr.KindLocationUnavailable, op, "location fix is older than %s", s.cfg.MaxFixAge).
			WithEmployee(employeeRef).WithTime(now).WithLocation(point))
	}

	res, err := s.geofence.Validate(ctx, point)
	if err != nil {
		if abandoned(ctx, err) {
			return s.rejectCheckIn(apperr.Wrap(apperr.KindLocationUnavailable, op, ctx.Err()).
				WithEmployee(employeeRef).WithTime(now).WithLocation(point))
		}
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			ae = apperr.Wrap(apperr.KindBackendUnavailable, op, err)
		}
		return s.rejectCheckIn(ae.WithEmployee(employeeRef).WithTime(now).WithLocation(point))
	}
	switch res.Outcome {
	case geofence.OutcomeOutside:
		return s.rejectCheckIn(apperr.New(apperr.KindOutsideZone, op, "location is outside every active zone").
			WithEmployee(employeeRef).WithTime(now).WithLocation(point))
	case geofence.OutcomeUnconfigured:
		if s.cfg.UnconfiguredPolicy != AllowWhenUnconfigured {
			return s.rejectCheckIn(apperr.New(apperr.KindNoZonesConfigured, op, "no active zones are configured").
				WithEmployee(employeeRef).WithTime(now).WithLocation(point))
		}
		s.log.Warn("check-in accepted without zones", "employee", employeeRef, "lat", point.Lat, "lng", point.Lng)
	}

	// An abandoned flow must not leave a record behind.
	if err := ctx.Err(); err != nil {
		return s.rejectCheckIn(apperr.Wrap(apperr.KindLocationUnavailable, op, err).
			WithEmployee(employeeRef).WithTime(now).WithLocation(point))
	}

	rec := models.AttendanceRecord{
		ID:          fmt.Sprintf("ATT-%s", strings.ToUpper(uuid.New().String())),
		EmployeeRef: employeeRef,
		CheckInTime: now,
		Status:      models.StatusCheckedIn,
		Location:    models.Location{Lat: point.Lat, Lng: point.Lng, ZoneLabel: res.ZoneName},
		Open:        true,
	}
	zoneName := ""
	if res.ZoneName != nil {
		zoneName = *res.ZoneName
	}
	if err := s.store.InsertOpenRecord(ctx, rec); err != nil {
		if errors.Is(err, store.ErrOpenRecordExists) {
			return s.rejectCheckIn(apperr.New(apperr.KindAlreadyCheckedIn, op, "already checked in").
				WithEmployee(employeeRef).WithTime(now).WithLocation(point).WithZone(zoneName))
		}
		return s.rejectCheckIn(apperr.Wrap(apperr.KindBackendUnavailable, op, err).
			WithEmployee(employeeRef).WithTime(now).WithLocation(point).WithZone(zoneName))
	}

	s.attachPhoto(ctx, rec, photo)
	s.metrics.ObserveCheckIn("ok")
	s.publish(employeeRef, "attendance.checked_in", rec)
	s.log.Info("checked in", "employee", employeeRef, "record", rec.ID, "zone", zoneName, "lat", point.Lat, "lng", point.Lng)
	return rec, nil
}

// CheckOut closes rec. The geofence is not consulted again.
func (s *Service) CheckOut(ctx context.Context, rec models.AttendanceRecord) (models.AttendanceRecord, error) {
	const op = "attendance.CheckOut"
	now := s.now().UTC()
	if rec.Status != models.StatusCheckedIn || rec.CheckOutTime != nil {
		return models.AttendanceRecord{}, s.fail(apperr.New(apperr.KindNoOpenRecord, op, "record %s is %s, not checked in", rec.ID, rec.Status).
			WithEmployee(rec.EmployeeRef).WithTime(now))
	}
	at := now
	if at.Before(rec.CheckInTime) {
		at = rec.CheckInTime
	}

	closed, err := s.store.CloseRecord(ctx, rec.ID, at)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return models.AttendanceRecord{}, s.fail(apperr.New(apperr.KindNoOpenRecord, op, "record %s is no longer checked in", rec.ID).
				WithEmployee(rec.EmployeeRef).WithTime(now))
		case errors.Is(err, store.ErrNotFound):
			return models.AttendanceRecord{}, s.fail(apperr.New(apperr.KindNotFound, op, "record %s not found", rec.ID).
				WithEmployee(rec.EmployeeRef).WithTime(now))
		}
		return models.AttendanceRecord{}, s.fail(apperr.Wrap(apperr.KindBackendUnavailable, op, err).
			WithEmployee(rec.EmployeeRef).WithTime(now))
	}

	s.metrics.ObserveCheckOut()
	s.publish(closed.EmployeeRef, "attendance.checked_out", closed)
	s.log.Info("checked out", "employee", closed.EmployeeRef, "record", closed.ID, "duration", closed.Duration().String())
	return closed, nil
}

// CheckOutEmployee closes the employee's open record.
func (s *Service) CheckOutEmployee(ctx context.Context, employeeRef string) (models.AttendanceRecord, error) {
	rec, err := s.GetOpenRecord(ctx, employeeRef)
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	return s.CheckOut(ctx, rec)
}

func (s *Service) GetOpenRecord(ctx context.Context, employeeRef string) (models.AttendanceRecord, error) {
	const op = "attendance.GetOpenRecord"
	rec, err := s.store.FindOpenRecord(ctx, employeeRef)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.AttendanceRecord{}, apperr.New(apperr.KindNoOpenRecord, op, "no open attendance record").
				WithEmployee(employeeRef)
		}
		return models.AttendanceRecord{}, s.fail(apperr.Wrap(apperr.KindBackendUnavailable, op, err).WithEmployee(employeeRef))
	}
	return rec, nil
}

// History lists the employee's records, newest first.
func (s *Service) History(ctx context.Context, employeeRef string, limit int) ([]models.AttendanceRecord, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 200:
		limit = 200
	}
	records, err := s.store.ListRecords(ctx, employeeRef, limit)
	if err != nil {
		return nil, s.fail(apperr.Wrap(apperr.KindBackendUnavailable, "attendance.History", err).WithEmployee(employeeRef))
	}
	return records, nil
}

// SetBreak is the administrative override between checked_in and on_break.
func (s *Service) SetBreak(ctx context.Context, recordID string, onBreak bool) (models.AttendanceRecord, error) {
	const op = "attendance.SetBreak"
	from, to := models.StatusCheckedIn, models.StatusOnBreak
	if !onBreak {
		from, to = to, from
	}
	rec, err := s.store.SetRecordStatus(ctx, recordID, from, to)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return models.AttendanceRecord{}, apperr.New(apperr.KindNotFound, op, "record %s not found", recordID)
		case errors.Is(err, store.ErrConflict):
			return models.AttendanceRecord{}, s.fail(apperr.New(apperr.KindInvalidTransition, op, "record %s is not %s", recordID, from).WithTime(s.now().UTC()))
		}
		return models.AttendanceRecord{}, s.fail(apperr.Wrap(apperr.KindBackendUnavailable, op, err))
	}
	s.publish(rec.EmployeeRef, "attendance.status", rec)
	s.log.Info("attendance status overridden", "record", rec.ID, "employee", rec.EmployeeRef, "status", rec.Status)
	return rec, nil
}

// Wait blocks until in-flight photo uploads have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) publish(employeeRef, event string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(employeeRef, event, payload)
}

func (s *Service) rejectCheckIn(err *apperr.Error) (models.AttendanceRecord, error) {
	s.metrics.ObserveCheckIn(string(err.Kind))
	return models.AttendanceRecord{}, s.fail(err)
}

// abandoned reports whether err came from the caller giving up rather than
// from the backend.
func abandoned(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// fail logs err with its audit context and returns it.
func (s *Service) fail(err *apperr.Error) error {
	level := slog.LevelInfo
	if err.Kind == apperr.KindBackendUnavailable {
		level = slog.LevelError
	}
	s.log.Log(context.Background(), level, err.Error(), err.LogAttrs()...)
	return err
}
