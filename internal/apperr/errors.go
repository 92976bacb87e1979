// Package apperr is the error taxonomy shared by the attendance core and the
// HTTP layer. Every error carries enough context for an audit trail.
package apperr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"field-attendance-api-server/internal/models"
)

type Kind string

const (
	KindValidation          Kind = "validation"
	KindOutsideZone         Kind = "outside_zone"
	KindNoZonesConfigured   Kind = "no_zones_configured"
	KindLocationUnavailable Kind = "location_unavailable"
	KindAlreadyCheckedIn    Kind = "already_checked_in"
	KindNoOpenRecord        Kind = "no_open_record"
	KindBackendUnavailable  Kind = "backend_unavailable"
	KindNotFound            Kind = "not_found"
	KindInvalidTransition   Kind = "invalid_transition"
	KindConflict            Kind = "conflict"
	KindLogoutBlocked       Kind = "logout_blocked"
)

// Sentinels for errors.Is. Only the Kind is compared.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrOutsideZone         = &Error{Kind: KindOutsideZone}
	ErrNoZonesConfigured   = &Error{Kind: KindNoZonesConfigured}
	ErrLocationUnavailable = &Error{Kind: KindLocationUnavailable}
	ErrAlreadyCheckedIn    = &Error{Kind: KindAlreadyCheckedIn}
	ErrNoOpenRecord        = &Error{Kind: KindNoOpenRecord}
	ErrBackendUnavailable  = &Error{Kind: KindBackendUnavailable}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrLogoutBlocked       = &Error{Kind: KindLogoutBlocked}
)

type Error struct {
	Kind        Kind
	Op          string
	EmployeeRef string
	At          time.Time
	Location    *models.LatLng
	Zone        string
	Message     string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(strings.ReplaceAll(string(e.Kind), "_", " "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// LogAttrs flattens the audit context for slog.
func (e *Error) LogAttrs() []any {
	attrs := []any{"kind", string(e.Kind), "op", e.Op}
	if e.EmployeeRef != "" {
		attrs = append(attrs, "employee", e.EmployeeRef)
	}
	if !e.At.IsZero() {
		attrs = append(attrs, "at", e.At)
	}
	if e.Location != nil {
		attrs = append(attrs, "lat", e.Location.Lat, "lng", e.Location.Lng)
	}
	if e.Zone != "" {
		attrs = append(attrs, "zone", e.Zone)
	}
	if e.Err != nil {
		attrs = append(attrs, "cause", e.Err.Error())
	}
	return attrs
}

// New builds an error of the given kind stamped with the current time.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, At: time.Now().UTC(), Message: fmt.Sprintf(format, args...)}
}

// Wrap keeps err as the cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, At: time.Now().UTC(), Err: err}
}

func (e *Error) WithEmployee(ref string) *Error {
	e.EmployeeRef = ref
	return e
}

func (e *Error) WithLocation(p models.LatLng) *Error {
	e.Location = &p
	return e
}

func (e *Error) WithZone(name string) *Error {
	e.Zone = name
	return e
}

func (e *Error) WithTime(t time.Time) *Error {
	e.At = t
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
