// Package store holds the persistent-store boundary of the attendance core and
// its backends: an in-memory store for tests and single-node runs, MongoDB and
// Postgres.
package store

import (
	"context"
	"errors"
	"time"

	"field-attendance-api-server/internal/models"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrOpenRecordExists is returned by InsertOpenRecord when the employee
	// already has a record without a check-out time.
	ErrOpenRecordExists = errors.New("store: open attendance record exists")
	// ErrConflict means a conditional write did not match the expected state.
	ErrConflict = errors.New("store: conditional write conflict")
)

type ZoneStore interface {
	CreateZone(ctx context.Context, zone models.Zone) error
	// UpdateZone replaces name, vertices and updatedAt. ErrNotFound for unknown ids.
	UpdateZone(ctx context.Context, zone models.Zone) error
	// DeleteZone reports whether a zone was removed.
	DeleteZone(ctx context.Context, id string) (bool, error)
	SetZoneActive(ctx context.Context, id string, active bool, at time.Time) (models.Zone, error)
	GetZone(ctx context.Context, id string) (models.Zone, error)
	// ListZones is ordered by createdAt, then id.
	ListZones(ctx context.Context, activeOnly bool) ([]models.Zone, error)
}

type AttendanceStore interface {
	// InsertOpenRecord is the conditional insert backing the one-open-record
	// invariant; it must be atomic against concurrent callers.
	InsertOpenRecord(ctx context.Context, rec models.AttendanceRecord) error
	FindOpenRecord(ctx context.Context, employeeRef string) (models.AttendanceRecord, error)
	GetRecord(ctx context.Context, id string) (models.AttendanceRecord, error)
	// CloseRecord sets the check-out time on a checked_in open record.
	// ErrConflict when the record is not in that state.
	CloseRecord(ctx context.Context, id string, at time.Time) (models.AttendanceRecord, error)
	// SetRecordStatus moves an open record from one status to another.
	SetRecordStatus(ctx context.Context, id string, from, to models.AttendanceStatus) (models.AttendanceRecord, error)
	AttachPhoto(ctx context.Context, id, photoRef string) error
	// ListRecords returns newest check-ins first.
	ListRecords(ctx context.Context, employeeRef string, limit int) ([]models.AttendanceRecord, error)
}

type TaskStatusStore interface {
	GetTaskStatus(ctx context.Context, employeeRef string) (models.TaskStatus, error)
	// SwapTaskStatus upserts next only if the stored status equals expected.
	// A missing row counts as idle.
	SwapTaskStatus(ctx context.Context, expected models.TaskState, next models.TaskStatus) error
}

type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	// CreateUser returns ErrConflict when the email is taken.
	CreateUser(ctx context.Context, user models.User) error
}

type Store interface {
	ZoneStore
	AttendanceStore
	TaskStatusStore
	UserStore
	Close(ctx context.Context) error
}
