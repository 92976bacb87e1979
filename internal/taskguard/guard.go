// Package taskguard tracks each employee's field task and decides whether
// they may log out.
package taskguard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"field-attendance-api-server/internal/apperr"
	"field-attendance-api-server/internal/metrics"
	"field-attendance-api-server/internal/models"
	"field-attendance-api-server/internal/store"
)

// allowed lists the legal next states. Same-state refreshes are always legal.
// Starting from task_completed acknowledges the finished task and begins a new
// one.
var allowed = map[models.TaskState][]models.TaskState{
	models.TaskIdle:       {models.TaskStarted},
	models.TaskStarted:    {models.TaskInProgress, models.TaskCompleted},
	models.TaskInProgress: {models.TaskCompleted},
	models.TaskCompleted:  {models.TaskIdle, models.TaskStarted},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to models.TaskState) bool {
	if from == to {
		return true
	}
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Notifier interface {
	Publish(employeeRef, event string, payload any)
}

type Guard struct {
	store    store.TaskStatusStore
	notifier Notifier
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

func NewGuard(st store.TaskStatusStore, n Notifier, m *metrics.Metrics, log *slog.Logger, clock func() time.Time) *Guard {
	if log == nil {
		log = slog.Default()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Guard{store: st, notifier: n, metrics: m, log: log, now: clock}
}

// Get returns the employee's task row. A missing row is reported as idle.
func (g *Guard) Get(ctx context.Context, employeeRef string) (models.TaskStatus, error) {
	ts, err := g.store.GetTaskStatus(ctx, employeeRef)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.TaskStatus{EmployeeRef: employeeRef, Status: models.TaskIdle}, nil
		}
		return models.TaskStatus{}, apperr.Wrap(apperr.KindBackendUnavailable, "taskguard.Get", err).WithEmployee(employeeRef)
	}
	return ts, nil
}

// UpdateStatus moves the employee to status. The write is conditional on the
// state read just before it; losing that race returns false and ErrConflict.
func (g *Guard) UpdateStatus(ctx context.Context, employeeRef string, status models.TaskState, taskRef *string) (bool, error) {
	const op = "taskguard.UpdateStatus"
	employeeRef = strings.TrimSpace(employeeRef)
	if employeeRef == "" {
		return false, apperr.New(apperr.KindValidation, op, "employee reference is required")
	}
	if !status.Valid() {
		return false, apperr.New(apperr.KindValidation, op, "unknown task status %q", status).WithEmployee(employeeRef)
	}

	current, err := g.Get(ctx, employeeRef)
	if err != nil {
		return false, err
	}
	now := g.now().UTC()
	if !CanTransition(current.Status, status) {
		g.log.Info("task transition refused", "employee", employeeRef, "from", current.Status, "to", status)
		return false, apperr.New(apperr.KindInvalidTransition, op, "cannot move from %s to %s", current.Status, status).
			WithEmployee(employeeRef).WithTime(now)
	}

	next := models.TaskStatus{
		EmployeeRef:   employeeRef,
		Status:        status,
		ActiveTaskRef: current.ActiveTaskRef,
		StartedAt:     current.StartedAt,
		UpdatedAt:     now,
	}
	switch {
	case status == models.TaskStarted && current.Status != models.TaskStarted:
		next.ActiveTaskRef = nil
		next.StartedAt = &now
	case status == models.TaskIdle:
		next.ActiveTaskRef = nil
		next.StartedAt = nil
	}
	if taskRef != nil {
		ref := strings.TrimSpace(*taskRef)
		next.ActiveTaskRef = &ref
	}

	if err := g.store.SwapTaskStatus(ctx, current.Status, next); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return false, apperr.New(apperr.KindConflict, op, "task status changed concurrently").
				WithEmployee(employeeRef).WithTime(now)
		}
		return false, apperr.Wrap(apperr.KindBackendUnavailable, op, err).WithEmployee(employeeRef).WithTime(now)
	}

	g.metrics.ObserveTaskTransition(string(status))
	if g.notifier != nil {
		g.notifier.Publish(employeeRef, "task.status", next)
	}
	g.log.Info("task status updated", "employee", employeeRef, "from", current.Status, "to", status)
	return true, nil
}

// IsTaskActive is true while a task is started or in progress.
func (g *Guard) IsTaskActive(ctx context.Context, employeeRef string) (bool, error) {
	ts, err := g.Get(ctx, employeeRef)
	if err != nil {
		return false, err
	}
	return ts.Status == models.TaskStarted || ts.Status == models.TaskInProgress, nil
}

func (g *Guard) CanLogout(ctx context.Context, employeeRef string) (bool, error) {
	ts, err := g.Get(ctx, employeeRef)
	if err != nil {
		return false, err
	}
	return ts.Status == models.TaskIdle || ts.Status == models.TaskCompleted, nil
}

// CheckLogout returns ErrLogoutBlocked, with a message naming the task, when
// the employee may not log out.
func (g *Guard) CheckLogout(ctx context.Context, employeeRef string) error {
	ts, err := g.Get(ctx, employeeRef)
	if err != nil {
		return err
	}
	if ts.Status == models.TaskIdle || ts.Status == models.TaskCompleted {
		return nil
	}

	task := "a field task"
	if ts.ActiveTaskRef != nil && *ts.ActiveTaskRef != "" {
		task = "task " + *ts.ActiveTaskRef
	}
	msg := task + " is " + strings.ReplaceAll(strings.TrimPrefix(string(ts.Status), "task_"), "_", " ") +
		"; complete it before logging out"
	g.metrics.ObserveLogoutBlocked()
	g.log.Info("logout blocked", "employee", employeeRef, "status", ts.Status)
	return apperr.New(apperr.KindLogoutBlocked, "taskguard.CheckLogout", "%s", msg).
		WithEmployee(employeeRef).WithTime(g.now().UTC())
}
