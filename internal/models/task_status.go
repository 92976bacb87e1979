package models

import "time"

type TaskState string

const (
	TaskIdle       TaskState = "idle"
	TaskStarted    TaskState = "task_started"
	TaskInProgress TaskState = "task_in_progress"
	TaskCompleted  TaskState = "task_completed"
)

func (s TaskState) Valid() bool {
	switch s {
	case TaskIdle, TaskStarted, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// TaskStatus is the single per-employee row of the field task guard.
type TaskStatus struct {
	EmployeeRef   string     `bson:"_id" json:"employeeRef" gorm:"primaryKey;size:128"`
	Status        TaskState  `bson:"status" json:"status" gorm:"size:32;not null"`
	ActiveTaskRef *string    `bson:"activeTaskRef" json:"activeTaskRef"`
	StartedAt     *time.Time `bson:"startedAt" json:"startedAt"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (TaskStatus) TableName() string {
	return "task_statuses"
}
