package models

import "time"

type AttendanceStatus string

const (
	StatusCheckedIn  AttendanceStatus = "checked_in"
	StatusCheckedOut AttendanceStatus = "checked_out"
	StatusOnBreak    AttendanceStatus = "on_break"
)

// AttendanceRecord is one check-in/check-out session of an employee.
// Open mirrors CheckOutTime == nil; the stores put their uniqueness
// constraint on it so an employee never has two open sessions.
type AttendanceRecord struct {
	ID           string           `bson:"_id" json:"id" gorm:"primaryKey;size:64"`
	EmployeeRef  string           `bson:"employeeRef" json:"employeeRef" gorm:"size:128;not null;index"`
	CheckInTime  time.Time        `bson:"checkInTime" json:"checkInTime" gorm:"not null"`
	CheckOutTime *time.Time       `bson:"checkOutTime" json:"checkOutTime"`
	Status       AttendanceStatus `bson:"status" json:"status" gorm:"size:32;not null"`
	Location     Location         `bson:"location" json:"location" gorm:"embedded;embeddedPrefix:location_"`
	PhotoRef     string           `bson:"photoRef,omitempty" json:"photoRef,omitempty"`
	Open         bool             `bson:"open" json:"-" gorm:"-"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// Duration is the worked time of a closed record, zero while it is open.
func (r AttendanceRecord) Duration() time.Duration {
	if r.CheckOutTime == nil {
		return 0
	}
	return r.CheckOutTime.Sub(r.CheckInTime)
}
