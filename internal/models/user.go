package models

// User matches the document in the users collection. It only backs login;
// the attendance core identifies people by EmployeeRef.
type User struct {
	Email        string `bson:"_id" json:"email" gorm:"primaryKey;size:255"`
	Name         string `bson:"name" json:"name"`
	PasswordHash string `bson:"passwordHash" json:"-"`
	Role         string `bson:"role" json:"role" gorm:"size:32"`
	EmployeeRef  string `bson:"employeeRef" json:"employeeRef" gorm:"size:128;uniqueIndex"`
	Status       string `bson:"status" json:"status" gorm:"size:32"`
}

func (User) TableName() string {
	return "users"
}
