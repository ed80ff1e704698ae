package model

import "github.com/google/uuid"

// User is the subset of the identity service's users table the core reads.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName string    `gorm:"size:256"`
	Phone    string    `gorm:"size:32"`
	Role     string    `gorm:"size:32;not null;default:'customer'"`
}
