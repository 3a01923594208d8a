package domain

import (
	"time"
)

// UserRole is the account type. Only ADMIN and EMPLOYEE exist.
type UserRole string

const (
	UserRoleAdmin    UserRole = "ADMIN"
	UserRoleEmployee UserRole = "EMPLOYEE"
)

// IsValid checks if a role is one of the known account types
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleEmployee:
		return true
	}
	return false
}

func (r UserRole) String() string {
	return string(r)
}

type User struct {
	ID               int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Username         string     `json:"username" gorm:"uniqueIndex;not null"`
	Name             string     `json:"name" gorm:"not null"`
	Email            *string    `json:"email,omitempty" gorm:"uniqueIndex"`
	PasswordHash     string     `json:"-" gorm:"column:password;not null"`
	Role             UserRole   `json:"role" gorm:"type:varchar(16);not null"`
	ResetToken       *string    `json:"-" gorm:"index"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// HasPendingReset reports whether a reset token is stored and still usable at now.
func (u *User) HasPendingReset(now time.Time) bool {
	if u.ResetToken == nil || u.ResetTokenExpiry == nil {
		return false
	}
	return now.Before(*u.ResetTokenExpiry)
}
