package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CommemorativeDate struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description" gorm:"type:text;not null"`
	Date        datatypes.Date `json:"date" gorm:"not null;index"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type CommemorativeDatePatch struct {
	Name        *string
	Description *string
	Date        *time.Time
}

// CalendarFilter narrows the calendar listing. Zero values mean "any".
type CalendarFilter struct {
	Year  int
	Month time.Month
}
