package domain

import (
	"time"

	"github.com/google/uuid"
)

type Testimonial struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"not null"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	Date        time.Time `json:"date" gorm:"not null;index"`
	IsPublished bool      `json:"isPublished" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TestimonialPatch holds the fields of a partial update. Nil fields are left untouched.
type TestimonialPatch struct {
	Name        *string
	Content     *string
	Date        *time.Time
	IsPublished *bool
}
