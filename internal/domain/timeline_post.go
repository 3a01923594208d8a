package domain

import (
	"time"

	"github.com/google/uuid"
)

type TimelinePost struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	ImageURL    string    `json:"imageUrl" gorm:"not null"`
	ImageKey    string    `json:"-" gorm:"not null;default:''"`
	PostDate    time.Time `json:"postDate" gorm:"not null;index"`
	IsPublished bool      `json:"isPublished" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type TimelinePostPatch struct {
	Title       *string
	Description *string
	PostDate    *time.Time
	IsPublished *bool
	ImageURL    *string
	ImageKey    *string
}
