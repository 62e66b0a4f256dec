package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a single chirp. Posts are never edited or deleted once stored.
type Post struct {
	ID        string    `gorm:"primaryKey;size:191" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	AuthorID  string    `gorm:"column:authorId;size:191;index;not null" json:"authorId"`
	CreatedAt time.Time `gorm:"column:createdAt;index;not null" json:"createdAt"`
}

// TableName pins the singular table name used by existing deployments.
func (Post) TableName() string {
	return "post"
}

// BeforeCreate assigns the server-side identifier and creation time.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return nil
}
