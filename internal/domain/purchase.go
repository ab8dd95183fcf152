package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Purchase grants one learner access to one course. A learner holds at most
// one purchase per course (unique user_id + course_id).
type Purchase struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	UserID    string    `gorm:"size:64;not null;index:idx_purchase_user_course,unique" json:"userId" yaml:"userId"`
	CourseID  string    `gorm:"size:36;not null;index:idx_purchase_user_course,unique" json:"courseId" yaml:"-"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt" yaml:"-"`
}

func (Purchase) TableName() string { return "purchase" }

func (p *Purchase) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
