package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chapter is an ordered content unit of a Course. CourseID is rewritten when
// a chapter is moved into another course.
type Chapter struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	CourseID    string    `gorm:"size:36;not null;index" json:"courseId" yaml:"-"`
	Title       string    `gorm:"column:title;not null" json:"title" yaml:"title"`
	Position    int       `gorm:"column:position;not null;default:0" json:"position" yaml:"position"`
	IsPublished bool      `gorm:"column:is_published;not null;default:false" json:"isPublished" yaml:"isPublished"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt" yaml:"-"`

	UserProgress []UserProgress `gorm:"foreignKey:ChapterID" json:"userProgress,omitempty" yaml:"progress"`
}

func (Chapter) TableName() string { return "chapter" }

func (c *Chapter) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// UserProgress records a learner's engagement with one chapter.
type UserProgress struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	UserID      string    `gorm:"size:64;not null;index:idx_progress_user_chapter,unique" json:"userId" yaml:"userId"`
	ChapterID   string    `gorm:"size:36;not null;index:idx_progress_user_chapter,unique" json:"chapterId" yaml:"-"`
	IsCompleted bool      `gorm:"column:is_completed;not null;default:false" json:"isCompleted" yaml:"isCompleted"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt" yaml:"-"`
}

func (UserProgress) TableName() string { return "user_progress" }

func (p *UserProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
