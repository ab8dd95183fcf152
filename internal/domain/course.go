package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course is a catalog entry as stored by the LMS. Chapters and Purchases are
// only populated when the store is asked to preload them.
type Course struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	Title       string    `gorm:"column:title;not null" json:"title" yaml:"title"`
	Description string    `gorm:"column:description" json:"description,omitempty" yaml:"description"`
	IsPublished bool      `gorm:"column:is_published;not null;default:false" json:"isPublished" yaml:"isPublished"`
	Price       *float64  `gorm:"column:price" json:"price,omitempty" yaml:"price"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt" yaml:"-"`

	Chapters  []Chapter  `gorm:"foreignKey:CourseID" json:"chapters,omitempty" yaml:"chapters"`
	Purchases []Purchase `gorm:"foreignKey:CourseID" json:"purchases,omitempty" yaml:"purchases"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// HasPrice reports whether the course is sold for a positive amount.
func (c *Course) HasPrice() bool {
	return c.Price != nil && *c.Price > 0
}

// ProgressCount sums learner progress records across all chapters.
func (c *Course) ProgressCount() int {
	n := 0
	for _, ch := range c.Chapters {
		n += len(ch.UserProgress)
	}
	return n
}

// LearnerIDs returns the distinct purchasers of the course.
func (c *Course) LearnerIDs() []string {
	seen := make(map[string]bool, len(c.Purchases))
	out := make([]string, 0, len(c.Purchases))
	for _, p := range c.Purchases {
		if p.UserID == "" || seen[p.UserID] {
			continue
		}
		seen[p.UserID] = true
		out = append(out, p.UserID)
	}
	return out
}

// AgeDays is the number of whole days between CreatedAt and now.
func (c *Course) AgeDays(now time.Time) int {
	if c.CreatedAt.IsZero() || now.Before(c.CreatedAt) {
		return 0
	}
	return int(now.Sub(c.CreatedAt) / (24 * time.Hour))
}
