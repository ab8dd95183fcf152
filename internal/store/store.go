// Package store is the relational catalog the deduplication run reads and
// rewrites: courses, their chapters, purchases and learner progress.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"course-dedupe/internal/domain"
	"course-dedupe/internal/logger"
)

// ListOptions selects which children ListCourses preloads.
type ListOptions struct {
	WithChapters  bool
	WithProgress  bool
	WithPurchases bool
}

// Store is everything the merge run needs from the catalog. Lookups that find
// nothing return (nil, nil).
type Store interface {
	ListCourses(ctx context.Context, opts ListOptions) ([]*domain.Course, error)
	GetCourse(ctx context.Context, courseID string, opts ListOptions) (*domain.Course, error)

	CreateCourse(ctx context.Context, c *domain.Course) error
	CreateChapter(ctx context.Context, ch *domain.Chapter) error
	CreatePurchase(ctx context.Context, p *domain.Purchase) error
	CreateUserProgress(ctx context.Context, p *domain.UserProgress) error

	UpdateChapterParent(ctx context.Context, chapterID, newCourseID string, newPosition int) error
	UpdatePurchaseParent(ctx context.Context, purchaseID, newCourseID string) error
	DeleteChapter(ctx context.Context, chapterID string) error
	DeleteCourse(ctx context.Context, courseID string) error

	FindChapterByCourseAndTitle(ctx context.Context, courseID, title string) (*domain.Chapter, error)
	FindPurchaseByCourseAndUser(ctx context.Context, courseID, userID string) (*domain.Purchase, error)
	MaxChapterPosition(ctx context.Context, courseID string) (int, bool, error)

	Close() error
}

// Config selects the backing database.
type Config struct {
	Driver string // "postgres" or "sqlite"
	DSN    string
	Debug  bool
}

type gormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to the configured database. The caller owns the returned
// Store and must Close it.
func Open(cfg Config, logg *logger.Logger) (Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	return New(db, logg), nil
}

// New wraps an existing connection.
func New(db *gorm.DB, logg *logger.Logger) Store {
	return &gormStore{db: db, log: logg.With("component", "store")}
}

func openDB(cfg Config) (*gorm.DB, error) {
	level := gormLogger.Warn
	if cfg.Debug {
		level = gormLogger.Info
	}
	gormLog := gormLogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{Logger: gormLog}

	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres", "postgresql", "":
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, errors.New("store: missing DATABASE_URL")
		}
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "sqlite3":
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, errors.New("store: missing sqlite path")
		}
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect %s: %w", cfg.Driver, err)
	}

	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("store: sqlite handle: %w", err)
		}
		// one connection: in-memory databases are per connection
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// AutoMigrate creates or updates the catalog tables.
func AutoMigrate(ctx context.Context, st Store) error {
	gs, ok := st.(*gormStore)
	if !ok {
		return errors.New("store: AutoMigrate needs a gorm-backed store")
	}
	return gs.db.WithContext(ctx).AutoMigrate(
		&domain.Course{},
		&domain.Chapter{},
		&domain.UserProgress{},
		&domain.Purchase{},
	)
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *gormStore) preload(q *gorm.DB, opts ListOptions) *gorm.DB {
	if opts.WithChapters || opts.WithProgress {
		q = q.Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		})
	}
	if opts.WithProgress {
		q = q.Preload("Chapters.UserProgress")
	}
	if opts.WithPurchases {
		q = q.Preload("Purchases", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
	}
	return q
}

func (s *gormStore) ListCourses(ctx context.Context, opts ListOptions) ([]*domain.Course, error) {
	var out []*domain.Course
	q := s.preload(s.db.WithContext(ctx).Model(&domain.Course{}), opts)
	if err := q.Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("store: list courses: %w", err)
	}
	return out, nil
}

func (s *gormStore) GetCourse(ctx context.Context, courseID string, opts ListOptions) (*domain.Course, error) {
	var c domain.Course
	err := s.preload(s.db.WithContext(ctx), opts).Where("id = ?", courseID).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get course %s: %w", courseID, err)
	}
	return &c, nil
}

func (s *gormStore) CreateCourse(ctx context.Context, c *domain.Course) error {
	if c == nil {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("store: create course %q: %w", c.Title, err)
	}
	return nil
}

func (s *gormStore) CreateChapter(ctx context.Context, ch *domain.Chapter) error {
	if ch == nil {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(ch).Error; err != nil {
		return fmt.Errorf("store: create chapter %q: %w", ch.Title, err)
	}
	return nil
}

func (s *gormStore) CreatePurchase(ctx context.Context, p *domain.Purchase) error {
	if p == nil {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("store: create purchase for course %s: %w", p.CourseID, err)
	}
	return nil
}

func (s *gormStore) CreateUserProgress(ctx context.Context, p *domain.UserProgress) error {
	if p == nil {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("store: create progress for chapter %s: %w", p.ChapterID, err)
	}
	return nil
}

func (s *gormStore) UpdateChapterParent(ctx context.Context, chapterID, newCourseID string, newPosition int) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Chapter{}).
		Where("id = ?", chapterID).
		Updates(map[string]any{"course_id": newCourseID, "position": newPosition})
	if res.Error != nil {
		return fmt.Errorf("store: move chapter %s: %w", chapterID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("store: move chapter %s: %w", chapterID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *gormStore) UpdatePurchaseParent(ctx context.Context, purchaseID, newCourseID string) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Purchase{}).
		Where("id = ?", purchaseID).
		Update("course_id", newCourseID)
	if res.Error != nil {
		return fmt.Errorf("store: move purchase %s: %w", purchaseID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("store: move purchase %s: %w", purchaseID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *gormStore) DeleteChapter(ctx context.Context, chapterID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chapter_id = ?", chapterID).Delete(&domain.UserProgress{}).Error; err != nil {
			return fmt.Errorf("store: delete progress of chapter %s: %w", chapterID, err)
		}
		if err := tx.Where("id = ?", chapterID).Delete(&domain.Chapter{}).Error; err != nil {
			return fmt.Errorf("store: delete chapter %s: %w", chapterID, err)
		}
		return nil
	})
}

// DeleteCourse removes the course and every row still pointing at it. The
// children are deleted explicitly; foreign-key cascades are not assumed.
func (s *gormStore) DeleteCourse(ctx context.Context, courseID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chapterIDs []string
		if err := tx.Model(&domain.Chapter{}).Where("course_id = ?", courseID).Pluck("id", &chapterIDs).Error; err != nil {
			return fmt.Errorf("list chapters: %w", err)
		}
		if len(chapterIDs) > 0 {
			if err := tx.Where("chapter_id IN ?", chapterIDs).Delete(&domain.UserProgress{}).Error; err != nil {
				return fmt.Errorf("delete progress: %w", err)
			}
		}
		if err := tx.Where("course_id = ?", courseID).Delete(&domain.Chapter{}).Error; err != nil {
			return fmt.Errorf("delete chapters: %w", err)
		}
		if err := tx.Where("course_id = ?", courseID).Delete(&domain.Purchase{}).Error; err != nil {
			return fmt.Errorf("delete purchases: %w", err)
		}
		res := tx.Where("id = ?", courseID).Delete(&domain.Course{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: delete course %s: %w", courseID, err)
	}
	s.log.Debug("course deleted", "course_id", courseID)
	return nil
}

func (s *gormStore) FindChapterByCourseAndTitle(ctx context.Context, courseID, title string) (*domain.Chapter, error) {
	var ch domain.Chapter
	err := s.db.WithContext(ctx).
		Where("course_id = ? AND title = ?", courseID, title).
		Order("position ASC").
		Take(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find chapter %q in %s: %w", title, courseID, err)
	}
	return &ch, nil
}

func (s *gormStore) FindPurchaseByCourseAndUser(ctx context.Context, courseID, userID string) (*domain.Purchase, error) {
	var p domain.Purchase
	err := s.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find purchase in %s: %w", courseID, err)
	}
	return &p, nil
}

// MaxChapterPosition returns the highest chapter position of the course and
// whether the course has any chapter at all.
func (s *gormStore) MaxChapterPosition(ctx context.Context, courseID string) (int, bool, error) {
	var row struct {
		Max   *int
		Count int64
	}
	err := s.db.WithContext(ctx).
		Model(&domain.Chapter{}).
		Select("MAX(position) AS max, COUNT(*) AS count").
		Where("course_id = ?", courseID).
		Scan(&row).Error
	if err != nil {
		return 0, false, fmt.Errorf("store: max chapter position of %s: %w", courseID, err)
	}
	if row.Count == 0 || row.Max == nil {
		return 0, false, nil
	}
	return *row.Max, true, nil
}
