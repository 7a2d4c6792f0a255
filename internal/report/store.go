package report

import (
	"context"
	"errors"

	"github.com/eleven-am/interview-backend/internal/shared"
	"gorm.io/gorm"
)

const maxListLimit = 100

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Report{})
}

func (s *Store) Save(ctx context.Context, r *Report) error {
	if r.ID == "" {
		r.ID = shared.NewID("rpt_")
	}
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *Store) GetByID(ctx context.Context, id string) (*Report, error) {
	var r Report
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListByClient returns the newest reports for clientID first.
func (s *Store) ListByClient(ctx context.Context, clientID string, limit int) ([]*Report, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	var reports []*Report
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
