package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/techstore-checkout/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSlot stores the value as one row of the storage_slots table (sqlite or postgres).
type GormSlot struct {
	db  *gorm.DB
	key string
}

// NewGormSlot binds a slot to the provided connection and key.
func NewGormSlot(db *gorm.DB, key string) (*GormSlot, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("slot key required")
	}
	return &GormSlot{db: db, key: key}, nil
}

func (s *GormSlot) Read(ctx context.Context) ([]byte, error) {
	var row models.StorageSlot
	err := s.db.WithContext(ctx).Where("key = ?", s.key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %s: %w", s.key, err)
	}
	return []byte(row.Value), nil
}

func (s *GormSlot) Write(ctx context.Context, data []byte) error {
	row := models.StorageSlot{Key: s.key, Value: string(data)}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("write slot %s: %w", s.key, err)
	}
	return nil
}

func (s *GormSlot) Remove(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("key = ?", s.key).Delete(&models.StorageSlot{}).Error; err != nil {
		return fmt.Errorf("remove slot %s: %w", s.key, err)
	}
	return nil
}
