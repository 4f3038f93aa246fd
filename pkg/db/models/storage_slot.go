package models

import "time"

// StorageSlot is one durable key/value slot. The cart snapshot lives in a single row.
type StorageSlot struct {
	Key       string    `gorm:"column:key;primaryKey;size:191"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name regardless of naming strategy.
func (StorageSlot) TableName() string {
	return "storage_slots"
}
