package entities

import "time"

// DurableRecord is one identity-scoped slot of durable key-value storage.
type DurableRecord struct {
	Namespace string    `gorm:"primaryKey;size:64"`
	Identity  string    `gorm:"primaryKey;size:255"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DurableRecord) TableName() string {
	return "durable_records"
}
