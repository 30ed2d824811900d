package model

import "time"

// RecycleBinEntry is the archived snapshot of a tombstoned entity. There is
// at most one entry per (data_type, data_id).
type RecycleBinEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DataType   string    `gorm:"size:32;not null;uniqueIndex:idx_recycle_bin_subject" json:"data_type"`
	DataID     uint      `gorm:"not null;uniqueIndex:idx_recycle_bin_subject" json:"data_id"`
	DataJSON   string    `gorm:"type:text;not null" json:"data_json"`
	ArchivedAt time.Time `gorm:"column:deleted_at;not null;index" json:"deleted_at"`
}

func (RecycleBinEntry) TableName() string {
	return "recycle_bin"
}

type RecycleBinFilter struct {
	DataType string
	Page     int
	Limit    int
}

type RestoreResult struct {
	DataType string `json:"data_type"`
	DataID   uint   `json:"data_id"`
	Record   any    `json:"record"`
}

type SweepResult struct {
	Cutoff time.Time `json:"cutoff"`
	Purged int       `json:"purged"`
}
