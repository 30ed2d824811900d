package model

import (
	"time"

	"gorm.io/gorm"
)

// Archive kinds. The value is persisted as recycle_bin.data_type.
const (
	KindArticle = "article"
	KindSkill   = "skill"
	KindContact = "contact"
	KindAvatar  = "avatar"
)

// Archivable is implemented by every entity that goes through the
// tombstone -> recycle bin -> purge lifecycle.
type Archivable interface {
	ArchiveKind() string
	ArchiveID() uint
	Tombstoned() bool
	Revive()
}

// SoftDelete carries the tombstone column. A non-null deleted_at hides the
// row from every scoped GORM query while keeping it on disk.
type SoftDelete struct {
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (s *SoftDelete) Tombstoned() bool {
	return s.DeletedAt.Valid
}

func (s *SoftDelete) Revive() {
	s.DeletedAt = gorm.DeletedAt{}
}

type Article struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Category    string    `gorm:"size:50;index" json:"category"`
	Tags        string    `gorm:"size:200" json:"tags"`
	Cover       string    `gorm:"size:200" json:"cover,omitempty"`
	Summary     string    `gorm:"type:text" json:"summary"`
	Content     string    `gorm:"type:text" json:"content"`
	ContentType string    `gorm:"size:20;default:markdown" json:"content_type"`
	PDFFilename string    `gorm:"column:pdf_filename;size:200" json:"pdf_filename,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	SoftDelete
}

func (a *Article) ArchiveKind() string { return KindArticle }
func (a *Article) ArchiveID() uint     { return a.ID }

type Skill struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Level       int       `gorm:"default:0" json:"level"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	SoftDelete
}

func (s *Skill) ArchiveKind() string { return KindSkill }
func (s *Skill) ArchiveID() uint     { return s.ID }

type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"size:50;not null" json:"type"`
	Value     string    `gorm:"size:200;not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	SoftDelete
}

func (c *Contact) ArchiveKind() string { return KindContact }
func (c *Contact) ArchiveID() uint     { return c.ID }

// Avatar rows share one invariant: among rows with a null deleted_at at most
// one has is_current set.
type Avatar struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Filename    string    `gorm:"size:200;not null" json:"filename"`
	IsCurrent   bool      `gorm:"default:false;index" json:"is_current"`
	CroppedInfo string    `gorm:"type:text" json:"cropped_info,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
	SoftDelete
}

func (a *Avatar) ArchiveKind() string { return KindAvatar }
func (a *Avatar) ArchiveID() uint     { return a.ID }

// Revive brings the avatar back without reclaiming the current flag.
func (a *Avatar) Revive() {
	a.SoftDelete.Revive()
	a.IsCurrent = false
}
