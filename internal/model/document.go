package model

import "time"

type DocumentType string

const (
	DocumentTypeAcademic DocumentType = "academic"
	DocumentTypeCourse   DocumentType = "course"
	DocumentTypeCode     DocumentType = "code"
	DocumentTypeOther    DocumentType = "other"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeAcademic, DocumentTypeCourse, DocumentTypeCode, DocumentTypeOther:
		return true
	default:
		return false
	}
}

// Document is upload metadata only; FilePath points at wherever the bytes live.
type Document struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	OwnerID     uint         `gorm:"not null;index" json:"owner_id"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	Description *string      `gorm:"type:text" json:"description"`
	FilePath    string       `gorm:"size:512;not null" json:"file_path"`
	FileType    string       `gorm:"size:32;not null" json:"file_type"`
	DocType     DocumentType `gorm:"size:16;not null;default:other" json:"doc_type"`
	SizeBytes   int64        `gorm:"not null" json:"size_bytes"`
	ChunkCount  int          `gorm:"not null;default:0" json:"chunk_count"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
