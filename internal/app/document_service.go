package app

import (
	"context"
	"strings"

	"ragchat-api/internal/model"
)

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	ListByOwnerID(ctx context.Context, ownerID uint) ([]model.Document, error)
	GetByIDAndOwnerID(ctx context.Context, id, ownerID uint) (*model.Document, error)
	DeleteByIDAndOwnerID(ctx context.Context, id, ownerID uint) error
}

// DocumentService records document metadata. Ingestion of the file itself
// happens elsewhere; ChunkCount stays zero until it does.
type DocumentService struct {
	docs DocumentStore
}

type CreateDocumentInput struct {
	OwnerID     uint
	Title       string
	Description string
	FilePath    string
	FileType    string
	DocType     string
	SizeBytes   int64
}

func NewDocumentService(docs DocumentStore) *DocumentService {
	return &DocumentService{docs: docs}
}

func (s *DocumentService) Create(ctx context.Context, input CreateDocumentInput) (*model.Document, error) {
	title := strings.TrimSpace(input.Title)
	filePath := strings.TrimSpace(input.FilePath)
	fileType := strings.ToLower(strings.TrimSpace(input.FileType))
	if input.OwnerID == 0 || title == "" || filePath == "" || fileType == "" || input.SizeBytes < 0 {
		return nil, ErrInvalidInput
	}

	docType := model.DocumentTypeOther
	if raw := strings.TrimSpace(input.DocType); raw != "" {
		docType = model.DocumentType(strings.ToLower(raw))
		if !docType.Valid() {
			return nil, ErrInvalidInput
		}
	}

	doc := &model.Document{
		OwnerID:     input.OwnerID,
		Title:       title,
		Description: optionalString(input.Description),
		FilePath:    filePath,
		FileType:    fileType,
		DocType:     docType,
		SizeBytes:   input.SizeBytes,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, ownerID uint) ([]model.Document, error) {
	if ownerID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docs.ListByOwnerID(ctx, ownerID)
}

func (s *DocumentService) Get(ctx context.Context, ownerID, id uint) (*model.Document, error) {
	if ownerID == 0 || id == 0 {
		return nil, ErrInvalidInput
	}
	doc, err := s.docs.GetByIDAndOwnerID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (s *DocumentService) Delete(ctx context.Context, ownerID, id uint) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return s.docs.DeleteByIDAndOwnerID(ctx, id, ownerID)
}
