package handler

import (
	"github.com/gin-gonic/gin"

	"ragchat-api/internal/app"
	"ragchat-api/internal/transport/http/response"
)

type DocumentHandler struct {
	documentService *app.DocumentService
}

type CreateDocumentRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	FilePath    string `json:"file_path" binding:"required,max=512"`
	FileType    string `json:"file_type" binding:"required,max=32"`
	DocType     string `json:"doc_type"`
	SizeBytes   int64  `json:"size_bytes" binding:"min=0"`
}

func NewDocumentHandler(documentService *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

func (h *DocumentHandler) Create(c *gin.Context) {
	user, ok := mustCurrentUser(c)
	if !ok {
		return
	}

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c)
		return
	}

	doc, err := h.documentService.Create(c.Request.Context(), app.CreateDocumentInput{
		OwnerID:     user.ID,
		Title:       req.Title,
		Description: req.Description,
		FilePath:    req.FilePath,
		FileType:    req.FileType,
		DocType:     req.DocType,
		SizeBytes:   req.SizeBytes,
	})
	if err != nil {
		writeError(c, err, "create document failed")
		return
	}
	response.Created(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	user, ok := mustCurrentUser(c)
	if !ok {
		return
	}

	docs, err := h.documentService.List(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	user, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.documentService.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		writeError(c, err, "get document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	user, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), user.ID, id); err != nil {
		writeError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"id": id})
}
