package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ragchat-api/internal/app"
	"ragchat-api/internal/transport/http/response"
)

type ConversationHandler struct {
	chatService *app.ChatService
}

type CreateConversationRequest struct {
	Title string `json:"title" binding:"max=255"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type HistoryQuery struct {
	Limit int `form:"limit" binding:"min=0,max=200"`
}

func NewConversationHandler(chatService *app.ChatService) *ConversationHandler {
	return &ConversationHandler{chatService: chatService}
}

func (h *ConversationHandler) Create(c *gin.Context) {
	user, ok := mustCurrentUser(c)
	if !ok {
		return
	}

	var req CreateConversationRequest
	// An empty body means the default title.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidPayload(c)
			return
		}
	}

	conversation, err := h.chatService.CreateConversation(c.Request.Context(), app.CreateConversationInput{
		UserID: user.ID,
		Title:  req.Title,
	})
	if err != nil {
		writeError(c, err, "create conversation failed")
		return
	}
	response.Created(c, conversation)
}

func (h *ConversationHandler) List(c *gin.Context) {
	user, ok := mustCurrentUser(c)
	if !ok {
		return
	}

	conversations, err := h.chatService.ListConversations(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err, "list conversations failed")
		return
	}
	response.OK(c, conversations)
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	user, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.chatService.DeleteConversation(c.Request.Context(), user.ID, id); err != nil {
		writeError(c, err, "delete conversation failed")
		return
	}
	response.OK(c, gin.H{"id": id})
}

func (h *ConversationHandler) SendMessage(c *gin.Context) {
	user, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c)
		return
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), app.SendMessageInput{
		UserID:         user.ID,
		ConversationID: id,
		Content:        req.Content,
	})
	if err != nil {
		writeError(c, err, "send message failed")
		return
	}
	// Persisted asynchronously by the message worker.
	response.JSON(c, http.StatusAccepted, message)
}

func (h *ConversationHandler) History(c *gin.Context) {
	user, ok := mustCurrentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var query HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidPayload(c)
		return
	}

	messages, err := h.chatService.GetHistory(c.Request.Context(), user.ID, id, query.Limit)
	if err != nil {
		writeError(c, err, "get history failed")
		return
	}
	response.OK(c, messages)
}
