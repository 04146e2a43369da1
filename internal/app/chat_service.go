package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"ragchat-api/internal/model"
)

const (
	maxMessageLength = 8000

	// historyWindow is how many of the newest messages are loaded and cached
	// per conversation. Callers' limits are applied on top of it.
	historyWindow = 200
)

type ConversationStore interface {
	Create(ctx context.Context, conversation *model.Conversation) error
	ListByUserID(ctx context.Context, userID uint) ([]model.Conversation, error)
	GetByIDAndUserID(ctx context.Context, id, userID uint) (*model.Conversation, error)
	DeleteByIDAndUserID(ctx context.Context, id, userID uint) error
}

// MessageStore returns the newest limit messages of a conversation, oldest first.
type MessageStore interface {
	ListByConversationID(ctx context.Context, conversationID uint, limit int) ([]model.Message, error)
}

type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, conversationID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, conversationID uint) error
	MarkDirty(ctx context.Context, conversationID uint) error
	IsDirty(ctx context.Context, conversationID uint) (bool, error)
}

// ChatService manages conversations and their message history. Messages are
// written through the queue; reads go through the history cache.
type ChatService struct {
	conversations ConversationStore
	messages      MessageStore
	publisher     AsyncMessagePublisher
	historyCache  HistoryCache
	logger        *slog.Logger
}

type CreateConversationInput struct {
	UserID uint
	Title  string
}

type SendMessageInput struct {
	UserID         uint
	ConversationID uint
	Content        string
}

func NewChatService(
	conversations ConversationStore,
	messages MessageStore,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	logger *slog.Logger,
) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
		historyCache:  historyCache,
		logger:        logger.With(slog.String("component", "chat")),
	}
}

func (s *ChatService) CreateConversation(ctx context.Context, input CreateConversationInput) (*model.Conversation, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = model.DefaultConversationTitle
	}
	if len(title) > 255 {
		return nil, ErrInvalidInput
	}

	conversation := &model.Conversation{
		UserID: input.UserID,
		Title:  title,
	}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *ChatService) ListConversations(ctx context.Context, userID uint) ([]model.Conversation, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.conversations.ListByUserID(ctx, userID)
}

func (s *ChatService) DeleteConversation(ctx context.Context, userID, conversationID uint) error {
	if _, err := s.ownedConversation(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := s.conversations.DeleteByIDAndUserID(ctx, conversationID, userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		if err := s.historyCache.DeleteHistory(ctx, conversationID); err != nil {
			s.logger.WarnContext(ctx, "drop history cache failed", slog.Uint64("conversation_id", uint64(conversationID)), slog.Any("error", err))
		}
	}
	return nil
}

// SendMessage hands the message to the persist queue and returns it as
// accepted. The history cache is marked dirty first so readers fall back to
// the database until the worker has written it.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*model.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}
	if len(content) > maxMessageLength {
		return nil, ErrInvalidInput
	}
	if _, err := s.ownedConversation(ctx, input.UserID, input.ConversationID); err != nil {
		return nil, err
	}
	if s.publisher == nil {
		return nil, ErrMessageEnqueue
	}

	message := model.Message{
		ConversationID: input.ConversationID,
		UserID:         input.UserID,
		Content:        content,
		IsUser:         true,
		CreatedAt:      time.Now().UTC(),
	}
	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, input.ConversationID)
		_ = s.historyCache.DeleteHistory(ctx, input.ConversationID)
	}
	if err := s.publisher.Publish(ctx, message); err != nil {
		s.logger.ErrorContext(ctx, "publish message failed", slog.Uint64("conversation_id", uint64(input.ConversationID)), slog.Any("error", err))
		return nil, ErrMessageEnqueue
	}
	return &message, nil
}

// GetHistory returns the newest limit messages, oldest first. A limit of zero
// or less returns the whole cached window.
func (s *ChatService) GetHistory(ctx context.Context, userID, conversationID uint, limit int) ([]model.Message, error) {
	if _, err := s.ownedConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, conversationID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, conversationID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messages.ListByConversationID(ctx, conversationID, historyWindow)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		// A write may have landed while we were reading.
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, conversationID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, conversationID, messages)
		}
	}
	return trimMessages(messages, limit), nil
}

func (s *ChatService) ownedConversation(ctx context.Context, userID, conversationID uint) (*model.Conversation, error) {
	if userID == 0 || conversationID == 0 {
		return nil, ErrInvalidInput
	}
	conversation, err := s.conversations.GetByIDAndUserID(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrNotFound
	}
	return conversation, nil
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
