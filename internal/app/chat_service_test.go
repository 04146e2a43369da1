package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ragchat-api/internal/app/apptest"
	"ragchat-api/internal/model"
)

type mockMessageStore struct{ mock.Mock }

func (m *mockMessageStore) ListByConversationID(ctx context.Context, conversationID uint, limit int) ([]model.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	messages, _ := args.Get(0).([]model.Message)
	return messages, args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, msg model.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mockHistoryCache struct{ mock.Mock }

func (m *mockHistoryCache) GetHistory(ctx context.Context, conversationID uint) ([]model.Message, bool, error) {
	args := m.Called(ctx, conversationID)
	messages, _ := args.Get(0).([]model.Message)
	return messages, args.Bool(1), args.Error(2)
}

func (m *mockHistoryCache) SetHistory(ctx context.Context, conversationID uint, messages []model.Message) error {
	return m.Called(ctx, conversationID, messages).Error(0)
}

func (m *mockHistoryCache) DeleteHistory(ctx context.Context, conversationID uint) error {
	return m.Called(ctx, conversationID).Error(0)
}

func (m *mockHistoryCache) MarkDirty(ctx context.Context, conversationID uint) error {
	return m.Called(ctx, conversationID).Error(0)
}

func (m *mockHistoryCache) IsDirty(ctx context.Context, conversationID uint) (bool, error) {
	args := m.Called(ctx, conversationID)
	return args.Bool(0), args.Error(1)
}

type chatFixture struct {
	svc           *ChatService
	conversations *apptest.ConversationStore
	messages      *mockMessageStore
	publisher     *mockPublisher
	cache         *mockHistoryCache
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		conversations: apptest.NewConversationStore(),
		messages:      &mockMessageStore{},
		publisher:     &mockPublisher{},
		cache:         &mockHistoryCache{},
	}
	f.svc = NewChatService(f.conversations, f.messages, f.publisher, f.cache, nil)
	return f
}

func TestChatService_CreateConversation(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	conversation, err := f.svc.CreateConversation(ctx, CreateConversationInput{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConversationTitle, conversation.Title)

	conversation, err = f.svc.CreateConversation(ctx, CreateConversationInput{UserID: 1, Title: "  Thesis notes "})
	require.NoError(t, err)
	assert.Equal(t, "Thesis notes", conversation.Title)

	_, err = f.svc.CreateConversation(ctx, CreateConversationInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	list, err := f.svc.ListConversations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestChatService_SendMessage(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	conversation, err := f.svc.CreateConversation(ctx, CreateConversationInput{UserID: 7})
	require.NoError(t, err)

	f.cache.On("MarkDirty", ctx, conversation.ID).Return(nil).Once()
	f.cache.On("DeleteHistory", ctx, conversation.ID).Return(nil).Once()
	f.publisher.On("Publish", ctx, mock.MatchedBy(func(msg model.Message) bool {
		return msg.ConversationID == conversation.ID && msg.UserID == 7 && msg.IsUser && msg.Content == "hello"
	})).Return(nil).Once()

	msg, err := f.svc.SendMessage(ctx, SendMessageInput{UserID: 7, ConversationID: conversation.ID, Content: " hello "})
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.CreatedAt.IsZero())

	f.cache.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestChatService_SendMessage_Rejections(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	conversation, err := f.svc.CreateConversation(ctx, CreateConversationInput{UserID: 7})
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, SendMessageInput{UserID: 7, ConversationID: conversation.ID, Content: "   "})
	assert.ErrorIs(t, err, ErrMessageEmpty)

	_, err = f.svc.SendMessage(ctx, SendMessageInput{UserID: 8, ConversationID: conversation.ID, Content: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)

	f.cache.On("MarkDirty", ctx, conversation.ID).Return(nil)
	f.cache.On("DeleteHistory", ctx, conversation.ID).Return(nil)
	f.publisher.On("Publish", ctx, mock.Anything).Return(errors.New("channel closed"))

	_, err = f.svc.SendMessage(ctx, SendMessageInput{UserID: 7, ConversationID: conversation.ID, Content: "hi"})
	assert.ErrorIs(t, err, ErrMessageEnqueue)
}

func TestChatService_GetHistory_CacheHit(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	conversation, err := f.svc.CreateConversation(ctx, CreateConversationInput{UserID: 7})
	require.NoError(t, err)

	cached := []model.Message{{ID: 1, Content: "a"}, {ID: 2, Content: "b"}, {ID: 3, Content: "c"}}
	f.cache.On("IsDirty", ctx, conversation.ID).Return(false, nil)
	f.cache.On("GetHistory", ctx, conversation.ID).Return(cached, true, nil)

	messages, err := f.svc.GetHistory(ctx, 7, conversation.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []model.Message{{ID: 2, Content: "b"}, {ID: 3, Content: "c"}}, messages)
	f.messages.AssertNotCalled(t, "ListByConversationID", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_GetHistory_DirtyReadsDatabase(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	conversation, err := f.svc.CreateConversation(ctx, CreateConversationInput{UserID: 7})
	require.NoError(t, err)

	stored := []model.Message{{ID: 1, Content: "a"}, {ID: 2, Content: "b"}}
	f.cache.On("IsDirty", ctx, conversation.ID).Return(true, nil)
	f.messages.On("ListByConversationID", ctx, conversation.ID, historyWindow).Return(stored, nil).Once()

	messages, err := f.svc.GetHistory(ctx, 7, conversation.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Message{{ID: 2, Content: "b"}}, messages)
	f.cache.AssertNotCalled(t, "SetHistory", mock.Anything, mock.Anything, mock.Anything)
	f.messages.AssertExpectations(t)
}

func TestChatService_GetHistory_MissFillsCache(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	conversation, err := f.svc.CreateConversation(ctx, CreateConversationInput{UserID: 7})
	require.NoError(t, err)

	stored := []model.Message{{ID: 1, Content: "a"}}
	f.cache.On("IsDirty", ctx, conversation.ID).Return(false, nil)
	f.cache.On("GetHistory", ctx, conversation.ID).Return(nil, false, nil)
	f.messages.On("ListByConversationID", ctx, conversation.ID, historyWindow).Return(stored, nil)
	f.cache.On("SetHistory", ctx, conversation.ID, stored).Return(nil).Once()

	messages, err := f.svc.GetHistory(ctx, 7, conversation.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, stored, messages)
	f.cache.AssertExpectations(t)
}

// memoryHistory is a map-backed HistoryCache.
type memoryHistory struct {
	entries map[uint][]model.Message
	dirty   map[uint]bool
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{entries: map[uint][]model.Message{}, dirty: map[uint]bool{}}
}

func (m *memoryHistory) GetHistory(_ context.Context, id uint) ([]model.Message, bool, error) {
	messages, ok := m.entries[id]
	return messages, ok, nil
}

func (m *memoryHistory) SetHistory(_ context.Context, id uint, messages []model.Message) error {
	m.entries[id] = messages
	return nil
}

func (m *memoryHistory) DeleteHistory(_ context.Context, id uint) error {
	delete(m.entries, id)
	return nil
}

func (m *memoryHistory) MarkDirty(_ context.Context, id uint) error {
	m.dirty[id] = true
	return nil
}

func (m *memoryHistory) IsDirty(_ context.Context, id uint) (bool, error) {
	return m.dirty[id], nil
}

func TestChatService_GetHistory_LimitDoesNotShrinkCache(t *testing.T) {
	ctx := context.Background()
	conversations := apptest.NewConversationStore()
	log := &apptest.MessageLog{}
	history := newMemoryHistory()
	svc := NewChatService(conversations, log, log, history, nil)

	conversation, err := svc.CreateConversation(ctx, CreateConversationInput{UserID: 7})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, log.Publish(ctx, model.Message{ConversationID: conversation.ID, UserID: 7, Content: "m"}))
	}

	recent, err := svc.GetHistory(ctx, 7, conversation.ID, 3)
	require.NoError(t, err)
	ids := make([]uint, 0, len(recent))
	for _, msg := range recent {
		ids = append(ids, msg.ID)
	}
	assert.Equal(t, []uint{8, 9, 10}, ids)

	all, err := svc.GetHistory(ctx, 7, conversation.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 10)
	assert.Len(t, history.entries[conversation.ID], 10)

	again, err := svc.GetHistory(ctx, 7, conversation.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, recent, again)
}

func TestChatService_DeleteConversation(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	conversation, err := f.svc.CreateConversation(ctx, CreateConversationInput{UserID: 7})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteConversation(ctx, 8, conversation.ID), ErrNotFound)

	f.cache.On("DeleteHistory", ctx, conversation.ID).Return(nil).Once()
	require.NoError(t, f.svc.DeleteConversation(ctx, 7, conversation.ID))
	assert.Equal(t, []uint{conversation.ID}, f.conversations.Deleted)
	f.cache.AssertExpectations(t)
}
