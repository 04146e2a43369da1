package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ragchat-api/internal/logging"
	"ragchat-api/internal/model"
)

type mockWriter struct{ mock.Mock }

func (m *mockWriter) Create(ctx context.Context, message *model.Message) error {
	return m.Called(ctx, message).Error(0)
}

type mockInvalidator struct{ mock.Mock }

func (m *mockInvalidator) ClearDirty(ctx context.Context, conversationID uint) error {
	return m.Called(ctx, conversationID).Error(0)
}

func newTestWorker(writer MessageWriter, history HistoryInvalidator) *MessagePersistWorker {
	return NewMessagePersistWorker(nil, writer, history, "chat.message.persist", logging.Discard())
}

func TestHandle_PersistsAndClearsMarker(t *testing.T) {
	writer := &mockWriter{}
	history := &mockInvalidator{}
	w := newTestWorker(writer, history)
	ctx := context.Background()

	body, err := json.Marshal(model.Message{ID: 99, ConversationID: 3, UserID: 5, Content: "hi", IsUser: true})
	require.NoError(t, err)

	writer.On("Create", ctx, mock.MatchedBy(func(m *model.Message) bool {
		return m.ID == 0 && m.ConversationID == 3 && m.Content == "hi"
	})).Return(nil).Once()
	history.On("ClearDirty", ctx, uint(3)).Return(nil).Once()

	require.NoError(t, w.Handle(ctx, body))
	writer.AssertExpectations(t)
	history.AssertExpectations(t)
}

func TestHandle_Rejects(t *testing.T) {
	writer := &mockWriter{}
	w := newTestWorker(writer, nil)
	ctx := context.Background()

	err := w.Handle(ctx, []byte("{not json"))
	assert.ErrorIs(t, err, ErrMalformedMessage)
	assert.False(t, shouldRequeue(err))

	orphan, err := json.Marshal(model.Message{Content: "hi"})
	require.NoError(t, err)
	err = w.Handle(ctx, orphan)
	assert.ErrorIs(t, err, ErrMalformedMessage)
	assert.False(t, shouldRequeue(err))

	writer.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestHandle_StoreFailure(t *testing.T) {
	writer := &mockWriter{}
	history := &mockInvalidator{}
	w := newTestWorker(writer, history)
	ctx := context.Background()

	body, err := json.Marshal(model.Message{ConversationID: 3, UserID: 5, Content: "hi"})
	require.NoError(t, err)
	writer.On("Create", ctx, mock.Anything).Return(errors.New("deadlock"))

	err = w.Handle(ctx, body)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedMessage)
	assert.True(t, shouldRequeue(err))
	history.AssertNotCalled(t, "ClearDirty", mock.Anything, mock.Anything)
}
