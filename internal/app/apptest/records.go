package apptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"ragchat-api/internal/model"
)

type ConversationStore struct {
	mu            sync.Mutex
	nextID        uint
	conversations map[uint]model.Conversation
	Deleted       []uint
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{conversations: make(map[uint]model.Conversation)}
}

func (s *ConversationStore) Create(_ context.Context, conversation *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	conversation.ID = s.nextID
	conversation.CreatedAt = time.Now().UTC()
	conversation.UpdatedAt = conversation.CreatedAt
	s.conversations[conversation.ID] = *conversation
	return nil
}

func (s *ConversationStore) ListByUserID(_ context.Context, userID uint) ([]model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Conversation{}
	for _, c := range s.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ConversationStore) GetByIDAndUserID(_ context.Context, id, userID uint) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	return &c, nil
}

func (s *ConversationStore) DeleteByIDAndUserID(_ context.Context, id, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[id]; ok && c.UserID == userID {
		delete(s.conversations, id)
		s.Deleted = append(s.Deleted, id)
	}
	return nil
}

// MessageLog stands in for both the queue and the message table: Publish
// stores synchronously. Listing keeps the newest limit messages.
type MessageLog struct {
	mu       sync.Mutex
	nextID   uint
	messages []model.Message
}

func (l *MessageLog) Publish(_ context.Context, msg model.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	msg.ID = l.nextID
	l.messages = append(l.messages, msg)
	return nil
}

func (l *MessageLog) ListByConversationID(_ context.Context, conversationID uint, limit int) ([]model.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []model.Message{}
	for _, msg := range l.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type DocumentStore struct {
	mu     sync.Mutex
	nextID uint
	docs   map[uint]model.Document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[uint]model.Document)}
}

func (s *DocumentStore) Create(_ context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	doc.ID = s.nextID
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt
	s.docs[doc.ID] = *doc
	return nil
}

func (s *DocumentStore) ListByOwnerID(_ context.Context, ownerID uint) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Document{}
	for _, doc := range s.docs {
		if doc.OwnerID == ownerID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *DocumentStore) GetByIDAndOwnerID(_ context.Context, id, ownerID uint) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, nil
	}
	return &doc, nil
}

func (s *DocumentStore) DeleteByIDAndOwnerID(_ context.Context, id, ownerID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok && doc.OwnerID == ownerID {
		delete(s.docs, id)
	}
	return nil
}
