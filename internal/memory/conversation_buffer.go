// Package memory implements the Memory Store (spec §4.1): a short-term
// per-conversation buffer and a long-term similarity store, grounded on the
// teacher's internal/application/services/{conversation,memory}.go service
// shape (constructor injection, one method per operation, domain.Error
// wrapping) adapted from repository-backed CRUD to an in-process store.
package memory

import (
	"container/list"
	"context"
	"sync"

	"github.com/rcitylucas/dialogengine/internal/domain"
	"github.com/rcitylucas/dialogengine/internal/domain/models"
)

// conversationEntry holds one conversation's ordered message log plus its
// own mutex so append/trim against the same conversation serialize while
// different conversations proceed in parallel (spec §4.1, §5).
type conversationEntry struct {
	mu       sync.Mutex
	messages []*models.Message
}

// ConversationBuffer is an in-memory, LRU-bounded ports.ConversationBuffer.
// Holds at most maxConversations concurrent conversations, evicting the
// least-recently-used one when full; reads (Recent, All) and Clear count as
// use, and touching an unknown conversation creates an empty entry for it
// (spec §4.1).
type ConversationBuffer struct {
	mu              sync.Mutex
	maxConversations int
	entries         map[string]*list.Element // conversationID -> lru element
	lru             *list.List               // front = most recently used
}

type lruItem struct {
	conversationID string
	entry          *conversationEntry
}

func NewConversationBuffer(maxConversations int) *ConversationBuffer {
	if maxConversations <= 0 {
		maxConversations = 200
	}
	return &ConversationBuffer{
		maxConversations: maxConversations,
		entries:          make(map[string]*list.Element),
		lru:              list.New(),
	}
}

// touch moves (or inserts) conversationID's lru element to the front,
// evicting the back element if this insert exceeds capacity.
func (b *ConversationBuffer) touch(conversationID string) *conversationEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if elem, ok := b.entries[conversationID]; ok {
		b.lru.MoveToFront(elem)
		return elem.Value.(*lruItem).entry
	}

	entry := &conversationEntry{}
	elem := b.lru.PushFront(&lruItem{conversationID: conversationID, entry: entry})
	b.entries[conversationID] = elem

	if b.lru.Len() > b.maxConversations {
		oldest := b.lru.Back()
		if oldest != nil {
			b.lru.Remove(oldest)
			delete(b.entries, oldest.Value.(*lruItem).conversationID)
		}
	}
	return entry
}

func (b *ConversationBuffer) Append(ctx context.Context, conversationID string, msg *models.Message) error {
	if conversationID == "" {
		return domain.NewError(domain.KindInvalidArgument, "conversation id is required", nil)
	}
	entry := b.touch(conversationID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.messages = append(entry.messages, msg)
	return nil
}

func (b *ConversationBuffer) Recent(ctx context.Context, conversationID string, k int) ([]*models.Message, error) {
	entry := b.touch(conversationID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if k <= 0 || k >= len(entry.messages) {
		out := make([]*models.Message, len(entry.messages))
		copy(out, entry.messages)
		return out, nil
	}
	start := len(entry.messages) - k
	out := make([]*models.Message, k)
	copy(out, entry.messages[start:])
	return out, nil
}

func (b *ConversationBuffer) All(ctx context.Context, conversationID string) ([]*models.Message, error) {
	return b.Recent(ctx, conversationID, 0)
}

func (b *ConversationBuffer) Clear(ctx context.Context, conversationID string) error {
	entry := b.touch(conversationID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.messages = nil
	return nil
}

// TrimToRounds drops the oldest non-system messages until at most
// maxRounds*2 non-system messages remain, always keeping system-role
// messages (spec §4.1).
func (b *ConversationBuffer) TrimToRounds(ctx context.Context, conversationID string, maxRounds int) error {
	if maxRounds <= 0 {
		return nil
	}
	entry := b.touch(conversationID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	maxNonSystem := maxRounds * 2
	nonSystemCount := 0
	for _, m := range entry.messages {
		if m.Sender != models.ParticipantSystem {
			nonSystemCount++
		}
	}
	if nonSystemCount <= maxNonSystem {
		return nil
	}

	toDrop := nonSystemCount - maxNonSystem
	kept := entry.messages[:0]
	for _, m := range entry.messages {
		if m.Sender != models.ParticipantSystem && toDrop > 0 {
			toDrop--
			continue
		}
		kept = append(kept, m)
	}
	entry.messages = kept
	return nil
}
