// Package messagestore journals every inbound message with its
// classification and the reply the bot sent for it.
package messagestore

import (
	"context"
	"sync"
	"time"

	"assistantbot/internal/messagestore/models"
)

type Journal interface {
	RecordInbound(ctx context.Context, userID int64, source, text string) (int64, error)
	RecordOutcome(ctx context.Context, inboundID int64, classification, status, reply string) error
	History(ctx context.Context, userID int64, limit int) ([]models.HistoryItem, error)
}

// Memory is a process-local Journal.
type Memory struct {
	mu      sync.Mutex
	items   []models.InboundItem
	replies []models.BotReply
}

func NewMemory() *Memory {
	return &Memory{}
}

var _ Journal = (*Memory)(nil)

func (m *Memory) RecordInbound(_ context.Context, userID int64, source, text string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := int64(len(m.items) + 1)
	m.items = append(m.items, models.InboundItem{
		ID:         id,
		UserID:     userID,
		SourceType: source,
		RawText:    text,
		CreatedAt:  time.Now(),
	})
	return id, nil
}

func (m *Memory) RecordOutcome(_ context.Context, inboundID int64, classification, status, reply string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inboundID < 1 || inboundID > int64(len(m.items)) {
		return nil
	}
	item := &m.items[inboundID-1]
	item.Classification, item.Status = classification, status
	if reply != "" {
		m.replies = append(m.replies, models.BotReply{
			ID:            int64(len(m.replies) + 1),
			InboundItemID: inboundID,
			ReplyText:     reply,
			CreatedAt:     time.Now(),
		})
	}
	return nil
}

func (m *Memory) History(_ context.Context, userID int64, limit int) ([]models.HistoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var history []models.HistoryItem
	for _, it := range m.items {
		if it.UserID != userID {
			continue
		}
		history = append(history, models.HistoryItem{Role: "user", Content: it.RawText, CreatedAt: it.CreatedAt})
		for _, r := range m.replies {
			if r.InboundItemID == it.ID {
				history = append(history, models.HistoryItem{Role: "assistant", Content: r.ReplyText, CreatedAt: r.CreatedAt})
			}
		}
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

// Items returns a copy of the journal for userID.
func (m *Memory) Items(userID int64) []models.InboundItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []models.InboundItem
	for _, it := range m.items {
		if it.UserID == userID {
			items = append(items, it)
		}
	}
	return items
}
