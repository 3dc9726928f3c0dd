package models

import "time"

// MemoryItem is one entry in the long-term similarity store (spec §4.1).
type MemoryItem struct {
	ID           string
	Payload      string
	Tags         map[string]string
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int
	Embedding    []float32
}

func NewMemoryItem(id, payload string, tags map[string]string, now time.Time) *MemoryItem {
	if tags == nil {
		tags = map[string]string{}
	}
	return &MemoryItem{
		ID:           id,
		Payload:      payload,
		Tags:         tags,
		CreatedAt:    now,
		LastAccessed: now,
		AccessCount:  0,
	}
}

// Accessed bumps the access counter and timestamp. The counter is
// non-decreasing (spec §3 invariant).
func (m *MemoryItem) Accessed(now time.Time) {
	m.AccessCount++
	if now.After(m.LastAccessed) {
		m.LastAccessed = now
	}
}

// Importance is the eviction score α·access_count + β·recency, α=0.7,
// β=0.3 (spec §4.1). Recency is normalized to [0,1] against `horizon`,
// the longest time since last access among the items currently held.
func (m *MemoryItem) Importance(now time.Time, horizon time.Duration) float64 {
	const alpha, beta = 0.7, 0.3
	recency := 0.0
	if horizon > 0 {
		age := now.Sub(m.LastAccessed)
		recency = 1.0 - float64(age)/float64(horizon)
		if recency < 0 {
			recency = 0
		}
		if recency > 1 {
			recency = 1
		}
	}
	return alpha*float64(m.AccessCount) + beta*recency
}
