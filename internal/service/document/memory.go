package document

import (
	"context"
	"sync"

	"github.com/zhouzirui/study-mentor/backend/internal/model/document"
)

// MemoryBackend keeps documents in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string]document.Document
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string]document.Document)}
}

func (m *MemoryBackend) Get(_ context.Context, owner string) (document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[owner]
	if !ok {
		return document.Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *MemoryBackend) Put(_ context.Context, doc document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs, doc.Owner)
	m.docs[doc.Owner] = doc
	return nil
}

func (m *MemoryBackend) SetText(_ context.Context, owner, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[owner]
	if !ok || doc.ID != id {
		return ErrNotFound
	}
	doc.Text = text
	doc.Extracted = true
	m.docs[owner] = doc
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs, owner)
	return nil
}

// Len returns the number of owners holding a document.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryBackend) Close() error {
	return nil
}
