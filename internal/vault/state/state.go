package state

import (
	"context"
	"encoding/json"
	"sync"

	"portfoliovault/internal/vault/model"
	"portfoliovault/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Collection names a vault collection in change notifications.
type Collection string

const (
	Documents Collection = "documents"
	Writings  Collection = "writings"
)

// Manager is the in-memory authoritative copy of the vault. Every mutation
// rewrites the whole affected collection to the store; a failed write is
// logged and the in-memory state stays as it is.
type Manager struct {
	mu        sync.Mutex
	store     store.Store
	log       *zap.SugaredLogger
	newID     func() string
	documents []model.Document
	writings  []model.Writing

	obsMu     sync.RWMutex
	observers []func(Collection)
}

// Load reads both collections once. Missing keys give empty collections and
// unreadable data is logged and treated as empty.
func Load(ctx context.Context, st store.Store, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := &Manager{
		store:     st,
		log:       log,
		newID:     func() string { return uuid.NewString() },
		documents: []model.Document{},
		writings:  []model.Writing{},
	}
	loadInto(ctx, m, store.DocumentsKey, &m.documents)
	loadInto(ctx, m, store.WritingsKey, &m.writings)
	m.log.Infof("Vault loaded: documents=%d writings=%d", len(m.documents), len(m.writings))
	return m
}

func loadInto[T any](ctx context.Context, m *Manager, key string, dst *[]T) {
	text, ok, err := m.store.Load(ctx, key)
	if err != nil {
		m.log.Errorf("Failed to load %s from store: %v", key, err)
		return
	}
	if !ok || text == "" {
		return
	}
	var items []T
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		m.log.Errorf("Failed to decode %s, starting empty: %v", key, err)
		return
	}
	if items != nil {
		*dst = items
	}
}

// Subscribe registers fn to be called after every mutation with the
// collection that changed. fn runs outside the manager's lock.
func (m *Manager) Subscribe(fn func(Collection)) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Manager) notify(c Collection) {
	m.obsMu.RLock()
	observers := append([]func(Collection){}, m.observers...)
	m.obsMu.RUnlock()
	for _, fn := range observers {
		fn(c)
	}
}

// persist must be called with m.mu held. The save outlives a cancelled
// request so memory and store do not drift apart.
func (m *Manager) persist(ctx context.Context, key string, items any) {
	b, err := json.Marshal(items)
	if err != nil {
		m.log.Errorf("Failed to encode %s: %v", key, err)
		return
	}
	if err := m.store.Save(context.WithoutCancel(ctx), key, string(b)); err != nil {
		m.log.Errorf("Failed to save %s to store: %v", key, err)
	}
}

// Documents returns a copy of the documents in insertion order.
func (m *Manager) Documents() []model.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Document{}, m.documents...)
}

func (m *Manager) Document(id string) (model.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOf(m.documents, func(d model.Document) bool { return d.ID == id })
	if i < 0 {
		return model.Document{}, false
	}
	return m.documents[i], true
}

// AddDocument assigns a fresh id, appends the document and persists.
func (m *Manager) AddDocument(ctx context.Context, in model.DocumentInput) model.Document {
	m.mu.Lock()
	doc := model.Document{ID: m.newID(), Name: in.Name, DataURL: in.DataURL}
	m.documents = append(m.documents, doc)
	m.persist(ctx, store.DocumentsKey, m.documents)
	m.mu.Unlock()

	m.notify(Documents)
	return doc
}

// UpdateDocument replaces the entry with doc.ID. An unknown id changes
// nothing; the collection is still persisted. The result only reports
// whether an entry matched.
func (m *Manager) UpdateDocument(ctx context.Context, doc model.Document) bool {
	m.mu.Lock()
	i := indexOf(m.documents, func(d model.Document) bool { return d.ID == doc.ID })
	if i >= 0 {
		m.documents[i] = doc
	}
	m.persist(ctx, store.DocumentsKey, m.documents)
	m.mu.Unlock()

	m.notify(Documents)
	return i >= 0
}

func (m *Manager) DeleteDocument(ctx context.Context, id string) bool {
	m.mu.Lock()
	var removed bool
	m.documents, removed = without(m.documents, func(d model.Document) bool { return d.ID == id })
	m.persist(ctx, store.DocumentsKey, m.documents)
	m.mu.Unlock()

	m.notify(Documents)
	return removed
}

// Writings returns every writing, private ones included. Callers without
// admin rights should use VisibleWritings.
func (m *Manager) Writings() []model.Writing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Writing{}, m.writings...)
}

// VisibleWritings returns all writings for admins and only the public ones
// otherwise.
func (m *Manager) VisibleWritings(admin bool) []model.Writing {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Writing, 0, len(m.writings))
	for _, w := range m.writings {
		if admin || w.IsPublic {
			out = append(out, w)
		}
	}
	return out
}

// VisibleWriting looks up one writing; private writings are reported as
// missing to non-admins.
func (m *Manager) VisibleWriting(id string, admin bool) (model.Writing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOf(m.writings, func(w model.Writing) bool { return w.ID == id })
	if i < 0 || !(admin || m.writings[i].IsPublic) {
		return model.Writing{}, false
	}
	return m.writings[i], true
}

func (m *Manager) AddWriting(ctx context.Context, in model.WritingInput) model.Writing {
	m.mu.Lock()
	w := model.Writing{ID: m.newID(), Title: in.Title, Content: in.Content, IsPublic: in.IsPublic}
	m.writings = append(m.writings, w)
	m.persist(ctx, store.WritingsKey, m.writings)
	m.mu.Unlock()

	m.notify(Writings)
	return w
}

func (m *Manager) UpdateWriting(ctx context.Context, w model.Writing) bool {
	m.mu.Lock()
	i := indexOf(m.writings, func(x model.Writing) bool { return x.ID == w.ID })
	if i >= 0 {
		m.writings[i] = w
	}
	m.persist(ctx, store.WritingsKey, m.writings)
	m.mu.Unlock()

	m.notify(Writings)
	return i >= 0
}

func (m *Manager) DeleteWriting(ctx context.Context, id string) bool {
	m.mu.Lock()
	var removed bool
	m.writings, removed = without(m.writings, func(w model.Writing) bool { return w.ID == id })
	m.persist(ctx, store.WritingsKey, m.writings)
	m.mu.Unlock()

	m.notify(Writings)
	return removed
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, it := range items {
		if match(it) {
			return i
		}
	}
	return -1
}

// without returns a new slice so copies handed out by readers stay intact.
func without[T any](items []T, match func(T) bool) ([]T, bool) {
	out := make([]T, 0, len(items))
	removed := false
	for _, it := range items {
		if match(it) {
			removed = true
			continue
		}
		out = append(out, it)
	}
	return out, removed
}
