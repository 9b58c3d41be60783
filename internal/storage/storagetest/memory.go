// Package storagetest provides an in-memory storage.Store for tests.
package storagetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"travelcrm/internal/crm"
	"travelcrm/internal/storage"
)

// Call records one write made against the store.
type Call struct {
	Op         string
	Collection crm.Collection
	ID         string
	Fields     storage.Fields
}

type doc struct {
	id     string
	seq    int
	fields storage.Fields
}

type sub struct {
	order storage.Order
	push  func(storage.Snapshot)
}

// MemoryStore delivers snapshots synchronously from the writing goroutine.
type MemoryStore struct {
	mu    sync.Mutex
	docs  map[crm.Collection][]*doc
	subs  map[crm.Collection][]sub
	calls []Call
	seq   int

	// Now stamps storage.ServerTimestamp values.
	Now func() time.Time
	// CreateErr and UpdateErr, when set, fail the matching writes.
	CreateErr func(coll crm.Collection) error
	UpdateErr func(coll crm.Collection, id string) error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[crm.Collection][]*doc),
		subs: make(map[crm.Collection][]sub),
		Now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) stamp(fields storage.Fields) storage.Fields {
	out := make(storage.Fields, len(fields))
	for k, v := range fields {
		if v == storage.ServerTimestamp {
			out[k] = s.Now()
			continue
		}
		out[k] = v
	}
	return out
}

// Create implements storage.Store.
func (s *MemoryStore) Create(ctx context.Context, coll crm.Collection, fields storage.Fields) (string, error) {
	if s.CreateErr != nil {
		if err := s.CreateErr(coll); err != nil {
			return "", err
		}
	}
	s.mu.Lock()
	s.seq++
	id := fmt.Sprintf("%s-%d", coll, s.seq)
	s.docs[coll] = append(s.docs[coll], &doc{id: id, seq: s.seq, fields: s.stamp(fields)})
	s.calls = append(s.calls, Call{Op: "create", Collection: coll, ID: id, Fields: fields})
	s.mu.Unlock()
	s.publish(coll)
	return id, nil
}

// Update implements storage.Store.
func (s *MemoryStore) Update(ctx context.Context, coll crm.Collection, id string, fields storage.Fields) error {
	if s.UpdateErr != nil {
		if err := s.UpdateErr(coll, id); err != nil {
			return err
		}
	}
	s.mu.Lock()
	var target *doc
	for _, d := range s.docs[coll] {
		if d.id == id {
			target = d
		}
	}
	if target == nil {
		s.mu.Unlock()
		return crm.ErrNotFound
	}
	for k, v := range s.stamp(fields) {
		target.fields[k] = v
	}
	s.calls = append(s.calls, Call{Op: "update", Collection: coll, ID: id, Fields: fields})
	s.mu.Unlock()
	s.publish(coll)
	return nil
}

// Subscribe implements storage.Store.
func (s *MemoryStore) Subscribe(ctx context.Context, coll crm.Collection, order storage.Order, push func(storage.Snapshot)) error {
	s.mu.Lock()
	s.subs[coll] = append(s.subs[coll], sub{order: order, push: push})
	snap := s.snapshotLocked(coll, order)
	s.mu.Unlock()
	push(snap)
	return nil
}

// Close implements storage.Store.
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// Seed inserts a document without recording a call, for test setup.
func (s *MemoryStore) Seed(coll crm.Collection, id string, record any) {
	raw, err := json.Marshal(record)
	if err != nil {
		panic(err)
	}
	fields := storage.Fields{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		panic(err)
	}
	s.mu.Lock()
	s.seq++
	s.docs[coll] = append(s.docs[coll], &doc{id: id, seq: s.seq, fields: fields})
	s.mu.Unlock()
	s.publish(coll)
}

// Calls returns the recorded writes in order.
func (s *MemoryStore) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Fields returns a copy of a stored document.
func (s *MemoryStore) Fields(coll crm.Collection, id string) (storage.Fields, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs[coll] {
		if d.id == id {
			out := make(storage.Fields, len(d.fields))
			for k, v := range d.fields {
				out[k] = v
			}
			return out, true
		}
	}
	return nil, false
}

// Count returns the number of documents in coll.
func (s *MemoryStore) Count(coll crm.Collection) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[coll])
}

func (s *MemoryStore) publish(coll crm.Collection) {
	s.mu.Lock()
	subs := append([]sub(nil), s.subs[coll]...)
	snaps := make([]storage.Snapshot, len(subs))
	for i, sb := range subs {
		snaps[i] = s.snapshotLocked(coll, sb.order)
	}
	s.mu.Unlock()
	for i, sb := range subs {
		sb.push(snaps[i])
	}
}

func (s *MemoryStore) snapshotLocked(coll crm.Collection, order storage.Order) storage.Snapshot {
	docs := append([]*doc(nil), s.docs[coll]...)
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if order.Desc {
			a, b = b, a
		}
		return lessValue(a.fields[order.Field], b.fields[order.Field], a.seq, b.seq)
	})
	snap := storage.Snapshot{Collection: coll, Docs: make([]storage.Document, 0, len(docs))}
	for _, d := range docs {
		body, err := json.Marshal(d.fields)
		if err != nil {
			panic(err)
		}
		snap.Docs = append(snap.Docs, storage.JSONDocument(d.id, body))
	}
	return snap
}

func lessValue(a, b any, seqA, seqB int) bool {
	ta, okA := asTime(a)
	tb, okB := asTime(b)
	if okA && okB && !ta.Equal(tb) {
		return ta.Before(tb)
	}
	return seqA < seqB
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}
