package mirror

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"travelcrm/internal/crm"
	"travelcrm/internal/logger"
	"travelcrm/internal/metrics"
	"travelcrm/internal/storage"
)

// Orders used for each collection's subscription.
var Orders = map[crm.Collection]storage.Order{
	crm.Queries:  {Field: crm.FieldTimestamp, Desc: true},
	crm.Leads:    {Field: crm.FieldTimestamp, Desc: true},
	crm.Bookings: {Field: crm.FieldBookingDate, Desc: true},
}

// Mirror holds the last snapshot of each collection. It is never edited locally;
// every change arrives as a whole new snapshot from the store.
type Mirror struct {
	log     logger.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	queries  []crm.Query
	leads    []crm.Lead
	bookings []crm.Booking
	onChange func(crm.Collection)
}

// New creates an empty mirror.
func New(log logger.Logger, m *metrics.Metrics) *Mirror {
	return &Mirror{log: log.With("component", "mirror"), metrics: m}
}

// OnChange registers the callback invoked after a collection is replaced.
func (m *Mirror) OnChange(fn func(crm.Collection)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Start waits for delay, then subscribes to all three collections. It returns
// once every collection has delivered its first snapshot.
func (m *Mirror) Start(ctx context.Context, store storage.Store, delay time.Duration) error {
	if store == nil {
		m.log.Error("document store is not initialized")
		return crm.ErrNoStore
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	// subscriptions outlive the start-up group and follow ctx only
	var g errgroup.Group
	for _, coll := range []crm.Collection{crm.Queries, crm.Leads, crm.Bookings} {
		coll := coll
		g.Go(func() error {
			if err := store.Subscribe(ctx, coll, Orders[coll], m.Apply); err != nil {
				return fmt.Errorf("subscribe %s: %w", coll, err)
			}
			m.log.Info("subscribed", "collection", coll)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.log.Error("mirror setup failed", "error", err)
		return err
	}
	return nil
}

// Apply replaces the collection named by snap. Undecodable documents are logged and skipped.
func (m *Mirror) Apply(snap storage.Snapshot) {
	switch snap.Collection {
	case crm.Queries:
		records := decodeAll[crm.Query](m.log, snap, func(q *crm.Query, id string) { q.ID = id })
		m.mu.Lock()
		m.queries = records
	case crm.Leads:
		records := decodeAll[crm.Lead](m.log, snap, func(l *crm.Lead, id string) { l.ID = id })
		m.mu.Lock()
		m.leads = records
	case crm.Bookings:
		records := decodeAll[crm.Booking](m.log, snap, func(b *crm.Booking, id string) { b.ID = id })
		m.mu.Lock()
		m.bookings = records
	default:
		m.log.Warn("snapshot for unknown collection", "collection", snap.Collection)
		return
	}
	fn := m.onChange
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.Snapshots.WithLabelValues(string(snap.Collection)).Inc()
	}
	if fn != nil {
		fn(snap.Collection)
	}
}

func decodeAll[T any](log logger.Logger, snap storage.Snapshot, setID func(*T, string)) []T {
	out := make([]T, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		var rec T
		if err := doc.Decode(&rec); err != nil {
			log.Warn("skip document", "collection", snap.Collection, "id", doc.ID, "error", err)
			continue
		}
		setID(&rec, doc.ID)
		out = append(out, rec)
	}
	return out
}

// Queries returns a copy of the current query sequence.
func (m *Mirror) Queries() []crm.Query {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]crm.Query(nil), m.queries...)
}

// Leads returns a copy of the current lead sequence.
func (m *Mirror) Leads() []crm.Lead {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]crm.Lead(nil), m.leads...)
}

// Bookings returns a copy of the current booking sequence.
func (m *Mirror) Bookings() []crm.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]crm.Booking(nil), m.bookings...)
}

// Query finds a query by document id.
func (m *Mirror) Query(id string) (crm.Query, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, q := range m.queries {
		if q.ID == id {
			return q, nil
		}
	}
	return crm.Query{}, crm.ErrNotFound
}

// Lead finds a lead by document id.
func (m *Mirror) Lead(id string) (crm.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.leads {
		if l.ID == id {
			return l, nil
		}
	}
	return crm.Lead{}, crm.ErrNotFound
}

// Booking finds a booking by document id.
func (m *Mirror) Booking(id string) (crm.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return crm.Booking{}, crm.ErrNotFound
}

// Remarks returns the stored remarks of a query or lead.
func (m *Mirror) Remarks(rec crm.ActiveRecord) ([]crm.Remark, string, error) {
	switch rec.Type {
	case crm.Queries:
		q, err := m.Query(rec.ID)
		if err != nil {
			return nil, "", err
		}
		return q.Remarks, labelOr(q.QueryID, q.ID), nil
	case crm.Leads:
		l, err := m.Lead(rec.ID)
		if err != nil {
			return nil, "", err
		}
		return l.Remarks, labelOr(l.QueryID, l.ID), nil
	}
	return nil, "", crm.ErrNotFound
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}
