package mirror

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelcrm/internal/crm"
	"travelcrm/internal/logger"
	"travelcrm/internal/metrics"
	"travelcrm/internal/storage"
	"travelcrm/internal/storage/storagetest"
)

func TestStart_NilStoreAborts(t *testing.T) {
	m := New(logger.Nop(), nil)
	err := m.Start(context.Background(), nil, 0)
	assert.ErrorIs(t, err, crm.ErrNoStore)
	assert.Empty(t, m.Queries())
}

func TestStart_WaitsForDelayAndHonoursCancel(t *testing.T) {
	m := New(logger.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Start(ctx, storagetest.NewMemoryStore(), time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStart_LoadsAndFollowsAllCollections(t *testing.T) {
	store := storagetest.NewMemoryStore()
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store.Seed(crm.Queries, "q-old", crm.Query{QueryID: "Q1", Timestamp: t0})
	store.Seed(crm.Queries, "q-new", crm.Query{QueryID: "Q2", Timestamp: t0.Add(time.Hour)})
	store.Seed(crm.Bookings, "b1", crm.Booking{FolderNo: "F1", BookingDate: t0})

	met := metrics.New("test")
	m := New(logger.Nop(), met)

	var mu sync.Mutex
	changed := map[crm.Collection]int{}
	m.OnChange(func(c crm.Collection) {
		mu.Lock()
		changed[c]++
		mu.Unlock()
	})

	require.NoError(t, m.Start(context.Background(), store, 0))

	qs := m.Queries()
	require.Len(t, qs, 2)
	assert.Equal(t, "q-new", qs[0].ID, "queries are newest first")
	assert.Equal(t, "q-old", qs[1].ID)
	assert.Len(t, m.Bookings(), 1)
	assert.Empty(t, m.Leads())

	_, err := store.Create(context.Background(), crm.Leads, storage.Fields{"queryId": "Q2", "timestamp": storage.ServerTimestamp})
	require.NoError(t, err)
	require.Len(t, m.Leads(), 1)
	assert.Equal(t, "Q2", m.Leads()[0].QueryID)

	mu.Lock()
	assert.Equal(t, 1, changed[crm.Queries])
	assert.Equal(t, 2, changed[crm.Leads])
	assert.Equal(t, 1, changed[crm.Bookings])
	mu.Unlock()
	assert.Equal(t, 2.0, testutil.ToFloat64(met.Snapshots.WithLabelValues("leads")))
}

func TestApply_ReplacesWholesale(t *testing.T) {
	m := New(logger.Nop(), nil)
	m.Apply(storage.Snapshot{Collection: crm.Queries, Docs: []storage.Document{
		storage.JSONDocument("a", []byte(`{"queryId":"Q1"}`)),
		storage.JSONDocument("b", []byte(`{"queryId":"Q2"}`)),
	}})
	require.Len(t, m.Queries(), 2)

	m.Apply(storage.Snapshot{Collection: crm.Queries, Docs: []storage.Document{
		storage.JSONDocument("b", []byte(`{"queryId":"Q2","leadStage":"Lost"}`)),
	}})
	qs := m.Queries()
	require.Len(t, qs, 1)
	assert.Equal(t, crm.StageLost, qs[0].LeadStage)

	_, err := m.Query("a")
	assert.ErrorIs(t, err, crm.ErrNotFound)
}

func TestApply_SkipsUndecodableDocuments(t *testing.T) {
	m := New(logger.Nop(), nil)
	m.Apply(storage.Snapshot{Collection: crm.Leads, Docs: []storage.Document{
		storage.JSONDocument("bad", []byte(`{"queryId":`)),
		storage.JSONDocument("good", []byte(`{"queryId":"Q7","productService":"Flights"}`)),
	}})
	ls := m.Leads()
	require.Len(t, ls, 1)
	assert.Equal(t, "good", ls[0].ID)
	assert.Equal(t, "Flights", ls[0].ProductService)
}

func TestAccessorsReturnCopies(t *testing.T) {
	m := New(logger.Nop(), nil)
	m.Apply(storage.Snapshot{Collection: crm.Bookings, Docs: []storage.Document{
		storage.JSONDocument("b1", []byte(`{"folderNo":"F1"}`)),
	}})
	bs := m.Bookings()
	bs[0].FolderNo = "changed"
	b, err := m.Booking("b1")
	require.NoError(t, err)
	assert.Equal(t, "F1", b.FolderNo)
}

func TestRemarks(t *testing.T) {
	m := New(logger.Nop(), nil)
	m.Apply(storage.Snapshot{Collection: crm.Queries, Docs: []storage.Document{
		storage.JSONDocument("q1", []byte(`{"queryId":"Q100","remarks":[{"text":"one","timestamp":"2024-01-01T00:00:00Z"}]}`)),
		storage.JSONDocument("q2", []byte(`{}`)),
	}})

	remarks, label, err := m.Remarks(crm.ActiveRecord{Type: crm.Queries, ID: "q1"})
	require.NoError(t, err)
	assert.Equal(t, "Q100", label)
	require.Len(t, remarks, 1)

	_, label, err = m.Remarks(crm.ActiveRecord{Type: crm.Queries, ID: "q2"})
	require.NoError(t, err)
	assert.Equal(t, "q2", label, "falls back to the document id")

	_, _, err = m.Remarks(crm.ActiveRecord{Type: crm.Bookings, ID: "x"})
	assert.ErrorIs(t, err, crm.ErrNotFound)
}
