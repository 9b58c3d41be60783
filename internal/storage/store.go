package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"travelcrm/internal/crm"
)

// Store is the document database the CRM delegates persistence and fan-out to.
type Store interface {
	// Create inserts a document and returns its store-generated id.
	Create(ctx context.Context, coll crm.Collection, fields Fields) (string, error)
	// Update sets the named fields on an existing document.
	Update(ctx context.Context, coll crm.Collection, id string, fields Fields) error
	// Subscribe delivers the ordered collection once, then again after every change,
	// until ctx is cancelled. It returns once the first snapshot has been delivered.
	Subscribe(ctx context.Context, coll crm.Collection, order Order, push func(Snapshot)) error
	Close(ctx context.Context) error
}

// Fields is a set of named document values.
type Fields map[string]any

type serverTimestamp struct{}

// ServerTimestamp is replaced by the store's clock when written.
var ServerTimestamp = serverTimestamp{}

// stamped returns a copy of f with every ServerTimestamp replaced by stamp.
func (f Fields) stamped(stamp any) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = stamp
			continue
		}
		out[k] = v
	}
	return out
}

// Order names the field a subscription is sorted by.
type Order struct {
	Field string
	Desc  bool
}

// Snapshot is the full ordered content of a collection at one point in time.
type Snapshot struct {
	Collection crm.Collection
	Docs       []Document
}

// Document is one stored record.
type Document struct {
	ID     string
	decode func(v any) error
}

// NewDocument wraps a decoder for the document with the given id.
func NewDocument(id string, decode func(v any) error) Document {
	return Document{ID: id, decode: decode}
}

// JSONDocument wraps a JSON-encoded document body.
func JSONDocument(id string, body []byte) Document {
	return Document{ID: id, decode: func(v any) error { return json.Unmarshal(body, v) }}
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	if d.decode == nil {
		return fmt.Errorf("decode document %s: empty body", d.ID)
	}
	if err := d.decode(v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// clock is swapped in tests.
var clock = func() time.Time { return time.Now().UTC() }
