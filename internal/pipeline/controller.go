// Package pipeline drives records through the query, lead and booking stages:
// inline edits, promotion forms, booking submission and remark logs.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"travelcrm/internal/crm"
	"travelcrm/internal/logger"
	"travelcrm/internal/metrics"
	"travelcrm/internal/mirror"
	"travelcrm/internal/storage"
)

// Controller owns the active record and performs every store write the UI asks for.
// Multi-step writes run in order and stop at the first failure; nothing is rolled back.
type Controller struct {
	store   storage.Store
	mirror  *mirror.Mirror
	log     logger.Logger
	metrics *metrics.Metrics

	now        func() time.Time
	agentEmail string

	editor Editor

	mu     sync.Mutex
	active crm.ActiveRecord
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock used for remarks, drafts and query ids.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithAgentEmail sets the agent pre-filled on new queries.
func WithAgentEmail(email string) Option {
	return func(c *Controller) { c.agentEmail = email }
}

// NewController creates a controller writing to store and reading from mir.
func NewController(store storage.Store, mir *mirror.Mirror, log logger.Logger, m *metrics.Metrics, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		mirror:  mir,
		log:     log.With("component", "pipeline"),
		metrics: m,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAgentEmail changes the agent pre-filled on new queries.
func (c *Controller) SetAgentEmail(email string) {
	c.mu.Lock()
	c.agentEmail = email
	c.mu.Unlock()
}

func (c *Controller) agent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agentEmail
}

// Editor returns the single inline editor.
func (c *Controller) Editor() *Editor {
	return &c.editor
}

// Active returns the record the open form or modal targets.
func (c *Controller) Active() crm.ActiveRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Controller) setActive(coll crm.Collection, id string) {
	c.mu.Lock()
	c.active = crm.ActiveRecord{Type: coll, ID: id}
	c.mu.Unlock()
}

func (c *Controller) activeOf(coll crm.Collection) (string, error) {
	a := c.Active()
	if a.IsZero() || a.Type != coll {
		return "", crm.ErrNoActiveRecord
	}
	return a.ID, nil
}

// CommitEdit commits the open editor with value, writes the field, and returns the
// lifecycle transition the write triggers. The transition is reported only after
// the write succeeded.
func (c *Controller) CommitEdit(ctx context.Context, value string) (crm.Transition, error) {
	edit, changed, err := c.editor.Commit(value)
	if err != nil || !changed {
		return crm.TransitionNone, err
	}
	return c.ApplyEdit(ctx, edit)
}

// ApplyEdit writes an edit already committed by the editor.
func (c *Controller) ApplyEdit(ctx context.Context, edit Edit) (crm.Transition, error) {
	t := edit.Target
	if err := c.update(ctx, t.Collection, t.ID, storage.Fields{t.Field: edit.Value}); err != nil {
		return crm.TransitionNone, c.fail("commit_edit", fmt.Errorf("update %s.%s: %w", t.Collection, t.Field, err))
	}
	tr := crm.TransitionFor(t.Collection, t.Field, edit.Value)
	if tr != crm.TransitionNone {
		c.log.Info("stage transition triggered", "collection", t.Collection, "id", t.ID, "transition", tr.String())
	}
	return tr, nil
}

func (c *Controller) create(ctx context.Context, coll crm.Collection, fields storage.Fields) (string, error) {
	if c.store == nil {
		return "", crm.ErrNoStore
	}
	id, err := c.store.Create(ctx, coll, fields)
	if err != nil {
		return "", err
	}
	if c.metrics != nil {
		c.metrics.StoreWrites.WithLabelValues(string(coll), "create").Inc()
	}
	c.log.Debug("document created", "collection", coll, "id", id)
	return id, nil
}

func (c *Controller) update(ctx context.Context, coll crm.Collection, id string, fields storage.Fields) error {
	if c.store == nil {
		return crm.ErrNoStore
	}
	if err := c.store.Update(ctx, coll, id, fields); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.StoreWrites.WithLabelValues(string(coll), "update").Inc()
	}
	c.log.Debug("document updated", "collection", coll, "id", id)
	return nil
}

func (c *Controller) fail(op string, err error) error {
	c.log.Error("write failed", "operation", op, "error", err)
	if c.metrics != nil {
		c.metrics.ErrorsCount.WithLabelValues(op).Inc()
	}
	return err
}

func (c *Controller) transitioned(tr crm.Transition) {
	if c.metrics != nil {
		c.metrics.Transitions.WithLabelValues(tr.String()).Inc()
	}
}
