package pipeline

import (
	"context"
	"fmt"
	"strings"

	"travelcrm/internal/crm"
	"travelcrm/internal/storage"
)

// OpenComments selects a query or lead and returns its label and remarks, newest first.
func (c *Controller) OpenComments(coll crm.Collection, id string) (string, []crm.Remark, error) {
	remarks, label, err := c.mirror.Remarks(crm.ActiveRecord{Type: coll, ID: id})
	if err != nil {
		return "", nil, fmt.Errorf("open comments %s/%s: %w", coll, id, err)
	}
	c.setActive(coll, id)
	return label, crm.NewestFirst(remarks), nil
}

// AddComment appends text to the active record's remarks and rewrites the whole list.
// Blank text is ignored and reports false.
func (c *Controller) AddComment(ctx context.Context, text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}
	active := c.Active()
	if active.IsZero() {
		return false, crm.ErrNoActiveRecord
	}
	remarks, _, err := c.mirror.Remarks(active)
	if err != nil {
		return false, fmt.Errorf("add comment %s/%s: %w", active.Type, active.ID, err)
	}

	next := crm.AppendRemark(remarks, crm.Remark{Text: text, Timestamp: c.now().UTC()})
	if err := c.update(ctx, active.Type, active.ID, storage.Fields{crm.FieldRemarks: next}); err != nil {
		return false, c.fail("add_comment", fmt.Errorf("write remarks %s/%s: %w", active.Type, active.ID, err))
	}
	return true, nil
}
