package pipeline

import (
	"strings"
	"sync"

	"travelcrm/internal/crm"
)

// EditTarget is the table cell an inline editor is attached to.
type EditTarget struct {
	Collection crm.Collection
	ID         string
	Field      string
	Original   string
}

// Edit is a committed editor value that still has to be written.
type Edit struct {
	Target EditTarget
	Value  string
}

// Editor tracks the single inline editor allowed at any time.
type Editor struct {
	mu     sync.Mutex
	open   bool
	target EditTarget
}

// Open attaches the editor to target. It fails with crm.ErrEditorOpen while
// another editor is open, and with a validation error for read-only columns.
func (e *Editor) Open(target EditTarget) error {
	if !crm.Editable(target.Collection, target.Field) {
		return crm.NewValidationError(target.Field, "column is not editable")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open {
		return crm.ErrEditorOpen
	}
	e.open = true
	e.target = target
	return nil
}

// IsOpen reports whether an editor is open.
func (e *Editor) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// Target returns the open editor's cell.
func (e *Editor) Target() (EditTarget, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target, e.open
}

// Options returns the stage choices for a stage editor, nil for a date editor.
func (e *Editor) Options() []crm.Stage {
	t, ok := e.Target()
	if !ok || t.Field != crm.FieldLeadStage {
		return nil
	}
	return crm.StageOptions(t.Collection)
}

// Cancel closes the editor without writing.
func (e *Editor) Cancel() {
	e.mu.Lock()
	e.open = false
	e.target = EditTarget{}
	e.mu.Unlock()
}

// Commit validates value and closes the editor. It reports false when the value
// is unchanged, in which case nothing has to be written. A validation error
// leaves the editor open. A blank follow-up date clears the field.
func (e *Editor) Commit(value string) (Edit, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return Edit{}, false, crm.ErrNoActiveRecord
	}
	t := e.target
	value = strings.TrimSpace(value)
	if value == t.Original {
		e.open = false
		e.target = EditTarget{}
		return Edit{}, false, nil
	}

	switch t.Field {
	case crm.FieldFollowUpDate:
		if value == "" {
			break
		}
		if _, err := crm.ParseDate(value); err != nil {
			return Edit{}, false, crm.NewValidationError(t.Field, "use format YYYY-MM-DD")
		}
	case crm.FieldLeadStage:
		if !crm.ValidStage(t.Collection, crm.Stage(value)) {
			return Edit{}, false, crm.NewValidationError(t.Field, "unknown stage "+value)
		}
	}

	e.open = false
	e.target = EditTarget{}
	return Edit{Target: t, Value: value}, true, nil
}
