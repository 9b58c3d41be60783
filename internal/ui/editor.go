package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"travelcrm/internal/crm"
	"travelcrm/internal/pipeline"
	"travelcrm/internal/view"
)

// inlineEditor is the control drawn over a follow-up or stage cell.
type inlineEditor struct {
	target  pipeline.EditTarget
	options []crm.Stage
	choice  int
	input   textinput.Model
}

func (e *inlineEditor) value() string {
	if e.options != nil {
		return string(e.options[e.choice])
	}
	return e.input.Value()
}

func (m *model) openEditor(p *tablePage, field string) tea.Cmd {
	id := p.selectedID()
	if id == "" {
		return nil
	}
	target := pipeline.EditTarget{Collection: p.coll, ID: id, Field: field, Original: p.cell(field)}
	if err := m.ctrl.Editor().Open(target); err != nil {
		if !errors.Is(err, crm.ErrEditorOpen) {
			m.errMessage = err.Error()
		}
		return nil
	}

	ed := &inlineEditor{target: target, options: m.ctrl.Editor().Options()}
	var cmd tea.Cmd
	if ed.options != nil {
		for i, opt := range ed.options {
			if string(opt) == target.Original {
				ed.choice = i
			}
		}
	} else {
		ed.input = textinput.New()
		ed.input.Prompt = ""
		ed.input.Placeholder = "YYYY-MM-DD"
		ed.input.CharLimit = 10
		ed.input.SetValue(target.Original)
		cmd = ed.input.Focus()
	}
	m.editor = ed
	m.markEditor()
	return cmd
}

// markEditor shows the editor's pending value in its table cell.
func (m *model) markEditor() {
	for _, p := range []*tablePage{m.queries, m.leads, m.bookings} {
		rows := p.rows
		if m.editor != nil && m.editor.target.Collection == p.coll {
			col := view.ColumnIndex(p.coll, m.editor.target.Field)
			rows = make([]table.Row, len(p.rows))
			for i, r := range p.rows {
				rows[i] = r
				if p.ids[i] == m.editor.target.ID && col >= 0 {
					marked := append(table.Row(nil), r...)
					marked[col] = "✎ " + m.editor.value()
					rows[i] = marked
				}
			}
		}
		p.table.SetRows(rows)
	}
}

// updateEditor handles a key while the editor is open. Keys that move focus away
// from the cell commit first and are reported as not consumed. Every other key
// stays with the editor.
func (m *model) updateEditor(key tea.KeyMsg) (tea.Cmd, bool) {
	ed := m.editor
	switch key.String() {
	case "enter":
		return m.commitEditor(), true
	case "esc":
		m.cancelEditor()
		return nil, true
	case "up", "down", "tab", "shift+tab":
		cmd := m.commitEditor()
		return cmd, m.editor != nil
	}

	if ed.options != nil {
		switch key.String() {
		case "left":
			ed.choice = (ed.choice + len(ed.options) - 1) % len(ed.options)
		case "right", " ":
			ed.choice = (ed.choice + 1) % len(ed.options)
		default:
			return nil, true
		}
		m.markEditor()
		return nil, true
	}

	var cmd tea.Cmd
	ed.input, cmd = ed.input.Update(key)
	m.markEditor()
	return cmd, true
}

func (m *model) commitEditor() tea.Cmd {
	if m.editor == nil {
		return nil
	}
	edit, changed, err := m.ctrl.Editor().Commit(m.editor.value())
	if err != nil {
		m.errMessage = err.Error()
		if errors.Is(err, crm.ErrValidation) {
			return nil
		}
	}
	coll := m.editor.target.Collection
	m.editor = nil
	m.refresh(coll)
	if err != nil || !changed {
		return nil
	}
	m.infoMessage = "Saving..."
	return applyEditCmd(m.ctx, m.ctrl, edit)
}

func (m *model) cancelEditor() {
	if m.editor == nil {
		return
	}
	coll := m.editor.target.Collection
	m.ctrl.Editor().Cancel()
	m.editor = nil
	m.refresh(coll)
}

// handleEditApplied opens the promotion or booking form when the write triggered one.
func (m *model) handleEditApplied(msg editAppliedMsg) tea.Cmd {
	if msg.err != nil {
		m.infoMessage = ""
		m.errMessage = fmt.Sprintf("Save failed: %v", msg.err)
		return nil
	}
	m.infoMessage = "Saved"
	switch msg.transition {
	case crm.TransitionPromoteLead:
		return m.openLeadForm(msg.edit.Target.ID)
	case crm.TransitionCreateBooking:
		return m.openBooking(msg.edit.Target.ID)
	}
	return nil
}

func (m *model) viewEditor() string {
	ed := m.editor
	label := "Follow up"
	if ed.target.Field == crm.FieldLeadStage {
		label = "Stage"
	}
	var body string
	if ed.options != nil {
		parts := ""
		for i, opt := range ed.options {
			if i > 0 {
				parts += "  "
			}
			if i == ed.choice {
				parts += m.theme.Highlight.Render("[" + string(opt) + "]")
			} else {
				parts += m.theme.Secondary.Render(string(opt))
			}
		}
		body = parts
	} else {
		body = ed.input.View()
	}
	help := m.renderHelp([][2]string{{"enter", "Save"}, {"esc", "Cancel"}})
	if ed.options != nil {
		help = m.renderHelp([][2]string{{"←/→", "Choose"}, {"enter", "Save"}, {"esc", "Cancel"}})
	}
	return m.theme.Editor.Render(m.theme.Subtitle.Render(label+": ")+body) + "\n" + help
}
