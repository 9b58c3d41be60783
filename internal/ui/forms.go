package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"travelcrm/internal/crm"
	"travelcrm/internal/view"
)

type formAction int

const (
	formNone formAction = iota
	formSubmit
	formCancel
)

type formField struct {
	key      string
	label    string
	input    textinput.Model
	readOnly bool
	options  []crm.Stage
	choice   int
}

type fieldForm struct {
	title   string
	fields  []formField
	index   int
	err     string
	pending bool
}

func textField(key, label, value string, limit int) formField {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = label
	ti.CharLimit = limit
	ti.SetValue(value)
	return formField{key: key, label: label, input: ti}
}

func readOnlyField(key, label, value string) formField {
	f := textField(key, label, value, 0)
	f.readOnly = true
	return f
}

func stageField(key, label string, options []crm.Stage, current crm.Stage) formField {
	f := formField{key: key, label: label, options: options}
	for i, opt := range options {
		if opt == current {
			f.choice = i
		}
	}
	return f
}

func (f formField) value() string {
	if f.options != nil {
		return string(f.options[f.choice])
	}
	return f.input.Value()
}

func newFieldForm(title string, fields []formField) (fieldForm, tea.Cmd) {
	form := fieldForm{title: title, fields: fields, index: -1}
	cmd := form.move(1)
	return form, cmd
}

func (f *fieldForm) value(key string) string {
	for _, field := range f.fields {
		if field.key == key {
			return field.value()
		}
	}
	return ""
}

// move focuses the next editable field in direction delta, wrapping around.
func (f *fieldForm) move(delta int) tea.Cmd {
	n := len(f.fields)
	if n == 0 {
		return nil
	}
	idx := f.index
	for i := 0; i < n; i++ {
		idx = (idx + delta + n) % n
		if !f.fields[idx].readOnly {
			break
		}
	}
	if f.index >= 0 && f.index < n {
		f.fields[f.index].input.Blur()
	}
	f.index = idx
	if f.fields[idx].options != nil {
		return nil
	}
	return f.fields[idx].input.Focus()
}

func (f *fieldForm) lastEditable() bool {
	for i := f.index + 1; i < len(f.fields); i++ {
		if !f.fields[i].readOnly {
			return false
		}
	}
	return true
}

func (f *fieldForm) update(msg tea.Msg) (tea.Cmd, formAction) {
	if f.pending {
		return nil, formNone
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, formNone
	}
	field := &f.fields[f.index]
	switch key.String() {
	case "esc":
		return nil, formCancel
	case "ctrl+s":
		return nil, formSubmit
	case "enter":
		if f.lastEditable() {
			return nil, formSubmit
		}
		return f.move(1), formNone
	case "tab", "down":
		return f.move(1), formNone
	case "shift+tab", "up":
		return f.move(-1), formNone
	}
	if field.options != nil {
		switch key.String() {
		case "left":
			field.choice = (field.choice + len(field.options) - 1) % len(field.options)
		case "right", " ":
			field.choice = (field.choice + 1) % len(field.options)
		}
		return nil, formNone
	}
	var cmd tea.Cmd
	field.input, cmd = field.input.Update(key)
	return cmd, formNone
}

func (m *model) viewForm(f fieldForm, hint string) string {
	lines := []string{
		m.theme.Title.Render(f.title),
		m.theme.Faint.Render(hint),
		"",
	}
	for i, field := range f.fields {
		label := fmt.Sprintf("%-16s", field.label+":")
		var value string
		switch {
		case field.options != nil:
			value = string(field.options[field.choice])
			if i == f.index {
				value = m.theme.Highlight.Render("< " + value + " >")
			} else {
				value = m.theme.Stage(field.options[field.choice]).Render(value)
			}
		case field.readOnly:
			value = m.theme.Faint.Render(field.input.Value())
		default:
			value = field.input.View()
		}
		if i == f.index {
			lines = append(lines, m.theme.Accent.Render("> ")+m.theme.Primary.Render(label)+value)
		} else {
			lines = append(lines, "  "+m.theme.Secondary.Render(label)+value)
		}
	}
	if f.pending {
		lines = append(lines, "", m.theme.Warning.Render("Saving..."))
	}
	if f.err != "" {
		lines = append(lines, "", m.theme.Danger.Render(f.err))
	}
	lines = append(lines, "", m.renderHelp([][2]string{{"tab", "Next"}, {"ctrl+s", "Save"}, {"esc", "Cancel"}}))
	return strings.Join(lines, "\n") + "\n"
}

// ADD QUERY
func (m *model) openQueryForm() tea.Cmd {
	d := m.ctrl.NewQueryDraft()
	m.queryDraft = d
	form, cmd := newFieldForm("Add Query", []formField{
		readOnlyField("timestamp", "Timestamp", view.FormatTime(d.Timestamp, m.cfg.Location())),
		readOnlyField("queryId", "Query ID", d.QueryID),
		textField("agentEmail", "Agent", d.AgentEmail, 96),
		textField("source", "Source", "", 64),
		textField("cxName", "Customer", "", 96),
		textField("contactNumber", "Contact", "", 32),
		textField("email", "Email", "", 96),
		textField(crm.FieldFollowUpDate, "Follow up", "", 10),
		stageField(crm.FieldLeadStage, "Stage", crm.StageOptions(crm.Queries), d.LeadStage),
		textField(crm.FieldRemarks, "Remarks", "", 256),
	})
	m.queryForm = form
	m.pushState(stateAddQuery)
	return cmd
}

func (m *model) updateQueryForm(msg tea.Msg) tea.Cmd {
	cmd, action := m.queryForm.update(msg)
	switch action {
	case formCancel:
		m.popState()
	case formSubmit:
		d := m.queryDraft
		d.AgentEmail = strings.TrimSpace(m.queryForm.value("agentEmail"))
		d.Source = strings.TrimSpace(m.queryForm.value("source"))
		d.CxName = strings.TrimSpace(m.queryForm.value("cxName"))
		d.ContactNumber = strings.TrimSpace(m.queryForm.value("contactNumber"))
		d.Email = strings.TrimSpace(m.queryForm.value("email"))
		d.FollowUpDate = strings.TrimSpace(m.queryForm.value(crm.FieldFollowUpDate))
		d.LeadStage = crm.Stage(m.queryForm.value(crm.FieldLeadStage))
		d.Remark = m.queryForm.value(crm.FieldRemarks)
		m.queryForm.err = ""
		m.queryForm.pending = true
		return createQueryCmd(m.ctx, m.ctrl, d)
	}
	return cmd
}

func (m *model) handleQueryCreated(msg queryCreatedMsg) tea.Cmd {
	m.queryForm.pending = false
	if msg.err != nil {
		m.queryForm.err = msg.err.Error()
		return nil
	}
	m.resetMessages()
	m.infoMessage = fmt.Sprintf("Query %s added", m.queryDraft.QueryID)
	m.switchPage(stateQueries)
	return nil
}

func (m *model) viewQueryForm() string {
	return m.viewForm(m.queryForm, "A new customer inquiry. Follow up uses YYYY-MM-DD.")
}

// PROMOTE LEAD
func (m *model) openLeadForm(queryDocID string) tea.Cmd {
	d, err := m.ctrl.BeginPromotion(queryDocID)
	if err != nil {
		m.errMessage = err.Error()
		return nil
	}
	m.leadDraft = d
	form, cmd := newFieldForm("Promote to Lead", []formField{
		readOnlyField("timestamp", "Timestamp", view.FormatTime(d.Timestamp, m.cfg.Location())),
		readOnlyField("queryId", "Query ID", d.QueryID),
		readOnlyField("agentEmail", "Agent", d.AgentEmail),
		readOnlyField("source", "Source", d.Source),
		readOnlyField("cxName", "Customer", d.CxName),
		readOnlyField("contactNumber", "Contact", d.ContactNumber),
		readOnlyField("email", "Email", d.Email),
		textField("productService", "Product/Service", "", 128),
		textField(crm.FieldFollowUpDate, "Follow up", d.FollowUpDate, 10),
		stageField(crm.FieldLeadStage, "Stage", crm.StageOptions(crm.Leads), d.LeadStage),
		textField(crm.FieldRemarks, "Remarks", "", 256),
	})
	m.leadForm = form
	m.pushState(statePromoteLead)
	return cmd
}

func (m *model) updateLeadForm(msg tea.Msg) tea.Cmd {
	cmd, action := m.leadForm.update(msg)
	switch action {
	case formCancel:
		m.popState()
	case formSubmit:
		d := m.leadDraft
		d.ProductService = strings.TrimSpace(m.leadForm.value("productService"))
		d.FollowUpDate = strings.TrimSpace(m.leadForm.value(crm.FieldFollowUpDate))
		d.LeadStage = crm.Stage(m.leadForm.value(crm.FieldLeadStage))
		d.Remark = m.leadForm.value(crm.FieldRemarks)
		m.leadForm.err = ""
		m.leadForm.pending = true
		return submitPromotionCmd(m.ctx, m.ctrl, d)
	}
	return cmd
}

func (m *model) handlePromotionDone(msg promotionDoneMsg) tea.Cmd {
	m.leadForm.pending = false
	if msg.err != nil {
		m.leadForm.err = msg.err.Error()
		return nil
	}
	m.resetMessages()
	m.infoMessage = fmt.Sprintf("Query %s promoted to lead", m.leadDraft.QueryID)
	m.switchPage(stateQueries)
	return nil
}

func (m *model) viewLeadForm() string {
	return m.viewForm(m.leadForm, "Customer details are carried over from the query.")
}
