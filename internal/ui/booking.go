package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"travelcrm/internal/bookingform"
	"travelcrm/internal/crm"
	"travelcrm/internal/view"
)

const (
	headerFolder = "folderNo"
	headerCxName = "cxName"
)

// bookingSlot addresses one input of the booking form. An empty section is the header.
type bookingSlot struct {
	section bookingform.Section
	row     int
	field   string
}

type bookingPage struct {
	form    *bookingform.Form
	focus   int
	input   textinput.Model
	alert   string
	err     string
	pending bool
}

func (b *bookingPage) slots() []bookingSlot {
	out := []bookingSlot{{field: headerFolder}, {field: headerCxName}}
	for _, s := range bookingform.Sections {
		for row := 0; row < b.form.Rows(s); row++ {
			for _, spec := range bookingform.Fields(s) {
				out = append(out, bookingSlot{section: s, row: row, field: spec.Name})
			}
		}
	}
	return out
}

func (b *bookingPage) current() bookingSlot {
	slots := b.slots()
	if b.focus >= len(slots) {
		b.focus = len(slots) - 1
	}
	if b.focus < 0 {
		b.focus = 0
	}
	return slots[b.focus]
}

func (b *bookingPage) get(s bookingSlot) string {
	switch {
	case s.section == "" && s.field == headerFolder:
		return b.form.FolderNo
	case s.section == "" && s.field == headerCxName:
		return b.form.CxName
	}
	v, _ := b.form.Get(s.section, s.row, s.field)
	return v
}

// load copies the focused value into the input.
func (b *bookingPage) load() tea.Cmd {
	s := b.current()
	b.input.SetValue(b.get(s))
	b.input.Placeholder = slotLabel(s)
	b.input.CharLimit = 96
	for _, spec := range bookingform.Fields(s.section) {
		if spec.Name == s.field && spec.Date {
			b.input.Placeholder = "YYYY-MM-DD"
			b.input.CharLimit = 10
		}
	}
	return b.input.Focus()
}

// store writes the input back into the form. A date-order violation clears the
// offending field and is returned as the alert text.
func (b *bookingPage) store() string {
	s := b.current()
	value := b.input.Value()
	switch {
	case s.section == "" && s.field == headerFolder:
		b.form.FolderNo = value
		return ""
	case s.section == "" && s.field == headerCxName:
		b.form.CxName = value
		return ""
	}
	var ve *crm.ValidationError
	if err := b.form.SetField(s.section, s.row, s.field, value); errors.As(err, &ve) {
		b.input.SetValue(b.get(s))
		return ve.Errors[0].Message
	} else if err != nil {
		return err.Error()
	}
	return ""
}

func slotLabel(s bookingSlot) string {
	switch s.field {
	case headerFolder:
		return "Folder No"
	case headerCxName:
		return "Customer"
	}
	for _, spec := range bookingform.Fields(s.section) {
		if spec.Name == s.field {
			return spec.Label
		}
	}
	return s.field
}

func (m *model) openBooking(leadDocID string) tea.Cmd {
	form, err := m.ctrl.BeginBooking(leadDocID)
	if err != nil {
		m.errMessage = err.Error()
		return nil
	}
	input := textinput.New()
	input.Prompt = ""
	m.booking = bookingPage{form: form, input: input}
	m.pushState(stateBookingCreation)
	return m.booking.load()
}

// focusSlot moves the focus to the first slot matching section and row.
func (b *bookingPage) focusSlot(section bookingform.Section, row int) {
	for i, s := range b.slots() {
		if s.section == section && s.row == row {
			b.focus = i
			return
		}
	}
}

func (m *model) updateBooking(msg tea.Msg) tea.Cmd {
	b := &m.booking
	key, ok := msg.(tea.KeyMsg)
	if !ok || b.pending {
		return nil
	}

	switch key.String() {
	case "esc":
		m.popState()
		return nil
	case "tab", "enter", "down":
		b.alert = b.store()
		b.focus = (b.focus + 1) % len(b.slots())
		return b.load()
	case "shift+tab", "up":
		b.alert = b.store()
		n := len(b.slots())
		b.focus = (b.focus + n - 1) % n
		return b.load()
	case "ctrl+a":
		b.alert = b.store()
		s := b.current()
		section := s.section
		if section == "" {
			section = bookingform.Flights
		}
		b.form.AddRow(section)
		b.focusSlot(section, b.form.Rows(section)-1)
		return b.load()
	case "ctrl+d":
		b.alert = b.store()
		s := b.current()
		if s.section == "" {
			return nil
		}
		if err := b.form.RemoveRow(s.section, s.row); err != nil {
			if errors.Is(err, bookingform.ErrLastRow) {
				b.err = "Each section keeps at least one row."
			} else {
				b.err = err.Error()
			}
			return nil
		}
		b.err = ""
		row := s.row
		if row >= b.form.Rows(s.section) {
			row = b.form.Rows(s.section) - 1
		}
		b.focusSlot(s.section, row)
		return b.load()
	case "ctrl+t":
		b.alert = b.store()
		b.form.ToggleTripType()
		return b.load()
	case "ctrl+s":
		if alert := b.store(); alert != "" {
			b.alert = alert
		}
		b.err = ""
		b.pending = true
		return submitBookingCmd(m.ctx, m.ctrl, b.form.Clone())
	}

	var cmd tea.Cmd
	b.input, cmd = b.input.Update(key)
	return cmd
}

func (m *model) handleBookingDone(msg bookingDoneMsg) tea.Cmd {
	m.booking.pending = false
	if msg.err != nil {
		m.booking.err = msg.err.Error()
		return nil
	}
	m.resetMessages()
	m.infoMessage = fmt.Sprintf("Booking %s created", m.booking.form.FolderNo)
	if n := len(msg.result.Alerts); n > 0 {
		m.infoMessage += fmt.Sprintf(" (%d inverted date range(s) cleared)", n)
	}
	m.switchPage(stateBookings)
	return nil
}

func (m *model) viewBooking() string {
	b := &m.booking
	focused := b.current()
	cell := func(s bookingSlot) string {
		label := m.theme.Secondary.Render(slotLabel(s) + ": ")
		if s == focused {
			return m.theme.Accent.Render("> ") + label + b.input.View()
		}
		v := b.get(s)
		if v == "" {
			v = m.theme.Faint.Render("-")
		}
		return label + v
	}

	trip := "( ) One-way  (•) Return"
	if b.form.TripType == bookingform.OneWay {
		trip = "(•) One-way  ( ) Return"
	}
	lines := []string{
		m.theme.Title.Render("Create Booking"),
		m.theme.Faint.Render("Every section keeps at least one row. Dates use YYYY-MM-DD."),
		"",
		cell(bookingSlot{field: headerFolder}),
		m.theme.Secondary.Render("Booking Date: ") + view.FormatTime(b.form.BookingDate, m.cfg.Location()),
		cell(bookingSlot{field: headerCxName}),
		m.theme.Secondary.Render("Trip: ") + m.theme.Primary.Render(trip),
	}

	titles := map[bookingform.Section]string{
		bookingform.Flights: "Flights",
		bookingform.Hotels:  "Hotels",
		bookingform.Others:  "Other Services",
	}
	wrap := lipgloss.NewStyle().Width(m.width - 4)
	for _, s := range bookingform.Sections {
		lines = append(lines, "", m.theme.Subtitle.Render(titles[s]))
		for row := 0; row < b.form.Rows(s); row++ {
			parts := []string{m.theme.Highlight.Render(fmt.Sprintf("#%d", row+1))}
			for _, spec := range bookingform.Fields(s) {
				parts = append(parts, cell(bookingSlot{section: s, row: row, field: spec.Name}))
			}
			lines = append(lines, wrap.Render("  "+strings.Join(parts, "  ")))
		}
	}

	lines = append(lines, "")
	if b.pending {
		lines = append(lines, m.theme.Warning.Render("Saving..."))
	}
	if b.alert != "" {
		lines = append(lines, m.theme.Warning.Render("⚠ "+b.alert))
	}
	if b.err != "" {
		lines = append(lines, m.theme.Danger.Render(b.err))
	}
	lines = append(lines, m.renderHelp([][2]string{
		{"tab", "Next"}, {"ctrl+a", "Add row"}, {"ctrl+d", "Remove row"},
		{"ctrl+t", "Trip type"}, {"ctrl+s", "Save"}, {"esc", "Cancel"},
	}))
	return strings.Join(lines, "\n") + "\n"
}
