package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"travelcrm/internal/view"
)

// BOOKING DETAILS
func (m *model) updateBookingDetail(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch key.String() {
	case "esc", "backspace", "enter":
		m.popState()
		return nil
	}
	cmd, _ := m.navigate(key)
	return cmd
}

func (m *model) viewBookingDetail() string {
	lines := []string{m.renderNav()}
	b, err := m.mirror.Booking(m.bookingID)
	if err != nil {
		lines = append(lines, m.theme.Danger.Render("Booking is no longer available."), "")
		lines = append(lines, m.renderHelp([][2]string{{"esc", "Back"}}))
		return strings.Join(lines, "\n") + "\n"
	}

	lines = append(lines, m.theme.Title.Render("Booking "+b.FolderNo))
	for _, sec := range view.BookingDetails(b, m.cfg.Location()) {
		lines = append(lines, "", m.theme.Subtitle.Render(sec.Title))
		for _, item := range sec.Items {
			if item == view.NotAvailable {
				lines = append(lines, "  "+m.theme.Faint.Render(item))
				continue
			}
			lines = append(lines, "  "+m.theme.Primary.Render(item))
		}
	}
	lines = append(lines, "", m.renderHelp([][2]string{{"esc", "Back"}, {"1-5", "Pages"}}))
	return strings.Join(lines, "\n") + "\n"
}
