package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"travelcrm/internal/view"
)

// commentsModal lists a record's remarks, newest first. The list is captured when
// the modal opens and is not refreshed while it stays open.
type commentsModal struct {
	label   string
	lines   []view.CommentLine
	input   textinput.Model
	err     string
	pending bool
}

func (m *model) openComments(p *tablePage) tea.Cmd {
	id := p.selectedID()
	if id == "" {
		return nil
	}
	label, remarks, err := m.ctrl.OpenComments(p.coll, id)
	if err != nil {
		m.errMessage = err.Error()
		return nil
	}
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = "Add a comment"
	input.CharLimit = 256
	m.comments = &commentsModal{
		label: label,
		lines: view.CommentLines(remarks, m.cfg.Location()),
		input: input,
	}
	return m.comments.input.Focus()
}

func (m *model) updateComments(msg tea.Msg) tea.Cmd {
	c := m.comments
	key, ok := msg.(tea.KeyMsg)
	if !ok || c.pending {
		return nil
	}
	switch key.Type {
	case tea.KeyEsc:
		m.comments = nil
		return nil
	case tea.KeyEnter:
		text := c.input.Value()
		if strings.TrimSpace(text) == "" {
			return nil
		}
		c.err = ""
		c.pending = true
		return addCommentCmd(m.ctx, m.ctrl, text)
	}
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(key)
	return cmd
}

// handleCommentAdded closes the modal once the remark is stored.
func (m *model) handleCommentAdded(msg commentAddedMsg) tea.Cmd {
	if m.comments == nil {
		return nil
	}
	m.comments.pending = false
	if msg.err != nil {
		m.comments.err = fmt.Sprintf("Could not save comment: %v", msg.err)
		return nil
	}
	if msg.added {
		m.comments = nil
		m.infoMessage = "Comment added"
	}
	return nil
}

func (m *model) viewComments(page string) string {
	c := m.comments
	lines := []string{m.theme.Title.Render("Comments for " + c.label), ""}
	if len(c.lines) == 0 {
		lines = append(lines, m.theme.Faint.Render(view.NoCommentsYet))
	}
	for _, l := range c.lines {
		lines = append(lines, m.theme.Primary.Render(l.Text)+"  "+m.theme.Faint.Render(l.When))
	}
	lines = append(lines, "", m.theme.Accent.Render("> ")+c.input.View())
	if c.pending {
		lines = append(lines, m.theme.Warning.Render("Saving..."))
	}
	if c.err != "" {
		lines = append(lines, m.theme.Danger.Render(c.err))
	}
	lines = append(lines, m.renderHelp([][2]string{{"enter", "Add"}, {"esc", "Close"}}))

	box := m.theme.Modal.Width(m.width * 2 / 3).Render(strings.Join(lines, "\n"))
	if m.width <= 0 || m.height <= 0 {
		return page + "\n" + box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
