package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"travelcrm/internal/crm"
	"travelcrm/internal/theme"
	"travelcrm/internal/view"
)

// tablePage is one collection's table with its search box.
type tablePage struct {
	coll      crm.Collection
	table     table.Model
	search    textinput.Model
	searching bool
	rows      []table.Row
	ids       []string
}

func newTablePage(coll crm.Collection, th theme.Theme) *tablePage {
	search := textinput.New()
	search.Prompt = ""
	search.Placeholder = "Type to search"
	search.CharLimit = 64

	t := table.New(
		table.WithColumns(view.Columns(coll, 120)),
		table.WithFocused(true),
		table.WithHeight(12),
		table.WithStyles(th.Table),
	)
	return &tablePage{coll: coll, table: t, search: search}
}

func (p *tablePage) term() string {
	return p.search.Value()
}

func (p *tablePage) setRows(rows []table.Row, ids []string) {
	p.rows = rows
	p.ids = ids
	p.table.SetRows(rows)
	p.table.SetCursor(p.table.Cursor())
}

func (p *tablePage) selectedID() string {
	c := p.table.Cursor()
	if c < 0 || c >= len(p.ids) {
		return ""
	}
	return p.ids[c]
}

// cell returns the rendered text of field in the selected row.
func (p *tablePage) cell(field string) string {
	c, col := p.table.Cursor(), view.ColumnIndex(p.coll, field)
	if c < 0 || c >= len(p.rows) || col < 0 || col >= len(p.rows[c]) {
		return ""
	}
	return p.rows[c][col]
}

func (m *model) page(coll crm.Collection) *tablePage {
	switch coll {
	case crm.Queries:
		return m.queries
	case crm.Leads:
		return m.leads
	case crm.Bookings:
		return m.bookings
	}
	return nil
}

// refresh re-renders a collection's table from the mirror, applying its search term.
func (m *model) refresh(coll crm.Collection) {
	loc := m.cfg.Location()
	page := m.page(coll)
	if page == nil {
		return
	}
	var rows []table.Row
	var ids []string
	switch coll {
	case crm.Queries:
		recs := crm.Filter(m.mirror.Queries(), page.term())
		for _, r := range recs {
			ids = append(ids, r.ID)
		}
		rows = view.QueryRows(recs, loc)
	case crm.Leads:
		recs := crm.Filter(m.mirror.Leads(), page.term())
		for _, r := range recs {
			ids = append(ids, r.ID)
		}
		rows = view.LeadRows(recs, loc)
	case crm.Bookings:
		recs := crm.Filter(m.mirror.Bookings(), page.term())
		for _, r := range recs {
			ids = append(ids, r.ID)
		}
		rows = view.BookingRows(recs, loc)
	}
	page.setRows(rows, ids)
	m.markEditor()
}

func (m *model) refreshAll() {
	for _, coll := range []crm.Collection{crm.Queries, crm.Leads, crm.Bookings} {
		m.refresh(coll)
	}
}

func (m *model) resizeTables() {
	height := m.height - 12
	if height < 5 {
		height = 5
	}
	for _, p := range []*tablePage{m.queries, m.leads, m.bookings} {
		p.table.SetColumns(view.Columns(p.coll, m.width-2))
		p.table.SetHeight(height)
		p.search.Width = m.width / 3
	}
}

func (m *model) updateTablePage(p *tablePage, msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		p.table, cmd = p.table.Update(msg)
		return cmd
	}

	if p.searching {
		return m.updateSearch(p, key)
	}

	var cmds []tea.Cmd
	if m.editor != nil && m.editor.target.Collection == p.coll {
		cmd, consumed := m.updateEditor(key)
		if consumed {
			return cmd
		}
		cmds = append(cmds, cmd)
	}

	if cmd, handled := m.navigate(key); handled {
		return batchCmds(append(cmds, cmd))
	}

	switch key.String() {
	case "/":
		p.searching = true
		p.table.Blur()
		return batchCmds(append(cmds, p.search.Focus()))
	case "n":
		if p.coll == crm.Queries {
			m.resetMessages()
			return batchCmds(append(cmds, m.openQueryForm()))
		}
	case "f":
		if p.coll != crm.Bookings {
			m.resetMessages()
			return batchCmds(append(cmds, m.openEditor(p, crm.FieldFollowUpDate)))
		}
	case "s":
		if p.coll != crm.Bookings {
			m.resetMessages()
			return batchCmds(append(cmds, m.openEditor(p, crm.FieldLeadStage)))
		}
	case "c":
		if p.coll != crm.Bookings {
			return batchCmds(append(cmds, m.openComments(p)))
		}
	case "enter":
		if p.coll == crm.Bookings {
			if id := p.selectedID(); id != "" {
				m.resetMessages()
				m.bookingID = id
				m.pushState(stateViewBooking)
			}
			return batchCmds(cmds)
		}
	}

	var cmd tea.Cmd
	p.table, cmd = p.table.Update(msg)
	return batchCmds(append(cmds, cmd))
}

// updateSearch filters on every keystroke. Enter or Esc returns to the table and keeps the term.
func (m *model) updateSearch(p *tablePage, key tea.KeyMsg) tea.Cmd {
	switch key.Type {
	case tea.KeyEnter, tea.KeyEsc:
		p.searching = false
		p.search.Blur()
		p.table.Focus()
		return nil
	}
	var cmd tea.Cmd
	p.search, cmd = p.search.Update(key)
	m.refresh(p.coll)
	return cmd
}

func (m *model) viewTablePage(p *tablePage, title string) string {
	lines := []string{m.renderNav()}
	lines = append(lines, m.theme.Title.Render(title))
	search := m.theme.Accent.Render("find> ") + p.search.View()
	if !p.searching && p.term() == "" {
		search = m.theme.Faint.Render("/ to search")
	}
	lines = append(lines, search, "")
	if len(p.rows) == 0 {
		if p.term() != "" {
			lines = append(lines, m.theme.Warning.Render("Nothing matches the search."))
		} else {
			lines = append(lines, m.theme.Warning.Render("No "+strings.ToLower(title)+" yet."))
		}
	} else {
		lines = append(lines, p.table.View())
	}
	if m.editor != nil && m.editor.target.Collection == p.coll {
		lines = append(lines, "", m.viewEditor())
	}
	lines = append(lines, "")
	lines = append(lines, m.messageLines()...)

	help := [][2]string{{"↑/↓", "Move"}, {"/", "Search"}}
	switch p.coll {
	case crm.Queries:
		help = append(help, [2]string{"n", "New query"})
		fallthrough
	case crm.Leads:
		help = append(help, [2]string{"f", "Follow up"}, [2]string{"s", "Stage"}, [2]string{"c", "Comments"})
	case crm.Bookings:
		help = append(help, [2]string{"enter", "Details"})
	}
	lines = append(lines, m.renderHelp(help))
	return strings.Join(lines, "\n") + "\n"
}
