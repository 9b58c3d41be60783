package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"travelcrm/internal/config"
	"travelcrm/internal/crm"
	"travelcrm/internal/logger"
	"travelcrm/internal/mirror"
	"travelcrm/internal/pipeline"
	"travelcrm/internal/theme"
)

type viewState int

const (
	stateHome viewState = iota
	stateQueries
	stateLeads
	stateBookings
	stateAddQuery
	statePromoteLead
	stateBookingCreation
	stateViewBooking
	stateSettings
)

type model struct {
	ctx         context.Context
	state       viewState
	prevStates  []viewState
	ctrl        *pipeline.Controller
	mirror      *mirror.Mirror
	cfg         *config.Store
	log         logger.Logger
	theme       theme.Theme
	width       int
	height      int
	infoMessage string
	errMessage  string
	showSplash  bool

	queries  *tablePage
	leads    *tablePage
	bookings *tablePage
	editor   *inlineEditor

	queryForm  fieldForm
	queryDraft pipeline.QueryDraft
	leadForm   fieldForm
	leadDraft  pipeline.LeadDraft
	booking    bookingPage
	bookingID  string
	comments   *commentsModal
	settings   settingsModel
	menuInput  textinput.Model
}

const splashBanner = ` _____                    _    ___________ __  ___
|_   _|_ __ __ ___ _____ | |  / ___| ___ \  \/  |
  | | | '__/ _' \ \ / / _ \| | | |   | |_/ / .  . |
  | | | | | (_| |\ V /  __/| | | |___|    /| |\/| |
  |_| |_|  \__,_| \_/ \___||_|  \____|_|\_\\_|  |_/
`

func newModel(ctx context.Context, deps Deps) *model {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	th := theme.Default()
	m := model{
		ctx:        ctx,
		state:      stateHome,
		ctrl:       deps.Controller,
		mirror:     deps.Mirror,
		cfg:        deps.Config,
		log:        log.With("component", "ui"),
		theme:      th,
		width:      120,
		height:     32,
		showSplash: true,
		queries:    newTablePage(crm.Queries, th),
		leads:      newTablePage(crm.Leads, th),
		bookings:   newTablePage(crm.Bookings, th),
		settings:   newSettingsModel(),
	}
	m.resizeTables()
	for _, coll := range []crm.Collection{crm.Queries, crm.Leads, crm.Bookings} {
		m.refresh(coll)
	}
	return &m
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeTables()
		return m, nil
	case mirrorUpdatedMsg:
		m.refresh(msg.collection)
		return m, nil
	case setupFailedMsg:
		m.errMessage = fmt.Sprintf("Could not load data: %v", msg.err)
		return m, nil
	case editAppliedMsg:
		return m, m.handleEditApplied(msg)
	case queryCreatedMsg:
		return m, m.handleQueryCreated(msg)
	case promotionDoneMsg:
		return m, m.handlePromotionDone(msg)
	case bookingDoneMsg:
		return m, m.handleBookingDone(msg)
	case commentAddedMsg:
		return m, m.handleCommentAdded(msg)
	}

	if m.comments != nil {
		return m, m.updateComments(msg)
	}

	var cmd tea.Cmd
	switch m.state {
	case stateHome:
		cmd = m.updateHome(msg)
	case stateQueries:
		cmd = m.updateTablePage(m.queries, msg)
	case stateLeads:
		cmd = m.updateTablePage(m.leads, msg)
	case stateBookings:
		cmd = m.updateTablePage(m.bookings, msg)
	case stateAddQuery:
		cmd = m.updateQueryForm(msg)
	case statePromoteLead:
		cmd = m.updateLeadForm(msg)
	case stateBookingCreation:
		cmd = m.updateBooking(msg)
	case stateViewBooking:
		cmd = m.updateBookingDetail(msg)
	case stateSettings:
		cmd = m.updateSettings(msg)
	default:
		m.state = stateHome
		cmd = m.updateHome(msg)
	}
	return m, cmd
}

func (m *model) View() string {
	var page string
	switch m.state {
	case stateHome:
		page = m.viewHome()
	case stateQueries:
		page = m.viewTablePage(m.queries, "Queries")
	case stateLeads:
		page = m.viewTablePage(m.leads, "Leads")
	case stateBookings:
		page = m.viewTablePage(m.bookings, "Bookings")
	case stateAddQuery:
		page = m.viewQueryForm()
	case statePromoteLead:
		page = m.viewLeadForm()
	case stateBookingCreation:
		page = m.viewBooking()
	case stateViewBooking:
		page = m.viewBookingDetail()
	case stateSettings:
		page = m.viewSettings()
	}
	if m.comments != nil {
		return m.viewComments(page)
	}
	return page
}

// Navigation helpers
func (m *model) pushState(next viewState) {
	m.prevStates = append(m.prevStates, m.state)
	m.state = next
}

func (m *model) popState() {
	if len(m.prevStates) == 0 {
		m.state = stateHome
		return
	}
	idx := len(m.prevStates) - 1
	m.state = m.prevStates[idx]
	m.prevStates = m.prevStates[:idx]
}

// switchPage shows a primary page, dropping the form history.
func (m *model) switchPage(next viewState) {
	m.prevStates = nil
	m.state = next
	m.showSplash = false
}

func (m *model) resetMessages() {
	m.errMessage = ""
	m.infoMessage = ""
}

// navigate handles the page keys shared by every page without a focused text input.
func (m *model) navigate(key tea.KeyMsg) (tea.Cmd, bool) {
	switch key.String() {
	case "1", "h":
		m.resetMessages()
		m.switchPage(stateHome)
	case "2":
		m.resetMessages()
		m.switchPage(stateQueries)
	case "3":
		m.resetMessages()
		m.switchPage(stateLeads)
	case "4":
		m.resetMessages()
		m.switchPage(stateBookings)
	case "5":
		m.resetMessages()
		m.settings = newSettingsModel()
		m.switchPage(stateSettings)
		return m.setMenuInput("1=Agent email  2=Timezone  3=Back", 40), true
	case "q":
		return tea.Quit, true
	default:
		return nil, false
	}
	return nil, true
}

func (m *model) setMenuInput(placeholder string, limit int) tea.Cmd {
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = placeholder
	if limit > 0 {
		input.CharLimit = limit
	}
	cmd := input.Focus()
	m.menuInput = input
	return cmd
}

func (m *model) ensureMenuInput(placeholder string, limit int) tea.Cmd {
	if strings.TrimSpace(m.menuInput.Placeholder) == placeholder {
		if limit <= 0 || m.menuInput.CharLimit == limit {
			if !m.menuInput.Focused() {
				return m.menuInput.Focus()
			}
			return nil
		}
	}
	return m.setMenuInput(placeholder, limit)
}

func batchCmds(cmds []tea.Cmd) tea.Cmd {
	filtered := cmds[:0]
	for _, c := range cmds {
		if c != nil {
			filtered = append(filtered, c)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return tea.Batch(filtered...)
	}
}

func isBackCommand(value string) bool {
	v := strings.TrimSpace(strings.ToLower(value))
	return v == "/" || v == "back"
}

// HOME
func (m *model) updateHome(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		cmd, _ := m.navigate(key)
		return cmd
	}
	return nil
}

func (m *model) viewHome() string {
	lines := []string{m.renderNav()}
	if m.showSplash {
		lines = append(lines, m.theme.Accent.Render(splashBanner))
	}
	lines = append(lines, m.theme.Title.Render("Travel CRM"))
	lines = append(lines, m.theme.Secondary.Render("Queries to leads to bookings, live from the store"))
	lines = append(lines, "")
	if m.cfg != nil {
		lines = append(lines, m.theme.Faint.Render(fmt.Sprintf("Agent: %s  •  %s", m.agentLabel(), m.cfg.Config.Timezone)))
	}
	openQueries, openLeads := m.openCounts()
	lines = append(lines, m.theme.Primary.Render(fmt.Sprintf("Queries: %d (%d open)", len(m.queries.ids), openQueries)))
	lines = append(lines, m.theme.Primary.Render(fmt.Sprintf("Leads: %d (%d open)", len(m.leads.ids), openLeads)))
	lines = append(lines, m.theme.Primary.Render(fmt.Sprintf("Bookings: %d", len(m.bookings.ids))))
	lines = append(lines, "")
	lines = append(lines, m.messageLines()...)
	lines = append(lines, m.renderHelp([][2]string{{"1-4", "Pages"}, {"5", "Settings"}, {"q", "Quit"}}))
	return strings.Join(lines, "\n") + "\n"
}

// openCounts counts the queries and leads whose stage has not closed them yet.
func (m *model) openCounts() (queries, leads int) {
	if m.mirror == nil {
		return 0, 0
	}
	for _, q := range m.mirror.Queries() {
		if !crm.Terminal(crm.Queries, q.LeadStage) {
			queries++
		}
	}
	for _, l := range m.mirror.Leads() {
		if !crm.Terminal(crm.Leads, l.LeadStage) {
			leads++
		}
	}
	return queries, leads
}

func (m *model) agentLabel() string {
	if m.cfg.Config.AgentEmail != "" {
		return m.cfg.Config.AgentEmail
	}
	return m.cfg.Config.Name
}

func (m *model) renderNav() string {
	items := []struct {
		key   string
		label string
		state viewState
	}{
		{"1", "Home", stateHome},
		{"2", "Queries", stateQueries},
		{"3", "Leads", stateLeads},
		{"4", "Bookings", stateBookings},
		{"5", "Settings", stateSettings},
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		label := it.key + " " + it.label
		if m.state == it.state {
			parts = append(parts, m.theme.NavActive.Render(label))
		} else {
			parts = append(parts, m.theme.NavInactive.Render(label))
		}
	}
	return strings.Join(parts, " ") + "\n"
}

func (m *model) messageLines() []string {
	var lines []string
	if m.infoMessage != "" {
		lines = append(lines, m.theme.Success.Render(m.infoMessage))
	}
	if m.errMessage != "" {
		lines = append(lines, m.theme.Danger.Render(m.errMessage))
	}
	return lines
}

func (m *model) renderHelp(pairs [][2]string) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, m.theme.HelpKey.Render(p[0])+" "+m.theme.HelpValue.Render(p[1]))
	}
	return strings.Join(parts, "  •  ")
}
