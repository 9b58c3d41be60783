package ui

import (
	"net/mail"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type settingsMode int

const (
	settingsViewing settingsMode = iota
	settingsEditingEmail
	settingsEditingTimezone
)

type settingsModel struct {
	mode  settingsMode
	input textinput.Model
	err   string
}

func newSettingsModel() settingsModel {
	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 96
	return settingsModel{mode: settingsViewing, input: input}
}

func (s *settingsModel) edit(mode settingsMode, value string) tea.Cmd {
	s.mode = mode
	s.err = ""
	s.input = textinput.New()
	s.input.Prompt = ""
	s.input.CharLimit = 96
	s.input.SetValue(value)
	return s.input.Focus()
}

// SETTINGS
func (m *model) updateSettings(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	key, isKey := msg.(tea.KeyMsg)

	switch m.settings.mode {
	case settingsViewing:
		if focus := m.ensureMenuInput("1=Agent email  2=Timezone  3=Back", 40); focus != nil {
			cmds = append(cmds, focus)
		}
		if isKey && key.Type == tea.KeyEsc {
			m.switchPage(stateHome)
			return batchCmds(cmds)
		}
		var cmd tea.Cmd
		m.menuInput, cmd = m.menuInput.Update(msg)
		cmds = append(cmds, cmd)
		if isKey && key.Type == tea.KeyEnter {
			value := strings.TrimSpace(strings.ToLower(m.menuInput.Value()))
			m.menuInput.SetValue("")
			switch value {
			case "1", "email", "agent":
				cmds = append(cmds, m.settings.edit(settingsEditingEmail, m.cfg.Config.AgentEmail))
			case "2", "timezone":
				cmds = append(cmds, m.settings.edit(settingsEditingTimezone, m.cfg.Config.Timezone))
			case "3", "back", "/":
				m.switchPage(stateHome)
			default:
				m.settings.err = "Choose 1 or 2 to edit settings"
			}
		}

	case settingsEditingEmail, settingsEditingTimezone:
		if isKey && key.Type == tea.KeyEsc {
			m.settings.mode = settingsViewing
			m.settings.err = ""
			return batchCmds(cmds)
		}
		var cmd tea.Cmd
		m.settings.input, cmd = m.settings.input.Update(msg)
		cmds = append(cmds, cmd)
		if isKey && key.Type == tea.KeyEnter {
			value := strings.TrimSpace(m.settings.input.Value())
			switch {
			case isBackCommand(value):
				m.settings.mode = settingsViewing
			case m.settings.mode == settingsEditingEmail:
				m.saveAgentEmail(value)
			default:
				m.saveTimezone(value)
			}
		}
	}
	return batchCmds(cmds)
}

func (m *model) saveAgentEmail(value string) {
	if value == "" {
		m.settings.err = "Agent email cannot be empty"
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		m.settings.err = "Invalid email address"
		return
	}
	m.cfg.Config.AgentEmail = value
	if err := m.cfg.Save(); err != nil {
		m.settings.err = err.Error()
		return
	}
	m.ctrl.SetAgentEmail(value)
	m.log.Info("agent email updated", "email", value)
	m.settings.err = ""
	m.infoMessage = "Agent email updated"
	m.settings.mode = settingsViewing
}

func (m *model) saveTimezone(value string) {
	if value == "" {
		m.settings.err = "Timezone cannot be empty"
		return
	}
	if _, err := time.LoadLocation(value); err != nil {
		m.settings.err = "Invalid timezone"
		return
	}
	m.cfg.Config.Timezone = value
	if err := m.cfg.Save(); err != nil {
		m.settings.err = err.Error()
		return
	}
	m.log.Info("timezone updated", "timezone", value)
	m.settings.err = ""
	m.infoMessage = "Timezone updated"
	m.settings.mode = settingsViewing
	m.refreshAll()
}

func (m *model) viewSettings() string {
	lines := []string{m.renderNav()}
	lines = append(lines, m.theme.Title.Render("Settings & Help"))
	lines = append(lines, m.theme.Faint.Render("'/' or esc goes back."))
	lines = append(lines, "")
	lines = append(lines, m.theme.Secondary.Render("Name: "+m.cfg.Config.Name))
	lines = append(lines, m.theme.Secondary.Render("Agent email: "+m.cfg.Config.AgentEmail))
	lines = append(lines, m.theme.Secondary.Render("Timezone: "+m.cfg.Config.Timezone))
	lines = append(lines, "")
	lines = append(lines, m.theme.Highlight.Render("Shortcuts"))
	lines = append(lines, m.theme.HelpKey.Render("f / s")+" → "+m.theme.HelpValue.Render("Edit follow up / stage in a table"))
	lines = append(lines, m.theme.HelpKey.Render("c")+" → "+m.theme.HelpValue.Render("Comments of the selected row"))
	lines = append(lines, m.theme.HelpKey.Render("/")+" → "+m.theme.HelpValue.Render("Search"))
	lines = append(lines, m.theme.HelpKey.Render("Ctrl+C")+" → "+m.theme.HelpValue.Render("Quit"))
	lines = append(lines, "")

	switch m.settings.mode {
	case settingsViewing:
		lines = append(lines, m.theme.Secondary.Render("1. Update agent email"))
		lines = append(lines, m.theme.Secondary.Render("2. Update timezone"))
		lines = append(lines, m.theme.Faint.Render("3. Back"))
		lines = append(lines, "")
		lines = append(lines, m.theme.Accent.Render("> ")+m.menuInput.View())
	case settingsEditingEmail:
		lines = append(lines, m.theme.Secondary.Render("Enter agent email:"))
		lines = append(lines, m.settings.input.View())
	case settingsEditingTimezone:
		lines = append(lines, m.theme.Secondary.Render("Enter timezone (e.g. Asia/Kolkata):"))
		lines = append(lines, m.settings.input.View())
	}
	if m.settings.err != "" {
		lines = append(lines, "", m.theme.Danger.Render(m.settings.err))
	}
	if m.infoMessage != "" {
		lines = append(lines, "", m.theme.Success.Render(m.infoMessage))
	}
	return strings.Join(lines, "\n") + "\n"
}
