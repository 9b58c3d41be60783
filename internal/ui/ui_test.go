package ui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelcrm/internal/bookingform"
	"travelcrm/internal/config"
	"travelcrm/internal/crm"
	"travelcrm/internal/logger"
	"travelcrm/internal/metrics"
	"travelcrm/internal/mirror"
	"travelcrm/internal/pipeline"
	"travelcrm/internal/storage/storagetest"
)

var seededAt = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

type harness struct {
	store *storagetest.MemoryStore
	m     *model
}

func newHarness(t *testing.T, seed func(s *storagetest.MemoryStore)) *harness {
	t.Helper()
	store := storagetest.NewMemoryStore()
	if seed != nil {
		seed(store)
	}
	met := metrics.New("uitest")
	mir := mirror.New(logger.Nop(), met)
	require.NoError(t, mir.Start(context.Background(), store, 0))
	ctrl := pipeline.NewController(store, mir, logger.Nop(), met, pipeline.WithAgentEmail("agent@example.com"))
	cfg := &config.Store{Config: config.Data{Name: "Sara", AgentEmail: "agent@example.com", Timezone: "UTC"}}
	m := newModel(context.Background(), Deps{Controller: ctrl, Mirror: mir, Config: cfg})
	return &harness{store: store, m: m}
}

func seedQuery(s *storagetest.MemoryStore) {
	s.Seed(crm.Queries, "q1", crm.Query{
		QueryID:    "Q1714555800000",
		Timestamp:  seededAt,
		AgentEmail: "sara@agency.test",
		CxName:     "Nadia Rahman",
		LeadStage:  crm.StageFreshQuery,
		Remarks:    []crm.Remark{{Text: "first call", Timestamp: seededAt}},
	})
}

func seedLead(s *storagetest.MemoryStore) {
	s.Seed(crm.Leads, "l1", crm.Lead{
		QueryID:   "Q1714555800000",
		Timestamp: seededAt,
		CxName:    "Nadia Rahman",
		LeadStage: crm.StageFollowUps,
	})
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send delivers msg and returns the follow-up command.
func (h *harness) send(msg tea.Msg) tea.Cmd {
	_, cmd := h.m.Update(msg)
	return cmd
}

// settle runs cmd and feeds its message back into the model.
func (h *harness) settle(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	require.NotNil(t, cmd)
	h.send(cmd())
}

func TestNavigation(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, stateHome, h.m.state)

	h.send(runes("2"))
	assert.Equal(t, stateQueries, h.m.state)
	h.send(runes("3"))
	assert.Equal(t, stateLeads, h.m.state)
	h.send(runes("4"))
	assert.Equal(t, stateBookings, h.m.state)
	h.send(runes("1"))
	assert.Equal(t, stateHome, h.m.state)
	assert.Contains(t, h.m.View(), "Travel CRM")

	cmd := h.send(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestHomeCountsOpenRecords(t *testing.T) {
	h := newHarness(t, func(s *storagetest.MemoryStore) {
		seedQuery(s)
		seedLead(s)
		s.Seed(crm.Queries, "q2", crm.Query{QueryID: "Q2", Timestamp: seededAt, CxName: "Omar Haddad", LeadStage: crm.StageLost})
		s.Seed(crm.Leads, "l2", crm.Lead{QueryID: "Q3", Timestamp: seededAt, CxName: "Lena Park", LeadStage: crm.StageBooked})
	})

	out := h.m.View()
	assert.Contains(t, out, "Queries: 2 (1 open)")
	assert.Contains(t, out, "Leads: 2 (1 open)")
}

func TestStageQualifiedOpensPromotionForm(t *testing.T) {
	h := newHarness(t, seedQuery)
	h.send(runes("2"))
	require.Len(t, h.m.queries.ids, 1)

	h.send(runes("s"))
	require.NotNil(t, h.m.editor)
	h.send(tea.KeyMsg{Type: tea.KeyRight})
	h.send(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, string(crm.StageQualified), h.m.editor.value())

	h.settle(t, h.send(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Nil(t, h.m.editor)
	assert.Equal(t, statePromoteLead, h.m.state)
	assert.Equal(t, "Nadia Rahman", h.m.leadForm.value("cxName"))

	fields, ok := h.store.Fields(crm.Queries, "q1")
	require.True(t, ok)
	assert.Equal(t, string(crm.StageQualified), fields[crm.FieldLeadStage])

	h.settle(t, h.send(tea.KeyMsg{Type: tea.KeyCtrlS}))
	assert.Equal(t, stateQueries, h.m.state)
	assert.Equal(t, 1, h.store.Count(crm.Leads))
	assert.Empty(t, h.m.leadForm.err)
}

func TestEscapeCancelsEditorWithoutWriting(t *testing.T) {
	h := newHarness(t, seedQuery)
	h.send(runes("2"))
	h.send(runes("s"))
	h.send(tea.KeyMsg{Type: tea.KeyRight})
	h.send(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, h.m.editor)
	assert.False(t, h.m.ctrl.Editor().IsOpen())
	assert.Empty(t, h.store.Calls())
	assert.Equal(t, string(crm.StageFreshQuery), h.m.queries.cell(crm.FieldLeadStage))
}

func TestSecondEditorOpenIsIgnored(t *testing.T) {
	h := newHarness(t, seedQuery)
	h.send(runes("2"))
	h.send(runes("f"))
	require.NotNil(t, h.m.editor)

	assert.Nil(t, h.m.openEditor(h.m.queries, crm.FieldLeadStage))
	assert.Equal(t, crm.FieldFollowUpDate, h.m.editor.target.Field)
	assert.Empty(t, h.m.errMessage)
}

func TestStageEditorKeepsUnrelatedKeys(t *testing.T) {
	h := newHarness(t, seedQuery)
	h.send(runes("2"))
	h.send(runes("s"))
	h.send(tea.KeyMsg{Type: tea.KeyRight})
	h.send(tea.KeyMsg{Type: tea.KeyRight})

	for _, key := range []string{"f", "s", "c", "q", "3"} {
		assert.Nil(t, h.send(runes(key)), key)
	}
	require.NotNil(t, h.m.editor)
	assert.Equal(t, crm.FieldLeadStage, h.m.editor.target.Field)
	assert.Equal(t, string(crm.StageQualified), h.m.editor.value())
	assert.Equal(t, stateQueries, h.m.state)
	assert.Nil(t, h.m.comments)
	assert.Empty(t, h.store.Calls())

	h.settle(t, h.send(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Equal(t, statePromoteLead, h.m.state)
	assert.Nil(t, h.m.editor)
	assert.False(t, h.m.ctrl.Editor().IsOpen())
	assert.Len(t, h.store.Calls(), 1)
}

func TestInvalidFollowUpKeepsEditorOpen(t *testing.T) {
	h := newHarness(t, seedQuery)
	h.send(runes("2"))
	h.send(runes("f"))
	require.NotNil(t, h.m.editor)
	h.m.editor.input.SetValue("05/01/2024")

	assert.Nil(t, h.send(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.NotNil(t, h.m.editor)
	assert.NotEmpty(t, h.m.errMessage)
	assert.Empty(t, h.store.Calls())
}

func TestBookedLeadOpensBookingForm(t *testing.T) {
	h := newHarness(t, seedLead)
	h.send(runes("3"))
	h.send(runes("s"))
	h.send(tea.KeyMsg{Type: tea.KeyRight})
	h.send(tea.KeyMsg{Type: tea.KeyRight})
	h.settle(t, h.send(tea.KeyMsg{Type: tea.KeyEnter}))
	require.Equal(t, stateBookingCreation, h.m.state)
	assert.Equal(t, "Nadia Rahman", h.m.booking.form.CxName)

	h.m.booking.input.SetValue("F-100")
	h.settle(t, h.send(tea.KeyMsg{Type: tea.KeyCtrlS}))
	assert.Equal(t, stateBookings, h.m.state)
	assert.Equal(t, 1, h.store.Count(crm.Bookings))
	assert.Contains(t, h.m.infoMessage, "F-100")

	h.send(mirrorUpdatedMsg{collection: crm.Bookings})
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, stateViewBooking, h.m.state)
	assert.Contains(t, h.m.View(), "Booking F-100")
	h.send(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stateBookings, h.m.state)
}

func TestBookingSubmitUsesFormAsSaved(t *testing.T) {
	h := newHarness(t, seedLead)
	h.m.openBooking("l1")
	require.Equal(t, stateBookingCreation, h.m.state)

	h.m.booking.input.SetValue("F-100")
	h.m.booking.form.Flights[0].Airline = "AF"
	cmd := h.send(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	assert.Nil(t, h.send(runes("x")))

	h.m.booking.form.FolderNo = "F-999"
	h.m.booking.form.Flights[0].Airline = "late"
	h.m.booking.form.AddRow(bookingform.Hotels)
	h.send(cmd())

	var created *storagetest.Call
	for _, c := range h.store.Calls() {
		if c.Op == "create" && c.Collection == crm.Bookings {
			c := c
			created = &c
		}
	}
	require.NotNil(t, created)
	assert.Equal(t, "F-100", created.Fields["folderNo"])
	assert.Equal(t, []crm.FlightSegment{{Airline: "AF"}}, created.Fields["flights"])
	assert.Len(t, created.Fields["hotels"], 1)
}

func TestBookingFormRows(t *testing.T) {
	h := newHarness(t, seedLead)
	h.m.openBooking("l1")
	require.Equal(t, stateBookingCreation, h.m.state)
	b := &h.m.booking

	h.send(tea.KeyMsg{Type: tea.KeyTab})
	h.send(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, bookingform.Flights, b.current().section)

	h.send(tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.NotEmpty(t, b.err)
	assert.Equal(t, 1, b.form.Rows(bookingform.Flights))

	h.send(tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, bookingform.RoundTrip, b.form.TripType)
	assert.Equal(t, 2, b.form.Rows(bookingform.Flights))

	h.send(tea.KeyMsg{Type: tea.KeyCtrlA})
	assert.Equal(t, 3, b.form.Rows(bookingform.Flights))
	assert.Equal(t, 2, b.current().row)

	h.send(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stateHome, h.m.state)
}

func TestWhitespaceCommentIsIgnored(t *testing.T) {
	h := newHarness(t, seedQuery)
	h.send(runes("2"))
	h.send(runes("c"))
	require.NotNil(t, h.m.comments)
	assert.Len(t, h.m.comments.lines, 1)

	h.m.comments.input.SetValue("   ")
	assert.Nil(t, h.send(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.NotNil(t, h.m.comments)
	assert.Empty(t, h.store.Calls())
}

func TestCommentIsAppended(t *testing.T) {
	h := newHarness(t, seedQuery)
	h.send(runes("2"))
	h.send(runes("c"))
	require.NotNil(t, h.m.comments)

	h.m.comments.input.SetValue("called back")
	h.settle(t, h.send(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.Nil(t, h.m.comments)

	calls := h.store.Calls()
	require.Len(t, calls, 1)
	remarks, ok := calls[0].Fields[crm.FieldRemarks].([]crm.Remark)
	require.True(t, ok)
	require.Len(t, remarks, 2)
	assert.Equal(t, "called back", remarks[1].Text)
}

func TestMirrorUpdateRefreshesRows(t *testing.T) {
	h := newHarness(t, seedQuery)
	require.Len(t, h.m.queries.ids, 1)

	h.store.Seed(crm.Queries, "q2", crm.Query{QueryID: "Q2", Timestamp: seededAt.Add(time.Hour), LeadStage: crm.StageInContact})
	h.send(mirrorUpdatedMsg{collection: crm.Queries})
	assert.Len(t, h.m.queries.ids, 2)
}

func TestSearchFiltersRows(t *testing.T) {
	h := newHarness(t, func(s *storagetest.MemoryStore) {
		seedQuery(s)
		s.Seed(crm.Queries, "q2", crm.Query{QueryID: "Q2", Timestamp: seededAt.Add(time.Hour), CxName: "Omar Haddad", LeadStage: crm.StageInContact})
	})
	h.send(runes("2"))
	h.send(runes("/"))
	require.True(t, h.m.queries.searching)

	h.send(runes("OMAR"))
	assert.Equal(t, []string{"q2"}, h.m.queries.ids)

	h.send(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, h.m.queries.searching)
	assert.Equal(t, "OMAR", h.m.queries.term())
	assert.Equal(t, []string{"q2"}, h.m.queries.ids)
}

func TestSettingsRejectsUnknownTimezone(t *testing.T) {
	h := newHarness(t, nil)
	h.send(runes("5"))
	require.Equal(t, stateSettings, h.m.state)

	h.send(runes("2"))
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, settingsEditingTimezone, h.m.settings.mode)

	h.m.settings.input.SetValue("Mars/Olympus")
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Invalid timezone", h.m.settings.err)
	assert.Equal(t, "UTC", h.m.cfg.Config.Timezone)

	h.send(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, settingsViewing, h.m.settings.mode)
}

func TestSetupFailureIsShown(t *testing.T) {
	h := newHarness(t, nil)
	h.send(setupFailedMsg{err: crm.ErrNoStore})
	assert.Contains(t, h.m.View(), "Could not load data")
}
