package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelcrm/internal/crm"
)

var (
	t0    = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	dubai = time.FixedZone("GST", 4*60*60)
)

func queries() []crm.Query {
	return []crm.Query{
		{ID: "a", QueryID: "Q1", Timestamp: t0, CxName: "Ana", FollowUpDate: "2024-05-03", LeadStage: crm.StageFreshQuery,
			Remarks: []crm.Remark{{Text: "first"}, {Text: "latest"}}},
		{ID: "b", QueryID: "Q2", CxName: "Ben", LeadStage: crm.StageLost},
	}
}

func TestQueryRows(t *testing.T) {
	rows := QueryRows(queries(), dubai)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-05-01 13:30", rows[0][0])
	assert.Equal(t, "Q1", rows[0][1])
	assert.Equal(t, "2024-05-03", rows[0][ColumnIndex(crm.Queries, crm.FieldFollowUpDate)])
	assert.Equal(t, "Fresh Query", rows[0][ColumnIndex(crm.Queries, crm.FieldLeadStage)])
	assert.Equal(t, "latest", rows[0][ColumnIndex(crm.Queries, crm.FieldRemarks)])
	assert.Equal(t, NoComments, rows[1][ColumnIndex(crm.Queries, crm.FieldRemarks)])
	assert.Equal(t, "pending", rows[1][0])
}

func TestRowsAreDeterministic(t *testing.T) {
	in := queries()
	assert.Equal(t, QueryRows(in, dubai), QueryRows(in, dubai))

	leads := []crm.Lead{{ID: "l", QueryID: "Q1", Timestamp: t0, ProductService: "Cruise"}}
	assert.Equal(t, LeadRows(leads, time.UTC), LeadRows(leads, time.UTC))

	bookings := []crm.Booking{{ID: "b", FolderNo: "F1", BookingDate: t0}}
	assert.Equal(t, BookingRows(bookings, time.UTC), BookingRows(bookings, time.UTC))
}

func TestRowWidthsMatchColumns(t *testing.T) {
	assert.Len(t, QueryRows(queries(), nil)[0], len(Columns(crm.Queries, 120)))
	assert.Len(t, LeadRows([]crm.Lead{{}}, nil)[0], len(Columns(crm.Leads, 120)))
	assert.Len(t, BookingRows([]crm.Booking{{}}, nil)[0], len(Columns(crm.Bookings, 120)))
}

func TestLeadAndBookingRows(t *testing.T) {
	leads := LeadRows([]crm.Lead{{QueryID: "Q5", CxName: "Cy", ProductService: "Visa", LeadStage: crm.StageFollowUps}}, time.UTC)
	assert.Equal(t, "Visa", leads[0][ColumnIndex(crm.Leads, "productService")])
	assert.Equal(t, "Follow ups", leads[0][ColumnIndex(crm.Leads, crm.FieldLeadStage)])
	assert.Equal(t, NoComments, leads[0][ColumnIndex(crm.Leads, crm.FieldRemarks)])

	bookings := BookingRows([]crm.Booking{{FolderNo: "F9", BookingDate: t0, CxName: "Cy"}}, time.UTC)
	assert.Equal(t, "F9", bookings[0][0])
	assert.Equal(t, "2024-05-01 09:30", bookings[0][1])
}

func TestColumns(t *testing.T) {
	cols := Columns(crm.Bookings, 0)
	require.Len(t, cols, 7)
	assert.Equal(t, "Folder No", cols[0].Title)
	assert.Equal(t, len("Folder No"), cols[0].Width, "never narrower than the title")

	wide := Columns(crm.Queries, 200)
	sum := 0
	for _, c := range wide {
		sum += c.Width
	}
	assert.LessOrEqual(t, sum, 200)
	assert.Equal(t, -1, ColumnIndex(crm.Bookings, crm.FieldLeadStage))
}

func TestCommentLines(t *testing.T) {
	stored := []crm.Remark{
		{Text: "one", Timestamp: t0},
		{Text: "three", Timestamp: t0.Add(2 * time.Hour)},
		{Text: "two", Timestamp: t0.Add(time.Hour)},
	}
	lines := CommentLines(stored, time.UTC)
	require.Len(t, lines, 3)
	assert.Equal(t, CommentLine{Text: "three", When: "2024-05-01 11:30"}, lines[0])
	assert.Equal(t, "one", lines[2].Text)
	assert.Equal(t, "one", stored[0].Text)
	assert.Empty(t, CommentLines(nil, time.UTC))
}

func TestBookingDetails(t *testing.T) {
	b := crm.Booking{
		FolderNo: "F7", BookingDate: t0, AgentEmail: "sam@agency.test",
		CxName: "Dana", ContactNumber: "555", Email: "dana@example.com",
		Flights: []crm.FlightSegment{{Airline: "EK", FlightNo: "EK1", DepFrom: "DXB", DepDate: "2024-06-01", ArrAt: "LHR", ArrDate: "2024-06-01"}},
		Others:  []crm.OtherService{{Narration: "Insurance"}},
	}
	sections := BookingDetails(b, time.UTC)
	require.Len(t, sections, 5)
	assert.Equal(t, []string{"Folder: F7", "Date: 2024-05-01 09:30", "Agent: sam@agency.test"}, sections[0].Items)
	assert.Equal(t, "Name: Dana", sections[1].Items[0])
	assert.Equal(t, []string{"EK EK1 | DXB (2024-06-01) -> LHR (2024-06-01)"}, sections[2].Items)
	assert.Equal(t, []string{NotAvailable}, sections[3].Items)
	assert.Equal(t, []string{"Insurance | PAX: 0"}, sections[4].Items)
}
