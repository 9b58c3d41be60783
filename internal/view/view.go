// Package view turns mirror records into table rows and detail lines.
// Every function is pure: the same records always render the same output.
package view

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"

	"travelcrm/internal/crm"
)

const (
	// NoComments fills the remarks column of a record without remarks.
	NoComments = "No comments"
	// NoCommentsYet is shown in the comments modal of a record without remarks.
	NoCommentsYet = "No comments yet."
	// NotAvailable marks an empty booking section.
	NotAvailable = "N/A"

	timeLayout = "2006-01-02 15:04"
)

type column struct {
	title  string
	field  string
	weight int
}

var columns = map[crm.Collection][]column{
	crm.Queries: {
		{"Timestamp", crm.FieldTimestamp, 3},
		{"Query ID", "queryId", 3},
		{"Agent", "agentEmail", 4},
		{"Source", "source", 2},
		{"Customer", "cxName", 3},
		{"Contact", "contactNumber", 3},
		{"Email", "email", 4},
		{"Follow Up", crm.FieldFollowUpDate, 2},
		{"Stage", crm.FieldLeadStage, 2},
		{"Remarks", crm.FieldRemarks, 4},
	},
	crm.Leads: {
		{"Timestamp", crm.FieldTimestamp, 3},
		{"Query ID", "queryId", 3},
		{"Agent", "agentEmail", 4},
		{"Customer", "cxName", 3},
		{"Product/Service", "productService", 4},
		{"Follow Up", crm.FieldFollowUpDate, 2},
		{"Stage", crm.FieldLeadStage, 2},
		{"Remarks", crm.FieldRemarks, 4},
	},
	crm.Bookings: {
		{"Folder No", "folderNo", 2},
		{"Booking Date", crm.FieldBookingDate, 3},
		{"Query ID", "queryId", 3},
		{"Agent", "agentEmail", 4},
		{"Customer", "cxName", 3},
		{"Contact", "contactNumber", 3},
		{"Email", "email", 4},
	},
}

// Columns returns the table columns of a collection sized to fit width.
func Columns(coll crm.Collection, width int) []table.Column {
	cols := columns[coll]
	total := 0
	for _, c := range cols {
		total += c.weight
	}
	// one cell of padding on each side of every column
	avail := width - 2*len(cols)
	out := make([]table.Column, 0, len(cols))
	for _, c := range cols {
		w := len(c.title)
		if total > 0 && avail > 0 {
			if share := avail * c.weight / total; share > w {
				w = share
			}
		}
		out = append(out, table.Column{Title: c.title, Width: w})
	}
	return out
}

// ColumnIndex returns the position of field in the collection's table, or -1.
func ColumnIndex(coll crm.Collection, field string) int {
	for i, c := range columns[coll] {
		if c.field == field {
			return i
		}
	}
	return -1
}

// QueryRows renders one row per query.
func QueryRows(queries []crm.Query, loc *time.Location) []table.Row {
	rows := make([]table.Row, 0, len(queries))
	for _, q := range queries {
		rows = append(rows, table.Row{
			FormatTime(q.Timestamp, loc),
			q.QueryID,
			q.AgentEmail,
			q.Source,
			q.CxName,
			q.ContactNumber,
			q.Email,
			q.FollowUpDate,
			string(q.LeadStage),
			latestRemark(q.Remarks),
		})
	}
	return rows
}

// LeadRows renders one row per lead.
func LeadRows(leads []crm.Lead, loc *time.Location) []table.Row {
	rows := make([]table.Row, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, table.Row{
			FormatTime(l.Timestamp, loc),
			l.QueryID,
			l.AgentEmail,
			l.CxName,
			l.ProductService,
			l.FollowUpDate,
			string(l.LeadStage),
			latestRemark(l.Remarks),
		})
	}
	return rows
}

// BookingRows renders one row per booking.
func BookingRows(bookings []crm.Booking, loc *time.Location) []table.Row {
	rows := make([]table.Row, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, table.Row{
			b.FolderNo,
			FormatTime(b.BookingDate, loc),
			b.QueryID,
			b.AgentEmail,
			b.CxName,
			b.ContactNumber,
			b.Email,
		})
	}
	return rows
}

func latestRemark(remarks []crm.Remark) string {
	if text, ok := crm.LatestRemark(remarks); ok {
		return text
	}
	return NoComments
}

// FormatTime renders a stored timestamp in loc. A zero time is a server
// timestamp that has not come back from the store yet.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "pending"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(timeLayout)
}

// CommentLine is one remark as shown in the comments modal.
type CommentLine struct {
	Text string
	When string
}

// CommentLines returns the remarks newest first. The input is not reordered.
func CommentLines(remarks []crm.Remark, loc *time.Location) []CommentLine {
	sorted := crm.NewestFirst(remarks)
	out := make([]CommentLine, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, CommentLine{Text: r.Text, When: FormatTime(r.Timestamp, loc)})
	}
	return out
}

// Section is a titled block of the booking details page.
type Section struct {
	Title string
	Items []string
}

// BookingDetails renders the booking details page.
func BookingDetails(b crm.Booking, loc *time.Location) []Section {
	flights := make([]string, 0, len(b.Flights))
	for _, f := range b.Flights {
		flights = append(flights, fmt.Sprintf("%s %s | %s (%s) -> %s (%s)", f.Airline, f.FlightNo, f.DepFrom, f.DepDate, f.ArrAt, f.ArrDate))
	}
	hotels := make([]string, 0, len(b.Hotels))
	for _, h := range b.Hotels {
		hotels = append(hotels, fmt.Sprintf("%s in %s | %s to %s", h.Name, h.City, h.Checkin, h.Checkout))
	}
	others := make([]string, 0, len(b.Others))
	for _, o := range b.Others {
		pax := o.Pax
		if pax == "" {
			pax = "0"
		}
		others = append(others, fmt.Sprintf("%s | PAX: %s", o.Narration, pax))
	}

	return []Section{
		{Title: "Booking Info", Items: []string{
			"Folder: " + b.FolderNo,
			"Date: " + FormatTime(b.BookingDate, loc),
			"Agent: " + b.AgentEmail,
		}},
		{Title: "Customer Info", Items: []string{
			"Name: " + b.CxName,
			"Contact: " + b.ContactNumber,
			"Email: " + b.Email,
		}},
		{Title: "Flights", Items: orNA(flights)},
		{Title: "Hotels", Items: orNA(hotels)},
		{Title: "Other Services", Items: orNA(others)},
	}
}

func orNA(items []string) []string {
	if len(items) == 0 {
		return []string{NotAvailable}
	}
	return items
}
