package crm

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Searchable exposes the string form of every field a search box matches against.
type Searchable interface {
	SearchValues() []string
}

// Filter keeps the records where at least one field value contains term,
// compared case-insensitively. An empty term returns records unchanged.
func Filter[T Searchable](records []T, term string) []T {
	if term == "" {
		return records
	}
	fold := cases.Lower(language.Und)
	needle := fold.String(term)
	out := make([]T, 0, len(records))
	for _, r := range records {
		for _, v := range r.SearchValues() {
			if strings.Contains(fold.String(v), needle) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func remarkTexts(remarks []Remark) string {
	texts := make([]string, 0, len(remarks))
	for _, r := range remarks {
		texts = append(texts, r.Text)
	}
	return strings.Join(texts, "\n")
}

// SearchValues implements Searchable.
func (q Query) SearchValues() []string {
	return []string{
		q.ID, q.QueryID, stamp(q.Timestamp), q.AgentEmail, q.Source, q.CxName,
		q.ContactNumber, q.Email, q.FollowUpDate, string(q.LeadStage), remarkTexts(q.Remarks),
	}
}

// SearchValues implements Searchable.
func (l Lead) SearchValues() []string {
	return []string{
		l.ID, l.QueryID, stamp(l.Timestamp), l.AgentEmail, l.Source, l.CxName,
		l.ContactNumber, l.Email, l.ProductService, l.FollowUpDate, string(l.LeadStage),
		remarkTexts(l.Remarks),
	}
}

// SearchValues implements Searchable. Itinerary rows are not searched.
func (b Booking) SearchValues() []string {
	return []string{
		b.ID, b.FolderNo, stamp(b.BookingDate), b.QueryID, b.AgentEmail, b.CxName,
		b.ContactNumber, b.Email,
	}
}
