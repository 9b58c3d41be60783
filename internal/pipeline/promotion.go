package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"travelcrm/internal/bookingform"
	"travelcrm/internal/crm"
	"travelcrm/internal/storage"
)

// LeadDraft is the promotion form, pre-filled from the originating query.
type LeadDraft struct {
	Timestamp     time.Time
	QueryID       string
	AgentEmail    string
	Source        string
	CxName        string
	ContactNumber string
	Email         string

	ProductService string
	FollowUpDate   string
	LeadStage      crm.Stage
	Remark         string
}

// BeginPromotion selects the query and returns its promotion form.
func (c *Controller) BeginPromotion(queryDocID string) (LeadDraft, error) {
	q, err := c.mirror.Query(queryDocID)
	if err != nil {
		return LeadDraft{}, fmt.Errorf("begin promotion %s: %w", queryDocID, err)
	}
	c.setActive(crm.Queries, queryDocID)
	return LeadDraft{
		Timestamp:     q.Timestamp,
		QueryID:       q.QueryID,
		AgentEmail:    q.AgentEmail,
		Source:        q.Source,
		CxName:        q.CxName,
		ContactNumber: q.ContactNumber,
		Email:         q.Email,
		FollowUpDate:  crm.Today(c.now()),
		LeadStage:     crm.StageFreshLead,
	}, nil
}

func (d LeadDraft) validate() error {
	var errs []crm.FieldError
	if d.FollowUpDate != "" {
		if _, err := crm.ParseDate(d.FollowUpDate); err != nil {
			errs = append(errs, crm.FieldError{Field: crm.FieldFollowUpDate, Message: "use format YYYY-MM-DD"})
		}
	}
	if !crm.ValidStage(crm.Leads, d.LeadStage) {
		errs = append(errs, crm.FieldError{Field: crm.FieldLeadStage, Message: "unknown lead stage " + string(d.LeadStage)})
	}
	if len(errs) > 0 {
		return &crm.ValidationError{Errors: errs}
	}
	return nil
}

// SubmitPromotion creates a lead from the active query, then marks the query Qualified.
// When the lead cannot be created the query is left untouched.
func (c *Controller) SubmitPromotion(ctx context.Context, d LeadDraft) (string, error) {
	queryDocID, err := c.activeOf(crm.Queries)
	if err != nil {
		return "", err
	}
	if err := d.validate(); err != nil {
		return "", err
	}
	q, err := c.mirror.Query(queryDocID)
	if err != nil {
		return "", fmt.Errorf("submit promotion %s: %w", queryDocID, err)
	}

	lead := storage.Fields{
		"queryId":          q.QueryID,
		"agentEmail":       q.AgentEmail,
		"source":           q.Source,
		"cxName":           q.CxName,
		"contactNumber":    q.ContactNumber,
		"email":            q.Email,
		crm.FieldTimestamp: storage.ServerTimestamp,

		"productService":      d.ProductService,
		crm.FieldFollowUpDate: d.FollowUpDate,
		crm.FieldLeadStage:    string(d.LeadStage),
		crm.FieldRemarks:      []crm.Remark{{Text: d.Remark, Timestamp: c.now().UTC()}},
	}
	leadID, err := c.create(ctx, crm.Leads, lead)
	if err != nil {
		return "", c.fail("submit_promotion", fmt.Errorf("create lead for %s: %w", q.QueryID, err))
	}
	if err := c.update(ctx, crm.Queries, queryDocID, storage.Fields{crm.FieldLeadStage: string(crm.StageQualified)}); err != nil {
		return leadID, c.fail("submit_promotion", fmt.Errorf("mark query %s qualified: %w", q.QueryID, err))
	}
	c.transitioned(crm.TransitionPromoteLead)
	c.log.Info("query promoted", "query", q.QueryID, "lead", leadID)
	return leadID, nil
}

// BeginBooking selects the lead and returns a reset booking form.
func (c *Controller) BeginBooking(leadDocID string) (*bookingform.Form, error) {
	l, err := c.mirror.Lead(leadDocID)
	if err != nil {
		return nil, fmt.Errorf("begin booking %s: %w", leadDocID, err)
	}
	c.setActive(crm.Leads, leadDocID)
	return bookingform.New(l.CxName, c.now()), nil
}

// BookingResult reports a submitted booking.
type BookingResult struct {
	ID string
	// Alerts lists the inverted date ranges cleared during assembly.
	Alerts []crm.FieldError
}

// SubmitBooking creates a booking from the form and the active lead, then marks the lead Booked.
func (c *Controller) SubmitBooking(ctx context.Context, form *bookingform.Form) (BookingResult, error) {
	leadDocID, err := c.activeOf(crm.Leads)
	if err != nil {
		return BookingResult{}, err
	}
	l, err := c.mirror.Lead(leadDocID)
	if err != nil {
		return BookingResult{}, fmt.Errorf("submit booking %s: %w", leadDocID, err)
	}

	rows := form.Assemble()
	booking := storage.Fields{
		crm.FieldBookingDate: storage.ServerTimestamp,
		"folderNo":           strings.TrimSpace(form.FolderNo),
		"queryId":            l.QueryID,
		"agentEmail":         l.AgentEmail,
		"cxName":             form.CxName,
		"contactNumber":      l.ContactNumber,
		"email":              l.Email,
		"flights":            rows.Flights,
		"hotels":             rows.Hotels,
		"others":             rows.Others,
	}
	res := BookingResult{Alerts: rows.Alerts}
	res.ID, err = c.create(ctx, crm.Bookings, booking)
	if err != nil {
		return res, c.fail("submit_booking", fmt.Errorf("create booking for %s: %w", l.QueryID, err))
	}
	if err := c.update(ctx, crm.Leads, leadDocID, storage.Fields{crm.FieldLeadStage: string(crm.StageBooked)}); err != nil {
		return res, c.fail("submit_booking", fmt.Errorf("mark lead %s booked: %w", l.QueryID, err))
	}
	c.transitioned(crm.TransitionCreateBooking)
	c.log.Info("lead booked", "query", l.QueryID, "booking", res.ID, "alerts", len(res.Alerts))
	return res, nil
}

// QueryDraft is the add-query form.
type QueryDraft struct {
	Timestamp     time.Time
	QueryID       string
	AgentEmail    string
	Source        string
	CxName        string
	ContactNumber string
	Email         string
	FollowUpDate  string
	LeadStage     crm.Stage
	Remark        string
}

// NewQueryDraft returns a blank add-query form with a fresh query id.
func (c *Controller) NewQueryDraft() QueryDraft {
	now := c.now()
	return QueryDraft{
		Timestamp:  now,
		QueryID:    "Q" + strconv.FormatInt(now.UnixMilli(), 10),
		AgentEmail: c.agent(),
		LeadStage:  crm.StageFreshQuery,
	}
}

// CreateQuery stores a new query. A non-blank remark becomes its first remark.
func (c *Controller) CreateQuery(ctx context.Context, d QueryDraft) (string, error) {
	var errs []crm.FieldError
	if d.FollowUpDate != "" {
		if _, err := crm.ParseDate(d.FollowUpDate); err != nil {
			errs = append(errs, crm.FieldError{Field: crm.FieldFollowUpDate, Message: "use format YYYY-MM-DD"})
		}
	}
	if !crm.ValidStage(crm.Queries, d.LeadStage) {
		errs = append(errs, crm.FieldError{Field: crm.FieldLeadStage, Message: "unknown query stage " + string(d.LeadStage)})
	}
	if len(errs) > 0 {
		return "", &crm.ValidationError{Errors: errs}
	}

	remarks := []crm.Remark{}
	if text := strings.TrimSpace(d.Remark); text != "" {
		remarks = append(remarks, crm.Remark{Text: text, Timestamp: c.now().UTC()})
	}
	id, err := c.create(ctx, crm.Queries, storage.Fields{
		crm.FieldTimestamp:    storage.ServerTimestamp,
		"queryId":             d.QueryID,
		"agentEmail":          d.AgentEmail,
		"source":              d.Source,
		"cxName":              d.CxName,
		"contactNumber":       d.ContactNumber,
		"email":               d.Email,
		crm.FieldFollowUpDate: d.FollowUpDate,
		crm.FieldLeadStage:    string(d.LeadStage),
		crm.FieldRemarks:      remarks,
	})
	if err != nil {
		return "", c.fail("create_query", fmt.Errorf("create query %s: %w", d.QueryID, err))
	}
	c.log.Info("query created", "query", d.QueryID, "id", id)
	return id, nil
}
